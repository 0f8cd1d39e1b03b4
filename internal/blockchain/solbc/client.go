// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/blockchain"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc          *rpc.Client
	logger       *zap.Logger
	pollInterval time.Duration

	decimalsMu sync.RWMutex
	decimals   map[solana.PublicKey]uint8
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:          rpc.New(rpcURL),
		logger:       logger.Named("solbc-client"),
		pollInterval: 500 * time.Millisecond,
		decimals:     make(map[solana.PublicKey]uint8),
	}
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// WaitForTransactionConfirmation polls the signature until it is confirmed, fails on chain,
// or timeout elapses.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, timeout time.Duration) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s", blockchain.ErrConfirmationTimeout, signature)
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", blockchain.ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				return nil
			}
		}
	}
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetTokenDecimals returns the mint's decimals. Results are cached; mints never change them.
func (c *Client) GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	c.decimalsMu.RLock()
	d, ok := c.decimals[mint]
	c.decimalsMu.RUnlock()
	if ok {
		return d, nil
	}

	supply, err := c.rpc.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get token supply %s: %w", mint, err)
	}
	if supply == nil || supply.Value == nil {
		return 0, fmt.Errorf("get token supply %s: empty result", mint)
	}

	c.decimalsMu.Lock()
	c.decimals[mint] = supply.Value.Decimals
	c.decimalsMu.Unlock()
	return supply.Value.Decimals, nil
}

// GetTokenBalance returns the UI amount held in the owner's associated token account.
func (c *Client) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (string, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", err
	}
	res, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("get token balance %s: %w", ata, err)
	}
	if res == nil || res.Value == nil {
		return "", fmt.Errorf("get token balance %s: empty result", ata)
	}
	return res.Value.UiAmountString, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
