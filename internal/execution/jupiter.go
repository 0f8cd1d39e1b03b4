// =============================
// File: internal/execution/jupiter.go
// =============================
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/blockchain"
	"github.com/rovshanmuradov/moonbag/internal/wallet"
)

const wrappedSOLMint = "So11111111111111111111111111111111111111112"

// JupiterConfig holds swap parameters for exit sells.
type JupiterConfig struct {
	BaseURL        string
	SlippageBps    int
	PriorityFee    uint64 // lamports, 0 lets Jupiter pick
	ConfirmTimeout time.Duration
	Retries        int
	HTTPTimeout    time.Duration
}

// JupiterSeller sells tokens for SOL through the Jupiter aggregator.
type JupiterSeller struct {
	http   *resty.Client
	chain  blockchain.Client
	wallet *wallet.Wallet
	cfg    JupiterConfig
	logger *zap.Logger
}

type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports interface{}     `json:"prioritizationFeeLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

func NewJupiterSeller(cfg JupiterConfig, chain blockchain.Client, w *wallet.Wallet, logger *zap.Logger) *JupiterSeller {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 45 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("Accept", "application/json")

	return &JupiterSeller{
		http:   client,
		chain:  chain,
		wallet: w,
		cfg:    cfg,
		logger: logger.Named("jupiter"),
	}
}

// Sell swaps quantity tokens of tokenMint into SOL and waits for confirmation.
func (j *JupiterSeller) Sell(ctx context.Context, tokenMint string, quantity decimal.Decimal) (string, error) {
	mint, err := solana.PublicKeyFromBase58(tokenMint)
	if err != nil {
		return "", fmt.Errorf("invalid token mint %q: %w", tokenMint, err)
	}

	decimals, err := j.chain.GetTokenDecimals(ctx, mint)
	if err != nil {
		return "", err
	}
	amount, err := toBaseUnits(quantity, decimals)
	if err != nil {
		return "", err
	}

	notify := func(err error, d time.Duration) {
		j.logger.Warn("Retrying sell after error",
			zap.String("token", tokenMint),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	op := func() (solana.Signature, error) {
		return j.sellOnce(ctx, tokenMint, amount)
	}

	sig, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(j.cfg.Retries+1)),
		backoff.WithNotify(notify))
	if err != nil {
		if IsSlippageExceededError(err) {
			return "", &SlippageExceededError{SlippageBps: j.cfg.SlippageBps, Amount: amount, OriginalError: err}
		}
		return "", err
	}
	return sig.String(), nil
}

func (j *JupiterSeller) sellOnce(ctx context.Context, tokenMint string, amount uint64) (solana.Signature, error) {
	rawQuote, quote, err := j.quote(ctx, tokenMint, amount)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := j.swapTransaction(ctx, rawQuote)
	if err != nil {
		return solana.Signature{}, err
	}

	// Jupiter fills the signature slots with placeholders.
	tx.Signatures = nil
	if err := j.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to sign swap: %w", err))
	}

	sig, err := j.chain.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if isBlockhashExpired(err) {
			return solana.Signature{}, err
		}
		return solana.Signature{}, backoff.Permanent(fmt.Errorf("send swap: %w", err))
	}

	j.logger.Info("📤 Sell transaction sent",
		zap.String("token", tokenMint),
		zap.String("in_amount", quote.InAmount),
		zap.String("expected_out_lamports", quote.OutAmount),
		zap.String("signature", sig.String()))

	if err := j.chain.WaitForTransactionConfirmation(ctx, sig, j.cfg.ConfirmTimeout); err != nil {
		// A failed swap moved nothing, so a fresh quote may be tried. A timeout may still land.
		if errors.Is(err, blockchain.ErrTransactionFailed) {
			return solana.Signature{}, fmt.Errorf("swap %s: %w", sig, err)
		}
		return solana.Signature{}, backoff.Permanent(fmt.Errorf("swap %s: %w", sig, err))
	}

	j.logger.Info("✅ Sell confirmed", zap.String("signature", sig.String()))
	return sig, nil
}

func (j *JupiterSeller) quote(ctx context.Context, tokenMint string, amount uint64) (json.RawMessage, quoteResponse, error) {
	resp, err := j.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   tokenMint,
			"outputMint":  wrappedSOLMint,
			"amount":      strconv.FormatUint(amount, 10),
			"slippageBps": strconv.Itoa(j.cfg.SlippageBps),
			"swapMode":    "ExactIn",
		}).
		Get("/quote")
	if err != nil {
		return nil, quoteResponse{}, fmt.Errorf("quote request: %w", err)
	}
	if err := statusError("quote", resp); err != nil {
		return nil, quoteResponse{}, err
	}

	var q quoteResponse
	if err := json.Unmarshal(resp.Body(), &q); err != nil {
		return nil, quoteResponse{}, backoff.Permanent(fmt.Errorf("decode quote: %w", err))
	}
	return json.RawMessage(resp.Body()), q, nil
}

func (j *JupiterSeller) swapTransaction(ctx context.Context, rawQuote json.RawMessage) (*solana.Transaction, error) {
	req := swapRequest{
		QuoteResponse:           rawQuote,
		UserPublicKey:           j.wallet.PublicKey.String(),
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	}
	if j.cfg.PriorityFee > 0 {
		req.PrioritizationFeeLamports = j.cfg.PriorityFee
	} else {
		req.PrioritizationFeeLamports = "auto"
	}

	resp, err := j.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/swap")
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	if err := statusError("swap", resp); err != nil {
		return nil, err
	}

	// Decoded by hand: resty skips SetResult when the reply has no JSON content type.
	var body swapResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode swap response: %w", err))
	}
	if body.SwapTransaction == "" {
		return nil, backoff.Permanent(errors.New("swap response has no swapTransaction"))
	}

	tx, err := solana.TransactionFromBase64(body.SwapTransaction)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode swap transaction: %w", err))
	}
	return tx, nil
}

// statusError maps HTTP failures: 4xx are permanent, 5xx and 429 are retried.
func statusError(op string, resp *resty.Response) error {
	code := resp.StatusCode()
	if code == http.StatusOK {
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(resp.Body(), &apiErr)
	err := fmt.Errorf("%s: http %d: %s", op, code, apiErr.Error)
	if apiErr.ErrorCode == "COULD_NOT_FIND_ANY_ROUTE" || apiErr.ErrorCode == "NO_ROUTES_FOUND" {
		err = fmt.Errorf("%w: %w", ErrNoRoute, err)
	}
	if code == http.StatusTooManyRequests || code >= 500 {
		return err
	}
	return backoff.Permanent(err)
}

// toBaseUnits converts a UI token amount into integer base units.
func toBaseUnits(quantity decimal.Decimal, decimals uint8) (uint64, error) {
	units := quantity.Shift(int32(decimals)).Truncate(0)
	if !units.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
	}
	if !units.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows", ErrInvalidQuantity, quantity)
	}
	return units.BigInt().Uint64(), nil
}
