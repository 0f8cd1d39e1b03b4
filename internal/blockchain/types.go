// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// Client is the subset of Solana RPC the exit manager relies on.
type Client interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, timeout time.Duration) error
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}
