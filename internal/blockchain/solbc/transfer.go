// internal/blockchain/solbc/transfer.go
package solbc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/blockchain"
	"github.com/rovshanmuradov/moonbag/internal/wallet"
)

var lamportsPerSOL = decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL))

// SOLToLamports converts a SOL amount, truncating below one lamport.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	if !sol.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", sol)
	}
	lamports := sol.Mul(lamportsPerSOL).Truncate(0)
	if !lamports.IsPositive() {
		return 0, fmt.Errorf("amount %s is below one lamport", sol)
	}
	return uint64(lamports.IntPart()), nil
}

// TransferSOL sends sol from w to recipient and returns the signature without waiting
// for confirmation. Preflight is skipped.
func TransferSOL(ctx context.Context, client blockchain.Client, w *wallet.Wallet, recipient solana.PublicKey, sol decimal.Decimal, logger *zap.Logger) (solana.Signature, error) {
	lamports, err := SOLToLamports(sol)
	if err != nil {
		return solana.Signature{}, err
	}

	blockhash, err := client.GetRecentBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, w.PublicKey, recipient).Build(),
		},
		blockhash,
		solana.TransactionPayer(w.PublicKey),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transfer: %w", err)
	}
	if err := w.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transfer: %w", err)
	}

	sig, err := client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transfer: %w", err)
	}

	logger.Info("💸 SOL transfer sent",
		zap.String("to", recipient.String()),
		zap.String("amount_sol", sol.String()),
		zap.Uint64("lamports", lamports),
		zap.String("signature", sig.String()))
	return sig, nil
}
