// =============================
// File: internal/execution/errors.go
// =============================
package execution

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Solana program error codes that mean the swap hit its slippage bound.
const (
	PumpSwapSlippageCode    = "0x1774"
	PumpSwapSlippageCodeInt = 6004
	JupiterSlippageCode     = "0x1771"
	JupiterSlippageCodeInt  = 6001
)

var (
	ErrNoRoute         = errors.New("no swap route")
	ErrInvalidQuantity = errors.New("invalid sell quantity")
)

// SlippageExceededError представляет ошибку превышения проскальзывания
type SlippageExceededError struct {
	SlippageBps   int
	Amount        uint64
	OriginalError error
}

// IsSlippageExceededError определяет, является ли ошибка ошибкой превышения проскальзывания
func IsSlippageExceededError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ExceededSlippage") ||
		strings.Contains(msg, "SlippageToleranceExceeded") ||
		strings.Contains(msg, PumpSwapSlippageCode) ||
		strings.Contains(msg, strconv.Itoa(PumpSwapSlippageCodeInt)) ||
		strings.Contains(msg, JupiterSlippageCode) ||
		strings.Contains(msg, strconv.Itoa(JupiterSlippageCodeInt))
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded at %d bps for amount %d: %v", e.SlippageBps, e.Amount, e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}

// isBlockhashExpired reports errors where resubmitting with a fresh transaction is safe.
func isBlockhashExpired(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "BlockhashNotFound") ||
		strings.Contains(err.Error(), "block height exceeded"))
}
