// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet представляет кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[solana.PublicKey]solana.PublicKey
}

// NewWallet accepts a 64-byte secret key either base58 encoded or as a JSON byte array
// ("[12,34,...]", the format written by solana-keygen).
func NewWallet(secret string) (*Wallet, error) {
	raw, err := decodeSecret(strings.TrimSpace(secret))
	if err != nil {
		return nil, err
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(raw))
	}
	privateKey := solana.PrivateKey(raw)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}, nil
}

func decodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	if strings.HasPrefix(secret, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(secret), &ints); err != nil {
			return nil, fmt.Errorf("failed to decode private key byte array: %w", err)
		}
		raw := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("private key byte %d out of range: %d", i, v)
			}
			raw[i] = byte(v)
		}
		return raw, nil
	}
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return raw, nil
}

// SignTransaction подписывает транзакцию с помощью приватного ключа кошелька.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA возвращает адрес ассоциированного токен-аккаунта (ATA) для заданного токена (mint).
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ata, ok := w.ataCache[mint]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mint] = ata
	return ata, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
