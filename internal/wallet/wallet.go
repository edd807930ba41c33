package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet holds the fee-paying keypair and signs transactions. It never talks
// to the network; sending is the transaction builder's job.
type Wallet struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New creates a Wallet from a base58-encoded 64-byte key or a solana-keygen
// JSON array.
func New(privateKey string) (*Wallet, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("wallet: private key is required")
	}
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// NewFromEnv creates a Wallet from the WALLET_PRIVATE_KEY variable.
func NewFromEnv() (*Wallet, error) {
	return New(os.Getenv("WALLET_PRIVATE_KEY"))
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }

// Sign signs a transaction with the wallet's key plus any extra signers a
// bundle declares. Every required signer must be covered or signing fails.
func (w *Wallet) Sign(tx *solana.Transaction, extra ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		for i := range extra {
			if key.Equals(extra[i].PublicKey()) {
				return &extra[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(b), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
