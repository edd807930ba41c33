package wallet

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Base58(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	w, err := New(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
	assert.Equal(t, key.PublicKey().String(), w.Address())
}

func TestNew_JSONArray(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	encoded, err := json.Marshal(ints)
	require.NoError(t, err)

	w, err := New(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
}

func TestNew_Invalid(t *testing.T) {
	for name, input := range map[string]string{
		"empty":         "",
		"whitespace":    "   ",
		"bad base58":    "not!base58!!",
		"short base58":  "abc",
		"bad json":      "[1, 2, oops]",
		"short json":    "[1,2,3]",
		"byte overflow": "[300,1,2]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(input)
			assert.Error(t, err)
		})
	}
}

func TestSign(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := New(key.String())
	require.NoError(t, err)

	ix := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.Meta(w.PublicKey()).SIGNER()},
		[]byte("hello"),
	)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.Hash{1},
		solana.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)

	require.NoError(t, w.Sign(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestSign_ExtraSigners(t *testing.T) {
	w, err := New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	extra := solana.NewWallet().PrivateKey

	ix := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{
			solana.Meta(w.PublicKey()).SIGNER(),
			solana.Meta(extra.PublicKey()).SIGNER(),
		},
		[]byte("hello"),
	)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.Hash{1},
		solana.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)

	require.NoError(t, w.Sign(tx, extra))
	assert.Len(t, tx.Signatures, 2)
}

func TestSign_MissingSigner(t *testing.T) {
	w, err := New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	stranger := solana.NewWallet().PublicKey()

	ix := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{
			solana.Meta(w.PublicKey()).SIGNER(),
			solana.Meta(stranger).SIGNER(),
		},
		[]byte("hello"),
	)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.Hash{1},
		solana.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)

	assert.Error(t, w.Sign(tx))
}
