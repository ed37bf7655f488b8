// ==================================
// File: internal/wallet/wallet_test.go
// ==================================
package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) string {
	t.Helper()
	return solana.NewWallet().PrivateKey.String()
}

func TestNewWallet(t *testing.T) {
	key := newTestKey(t)

	w, err := NewWallet(key)
	require.NoError(t, err)
	assert.False(t, w.PublicKey.IsZero())
	assert.Equal(t, w.PublicKey.String(), w.String())
}

func TestNewWallet_InvalidKey(t *testing.T) {
	_, err := NewWallet("not-base58-!!!")
	assert.Error(t, err)

	// base58, но не 64 байта
	_, err = NewWallet("2x7")
	assert.Error(t, err)
}

func TestLoadWallets(t *testing.T) {
	csvContent := "name,private_key\n" +
		"main," + newTestKey(t) + "\n" +
		"second," + newTestKey(t) + "\n" +
		"broken,not-a-key\n" +
		"short-row\n"

	path := filepath.Join(t.TempDir(), "wallets.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvContent), 0o600))

	wallets, err := LoadWallets(path)
	require.NoError(t, err)

	// Строки с битым ключом и недостающими колонками пропускаются.
	require.Len(t, wallets, 2)
	assert.Contains(t, wallets, "main")
	assert.Contains(t, wallets, "second")
}

func TestLoadWallets_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,private_key\n"), 0o600))

	_, err := LoadWallets(path)
	assert.Error(t, err)
}

func TestGetATA_Cached(t *testing.T) {
	w, err := NewWallet(newTestKey(t))
	require.NoError(t, err)

	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	ata, err := w.GetATA(mint)
	require.NoError(t, err)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, ata)

	cached, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, ata, cached)
}

func TestSignTransaction(t *testing.T) {
	w, err := NewWallet(newTestKey(t))
	require.NoError(t, err)

	recipient := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			solana.NewInstruction(
				solana.SystemProgramID,
				[]*solana.AccountMeta{
					{PublicKey: w.PublicKey, IsWritable: true, IsSigner: true},
					{PublicKey: recipient, IsWritable: true},
				},
				[]byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0},
			),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey),
	)
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestCreateATAIdempotentInstruction(t *testing.T) {
	w, err := NewWallet(newTestKey(t))
	require.NoError(t, err)

	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	ix := w.CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, mint)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 7)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[1].IsWritable)

	expectedATA, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expectedATA, accounts[1].PublicKey)
}
