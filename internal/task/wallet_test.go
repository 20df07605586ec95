package task

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWallets(t *testing.T) {
	alice := solana.NewWallet()
	bob := solana.NewWallet()
	data := fmt.Sprintf(`
wallets:
  - name: alice
    private_key: %s
  - name: bob
    private_key: %s
  - name: broken
    private_key: not-a-key
  - name: ""
    private_key: %s
`, alice.PrivateKey.String(), bob.PrivateKey.String(), bob.PrivateKey.String())

	roster, err := ParseWallets([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, roster.Names())

	w, err := roster.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.PublicKey(), w.PublicKey)
	assert.Equal(t, alice.PublicKey().String(), w.String())

	_, err = roster.Get("carol")
	assert.ErrorContains(t, err, "unknown wallet")
}

func TestParseWalletsErrors(t *testing.T) {
	_, err := ParseWallets([]byte("wallets: []"))
	assert.Error(t, err)

	_, err = ParseWallets([]byte("wallets:\n  - name: x\n    private_key: bad\n"))
	assert.ErrorContains(t, err, "no valid wallets")
}

func TestNewWalletRejectsShortKey(t *testing.T) {
	_, err := NewWallet("x", "bad")
	assert.ErrorContains(t, err, "want 64")

	key := solana.NewWallet().PrivateKey
	_, err = NewWallet("x", solana.PrivateKey(key[:32]).String())
	assert.Error(t, err)

	w, err := NewWallet("x", key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey)
}

func TestLoadWallets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.yaml")
	key := solana.NewWallet().PrivateKey.String()
	require.NoError(t, os.WriteFile(path, []byte("wallets:\n  - name: main\n    private_key: "+key+"\n"), 0o600))

	roster, err := LoadWallets(path)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestGenerateWallet(t *testing.T) {
	w := GenerateWallet("x")
	assert.Equal(t, "x", w.Name)
	assert.Equal(t, w.PrivateKey.PublicKey(), w.PublicKey)
}
