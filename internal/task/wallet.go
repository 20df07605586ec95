// ==================================
// File: internal/task/wallet.go
// ==================================
package task

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Wallet представляет кошелёк Solana.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(name, privateKeyBase58 string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key: %d bytes, want %d", len(privateKey), ed25519.PrivateKeySize)
	}
	return &Wallet{
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// GenerateWallet создаёт случайный кошелёк (симуляция без файла кошельков).
func GenerateWallet(name string) *Wallet {
	w := solana.NewWallet()
	return &Wallet{Name: name, PrivateKey: w.PrivateKey, PublicKey: w.PublicKey()}
}

// WalletConfig represents the structure of wallets YAML file
type WalletConfig struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// Roster - кошельки по имени.
type Roster map[string]*Wallet

// Get returns the wallet registered under name.
func (r Roster) Get(name string) (*Wallet, error) {
	w, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown wallet %q", name)
	}
	return w, nil
}

// Names returns wallet names in lexical order.
func (r Roster) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadWallets загружает кошельки из YAML-файла.
func LoadWallets(path string) (Roster, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseWallets(data)
}

// ParseWallets разбирает YAML; записи с пустым именем или битым ключом пропускаются.
func ParseWallets(data []byte) (Roster, error) {
	var config WalletConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in configuration")
	}

	wallets := make(Roster)
	for _, walletData := range config.Wallets {
		if walletData.Name == "" || walletData.PrivateKey == "" {
			continue
		}
		w, err := NewWallet(walletData.Name, walletData.PrivateKey)
		if err != nil {
			continue
		}
		wallets[walletData.Name] = w
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets loaded")
	}

	return wallets, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
