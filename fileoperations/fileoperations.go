package fileoperations

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"

	"github.com/bartossh/MetroWallet/wallet"
)

var ErrEmptySecret = errors.New("secret phrase is empty")

// Config holds configuration of the file operator Helper.
type Config struct {
	SecretPath   string `yaml:"secret_path"`   // path to the sealed secret phrase file
	SecretPasswd string `yaml:"secret_passwd"` // AES key sealing the secret phrase file in hex format
}

// Sealer offers behaviour to seal and open the bytes with the key.
type Sealer interface {
	Seal(key, plaintext []byte) ([]byte, error)
	Open(key, sealed []byte) ([]byte, error)
}

// Helper holds all file operation methods.
type Helper struct {
	s   Sealer
	cfg Config
}

// New creates new Helper.
func New(cfg Config, s Sealer) Helper {
	return Helper{
		cfg: cfg,
		s:   s,
	}
}

// SaveSecretPhrase seals the secret phrase and writes it to the file readable by the owner only.
func (h Helper) SaveSecretPhrase(secretPhrase string) error {
	if strings.TrimSpace(secretPhrase) == "" {
		return ErrEmptySecret
	}
	key, err := hex.DecodeString(h.cfg.SecretPasswd)
	if err != nil {
		return err
	}
	sealed, err := h.s.Seal(key, []byte(secretPhrase))
	if err != nil {
		return err
	}
	return os.WriteFile(h.cfg.SecretPath, sealed, 0600)
}

// ReadSecretPhrase reads and opens the sealed secret phrase.
func (h Helper) ReadSecretPhrase() (string, error) {
	raw, err := os.ReadFile(h.cfg.SecretPath)
	if err != nil {
		return "", err
	}
	key, err := hex.DecodeString(h.cfg.SecretPasswd)
	if err != nil {
		return "", err
	}
	opened, err := h.s.Open(key, raw)
	if err != nil {
		return "", err
	}
	return string(opened), nil
}

// ReadWallet derives the wallet from the sealed secret phrase.
func (h Helper) ReadWallet() (wallet.Wallet, string, error) {
	phrase, err := h.ReadSecretPhrase()
	if err != nil {
		return wallet.Wallet{}, "", err
	}
	return wallet.FromSecretPhrase(phrase), phrase, nil
}
