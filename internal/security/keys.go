package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	minMasterKeySize = 32
	ledgerKeyInfo    = "secure-ledger/envelope/v1"
)

var ErrMasterKeyMissing = errors.New("ledger master key is not configured")

// KeyProvider é a capacidade externa de gestão de segredo. A chave nunca é
// gerada dentro do processo: ou vem do ambiente/secret manager, ou o boot falha.
type KeyProvider interface {
	MasterKey() ([]byte, error)
}

// EnvKeyProvider lê a chave mestra em base64 de uma variável de ambiente
// (injetada por Docker/K8s secrets).
type EnvKeyProvider struct {
	Var string
}

func (p EnvKeyProvider) MasterKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(p.Var))
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrMasterKeyMissing, p.Var)
	}
	return decodeMasterKey(raw)
}

// StaticKeyProvider serve para testes e para chaves vindas do arquivo de config.
type StaticKeyProvider struct {
	Encoded string
}

func (p StaticKeyProvider) MasterKey() ([]byte, error) {
	if strings.TrimSpace(p.Encoded) == "" {
		return nil, ErrMasterKeyMissing
	}
	return decodeMasterKey(p.Encoded)
}

func decodeMasterKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger master key encoding: %w", err)
	}
	if len(key) < minMasterKeySize {
		return nil, fmt.Errorf("ledger master key must have at least %d bytes, got %d", minMasterKeySize, len(key))
	}
	return key, nil
}

// deriveLedgerKey separa a chave do ledger da chave mestra via HKDF-SHA256,
// assim a mesma mestra pode servir outros usos sem reaproveitar material.
func deriveLedgerKey(master []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, master, nil, []byte(ledgerKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive ledger key: %w", err)
	}
	return key, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
