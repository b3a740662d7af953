package security

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"golang.org/x/crypto/chacha20poly1305"
)

const envelopeVersion = 1

var envelopeAAD = []byte("secure-ledger/transaction-record")

// EnvelopeCipher implementa gateway.Cipher com XChaCha20-Poly1305.
// Cada Seal sorteia um nonce novo de 24 bytes; nonce nunca é reutilizado com a mesma chave.
type EnvelopeCipher struct {
	aead cipher.AEAD
}

func NewEnvelopeCipher(provider KeyProvider) (*EnvelopeCipher, error) {
	master, err := provider.MasterKey()
	if err != nil {
		return nil, err
	}
	defer zeroBytes(master)

	key, err := deriveLedgerKey(master)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init aead: %w", err)
	}
	return &EnvelopeCipher{aead: aead}, nil
}

func (c *EnvelopeCipher) Seal(plaintext []byte) (domain.Envelope, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return domain.Envelope{}, fmt.Errorf("failed to read nonce: %w", err)
	}
	return domain.Envelope{
		Version:    envelopeVersion,
		Nonce:      nonce,
		Ciphertext: c.aead.Seal(nil, nonce, plaintext, envelopeAAD),
	}, nil
}

func (c *EnvelopeCipher) Open(envelope domain.Envelope) ([]byte, error) {
	if envelope.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", domain.ErrDecrypt, envelope.Version)
	}
	if len(envelope.Nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size", domain.ErrDecrypt)
	}
	plaintext, err := c.aead.Open(nil, envelope.Nonce, envelope.Ciphertext, envelopeAAD)
	if err != nil {
		return nil, domain.ErrDecrypt
	}
	return plaintext, nil
}
