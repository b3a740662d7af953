package gateway

import "github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"

type Cipher interface {
	Seal(plaintext []byte) (domain.Envelope, error)
	// Open falha com domain.ErrDecrypt em caso de adulteração ou chave errada.
	Open(envelope domain.Envelope) ([]byte, error)
}
