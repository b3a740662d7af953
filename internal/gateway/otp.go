package gateway

import (
	"context"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

// OTPProvider é o canal externo que envia e confere códigos (ex: Twilio Verify).
type OTPProvider interface {
	Send(ctx context.Context, mobile string) error
	Check(ctx context.Context, mobile, code string) (bool, error)
}

// ChallengeRepository guarda só o estado "tem desafio pendente?" por celular.
type ChallengeRepository interface {
	// Put substitui qualquer desafio anterior ainda não consumido.
	Put(ctx context.Context, challenge domain.Challenge, ttl time.Duration) error
	// Take lê e remove atomicamente; domain.ErrNoChallenge se não houver.
	Take(ctx context.Context, mobile string) (*domain.Challenge, error)
	Discard(ctx context.Context, mobile string) error
}
