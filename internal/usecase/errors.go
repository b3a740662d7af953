package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

// classifyStorage traduz erros de infraestrutura (driver, rede, prazo) para a
// taxonomia do domínio. Erros de negócio passam intactos.
func classifyStorage(err error) error {
	return classify(err, domain.ErrStorage)
}

func classifyProvider(err error) error {
	return classify(err, domain.ErrProvider)
}

func classify(err, category error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsBusinessError(err),
		errors.Is(err, domain.ErrDecrypt),
		errors.Is(err, domain.ErrTimeout),
		errors.Is(err, domain.ErrStorage),
		errors.Is(err, domain.ErrProvider):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", category, err)
	}
}

// withTimeout devolve um contexto com prazo; timeout <= 0 significa sem prazo extra.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
