package gateway

import (
	"context"
	"iter"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

// LedgerRepository é append-only e não interpreta o conteúdo dos envelopes.
type LedgerRepository interface {
	// Append só retorna sucesso depois que o envelope está durável.
	Append(ctx context.Context, envelope domain.Envelope) (uint64, error)
	// Scan é lazy, finito e pode ser reiniciado (cada chamada começa do início).
	Scan(ctx context.Context) iter.Seq2[domain.LedgerEntry, error]
}
