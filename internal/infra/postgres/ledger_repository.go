package postgres

import (
	"context"
	"fmt"
	"iter"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository guarda envelopes; o BIGSERIAL serializa os appends.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: pool}
}

// Append fora de qualquer transação externa: o autocommit do INSERT já é durável.
func (r *LedgerRepository) Append(ctx context.Context, envelope domain.Envelope) (uint64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO ledger_entries (version, nonce, ciphertext)
		VALUES ($1, $2, $3)
		RETURNING seq`,
		int32(envelope.Version), envelope.Nonce, envelope.Ciphertext,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return uint64(seq), nil
}

// Scan faz streaming das linhas (o pgx lê do socket conforme avançamos).
func (r *LedgerRepository) Scan(ctx context.Context) iter.Seq2[domain.LedgerEntry, error] {
	return func(yield func(domain.LedgerEntry, error) bool) {
		rows, err := r.db.Query(ctx, `SELECT seq, version, nonce, ciphertext FROM ledger_entries ORDER BY seq`)
		if err != nil {
			yield(domain.LedgerEntry{}, fmt.Errorf("failed to scan ledger: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				seq     int64
				version int32
				env     domain.Envelope
			)
			if err := rows.Scan(&seq, &version, &env.Nonce, &env.Ciphertext); err != nil {
				yield(domain.LedgerEntry{}, fmt.Errorf("failed to read ledger row: %w", err))
				return
			}
			env.Version = uint32(version)
			if !yield(domain.LedgerEntry{Seq: uint64(seq), Envelope: env}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.LedgerEntry{}, fmt.Errorf("failed to scan ledger: %w", err))
		}
	}
}
