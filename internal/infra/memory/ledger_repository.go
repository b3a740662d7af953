package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

type LedgerRepository struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(ctx context.Context, envelope domain.Envelope) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := uint64(len(r.entries) + 1)
	r.entries = append(r.entries, domain.LedgerEntry{
		Seq: seq,
		Envelope: domain.Envelope{
			Version:    envelope.Version,
			Nonce:      slices.Clone(envelope.Nonce),
			Ciphertext: slices.Clone(envelope.Ciphertext),
		},
	})
	return seq, nil
}

// Scan itera sobre uma foto do slice tirada no início; appends concorrentes
// ficam para o próximo Scan.
func (r *LedgerRepository) Scan(ctx context.Context) iter.Seq2[domain.LedgerEntry, error] {
	return func(yield func(domain.LedgerEntry, error) bool) {
		r.mu.RLock()
		snapshot := r.entries[:len(r.entries):len(r.entries)]
		r.mu.RUnlock()

		for _, e := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(domain.LedgerEntry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Len ajuda os testes a contar registros sem decifrar nada.
func (r *LedgerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
