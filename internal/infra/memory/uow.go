// Package memory implementa os gateways em memória. Serve de dublê nos testes
// e de backend para desenvolvimento local (STORAGE_DRIVER=memory).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/shopspring/decimal"
)

type stagedDelta struct {
	mobile string
	delta  decimal.Decimal
}

// Journal é o "crachá" da transação em memória: as escritas ficam aqui até o
// commit, então ninguém fora da transação enxerga um débito sem o crédito.
type Journal struct {
	mu     sync.Mutex
	staged map[*accountState][]stagedDelta
}

func newJournal() *Journal {
	return &Journal{staged: make(map[*accountState][]stagedDelta)}
}

func (j *Journal) stage(state *accountState, mobile string, delta decimal.Decimal) {
	j.mu.Lock()
	j.staged[state] = append(j.staged[state], stagedDelta{mobile: mobile, delta: delta})
	j.mu.Unlock()
}

// pending soma o que a transação já escreveu para o celular.
func (j *Journal) pending(state *accountState, mobile string) decimal.Decimal {
	j.mu.Lock()
	defer j.mu.Unlock()
	sum := decimal.Zero
	for _, d := range j.staged[state] {
		if d.mobile == mobile {
			sum = sum.Add(d.delta)
		}
	}
	return sum
}

// commit revalida e aplica tudo sob o lock do estado: ou todas as contas
// mudam, ou nenhuma.
func (j *Journal) commit() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for state, deltas := range j.staged {
		if err := state.applyAll(deltas); err != nil {
			return err
		}
	}
	j.staged = nil
	return nil
}

func (s *accountState) applyAll(deltas []stagedDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*domain.Account)
	for _, d := range deltas {
		acc, ok := next[d.mobile]
		if !ok {
			current, exists := s.byMobile[d.mobile]
			if !exists {
				return domain.ErrAccountNotFound
			}
			cp := *current
			acc = &cp
			next[d.mobile] = acc
		}
		if err := acc.ApplyDelta(d.delta); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for mobile, acc := range next {
		acc.UpdatedAt = now
		s.byMobile[mobile] = acc
	}
	return nil
}

// Uow implementa gateway.TransactionManager; se fn falhar o journal é descartado.
type Uow struct{}

func NewUow() *Uow {
	return &Uow{}
}

func (u *Uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	journal := newJournal()
	ctxWithTx := context.WithValue(ctx, gateway.TransactionKey, journal)
	if err := fn(ctxWithTx); err != nil {
		return err
	}
	return journal.commit()
}
