package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/shopspring/decimal"
)

type accountState struct {
	mu       sync.RWMutex
	byMobile map[string]*domain.Account
}

// AccountRepository é um índice celular -> conta protegido por RWMutex.
type AccountRepository struct {
	state   *accountState
	journal *Journal
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{state: &accountState{byMobile: make(map[string]*domain.Account)}}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if _, exists := r.state.byMobile[account.Mobile]; exists {
		return domain.ErrConflict
	}
	cp := *account
	r.state.byMobile[account.Mobile] = &cp
	return nil
}

// FindByIdentifier dentro de uma transação enxerga as escritas ainda não comitadas dela.
func (r *AccountRepository) FindByIdentifier(ctx context.Context, mobile string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.state.mu.RLock()
	acc, ok := r.state.byMobile[mobile]
	var cp domain.Account
	if ok {
		cp = *acc
	}
	r.state.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if r.journal != nil {
		cp.Balance = cp.Balance.Add(r.journal.pending(r.state, mobile))
	}
	return &cp, nil
}

// ApplyBalanceDelta fora de transação aplica direto; dentro, só enfileira no
// journal (o commit revalida o saldo).
func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, mobile string, delta decimal.Decimal) (*domain.Account, error) {
	if r.journal != nil {
		projected, err := r.FindByIdentifier(ctx, mobile)
		if err != nil {
			return nil, err
		}
		if err := projected.ApplyDelta(delta); err != nil {
			return nil, err
		}
		projected.UpdatedAt = time.Now().UTC()
		r.journal.stage(r.state, mobile, delta)
		return projected, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	acc, ok := r.state.byMobile[mobile]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	next := *acc
	if err := next.ApplyDelta(delta); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	r.state.byMobile[mobile] = &next
	cp := next
	return &cp, nil
}

func (r *AccountRepository) WithTx(tx gateway.TransactionObject) gateway.AccountRepository {
	journal, ok := tx.(*Journal)
	if !ok {
		return r
	}
	return &AccountRepository{state: r.state, journal: journal}
}
