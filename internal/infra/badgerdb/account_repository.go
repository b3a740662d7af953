// Package badgerdb implementa os gateways sobre o BadgerDB (KV embarcado).
// Layout das chaves:
//
//	account:<celular>       -> JSON da conta
//	ledger:<seq big-endian> -> JSON do envelope
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const accountPrefix = "account:"

type accountDoc struct {
	ID        uuid.UUID       `json:"id"`
	Mobile    string          `json:"mobile"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	PinHash   string          `json:"pin_hash"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountRepository implementa gateway.AccountRepository usando badger/v4
type AccountRepository struct {
	db     *badger.DB
	txn    *badger.Txn
	logger zerolog.Logger
}

func NewAccountRepository(db *badger.DB, logger zerolog.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

func accountKey(mobile string) []byte {
	return []byte(accountPrefix + mobile)
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(toDoc(account))
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	err = r.update(func(txn *badger.Txn) error {
		_, err := txn.Get(accountKey(account.Mobile))
		if err == nil {
			return domain.ErrConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(accountKey(account.Mobile), data)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByIdentifier(ctx context.Context, mobile string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var acc *domain.Account
	err := r.view(func(txn *badger.Txn) error {
		var err error
		acc, err = readAccount(txn, mobile)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// ApplyBalanceDelta faz leitura-validação-escrita numa única transação do badger.
func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, mobile string, delta decimal.Decimal) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var updated *domain.Account
	err := r.update(func(txn *badger.Txn) error {
		acc, err := readAccount(txn, mobile)
		if err != nil {
			return err
		}
		if err := acc.ApplyDelta(delta); err != nil {
			return err
		}
		acc.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(toDoc(acc))
		if err != nil {
			return err
		}
		if err := txn.Set(accountKey(mobile), data); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		r.logger.Error().Err(err).Msg("Falha ao aplicar delta de saldo no badger")
		return nil, fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return updated, nil
}

// WithTx retorna uma cópia do repositório usando uma transação específica
func (r *AccountRepository) WithTx(tx gateway.TransactionObject) gateway.AccountRepository {
	txn, ok := tx.(*badger.Txn)
	if !ok {
		return r
	}
	return &AccountRepository{db: r.db, txn: txn, logger: r.logger}
}

// update usa a transação herdada (sem commit, quem commita é o Uow) ou abre uma própria.
func (r *AccountRepository) update(fn func(txn *badger.Txn) error) error {
	if r.txn != nil {
		return fn(r.txn)
	}
	return r.db.Update(fn)
}

func (r *AccountRepository) view(fn func(txn *badger.Txn) error) error {
	if r.txn != nil {
		return fn(r.txn)
	}
	return r.db.View(fn)
}

func readAccount(txn *badger.Txn, mobile string) (*domain.Account, error) {
	item, err := txn.Get(accountKey(mobile))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc accountDoc
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func toDoc(a *domain.Account) accountDoc {
	return accountDoc{
		ID:        a.ID,
		Mobile:    a.Mobile,
		Name:      a.Name,
		Balance:   a.Balance,
		PinHash:   a.PinHash,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:        d.ID,
		Mobile:    d.Mobile,
		Name:      d.Name,
		Balance:   d.Balance,
		PinHash:   d.PinHash,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
