package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, mobile, name, balance::text, pin_hash, created_at, updated_at`

// AccountRepository implementa gateway.AccountRepository usando pgx/v5
type AccountRepository struct {
	db *pgxpool.Pool //  Usamos pgxpool em vez de sql.DB
	q  querier
}

// NewAccountRepository cria uma nova instância
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: pool, q: pool}
}

// Create insere uma nova conta; o UNIQUE do celular vira domain.ErrConflict
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO accounts (id, mobile, name, balance, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (mobile) DO NOTHING`,
		account.ID, account.Mobile, account.Name, account.Balance.StringFixed(domain.MoneyScale),
		account.PinHash, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// FindByIdentifier busca pelo índice UNIQUE do celular
func (r *AccountRepository) FindByIdentifier(ctx context.Context, mobile string) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE mobile = $1`, mobile)
	acc, err := scanAccount(row)
	if err != nil {
		// pgx retorna pgx.ErrNoRows, diferente de sql.ErrNoRows
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// 💸 Delta Atômico (Valida saldo no banco)
// O UPDATE condicional é o compare-and-set: se o saldo ficaria negativo, 0 linhas.
func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, mobile string, delta decimal.Decimal) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $1::numeric, updated_at = now()
		WHERE mobile = $2 AND balance + $1::numeric >= 0
		RETURNING `+accountColumns,
		delta.StringFixed(domain.MoneyScale), mobile,
	)
	acc, err := scanAccount(row)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	// Se 0 linhas foram afetadas: ou a conta não existe, ou faltou saldo
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE mobile = $1)`, mobile).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}
	return nil, domain.ErrInsufficientFunds
}

// WithTx retorna uma cópia do repositório usando uma transação específica
func (r *AccountRepository) WithTx(tx gateway.TransactionObject) gateway.AccountRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &AccountRepository{db: r.db, q: pgTx}
}

// Mapper: linha -> domínio
func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		id                   uuid.UUID
		mobile, name, hash   string
		balance              string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &mobile, &name, &balance, &hash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	return &domain.Account{
		ID:        id,
		Mobile:    mobile,
		Name:      name,
		Balance:   amount,
		PinHash:   hash,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
