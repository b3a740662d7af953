package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountRepository define o contrato para persistência de contas.
// O Usecase só interage com isso, sem saber se é Badger, Postgres ou memória.
type AccountRepository interface {
	// Create falha com domain.ErrConflict se o celular já existir
	Create(ctx context.Context, account *domain.Account) error
	// FindByIdentifier é um lookup indexado pelo celular (nada de scan)
	FindByIdentifier(ctx context.Context, mobile string) (*domain.Account, error)

	// ApplyBalanceDelta é atômico por conta: falha com domain.ErrInsufficientFunds
	// se o saldo resultante ficar negativo. Retorna o snapshot atualizado.
	ApplyBalanceDelta(ctx context.Context, mobile string, delta decimal.Decimal) (*domain.Account, error)

	// WithTx permite que o repositório participe de uma transação iniciada no nível superior
	// Retorna uma nova instância do repositório ligada àquela transação.
	WithTx(tx TransactionObject) AccountRepository
}
