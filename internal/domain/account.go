package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale é a precisão fixa (centavos) de saldos e valores.
const MoneyScale = 2

// Account representa o titular da conta, identificado pelo celular.
// Clean Architecture: Esta entidade não sabe o que é JSON de banco nem SQL.
type Account struct {
	ID        uuid.UUID
	Mobile    string
	Name      string
	Balance   decimal.Decimal
	PinHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSufficientFunds valida se a conta pode pagar antes mesmo de tocar no storage
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// ApplyDelta aplica um delta (positivo = crédito, negativo = débito) mantendo saldo >= 0.
func (a *Account) ApplyDelta(delta decimal.Decimal) error {
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return ErrInsufficientFunds
	}
	a.Balance = next.Round(MoneyScale)
	return nil
}

// NormalizeAmount valida um valor monetário de operação: > 0 e no máximo 2 casas.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return decimal.Zero, ErrAmountPrecision
	}
	return amount.Round(MoneyScale), nil
}
