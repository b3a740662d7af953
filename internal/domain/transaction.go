package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemParty é a contraparte sentinela de depósitos e saques.
const SystemParty = "system"

type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindWithdraw TransactionKind = "withdraw"
	KindTransfer TransactionKind = "transfer"
)

// TransactionRecord é o registro imutável de uma mutação de saldo.
// Só existe em texto claro em memória; no ledger ele vive selado num Envelope.
type TransactionRecord struct {
	ID             string          `json:"id"`
	SenderMobile   string          `json:"senderMobile"`
	ReceiverMobile string          `json:"receiverMobile"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	Type           TransactionKind `json:"type"`
}

// NewTransactionRecord monta o registro e valida as invariantes do tipo.
func NewTransactionRecord(kind TransactionKind, sender, receiver string, amount decimal.Decimal, now time.Time) (*TransactionRecord, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	switch kind {
	case KindDeposit:
		sender = SystemParty
	case KindWithdraw:
		receiver = SystemParty
	case KindTransfer:
		if sender == receiver {
			return nil, ErrSameAccount
		}
	default:
		return nil, ErrValidation
	}
	return &TransactionRecord{
		ID:             uuid.NewString(),
		SenderMobile:   sender,
		ReceiverMobile: receiver,
		Amount:         amount.Round(MoneyScale),
		Date:           now.UTC(),
		Type:           kind,
	}, nil
}

// Involves diz se o celular participa da transação (como origem ou destino).
func (t *TransactionRecord) Involves(mobile string) bool {
	return t.SenderMobile == mobile || t.ReceiverMobile == mobile
}
