package handler

import (
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/shopspring/decimal"
)

// Credentials vai no corpo de toda rota autenticada (celular + PIN).
type Credentials struct {
	Mobile string `json:"mobile"`
	Pin    string `json:"pin"`
}

type RegisterRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Pin    string `json:"pin"`
}

type DepositRequest struct {
	Credentials
	Amount decimal.Decimal `json:"amount"`
}

type WithdrawRequest struct {
	Credentials
	Amount decimal.Decimal `json:"amount"`
	OTP    string          `json:"otp"`
}

type TransferRequest struct {
	Credentials
	ReceiverMobile string          `json:"receiverMobile"`
	Amount         decimal.Decimal `json:"amount"`
	OTP            string          `json:"otp"`
}

// AccountResponse nunca expõe o hash do PIN.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

type TransactionResponse struct {
	ID             string                 `json:"id"`
	SenderMobile   string                 `json:"senderMobile"`
	ReceiverMobile string                 `json:"receiverMobile"`
	Amount         string                 `json:"amount"`
	Date           time.Time              `json:"date"`
	Type           domain.TransactionKind `json:"type"`
}

type OperationResponse struct {
	Message     string              `json:"message"`
	Transaction TransactionResponse `json:"transaction"`
	Seq         uint64              `json:"seq"`
	Balance     string              `json:"balance"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Mobile:    a.Mobile,
		Balance:   a.Balance.StringFixed(domain.MoneyScale),
		CreatedAt: a.CreatedAt,
	}
}

func toTransactionResponse(t domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		SenderMobile:   t.SenderMobile,
		ReceiverMobile: t.ReceiverMobile,
		Amount:         t.Amount.StringFixed(domain.MoneyScale),
		Date:           t.Date,
		Type:           t.Type,
	}
}
