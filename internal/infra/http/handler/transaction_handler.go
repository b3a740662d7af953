package handler

import (
	"net/http"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/usecase"
)

// TransactionHandler expõe as operações que movimentam saldo.
type TransactionHandler struct {
	accounts *usecase.AccountService
	engine   *usecase.TransactionEngine
}

func NewTransactionHandler(accounts *usecase.AccountService, engine *usecase.TransactionEngine) *TransactionHandler {
	return &TransactionHandler{accounts: accounts, engine: engine}
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := caller(r.Context(), h.accounts, req.Credentials)
	if err != nil {
		respondDomainError(w, err, "processar depósito")
		return
	}

	output, err := h.engine.Deposit(r.Context(), usecase.DepositInput{
		Mobile: account.Mobile,
		Amount: req.Amount,
	})
	if err != nil {
		respondDomainError(w, err, "processar depósito")
		return
	}
	respondOperation(w, "Depósito realizado com sucesso", output)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := caller(r.Context(), h.accounts, req.Credentials)
	if err != nil {
		respondDomainError(w, err, "processar saque")
		return
	}

	output, err := h.engine.Withdraw(r.Context(), usecase.WithdrawInput{
		Mobile: account.Mobile,
		Amount: req.Amount,
		OTP:    req.OTP,
	})
	if err != nil {
		respondDomainError(w, err, "processar saque")
		return
	}
	respondOperation(w, "Saque realizado com sucesso", output)
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := caller(r.Context(), h.accounts, req.Credentials)
	if err != nil {
		respondDomainError(w, err, "processar transferência")
		return
	}

	output, err := h.engine.Transfer(r.Context(), usecase.TransferInput{
		SenderMobile:   account.Mobile,
		ReceiverMobile: req.ReceiverMobile,
		Amount:         req.Amount,
		OTP:            req.OTP,
	})
	if err != nil {
		respondDomainError(w, err, "processar transferência")
		return
	}
	respondOperation(w, "Transferência realizada com sucesso", output)
}

func respondOperation(w http.ResponseWriter, message string, output *usecase.TransactionOutput) {
	respondJSON(w, http.StatusOK, OperationResponse{
		Message:     message,
		Transaction: toTransactionResponse(*output.Record),
		Seq:         output.Seq,
		Balance:     output.Account.Balance.StringFixed(2),
	})
}
