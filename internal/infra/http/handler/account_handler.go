package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/usecase"
)

// AccountHandler expõe cadastro, perfil, emissão de OTP e extrato.
type AccountHandler struct {
	accounts *usecase.AccountService
	otp      *usecase.OTPGate
	engine   *usecase.TransactionEngine
}

func NewAccountHandler(accounts *usecase.AccountService, otp *usecase.OTPGate, engine *usecase.TransactionEngine) *AccountHandler {
	return &AccountHandler{accounts: accounts, otp: otp, engine: engine}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.Register(r.Context(), usecase.RegisterInput{
		Name:   req.Name,
		Mobile: req.Mobile,
		Pin:    req.Pin,
	})
	if err != nil {
		respondDomainError(w, err, "cadastrar conta")
		return
	}
	respondJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := authenticate(r.Context(), h.accounts, req)
	if err != nil {
		respondDomainError(w, err, "consultar perfil")
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) GenerateOTP(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := authenticate(r.Context(), h.accounts, req)
	if err != nil {
		respondDomainError(w, err, "gerar OTP")
		return
	}
	if err := h.otp.Challenge(r.Context(), account.Mobile); err != nil {
		respondDomainError(w, err, "gerar OTP")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "OTP enviado com sucesso"})
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := authenticate(r.Context(), h.accounts, req)
	if err != nil {
		respondDomainError(w, err, "listar transações")
		return
	}

	out := []TransactionResponse{}
	for record, err := range h.engine.History(r.Context(), account.Mobile) {
		if err != nil {
			respondDomainError(w, err, "listar transações")
			return
		}
		out = append(out, toTransactionResponse(record))
	}
	respondJSON(w, http.StatusOK, out)
}

// authenticate não diferencia celular inexistente de PIN errado para o cliente.
func authenticate(ctx context.Context, accounts *usecase.AccountService, creds Credentials) (*domain.Account, error) {
	account, err := accounts.FindByCredentials(ctx, creds.Mobile, creds.Pin)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrAuthenticationFailed
	}
	return account, err
}
