package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/usecase"
)

type accountContextKey struct{}

// RequireCredentials autentica celular + PIN do corpo antes do resto da cadeia
// (idempotência inclusive) e devolve o corpo intacto para o handler.
func RequireCredentials(accounts *usecase.AccountService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				respondError(w, http.StatusBadRequest, "Payload inválido")
				return
			}
			var creds Credentials
			if err := json.Unmarshal(body, &creds); err != nil {
				respondError(w, http.StatusBadRequest, "Payload inválido")
				return
			}

			account, err := authenticate(r.Context(), accounts, creds)
			if err != nil {
				respondDomainError(w, err, "autenticar")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), accountContextKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticatedMobile devolve o celular autenticado por RequireCredentials, ou "".
func AuthenticatedMobile(r *http.Request) string {
	if account, ok := accountFromContext(r.Context()); ok {
		return account.Mobile
	}
	return ""
}

func accountFromContext(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(accountContextKey{}).(*domain.Account)
	return account, ok && account != nil
}

// caller reaproveita a conta já autenticada no contexto; sem ela, autentica aqui.
func caller(ctx context.Context, accounts *usecase.AccountService, creds Credentials) (*domain.Account, error) {
	if account, ok := accountFromContext(ctx); ok {
		return account, nil
	}
	return authenticate(ctx, accounts, creds)
}
