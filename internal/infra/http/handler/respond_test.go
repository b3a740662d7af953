package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

func TestRespondDomainErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"same account", domain.ErrSameAccount, http.StatusBadRequest},
		{"no challenge", fmt.Errorf("%w: %w", domain.ErrUnauthorized, domain.ErrNoChallenge), http.StatusUnauthorized},
		{"rejected otp", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"auth failed", domain.ErrAuthenticationFailed, http.StatusUnauthorized},
		{"receiver", domain.ErrReceiverNotFound, http.StatusNotFound},
		{"funds", fmt.Errorf("falha no débito: %w", domain.ErrInsufficientFunds), http.StatusUnprocessableEntity},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", fmt.Errorf("%w: %w", domain.ErrTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"provider", fmt.Errorf("%w: boom", domain.ErrProvider), http.StatusBadGateway},
		{"decrypt", domain.ErrDecrypt, http.StatusInternalServerError},
		{"partial", &domain.PartialFailureError{Record: &domain.TransactionRecord{ID: "tx-1"}, Err: domain.ErrStorage}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondDomainError(rec, tt.err, "testar")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("content type = %q", ct)
			}
		})
	}
}

func TestPartialFailureExposesTransactionID(t *testing.T) {
	rec := httptest.NewRecorder()
	respondDomainError(rec, &domain.PartialFailureError{Record: &domain.TransactionRecord{ID: "tx-42"}, Err: domain.ErrStorage}, "testar")
	if !strings.Contains(rec.Body.String(), "tx-42") {
		t.Fatalf("body should reference the transaction: %s", rec.Body.String())
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	var creds Credentials
	if decodeJSON(rec, req, &creds) {
		t.Fatal("decode should fail")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
