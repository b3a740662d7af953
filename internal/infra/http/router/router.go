// Package router monta o roteador chi com as rotas da API.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/http/handler"
	internalMiddleware "github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/http/middleware"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Accounts       *usecase.AccountService
	OTP            *usecase.OTPGate
	Engine         *usecase.TransactionEngine
	Idempotency    gateway.IdempotencyRepository
	IdempotencyTTL time.Duration
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	RequestLogging bool

	// Health roda os checks de dependências; nil significa sempre saudável.
	Health func(ctx context.Context) error
}

func New(d Deps) http.Handler {
	accountHandler := handler.NewAccountHandler(d.Accounts, d.OTP, d.Engine)
	transactionHandler := handler.NewTransactionHandler(d.Accounts, d.Engine)

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if d.RequestLogging {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer) // Evita crash se der panic
	router.Use(middleware.Timeout(timeout))

	// Health check para o Docker/K8s
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			if err := d.Health(r.Context()); err != nil {
				log.Warn().Err(err).Msg("Health check falhou")
				http.Error(w, "UNAVAILABLE", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Falha ao escrever resposta de health check")
		}
	})

	if d.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/register", accountHandler.Register)
		r.Post("/users", accountHandler.Profile)
		r.Post("/generate-otp", accountHandler.GenerateOTP)
		r.Post("/transactions", accountHandler.Transactions)

		r.Group(func(r chi.Router) {
			// Autentica antes da idempotência: a chave do cache é do dono da conta
			r.Use(handler.RequireCredentials(d.Accounts))
			r.Use(internalMiddleware.Idempotency(d.Idempotency, d.IdempotencyTTL, handler.AuthenticatedMobile))
			r.Post("/deposit", transactionHandler.Deposit)
			r.Post("/withdraw", transactionHandler.Withdraw)
			r.Post("/transfer", transactionHandler.Transfer)
		})
	})

	return router
}
