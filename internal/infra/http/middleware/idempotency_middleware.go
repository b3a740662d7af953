package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/rs/zerolog/log"
)

const DefaultIdempotencyTTL = 24 * time.Hour

// responseRecorder grava o que o handler escreve enquanto repassa ao cliente.
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// cacheable decide o que pode ser repetido para a mesma chave. 5xx, 401 e 429
// ficam de fora: o cliente precisa poder tentar de novo (ex: com um novo OTP).
func cacheable(status int) bool {
	return status < http.StatusInternalServerError &&
		status != http.StatusUnauthorized &&
		status != http.StatusTooManyRequests
}

// Scope identifica o dono da requisição (ex: o celular autenticado).
// Vazio significa "sem dono conhecido" e desliga o cache para a requisição.
type Scope func(r *http.Request) string

// Idempotency devolve a resposta gravada para uma Idempotency-Key já vista.
// A chave é escopada por método, rota e dono: a mesma Idempotency-Key de outra
// conta nunca devolve a resposta de ninguém. Falhas do store não bloqueiam a API (fail open).
func Idempotency(store gateway.IdempotencyRepository, ttl time.Duration, scope Scope) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Idempotency-Key")
			if header == "" || store == nil || scope == nil {
				next.ServeHTTP(w, r)
				return
			}

			owner := scope(r)
			if owner == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := r.Method + " " + r.URL.Path + " " + owner + " " + header

			cached, err := store.Get(ctx, key)
			if err != nil {
				log.Error().Err(err).Msg("Falha ao buscar chave de idempotência")
				next.ServeHTTP(w, r)
				return
			}

			if cached != nil {
				log.Info().Str("key", header).Msg("Idempotency cache hit")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Hit", "true")
				w.WriteHeader(cached.StatusCode)
				if _, err := w.Write(cached.Body); err != nil {
					log.Error().Err(err).Msg("Falha ao escrever resposta cacheada")
				}
				return
			}

			recorder := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(recorder, r)

			if !cacheable(recorder.statusCode) {
				return
			}
			err = store.Save(ctx, key, gateway.CachedResponse{
				StatusCode: recorder.statusCode,
				Body:       recorder.body.Bytes(),
			}, ttl)
			if err != nil {
				log.Error().Err(err).Msg("Falha ao salvar chave de idempotência")
			}
		})
	}
}
