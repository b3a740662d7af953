package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// decodeJSON lê o corpo com limite de tamanho; campos desconhecidos são ignorados
// para manter compatibilidade com o front-end antigo.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Payload inválido")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Falha ao codificar resposta JSON")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError faz o mapeamento Erro de Domínio -> HTTP Status Code.
func respondDomainError(w http.ResponseWriter, err error, action string) {
	var partial *domain.PartialFailureError
	switch {
	case errors.As(err, &partial):
		id := ""
		if partial.Record != nil {
			id = partial.Record.ID
		}
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":          "Operação aplicada mas não registrada; em reconciliação",
			"transaction_id": id,
		})
	case errors.Is(err, domain.ErrNoChallenge):
		respondError(w, http.StatusUnauthorized, "Nenhum OTP solicitado; gere um novo código")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "OTP inválido ou expirado")
	case errors.Is(err, domain.ErrAuthenticationFailed):
		respondError(w, http.StatusUnauthorized, "Falha na autenticação")
	case errors.Is(err, domain.ErrReceiverNotFound):
		respondError(w, http.StatusNotFound, "Destinatário não encontrado")
	case errors.Is(err, domain.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "Conta não encontrada")
	case errors.Is(err, domain.ErrInsufficientFunds):
		respondError(w, http.StatusUnprocessableEntity, "Saldo insuficiente")
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "Já existe uma conta com este celular")
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "Muitas solicitações de OTP; tente novamente mais tarde")
	case errors.Is(err, domain.ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, "Tempo esgotado; tente novamente")
	case errors.Is(err, domain.ErrProvider):
		log.Error().Err(err).Msgf("Provedor de OTP falhou ao %s", action)
		respondError(w, http.StatusBadGateway, "Falha ao comunicar com o provedor de OTP")
	default:
		// Erro interno (banco caiu, bug, etc)
		log.Error().Err(err).Msgf("Erro interno ao %s", action)
		respondError(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
