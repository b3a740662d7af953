// Package otpstub é um provedor de OTP para desenvolvimento local, sem Twilio.
// Aceita um único código fixo configurado; nunca deve ser usado em produção.
package otpstub

import (
	"context"
	"crypto/subtle"

	"github.com/rs/zerolog/log"
)

type Provider struct {
	code string
}

func New(code string) *Provider {
	return &Provider{code: code}
}

func (p *Provider) Send(ctx context.Context, mobile string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Warn().Msg("OTP stub ativo: nenhum código foi enviado de verdade")
	return nil
}

func (p *Provider) Check(ctx context.Context, mobile, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.code == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(p.code), []byte(code)) == 1, nil
}
