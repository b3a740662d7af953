// Package twilio implementa gateway.OTPProvider com o Twilio Verify.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	twiliosdk "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

const statusApproved = "approved"

type Config struct {
	AccountSID string
	AuthToken  string
	VerifySID  string
	// Channel: "whatsapp" (padrão do serviço), "sms"...
	Channel string
}

// VerifyProvider delega envio e conferência do código ao Twilio; o código
// nunca passa pelo nosso storage.
type VerifyProvider struct {
	rest      *twiliosdk.RestClient
	verifySID string
	channel   string
}

func NewVerifyProvider(cfg Config) (*VerifyProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.VerifySID == "" {
		return nil, errors.New("twilio credentials are required")
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "whatsapp"
	}
	return &VerifyProvider{
		rest: twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		verifySID: cfg.VerifySID,
		channel:   channel,
	}, nil
}

func (p *VerifyProvider) recipient(mobile string) string {
	if p.channel == "whatsapp" {
		return "whatsapp:" + mobile
	}
	return mobile
}

func (p *VerifyProvider) Send(ctx context.Context, mobile string) error {
	params := &verify.CreateVerificationParams{}
	params.SetTo(p.recipient(mobile))
	params.SetChannel(p.channel)

	return runWithContext(ctx, func() error {
		if _, err := p.rest.VerifyV2.CreateVerification(p.verifySID, params); err != nil {
			return fmt.Errorf("twilio send verification: %w", err)
		}
		return nil
	})
}

func (p *VerifyProvider) Check(ctx context.Context, mobile, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(p.recipient(mobile))
	params.SetCode(code)

	approved := false
	err := runWithContext(ctx, func() error {
		resp, err := p.rest.VerifyV2.CreateVerificationCheck(p.verifySID, params)
		if err != nil {
			// 404 = verificação expirada ou já usada no lado do Twilio: só não aprova
			var restErr *client.TwilioRestError
			if errors.As(err, &restErr) && restErr.Status == http.StatusNotFound {
				return nil
			}
			return fmt.Errorf("twilio check verification: %w", err)
		}
		approved = resp.Status != nil && *resp.Status == statusApproved
		return nil
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

// runWithContext: o SDK do Twilio não aceita context, então a chamada roda numa
// goroutine e o chamador é liberado quando o prazo do ctx estoura.
func runWithContext(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
