package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/keylock"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/logging"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/metrics"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/ratelimiter"
	"github.com/rs/zerolog"
)

const DefaultChallengeTTL = 10 * time.Minute

// OTPValidator é o que o engine precisa do gate: consumir e aprovar um código.
type OTPValidator interface {
	Validate(ctx context.Context, mobile, code string) (bool, error)
}

type OTPGateConfig struct {
	TTL             time.Duration
	ProviderTimeout time.Duration
	StorageTimeout  time.Duration
}

// OTPGate emite e valida desafios. Cada celular tem um único escritor por vez,
// então emissão e validação concorrentes para o mesmo número não se cruzam.
type OTPGate struct {
	challenges gateway.ChallengeRepository
	provider   gateway.OTPProvider
	limiter    *ratelimiter.MapLimiter
	locks      *keylock.Locker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	cfg        OTPGateConfig
	now        func() time.Time
}

func NewOTPGate(
	challenges gateway.ChallengeRepository,
	provider gateway.OTPProvider,
	limiter *ratelimiter.MapLimiter,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg OTPGateConfig,
) *OTPGate {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultChallengeTTL
	}
	return &OTPGate{
		challenges: challenges,
		provider:   provider,
		limiter:    limiter,
		locks:      keylock.New(),
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Challenge pede ao provedor um novo código e invalida o desafio anterior.
// Se o envio falhar, o celular fica sem desafio pendente.
func (g *OTPGate) Challenge(ctx context.Context, mobile string) error {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return fmt.Errorf("%w: mobile is required", domain.ErrValidation)
	}

	unlock := g.locks.Lock(mobile)
	defer unlock()

	now := g.now().UTC()
	if !g.limiter.Allow(mobile, now) {
		g.metrics.OTP("challenge", "rate_limited")
		return domain.ErrRateLimited
	}

	if err := g.discard(ctx, mobile); err != nil {
		return err
	}

	providerCtx, cancel := withTimeout(ctx, g.cfg.ProviderTimeout)
	err := g.provider.Send(providerCtx, mobile)
	cancel()
	if err != nil {
		g.metrics.OTP("challenge", "provider_error")
		g.logger.Error().Err(err).Str("mobile", logging.MaskMobile(mobile)).Msg("Falha ao enviar OTP")
		return classifyProvider(err)
	}

	storageCtx, cancel := withTimeout(ctx, g.cfg.StorageTimeout)
	defer cancel()
	challenge := domain.Challenge{
		Mobile:    mobile,
		IssuedAt:  now,
		ExpiresAt: now.Add(g.cfg.TTL),
	}
	if err := g.challenges.Put(storageCtx, challenge, g.cfg.TTL); err != nil {
		return classifyStorage(err)
	}

	g.metrics.OTP("challenge", "sent")
	g.logger.Info().Str("mobile", logging.MaskMobile(mobile)).Msg("Desafio OTP emitido")
	return nil
}

// Validate consome o desafio pendente antes de consultar o provedor, então
// cada desafio vale para exatamente uma tentativa, aprovada ou não.
// Sem desafio pendente o erro casa com ErrUnauthorized e ErrNoChallenge.
func (g *OTPGate) Validate(ctx context.Context, mobile, code string) (bool, error) {
	mobile = strings.TrimSpace(mobile)

	unlock := g.locks.Lock(mobile)
	defer unlock()

	storageCtx, cancel := withTimeout(ctx, g.cfg.StorageTimeout)
	challenge, err := g.challenges.Take(storageCtx, mobile)
	cancel()
	if errors.Is(err, domain.ErrNoChallenge) {
		g.metrics.OTP("validate", "no_challenge")
		return false, fmt.Errorf("%w: %w", domain.ErrUnauthorized, domain.ErrNoChallenge)
	}
	if err != nil {
		return false, classifyStorage(err)
	}
	if challenge.Expired(g.now()) {
		g.metrics.OTP("validate", "expired")
		return false, fmt.Errorf("%w: %w", domain.ErrUnauthorized, domain.ErrChallengeExpired)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		g.metrics.OTP("validate", "rejected")
		return false, nil
	}

	providerCtx, cancel := withTimeout(ctx, g.cfg.ProviderTimeout)
	defer cancel()
	approved, err := g.provider.Check(providerCtx, mobile, code)
	if err != nil {
		g.metrics.OTP("validate", "provider_error")
		g.logger.Error().Err(err).Str("mobile", logging.MaskMobile(mobile)).Msg("Falha ao verificar OTP")
		return false, classifyProvider(err)
	}

	if approved {
		g.metrics.OTP("validate", "approved")
	} else {
		g.metrics.OTP("validate", "rejected")
	}
	return approved, nil
}

func (g *OTPGate) discard(ctx context.Context, mobile string) error {
	storageCtx, cancel := withTimeout(ctx, g.cfg.StorageTimeout)
	defer cancel()
	if err := g.challenges.Discard(storageCtx, mobile); err != nil {
		return classifyStorage(err)
	}
	return nil
}
