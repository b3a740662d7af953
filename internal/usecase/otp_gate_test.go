package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/memory"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/otpstub"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/ratelimiter"
	"github.com/rs/zerolog"
)

func newGate(provider gateway.OTPProvider, limiter *ratelimiter.MapLimiter, cfg OTPGateConfig) (*OTPGate, *memory.ChallengeRepository) {
	challenges := memory.NewChallengeRepository()
	return NewOTPGate(challenges, provider, limiter, nil, zerolog.Nop(), cfg), challenges
}

func TestValidateApprovesOnceThenNoChallenge(t *testing.T) {
	gate, _ := newGate(otpstub.New(validOTP), nil, OTPGateConfig{})
	ctx := context.Background()

	if err := gate.Challenge(ctx, "A"); err != nil {
		t.Fatalf("challenge: %v", err)
	}
	approved, err := gate.Validate(ctx, "A", validOTP)
	if err != nil || !approved {
		t.Fatalf("expected approval, got %v / %v", approved, err)
	}
	_, err = gate.Validate(ctx, "A", validOTP)
	if !errors.Is(err, domain.ErrNoChallenge) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected no challenge, got %v", err)
	}
}

func TestValidateEmptyCodeIsRejectedAndConsumed(t *testing.T) {
	gate, challenges := newGate(otpstub.New(validOTP), nil, OTPGateConfig{})
	ctx := context.Background()

	if err := gate.Challenge(ctx, "A"); err != nil {
		t.Fatalf("challenge: %v", err)
	}
	approved, err := gate.Validate(ctx, "A", "  ")
	if err != nil || approved {
		t.Fatalf("expected plain rejection, got %v / %v", approved, err)
	}
	if _, err := challenges.Take(ctx, "A"); !errors.Is(err, domain.ErrNoChallenge) {
		t.Fatalf("challenge should have been consumed, got %v", err)
	}
}

func TestNewChallengeSupersedesPrevious(t *testing.T) {
	gate, challenges := newGate(otpstub.New(validOTP), nil, OTPGateConfig{TTL: time.Minute})
	ctx := context.Background()

	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return first }
	if err := gate.Challenge(ctx, "A"); err != nil {
		t.Fatalf("first challenge: %v", err)
	}
	second := first.Add(30 * time.Second)
	gate.now = func() time.Time { return second }
	if err := gate.Challenge(ctx, "A"); err != nil {
		t.Fatalf("second challenge: %v", err)
	}

	c, err := challenges.Take(ctx, "A")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if !c.IssuedAt.Equal(second) || !c.ExpiresAt.Equal(second.Add(time.Minute)) {
		t.Fatalf("outstanding challenge should be the latest: %+v", c)
	}
}

func TestValidateExpiredChallenge(t *testing.T) {
	gate, _ := newGate(otpstub.New(validOTP), nil, OTPGateConfig{TTL: time.Minute})
	ctx := context.Background()

	issued := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return issued }
	if err := gate.Challenge(ctx, "A"); err != nil {
		t.Fatalf("challenge: %v", err)
	}

	gate.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err := gate.Validate(ctx, "A", validOTP)
	if !errors.Is(err, domain.ErrChallengeExpired) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired challenge, got %v", err)
	}
}

func TestChallengeProviderFailureLeavesNoChallenge(t *testing.T) {
	gate, challenges := newGate(failingProvider{err: errors.New("twilio down")}, nil, OTPGateConfig{})
	ctx := context.Background()

	err := gate.Challenge(ctx, "A")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if _, err := challenges.Take(ctx, "A"); !errors.Is(err, domain.ErrNoChallenge) {
		t.Fatalf("no challenge should be stored, got %v", err)
	}
}

func TestChallengeRateLimited(t *testing.T) {
	gate, _ := newGate(otpstub.New(validOTP), ratelimiter.New(1, 1, 0), OTPGateConfig{})
	ctx := context.Background()

	if err := gate.Challenge(ctx, "A"); err != nil {
		t.Fatalf("first challenge: %v", err)
	}
	if err := gate.Challenge(ctx, "A"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := gate.Challenge(ctx, "B"); err != nil {
		t.Fatalf("other mobile should not be limited: %v", err)
	}
}

func TestProviderTimeoutIsRetryable(t *testing.T) {
	gate, challenges := newGate(slowProvider{}, nil, OTPGateConfig{ProviderTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	if err := gate.Challenge(ctx, "A"); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout on send, got %v", err)
	}

	if err := challenges.Put(ctx, domain.Challenge{Mobile: "A", IssuedAt: time.Now()}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := gate.Validate(ctx, "A", validOTP); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout on check, got %v", err)
	}
}

func TestChallengeRequiresMobile(t *testing.T) {
	gate, _ := newGate(otpstub.New(validOTP), nil, OTPGateConfig{})
	if err := gate.Challenge(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
