package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newAccountService() (*AccountService, *memory.AccountRepository) {
	repo := memory.NewAccountRepository()
	return NewAccountService(repo, time.Second, zerolog.Nop()), repo
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()

	acc, err := svc.Register(ctx, RegisterInput{Name: "Ana", Mobile: "5511999990001", Pin: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !acc.Balance.IsZero() || acc.PinHash == "1234" || acc.PinHash == "" {
		t.Fatalf("unexpected account: %+v", acc)
	}

	got, err := svc.FindByCredentials(ctx, "5511999990001", "1234")
	if err != nil {
		t.Fatalf("find by credentials: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("id = %s, want %s", got.ID, acc.ID)
	}

	_, err = svc.Register(ctx, RegisterInput{Name: "Outra", Mobile: "5511999990001", Pin: "9999"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindByCredentialsErrors(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Name: "Ana", Mobile: "A", Pin: "1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name        string
		mobile, pin string
		want        error
	}{
		{"wrong pin", "A", "0000", domain.ErrAuthenticationFailed},
		{"unknown mobile", "B", "1234", domain.ErrAccountNotFound},
		{"missing pin", "A", "", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Profile(ctx, tt.mobile, tt.pin)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newAccountService()
	for _, in := range []RegisterInput{
		{Mobile: "A", Pin: "1"},
		{Name: "Ana", Pin: "1"},
		{Name: "Ana", Mobile: "A"},
	} {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, repo := newAccountService()
	ctx := context.Background()
	seeds := []SeedAccount{
		{Name: "Ana", Mobile: "A", Pin: "1234", Balance: decimal.RequireFromString("20000.00")},
		{Name: "Bruno", Mobile: "B", Pin: "4321", Balance: decimal.RequireFromString("15000.00")},
	}

	for range 2 {
		if err := svc.Seed(ctx, seeds); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	acc, err := repo.FindByIdentifier(ctx, "B")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !acc.Balance.Equal(decimal.RequireFromString("15000")) {
		t.Fatalf("balance = %s", acc.Balance)
	}
}
