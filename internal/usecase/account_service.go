package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/logging"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type RegisterInput struct {
	Name   string
	Mobile string
	Pin    string
}

// SeedAccount é usado só no boot de demonstração (SEED_DEMO).
type SeedAccount struct {
	Name    string
	Mobile  string
	Pin     string
	Balance decimal.Decimal
}

// AccountService cuida de cadastro e autenticação por celular + PIN.
type AccountService struct {
	accounts       gateway.AccountRepository
	storageTimeout time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

func NewAccountService(accounts gateway.AccountRepository, storageTimeout time.Duration, logger zerolog.Logger) *AccountService {
	return &AccountService{
		accounts:       accounts,
		storageTimeout: storageTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	return s.create(ctx, input.Name, input.Mobile, input.Pin, decimal.Zero)
}

// FindByCredentials devolve a conta se o PIN bater. Conta inexistente e PIN
// errado são erros distintos (ErrAccountNotFound / ErrAuthenticationFailed).
func (s *AccountService) FindByCredentials(ctx context.Context, mobile, pin string) (*domain.Account, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" || pin == "" {
		return nil, fmt.Errorf("%w: mobile and pin are required", domain.ErrValidation)
	}

	storageCtx, cancel := withTimeout(ctx, s.storageTimeout)
	defer cancel()

	account, err := s.accounts.FindByIdentifier(storageCtx, mobile)
	if err != nil {
		return nil, classifyStorage(err)
	}

	ok, err := security.ComparePin(account.PinHash, pin)
	if err != nil {
		return nil, fmt.Errorf("falha ao comparar pin: %w", err)
	}
	if !ok {
		s.logger.Warn().Str("mobile", logging.MaskMobile(mobile)).Msg("PIN inválido")
		return nil, domain.ErrAuthenticationFailed
	}
	return account, nil
}

// Profile é o snapshot autenticado da conta.
func (s *AccountService) Profile(ctx context.Context, mobile, pin string) (*domain.Account, error) {
	return s.FindByCredentials(ctx, mobile, pin)
}

// Seed cria as contas de demonstração; contas já existentes são mantidas.
func (s *AccountService) Seed(ctx context.Context, seeds []SeedAccount) error {
	for _, seed := range seeds {
		_, err := s.create(ctx, seed.Name, seed.Mobile, seed.Pin, seed.Balance)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("falha ao criar conta de demonstração %s: %w", logging.MaskMobile(seed.Mobile), err)
		}
		s.logger.Info().Str("mobile", logging.MaskMobile(seed.Mobile)).Msg("Conta de demonstração criada")
	}
	return nil
}

func (s *AccountService) create(ctx context.Context, name, mobile, pin string, balance decimal.Decimal) (*domain.Account, error) {
	name, mobile = strings.TrimSpace(name), strings.TrimSpace(mobile)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	case mobile == "":
		return nil, fmt.Errorf("%w: mobile is required", domain.ErrValidation)
	case pin == "":
		return nil, fmt.Errorf("%w: pin is required", domain.ErrValidation)
	case balance.IsNegative():
		return nil, fmt.Errorf("%w: initial balance cannot be negative", domain.ErrValidation)
	}

	hash, err := security.HashPin(pin)
	if err != nil {
		return nil, fmt.Errorf("falha ao gerar hash do pin: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:        uuid.New(),
		Mobile:    mobile,
		Name:      name,
		Balance:   balance.Round(domain.MoneyScale),
		PinHash:   hash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	storageCtx, cancel := withTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.accounts.Create(storageCtx, account); err != nil {
		return nil, classifyStorage(err)
	}
	return account, nil
}
