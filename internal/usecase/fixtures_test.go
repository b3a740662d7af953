package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/memory"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/otpstub"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/security"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const validOTP = "123456"

type fixture struct {
	accounts   *memory.AccountRepository
	ledger     *memory.LedgerRepository
	challenges *memory.ChallengeRepository
	cipher     *security.EnvelopeCipher
	publisher  *recordingPublisher
	gate       *OTPGate
	engine     *TransactionEngine
}

func testCipher(t *testing.T, fill byte) *security.EnvelopeCipher {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{fill}, 32))
	c, err := security.NewEnvelopeCipher(security.StaticKeyProvider{Encoded: key})
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	return c
}

// newFixture monta o engine sobre os adaptadores em memória. Os opts podem
// trocar qualquer dependência antes da construção.
func newFixture(t *testing.T, opts ...func(*EngineDeps)) *fixture {
	t.Helper()
	f := &fixture{
		accounts:   memory.NewAccountRepository(),
		ledger:     memory.NewLedgerRepository(),
		challenges: memory.NewChallengeRepository(),
		cipher:     testCipher(t, 7),
		publisher:  &recordingPublisher{},
	}
	f.gate = NewOTPGate(f.challenges, otpstub.New(validOTP), nil, nil, zerolog.Nop(), OTPGateConfig{TTL: time.Minute})

	deps := EngineDeps{
		Accounts:       f.accounts,
		Ledger:         f.ledger,
		TxManager:      memory.NewUow(),
		Cipher:         f.cipher,
		OTP:            f.gate,
		Publisher:      f.publisher,
		Logger:         zerolog.Nop(),
		StorageTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.engine = NewTransactionEngine(deps)
	return f
}

func (f *fixture) seed(t *testing.T, mobile, balance string) {
	t.Helper()
	err := f.accounts.Create(context.Background(), &domain.Account{
		Mobile:  mobile,
		Name:    "Conta " + mobile,
		Balance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", mobile, err)
	}
}

func (f *fixture) challenge(t *testing.T, mobile string) {
	t.Helper()
	if err := f.gate.Challenge(context.Background(), mobile); err != nil {
		t.Fatalf("challenge %s: %v", mobile, err)
	}
}

func (f *fixture) balance(t *testing.T, mobile string) decimal.Decimal {
	t.Helper()
	acc, err := f.accounts.FindByIdentifier(context.Background(), mobile)
	if err != nil {
		t.Fatalf("find %s: %v", mobile, err)
	}
	return acc.Balance
}

func assertBalance(t *testing.T, f *fixture, mobile, want string) {
	t.Helper()
	if got := f.balance(t, mobile); !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("balance %s = %s, want %s", mobile, got.StringFixed(2), want)
	}
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type published struct {
	routingKey string
	event      domain.LedgerEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	event, ok := body.(domain.LedgerEvent)
	if !ok {
		return errors.New("unexpected event body")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{routingKey: routingKey, event: event})
	return nil
}

func (p *recordingPublisher) byRoutingKey(key string) []domain.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.LedgerEvent
	for _, e := range p.events {
		if e.routingKey == key {
			out = append(out, e.event)
		}
	}
	return out
}

// failingLedger aceita Scan normalmente mas recusa qualquer Append.
type failingLedger struct {
	*memory.LedgerRepository
	err error
}

func (l *failingLedger) Append(ctx context.Context, envelope domain.Envelope) (uint64, error) {
	return 0, l.err
}

type approveAll struct{}

func (approveAll) Validate(ctx context.Context, mobile, code string) (bool, error) { return true, nil }

type failingProvider struct{ err error }

func (p failingProvider) Send(ctx context.Context, mobile string) error { return p.err }

func (p failingProvider) Check(ctx context.Context, mobile, code string) (bool, error) {
	return false, p.err
}

// slowProvider só responde quando o contexto expira.
type slowProvider struct{}

func (slowProvider) Send(ctx context.Context, mobile string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (slowProvider) Check(ctx context.Context, mobile, code string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}
