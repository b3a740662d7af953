package badgerdb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustCreate(t *testing.T, repo *AccountRepository, mobile, balance string) {
	t.Helper()
	acc := &domain.Account{ID: uuid.New(), Mobile: mobile, Name: mobile, Balance: decimal.RequireFromString(balance)}
	if err := repo.Create(context.Background(), acc); err != nil {
		t.Fatalf("create %s: %v", mobile, err)
	}
}

func TestAccountLifecycle(t *testing.T) {
	repo := NewAccountRepository(openTestDB(t), zerolog.Nop())
	ctx := context.Background()
	mustCreate(t, repo, "+5511900000001", "20000.00")

	if err := repo.Create(ctx, &domain.Account{Mobile: "+5511900000001"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := repo.FindByIdentifier(ctx, "+5511900000099"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	acc, err := repo.ApplyBalanceDelta(ctx, "+5511900000001", decimal.RequireFromString("-5000.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !acc.Balance.Equal(decimal.RequireFromString("15000.00")) {
		t.Fatalf("unexpected balance %s", acc.Balance)
	}
	if _, err := repo.ApplyBalanceDelta(ctx, "+5511900000001", decimal.RequireFromString("-15000.01")); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	got, _ := repo.FindByIdentifier(ctx, "+5511900000001")
	if !got.Balance.Equal(decimal.RequireFromString("15000")) {
		t.Fatalf("balance changed on rejected delta: %s", got.Balance)
	}
}

func TestUowCommitsBothSidesOrNothing(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepository(db, zerolog.Nop())
	uow := NewUow(db)
	ctx := context.Background()
	mustCreate(t, repo, "A", "100")
	mustCreate(t, repo, "B", "0")

	transfer := func(amount string, failAfterDebit bool) error {
		return uow.Run(ctx, func(ctx context.Context) error {
			tx := repo.WithTx(gateway.TransactionFromContext(ctx))
			d := decimal.RequireFromString(amount)
			if _, err := tx.ApplyBalanceDelta(ctx, "A", d.Neg()); err != nil {
				return err
			}
			if failAfterDebit {
				return errors.New("credit side failed")
			}
			_, err := tx.ApplyBalanceDelta(ctx, "B", d)
			return err
		})
	}

	if err := transfer("30", true); err == nil {
		t.Fatal("expected failure")
	}
	a, _ := repo.FindByIdentifier(ctx, "A")
	if !a.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("debit leaked out of rolled back uow: %s", a.Balance)
	}

	if err := transfer("30", false); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	a, _ = repo.FindByIdentifier(ctx, "A")
	b, _ := repo.FindByIdentifier(ctx, "B")
	if !a.Balance.Equal(decimal.NewFromInt(70)) || !b.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected balances A=%s B=%s", a.Balance, b.Balance)
	}
}

func TestLedgerAppendScanAndReopenHead(t *testing.T) {
	db := openTestDB(t)
	ledger, err := NewLedgerRepository(db, zerolog.Nop())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := ledger.Append(ctx, domain.Envelope{Version: 1, Nonce: []byte{byte(i)}, Ciphertext: []byte("c")}); err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var prev uint64
	count := 0
	for entry, err := range ledger.Scan(ctx) {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if entry.Seq != prev+1 {
			t.Fatalf("sequence gap: %d after %d", entry.Seq, prev)
		}
		prev = entry.Seq
		count++
	}
	if count != 20 {
		t.Fatalf("expected 20 entries, got %d", count)
	}

	reopened, err := NewLedgerRepository(db, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	seq, err := reopened.Append(ctx, domain.Envelope{Version: 1})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if seq != 21 {
		t.Fatalf("expected head to continue at 21, got %d", seq)
	}
}

func TestLedgerScanStopsEarly(t *testing.T) {
	db := openTestDB(t)
	ledger, _ := NewLedgerRepository(db, zerolog.Nop())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = ledger.Append(ctx, domain.Envelope{Version: 1})
	}
	seen := 0
	for _, err := range ledger.Scan(ctx) {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("expected early stop at 2, got %d", seen)
	}
}
