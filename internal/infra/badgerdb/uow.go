package badgerdb

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/dgraph-io/badger/v4"
)

// Uow implementa gateway.TransactionManager sobre transações do badger.
type Uow struct {
	db *badger.DB
}

func NewUow(db *badger.DB) *Uow {
	return &Uow{db: db}
}

// Run executa fn dentro de uma transação de escrita.
// Se fn retornar erro, descarta (rollback). Se sucesso, Commit.
func (u *Uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	txn := u.db.NewTransaction(true)
	// Discard depois do Commit é no-op; sem Commit, garante o rollback
	defer txn.Discard()

	ctxWithTx := context.WithValue(ctx, gateway.TransactionKey, txn)
	if err := fn(ctxWithTx); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
