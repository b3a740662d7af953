package badgerdb

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Open abre o badger com SyncWrites: o Append do ledger só retorna depois do fsync.
// Com path vazio o banco fica só em memória (testes e dev).
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open badger at %q: %w", path, err)
	}
	return db, nil
}
