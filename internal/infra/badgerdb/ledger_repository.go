package badgerdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const ledgerPrefix = "ledger:"

// LedgerRepository grava envelopes em chaves ordenadas por sequência.
// Os appends são serializados pelo mutex, então a sequência não tem buracos.
type LedgerRepository struct {
	db     *badger.DB
	logger zerolog.Logger

	mu      sync.Mutex
	lastSeq uint64
}

func NewLedgerRepository(db *badger.DB, logger zerolog.Logger) (*LedgerRepository, error) {
	r := &LedgerRepository{db: db, logger: logger}
	last, err := r.loadLastSeq()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger head: %w", err)
	}
	r.lastSeq = last
	return r, nil
}

func ledgerKey(seq uint64) []byte {
	key := make([]byte, len(ledgerPrefix)+8)
	copy(key, ledgerPrefix)
	binary.BigEndian.PutUint64(key[len(ledgerPrefix):], seq)
	return key
}

func (r *LedgerRepository) loadLastSeq() (uint64, error) {
	var last uint64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(ledgerPrefix)
		// No modo reverso o Seek precisa partir do maior valor possível do prefixo
		seekKey := append(bytes.Clone(prefix), 0xFF)
		it.Seek(seekKey)
		if it.ValidForPrefix(prefix) {
			key := it.Item().Key()
			last = binary.BigEndian.Uint64(key[len(prefix):])
		}
		return nil
	})
	return last, err
}

func (r *LedgerRepository) Append(ctx context.Context, envelope domain.Envelope) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.lastSeq + 1
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(ledgerKey(seq), data)
	})
	if err != nil {
		r.logger.Error().Err(err).Uint64("seq", seq).Msg("Falha ao gravar envelope no ledger")
		return 0, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	r.lastSeq = seq
	return seq, nil
}

// Scan percorre o prefixo dentro de uma transação de leitura, entregando
// um envelope por vez (nada é materializado por inteiro).
func (r *LedgerRepository) Scan(ctx context.Context) iter.Seq2[domain.LedgerEntry, error] {
	return func(yield func(domain.LedgerEntry, error) bool) {
		stopped := false
		err := r.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			prefix := []byte(ledgerPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				seq := binary.BigEndian.Uint64(item.Key()[len(prefix):])

				var env domain.Envelope
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &env)
				}); err != nil {
					return fmt.Errorf("corrupted ledger entry %d: %w", seq, err)
				}
				if !yield(domain.LedgerEntry{Seq: seq, Envelope: env}, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(domain.LedgerEntry{}, err)
		}
	}
}
