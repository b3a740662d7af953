package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

// History percorre o ledger inteiro, abre cada envelope e devolve só os
// registros em que o celular é origem ou destino. É lazy: nada é lido
// antes de o consumidor iterar. Um envelope que não abre interrompe a
// iteração com domain.ErrDecrypt.
func (e *TransactionEngine) History(ctx context.Context, mobile string) iter.Seq2[domain.TransactionRecord, error] {
	return func(yield func(domain.TransactionRecord, error) bool) {
		for entry, err := range e.ledger.Scan(ctx) {
			if err != nil {
				yield(domain.TransactionRecord{}, classifyStorage(err))
				return
			}

			plaintext, err := e.cipher.Open(entry.Envelope)
			if err != nil {
				yield(domain.TransactionRecord{}, fmt.Errorf("entrada %d: %w", entry.Seq, err))
				return
			}

			var record domain.TransactionRecord
			if err := json.Unmarshal(plaintext, &record); err != nil {
				yield(domain.TransactionRecord{}, fmt.Errorf("entrada %d: %w: %v", entry.Seq, domain.ErrDecrypt, err))
				return
			}
			if !record.Involves(mobile) {
				continue
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}

// CollectHistory materializa o History para respostas que precisam da lista completa.
func (e *TransactionEngine) CollectHistory(ctx context.Context, mobile string) ([]domain.TransactionRecord, error) {
	records := []domain.TransactionRecord{}
	for record, err := range e.History(ctx, mobile) {
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
