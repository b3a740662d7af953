package domain

import "time"

// LedgerEvent é o que sai para o broker depois do commit. Não carrega valores
// nem celulares em texto claro, só o envelope selado.
type LedgerEvent struct {
	TransactionID string          `json:"transaction_id"`
	Type          TransactionKind `json:"type"`
	Status        string          `json:"status"`
	Seq           uint64          `json:"seq,omitempty"`
	Envelope      *Envelope       `json:"envelope,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

const (
	EventStatusCompleted  = "completed"
	EventStatusUnrecorded = "unrecorded"
)
