package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// AuditLog representa o documento que será salvo no Mongo.
// O registro continua selado: guardamos só o envelope, nunca o texto claro.
type AuditLog struct {
	ID            string    `bson:"_id,omitempty"`
	TransactionID string    `bson:"transaction_id"`
	Type          string    `bson:"type"`
	Status        string    `bson:"status"`
	Seq           uint64    `bson:"seq"`
	Version       uint32    `bson:"envelope_version"`
	Nonce         []byte    `bson:"nonce,omitempty"`
	Ciphertext    []byte    `bson:"ciphertext,omitempty"`
	Reason        string    `bson:"reason,omitempty"`
	OccurredAt    time.Time `bson:"occurred_at"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

const (
	auditCollection          = "audit_logs"
	reconciliationCollection = "reconciliation"
)

type AuditRepository struct {
	audit          *mongo.Collection
	reconciliation *mongo.Collection
}

func NewAuditRepository(client *mongo.Client, dbName string) *AuditRepository {
	db := client.Database(dbName)
	return &AuditRepository{
		audit:          db.Collection(auditCollection),
		reconciliation: db.Collection(reconciliationCollection),
	}
}

// FromEvent converte o evento do broker para o documento de auditoria.
func FromEvent(event domain.LedgerEvent) AuditLog {
	log := AuditLog{
		TransactionID: event.TransactionID,
		Type:          string(event.Type),
		Status:        event.Status,
		Seq:           event.Seq,
		Reason:        event.Reason,
		OccurredAt:    event.OccurredAt,
	}
	if event.Envelope != nil {
		log.Version = event.Envelope.Version
		log.Nonce = event.Envelope.Nonce
		log.Ciphertext = event.Envelope.Ciphertext
	}
	return log
}

// Save decide a collection pelo status: eventos "unrecorded" vão para a fila de reconciliação.
func (r *AuditRepository) Save(ctx context.Context, log AuditLog) error {
	log.ProcessedAt = time.Now().UTC()
	// O transaction_id vira _id: reentregas do broker não duplicam documento
	log.ID = log.TransactionID

	collection := r.audit
	if log.Status == domain.EventStatusUnrecorded {
		collection = r.reconciliation
	}
	_, err := collection.InsertOne(ctx, log)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
