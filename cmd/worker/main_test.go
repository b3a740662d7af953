package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/mongodb"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

type fakeSaver struct {
	saved []mongodb.AuditLog
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, log mongodb.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, log)
	return nil
}

func delivery(t *testing.T, ack *ackRecorder, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	return amqp.Delivery{Acknowledger: ack, Body: raw}
}

func TestHandleDeliveryStoresSealedEnvelope(t *testing.T) {
	ack := &ackRecorder{}
	saver := &fakeSaver{}
	event := domain.LedgerEvent{
		TransactionID: "tx-1",
		Type:          domain.KindTransfer,
		Status:        domain.EventStatusCompleted,
		Seq:           7,
		Envelope:      &domain.Envelope{Version: 1, Nonce: []byte{1, 2}, Ciphertext: []byte{3, 4}},
		OccurredAt:    time.Now().UTC(),
	}

	handleDelivery(context.Background(), zerolog.Nop(), saver, delivery(t, ack, event))

	if !ack.acked || ack.nacked {
		t.Fatalf("expected ack, got %+v", ack)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d docs, want 1", len(saver.saved))
	}
	doc := saver.saved[0]
	if doc.TransactionID != "tx-1" || doc.Seq != 7 || string(doc.Ciphertext) != string([]byte{3, 4}) {
		t.Fatalf("unexpected audit doc: %+v", doc)
	}
}

func TestHandleDeliveryDropsInvalidJSON(t *testing.T) {
	ack := &ackRecorder{}
	saver := &fakeSaver{}
	handleDelivery(context.Background(), zerolog.Nop(), saver, delivery(t, ack, []byte("{oops")))

	if !ack.nacked || ack.requeue || len(saver.saved) != 0 {
		t.Fatalf("invalid json should be nacked without requeue: %+v", ack)
	}
}

func TestHandleDeliveryRequeuesOnStoreFailure(t *testing.T) {
	ack := &ackRecorder{}
	saver := &fakeSaver{err: errors.New("mongo down")}
	handleDelivery(context.Background(), zerolog.Nop(), saver, delivery(t, ack, domain.LedgerEvent{TransactionID: "tx-2"}))

	if !ack.nacked || !ack.requeue || ack.acked {
		t.Fatalf("store failure should requeue: %+v", ack)
	}
}
