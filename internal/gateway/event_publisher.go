package gateway

import "context"

const (
	LedgerExchange           = "ledger_events"
	RoutingTransactionStored = "transaction.created"
	RoutingReconcile         = "transaction.reconcile"
)

type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}
