package gateway

import (
	"context"
	"time"
)

// Representa a resposta HTTP que guardamos por Idempotency-Key
type CachedResponse struct {
	StatusCode int
	Body       []byte
}

type IdempotencyRepository interface {
	// Get retorna a resposta cacheada, ou (nil, nil) num cache miss.
	Get(ctx context.Context, key string) (*CachedResponse, error)

	// Save armazena a resposta com um TTL (Time To Live)
	Save(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error
}
