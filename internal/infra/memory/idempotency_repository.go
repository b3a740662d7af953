package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
)

type cachedEntry struct {
	response  gateway.CachedResponse
	expiresAt time.Time
}

// IdempotencyRepository substitui o Redis quando STORAGE_DRIVER=memory ou nos testes.
type IdempotencyRepository struct {
	mu    sync.Mutex
	byKey map[string]cachedEntry
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{byKey: make(map[string]cachedEntry)}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*gateway.CachedResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(r.byKey, key)
		return nil, nil
	}
	resp := gateway.CachedResponse{StatusCode: e.response.StatusCode, Body: slices.Clone(e.response.Body)}
	return &resp, nil
}

func (r *IdempotencyRepository) Save(ctx context.Context, key string, response gateway.CachedResponse, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[key] = cachedEntry{
		response:  gateway.CachedResponse{StatusCode: response.StatusCode, Body: slices.Clone(response.Body)},
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
