package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idempotency:"

// IdempotencyRepository guarda cada resposta num hash (status + body) com TTL.
// A chave recebida já vem escopada pelo dono e carrega o celular; no Redis
// só aparece o digest dela.
type IdempotencyRepository struct {
	client *redis.Client
}

func NewIdempotencyRepository(client *redis.Client) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

func idempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return idempotencyPrefix + hex.EncodeToString(sum[:])
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*gateway.CachedResponse, error) {
	fields, err := r.client.HGetAll(ctx, idempotencyKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return decodeCachedResponse(fields)
}

// Save grava os dois campos e o TTL numa única MULTI/EXEC.
func (r *IdempotencyRepository) Save(ctx context.Context, key string, response gateway.CachedResponse, ttl time.Duration) error {
	redisKey := idempotencyKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey, "status", response.StatusCode, "body", response.Body)
		pipe.Expire(ctx, redisKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}

// decodeCachedResponse: hash vazio é cache miss (nil, nil).
func decodeCachedResponse(fields map[string]string) (*gateway.CachedResponse, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	status, err := strconv.Atoi(fields["status"])
	if err != nil {
		return nil, fmt.Errorf("invalid cached status %q: %w", fields["status"], err)
	}
	return &gateway.CachedResponse{StatusCode: status, Body: []byte(fields["body"])}, nil
}
