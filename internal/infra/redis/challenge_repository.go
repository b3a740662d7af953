package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/redis/go-redis/v9"
)

const challengePrefix = "otp:challenge:"

// ChallengeRepository guarda o desafio pendente por celular com TTL.
// O consumo usa GETDEL, então dois Takes concorrentes nunca pegam o mesmo desafio.
type ChallengeRepository struct {
	client *redis.Client
}

func NewChallengeRepository(client *redis.Client) *ChallengeRepository {
	return &ChallengeRepository{client: client}
}

// Put sobrescreve a chave: um novo desafio invalida o anterior.
func (r *ChallengeRepository) Put(ctx context.Context, challenge domain.Challenge, ttl time.Duration) error {
	if ttl > 0 && challenge.ExpiresAt.IsZero() {
		challenge.ExpiresAt = challenge.IssuedAt.Add(ttl)
	}
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := r.client.Set(ctx, challengePrefix+challenge.Mobile, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) Take(ctx context.Context, mobile string) (*domain.Challenge, error) {
	val, err := r.client.GetDel(ctx, challengePrefix+mobile).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNoChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take challenge: %w", err)
	}
	var c domain.Challenge
	if err := json.Unmarshal(val, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	c.Consumed = true
	return &c, nil
}

func (r *ChallengeRepository) Discard(ctx context.Context, mobile string) error {
	if err := r.client.Del(ctx, challengePrefix+mobile).Err(); err != nil {
		return fmt.Errorf("failed to discard challenge: %w", err)
	}
	return nil
}
