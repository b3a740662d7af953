package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
)

type ChallengeRepository struct {
	mu       sync.Mutex
	byMobile map[string]domain.Challenge
}

func NewChallengeRepository() *ChallengeRepository {
	return &ChallengeRepository{byMobile: make(map[string]domain.Challenge)}
}

func (r *ChallengeRepository) Put(ctx context.Context, challenge domain.Challenge, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl > 0 && challenge.ExpiresAt.IsZero() {
		challenge.ExpiresAt = challenge.IssuedAt.Add(ttl)
	}
	r.mu.Lock()
	r.byMobile[challenge.Mobile] = challenge
	r.mu.Unlock()
	return nil
}

func (r *ChallengeRepository) Take(ctx context.Context, mobile string) (*domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byMobile[mobile]
	if !ok {
		return nil, domain.ErrNoChallenge
	}
	delete(r.byMobile, mobile)
	c.Consumed = true
	return &c, nil
}

func (r *ChallengeRepository) Discard(ctx context.Context, mobile string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.byMobile, mobile)
	r.mu.Unlock()
	return nil
}
