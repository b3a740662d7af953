package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowRespectsBurstPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a", now) {
		t.Fatal("third request inside the same instant should be denied")
	}
	if !l.Allow("b", now) {
		t.Fatal("keys must not share buckets")
	}
	if !l.Allow("a", now.Add(61*time.Second)) {
		t.Fatal("token should refill after a minute")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *MapLimiter
	if !l.Allow("a", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if New(0, 1, 0) != nil {
		t.Fatal("non-positive rate should disable the limiter")
	}
}
