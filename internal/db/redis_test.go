package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Ctx:    context.Background(),
	}
	t.Cleanup(rs.Close)
	return rs
}

func TestIncrementHitCounters(t *testing.T) {
	rs := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := rs.IncrementHit("summer-sale", false); err != nil {
			t.Fatalf("increment clean hit: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := rs.IncrementHit("summer-sale", true); err != nil {
			t.Fatalf("increment bot hit: %v", err)
		}
	}

	hits, bots := rs.GetHitCounts("summer-sale")
	if hits != 5 {
		t.Errorf("expected 5 total hits, got %d", hits)
	}
	if bots != 2 {
		t.Errorf("expected 2 bot hits, got %d", bots)
	}
}

func TestGetHitCountsMissingKeys(t *testing.T) {
	rs := newTestStore(t)

	hits, bots := rs.GetHitCounts("never-seen")
	if hits != 0 || bots != 0 {
		t.Fatalf("expected zero counts for unknown campaign, got hits=%d bots=%d", hits, bots)
	}
}

func TestIncrementHitIsolatesCampaigns(t *testing.T) {
	rs := newTestStore(t)

	if err := rs.IncrementHit("alpha", true); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := rs.IncrementHit("beta", false); err != nil {
		t.Fatalf("increment: %v", err)
	}

	if hits, bots := rs.GetHitCounts("alpha"); hits != 1 || bots != 1 {
		t.Errorf("alpha: expected 1/1, got %d/%d", hits, bots)
	}
	if hits, bots := rs.GetHitCounts("beta"); hits != 1 || bots != 0 {
		t.Errorf("beta: expected 1/0, got %d/%d", hits, bots)
	}
}

func TestIncrementHitSetsExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Ctx:    context.Background(),
	}
	defer rs.Close()

	if err := rs.IncrementHit("gamma", true); err != nil {
		t.Fatalf("increment: %v", err)
	}

	// Counters are daily keys; past the TTL they must be gone.
	mr.FastForward(counterTTL + 1)
	keys := mr.Keys()
	if len(keys) != 0 {
		t.Fatalf("expected counters to expire, still present: %v", keys)
	}
}
