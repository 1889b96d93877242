package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisSessionRevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionRevocationStore(client), mr
}

func TestMarkAndCheckRevoked(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "session-a")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("fresh session reported revoked")
	}

	if err := store.MarkRevoked(ctx, "session-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("mark revoked: %v", err)
	}
	revoked, err = store.IsRevoked(ctx, "session-a")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected session to be revoked")
	}

	revoked, err = store.IsRevoked(ctx, "session-b")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("unrelated session reported revoked")
	}
}

func TestRevocationMarkerExpiresWithToken(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.MarkRevoked(ctx, "session-a", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("mark revoked: %v", err)
	}

	// Once the token itself has lapsed the marker is no longer needed.
	mr.FastForward(2 * time.Minute)

	revoked, err := store.IsRevoked(ctx, "session-a")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("marker should have expired with the token")
	}
}

func TestMarkRevokedWithPastExpiryStillSets(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Expiry in the past falls back to a one-hour TTL.
	if err := store.MarkRevoked(ctx, "session-a", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("mark revoked: %v", err)
	}
	revoked, err := store.IsRevoked(ctx, "session-a")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected marker despite past expiry")
	}
}
