package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(5, 500*time.Millisecond)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	// one token refills every 100ms
	time.Sleep(150 * time.Millisecond)
	if !tb.Allow() {
		t.Error("Expected a token to be refilled after waiting")
	}

	tb.Reset()
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available after reset", i+1)
		}
	}
}

func TestPerMinuteBurst(t *testing.T) {
	l := PerMinute(60, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("Expected burst of 2 to be allowed")
	}
	if l.Allow() {
		t.Error("Expected third request to be rejected")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := PerMinute(1, 1)
	if !l.Allow() {
		t.Fatal("Expected first request to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail when the next token is beyond the deadline")
	}
}

func TestWaitBlocksUntilToken(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	if !tb.Allow() {
		t.Fatal("Expected first request to be allowed")
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Expected Wait to block, returned after %v", elapsed)
	}
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatal("Unlimited should always allow")
		}
	}
}

func TestKeyedLimiter(t *testing.T) {
	k := NewKeyedLimiter(func() Limiter { return PerMinute(60, 1) })

	if !k.Allow("10.0.0.1") {
		t.Error("Expected first request from client A to be allowed")
	}
	if k.Allow("10.0.0.1") {
		t.Error("Expected second request from client A to be rejected")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("Expected client B to have its own bucket")
	}
	if k.Len() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", k.Len())
	}

	k.Reset()
	if k.Len() != 0 {
		t.Errorf("Expected no tracked clients after reset, got %d", k.Len())
	}
}

func TestKeyedLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Unix(1700000000, 0)
	k := NewKeyedLimiter(func() Limiter { return PerMinute(60, 1) }, WithIdleTTL(time.Minute))
	k.now = func() time.Time { return now }

	k.Allow("10.0.0.1")
	k.Allow("10.0.0.2")
	if k.Len() != 2 {
		t.Fatalf("Expected 2 tracked clients, got %d", k.Len())
	}

	now = now.Add(30 * time.Second)
	if k.Allow("10.0.0.2") {
		t.Error("Expected client B to still be throttled")
	}

	now = now.Add(45 * time.Second)
	k.Allow("10.0.0.3")
	if k.Len() != 2 {
		t.Errorf("Expected idle client A to be evicted, got %d tracked clients", k.Len())
	}

	now = now.Add(2 * time.Minute)
	k.Allow("10.0.0.3")
	if k.Len() != 1 {
		t.Errorf("Expected only the active client to remain, got %d", k.Len())
	}
}
