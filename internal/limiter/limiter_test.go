package limiter

import (
	"fmt"
	"testing"
	"time"
)

// TestMemoryLimiter_Allow tests basic bucket exhaustion
func TestMemoryLimiter_Allow(t *testing.T) {
	lim := NewMemoryLimiter(2)
	defer lim.Close()

	if !lim.Allow("client-1") {
		t.Error("first request should pass")
	}
	if !lim.Allow("client-1") {
		t.Error("second request should pass")
	}
	if lim.Allow("client-1") {
		t.Error("third request should be limited")
	}
}

// TestMemoryLimiter_PerKeyIsolation tests that one client cannot
// exhaust another's bucket
func TestMemoryLimiter_PerKeyIsolation(t *testing.T) {
	lim := NewMemoryLimiter(1)
	defer lim.Close()

	if !lim.Allow("client-1") {
		t.Error("client-1 should pass")
	}
	if lim.Allow("client-1") {
		t.Error("client-1 should now be limited")
	}
	if !lim.Allow("client-2") {
		t.Error("client-2 should have its own bucket")
	}
}

// TestMemoryLimiter_Refill tests that tokens come back over time
func TestMemoryLimiter_Refill(t *testing.T) {
	lim := NewMemoryLimiter(10)
	defer lim.Close()

	for i := 0; i < 10; i++ {
		lim.Allow("client-1")
	}
	if lim.Allow("client-1") {
		t.Error("bucket should be empty")
	}

	time.Sleep(150 * time.Millisecond)
	if !lim.Allow("client-1") {
		t.Error("expected a token after refill")
	}
}

// TestMemoryLimiter_FractionalRate tests that sub-1 rates still admit
// the first request
func TestMemoryLimiter_FractionalRate(t *testing.T) {
	lim := NewMemoryLimiter(0.2)
	defer lim.Close()

	if !lim.Allow("client-1") {
		t.Error("first request should pass even at fractional rates")
	}
	if lim.Allow("client-1") {
		t.Error("second request should be limited")
	}
}

// TestMemoryLimiter_Concurrent tests the limiter under parallel load
func TestMemoryLimiter_Concurrent(t *testing.T) {
	lim := NewMemoryLimiter(100)
	defer lim.Close()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			for j := 0; j < 20; j++ {
				lim.Allow(fmt.Sprintf("client-%d", id))
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

// TestNew tests the factory
func TestNew(t *testing.T) {
	lim, err := New(Config{Type: "memory", RequestsPerSecond: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := lim.(*MemoryLimiter); !ok {
		t.Errorf("expected *MemoryLimiter, got %T", lim)
	}
	lim.Close()

	// Empty type defaults to memory
	lim, err = New(Config{RequestsPerSecond: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lim.Close()

	if _, err := New(Config{Type: "postgres"}); err == nil {
		t.Error("expected error for unknown limiter type")
	}
}
