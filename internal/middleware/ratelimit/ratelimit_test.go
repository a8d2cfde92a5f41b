package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("request over the limit should be rejected")
	}
}

func TestLimiterTracksClientsIndependently(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("first client first request rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("second client should have its own window")
	}
	if l.Allow("10.0.0.1") {
		t.Error("first client second request should be rejected")
	}
	if l.ActiveClients() != 2 {
		t.Errorf("ActiveClients() = %d, want 2", l.ActiveClients())
	}
}

func TestLimiterDefaultsOnZeroConfig(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()

	if l.perMinute != DefaultConfig().RequestsPerMinute {
		t.Errorf("perMinute = %d, want default %d", l.perMinute, DefaultConfig().RequestsPerMinute)
	}
}

func TestLimiterStopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}
