// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package admission

import (
	"net/netip"
	"testing"
	"time"
)

func testGate(cfg Config) *Gate {
	return New(cfg, nil, nil, []int{5000})
}

func TestClassifyTrustedSource(t *testing.T) {
	g := testGate(Config{
		EnableTrustedSources:    true,
		TrustedSources:          []string{"10.0.0.5"},
		MaxConnectionAttempts:   3,
		ConnectionAttemptPeriod: time.Minute,
	})

	addr := netip.MustParseAddr("10.0.0.5")
	if got := g.Classify(addr); got != Trusted {
		t.Errorf("expected Trusted, got %v", got)
	}
}

func TestClassifyTrustedSubnet(t *testing.T) {
	g := testGate(Config{
		EnableTrustedSources:    true,
		TrustedSubnets:          []string{"192.168.1.0/24"},
		MaxConnectionAttempts:   3,
		ConnectionAttemptPeriod: time.Minute,
	})

	addr := netip.MustParseAddr("192.168.1.42")
	if got := g.Classify(addr); got != Trusted {
		t.Errorf("expected Trusted, got %v", got)
	}
}

func TestClassifyAllowsUntrustedUnderThreshold(t *testing.T) {
	g := testGate(Config{
		EnableTrustedSources:    true,
		MaxConnectionAttempts:   3,
		ConnectionAttemptPeriod: time.Minute,
	})

	addr := netip.MustParseAddr("203.0.113.9")
	for i := 0; i < 3; i++ {
		if got := g.Classify(addr); got != UntrustedAllowed {
			t.Fatalf("attempt %d: expected UntrustedAllowed, got %v", i, got)
		}
	}
}

func TestClassifyBlocksOverThreshold(t *testing.T) {
	g := testGate(Config{
		EnableTrustedSources:    true,
		MaxConnectionAttempts:   2,
		ConnectionAttemptPeriod: time.Minute,
	})

	addr := netip.MustParseAddr("203.0.113.9")
	g.Classify(addr)
	g.Classify(addr)
	if got := g.Classify(addr); got != UntrustedBlocked {
		t.Errorf("expected UntrustedBlocked on 3rd attempt, got %v", got)
	}
}

func TestClassifyResetsAfterBlock(t *testing.T) {
	g := testGate(Config{
		EnableTrustedSources:    true,
		MaxConnectionAttempts:   1,
		ConnectionAttemptPeriod: time.Minute,
	})

	addr := netip.MustParseAddr("203.0.113.9")
	g.Classify(addr)
	if got := g.Classify(addr); got != UntrustedBlocked {
		t.Fatalf("expected UntrustedBlocked, got %v", got)
	}

	g.mu.Lock()
	_, exists := g.attempts[addr]
	g.mu.Unlock()
	if exists {
		t.Error("expected attempt history to be cleared after block")
	}
}

func TestClassifyWindowExpiry(t *testing.T) {
	g := testGate(Config{
		EnableTrustedSources:    true,
		MaxConnectionAttempts:   1,
		ConnectionAttemptPeriod: 10 * time.Millisecond,
	})

	addr := netip.MustParseAddr("203.0.113.9")
	g.Classify(addr)
	time.Sleep(20 * time.Millisecond)
	if got := g.Classify(addr); got != UntrustedAllowed {
		t.Errorf("expected window expiry to reset count, got %v", got)
	}
}

func TestRequiresTrustReflectsConfig(t *testing.T) {
	enabled := testGate(Config{EnableTrustedSources: true})
	if !enabled.RequiresTrust() {
		t.Error("expected RequiresTrust to be true when EnableTrustedSources is set")
	}

	disabled := testGate(Config{EnableTrustedSources: false})
	if disabled.RequiresTrust() {
		t.Error("expected RequiresTrust to be false when EnableTrustedSources is unset")
	}
}

func TestClassifyDisabledTrustedSourcesAlwaysTrusted(t *testing.T) {
	g := testGate(Config{EnableTrustedSources: false})
	addr := netip.MustParseAddr("203.0.113.9")
	if got := g.Classify(addr); got != Trusted {
		t.Errorf("expected Trusted when admission gating is disabled, got %v", got)
	}
}
