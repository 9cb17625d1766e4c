// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package daemon

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"grimm.is/chessuci-proxyd/internal/config"
	"grimm.is/chessuci-proxyd/internal/firewall"
	"grimm.is/chessuci-proxyd/internal/logging"
)

func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Host: "127.0.0.1",
		Engines: map[string]config.EngineConfig{
			"stockfish": {Path: "/bin/true", Port: port},
		},
		MaxConnections:                 4,
		MaxConnectionAttempts:          3,
		ConnectionAttemptPeriodSeconds: 60,
		BaseLogDir:                     t.TempDir(),
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		t.Fatalf("unexpected invalid config: %v", errs)
	}
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestSupervisorRunBindsConfiguredEnginePort(t *testing.T) {
	port := freePort(t)
	cfg := testConfig(t, port)
	s := New(cfg, logging.NewNop(), firewall.NewNoopController(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))
		if err == nil {
			conn.Close()
			lastErr = nil
			break
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	if lastErr != nil {
		t.Fatalf("engine listener never came up: %v", lastErr)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestSupervisorRunSkipsFirewallConfigurationWhenDisabled(t *testing.T) {
	cfg := testConfig(t, freePort(t))
	cfg.EnableFirewallRules = false
	s := New(cfg, logging.NewNop(), firewall.NewNoopController(), nil)

	if err := s.configureFirewall(context.Background()); err != nil {
		t.Errorf("expected no error when firewall rules disabled, got %v", err)
	}
}

func TestUCILogPathDefaultsBaseDir(t *testing.T) {
	got := uciLogPath("", "stockfish")
	want := "LOG/communication_log_stockfish.txt"
	if got != want {
		t.Errorf("uciLogPath() = %q, want %q", got, want)
	}
}
