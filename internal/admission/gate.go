// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package admission decides whether an inbound peer may proceed to engine
// handshake, and tracks per-IP connection attempts so repeat offenders get
// handed to the firewall instead of kept in memory forever.
package admission

import (
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/chessuci-proxyd/internal/firewall"
	"grimm.is/chessuci-proxyd/internal/logging"
	"grimm.is/chessuci-proxyd/internal/metrics"
)

// Classification is the outcome of admitting a peer.
type Classification int

const (
	// Trusted peers skip rate limiting entirely and proceed straight to
	// engine handshake.
	Trusted Classification = iota
	// UntrustedAllowed peers are outside the trusted list but have not yet
	// crossed the attempt threshold, so no firewall block is requested.
	// Classify returns this only while EnableTrustedSources is on, and in
	// that mode the listener still closes the connection.
	UntrustedAllowed
	// UntrustedBlocked peers just crossed the attempt threshold on this
	// call and must be rejected.
	UntrustedBlocked
)

// Config controls the gate's trust list and rate-limit window.
type Config struct {
	TrustedSources []string
	TrustedSubnets []string

	EnableTrustedSources bool

	MaxConnectionAttempts  int
	ConnectionAttemptPeriod time.Duration

	EnableFirewallIPBlocking bool
	LogUntrustedAttempts     bool
	BaseLogDir               string

	Metrics    *metrics.Registry
	EngineName string
}

// Gate classifies inbound peers and maintains the sliding-window attempt
// history backing UntrustedBlocked decisions.
type Gate struct {
	cfg       Config
	logger    *logging.Logger
	firewall  firewall.Controller
	enginePorts []int

	mu       sync.Mutex
	attempts map[netip.Addr][]time.Time

	trustedAddrs map[netip.Addr]struct{}
	trustedNets  []netip.Prefix
}

// New builds a Gate. enginePorts is the full set of engine listen ports,
// used to scope any firewall block rule this gate triggers.
func New(cfg Config, logger *logging.Logger, fw firewall.Controller, enginePorts []int) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Gate{
		cfg:         cfg,
		logger:      logger,
		firewall:    fw,
		enginePorts: enginePorts,
		attempts:    make(map[netip.Addr][]time.Time),
		trustedAddrs: make(map[netip.Addr]struct{}, len(cfg.TrustedSources)),
	}
	for _, s := range cfg.TrustedSources {
		if addr, err := netip.ParseAddr(s); err == nil {
			g.trustedAddrs[addr] = struct{}{}
		}
	}
	for _, s := range cfg.TrustedSubnets {
		if pfx, err := netip.ParsePrefix(s); err == nil {
			g.trustedNets = append(g.trustedNets, pfx)
		}
	}
	return g
}

// RequiresTrust reports whether the gate is configured to refuse
// non-Trusted peers outright, rather than merely rate-limiting them.
func (g *Gate) RequiresTrust() bool {
	return g.cfg.EnableTrustedSources
}

// IsTrusted reports whether addr is in the trusted source or subnet list.
func (g *Gate) IsTrusted(addr netip.Addr) bool {
	if _, ok := g.trustedAddrs[addr]; ok {
		return true
	}
	for _, pfx := range g.trustedNets {
		if pfx.Contains(addr) {
			return true
		}
	}
	return false
}

// Classify records this attempt and returns how the caller should treat
// addr. If EnableTrustedSources is false, every peer is Trusted and no
// bookkeeping is done.
func (g *Gate) Classify(addr netip.Addr) Classification {
	if !g.cfg.EnableTrustedSources {
		g.countAdmitted("trusted")
		return Trusted
	}
	if g.IsTrusted(addr) {
		g.countAdmitted("trusted")
		return Trusted
	}

	now := time.Now()
	period := g.cfg.ConnectionAttemptPeriod

	g.mu.Lock()
	history := pruneExpired(g.attempts[addr], now, period)
	history = append(history, now)
	count := len(history)

	blocked := count > g.cfg.MaxConnectionAttempts
	if blocked {
		delete(g.attempts, addr)
	} else {
		g.attempts[addr] = history
	}
	g.mu.Unlock()

	g.logAttempt(addr, count, blocked)
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.RateLimited.WithLabelValues(g.cfg.EngineName).Inc()
	}

	if blocked {
		g.countBlocked("rate_limit_exceeded")
		if g.cfg.EnableFirewallIPBlocking && g.firewall != nil {
			go func() {
				if err := g.firewall.BlockIP(addr, g.enginePorts); err != nil {
					g.logger.Error("failed to block ip", "ip", addr.String(), "error", err)
				}
			}()
		}
		return UntrustedBlocked
	}
	g.countAdmitted("untrusted_allowed")
	return UntrustedAllowed
}

func (g *Gate) countAdmitted(classification string) {
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.Admitted.WithLabelValues(classification).Inc()
	}
}

func (g *Gate) countBlocked(reason string) {
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.Blocked.WithLabelValues(reason).Inc()
	}
}

func pruneExpired(history []time.Time, now time.Time, period time.Duration) []time.Time {
	kept := history[:0:0]
	for _, t := range history {
		if now.Sub(t) <= period {
			kept = append(kept, t)
		}
	}
	return kept
}

func (g *Gate) logAttempt(addr netip.Addr, count int, blocked bool) {
	if !g.cfg.LogUntrustedAttempts {
		return
	}
	var msg string
	if blocked {
		msg = "ip blocked due to excessive connection attempts"
	} else {
		msg = "untrusted connection attempt"
	}
	g.logger.Warn(msg, "ip", addr.String(), "attempt_count", count)

	if g.cfg.BaseLogDir == "" {
		return
	}
	path := filepath.Join(g.cfg.BaseLogDir, "untrusted_connection_attempts.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		g.logger.Error("failed to open untrusted attempts log", "path", path, "error", err)
		return
	}
	defer f.Close()
	line := time.Now().Format(time.RFC3339) + " " + msg + " ip=" + addr.String() + "\n"
	if _, err := f.WriteString(line); err != nil {
		g.logger.Error("failed to write untrusted attempts log", "path", path, "error", err)
	}
}
