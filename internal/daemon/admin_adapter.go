// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package daemon

import (
	"grimm.is/chessuci-proxyd/internal/admin"
	"grimm.is/chessuci-proxyd/internal/console"
	"grimm.is/chessuci-proxyd/internal/metrics"
	"grimm.is/chessuci-proxyd/internal/session"
)

// sessionLister adapts a session.Registry to admin.SessionLister so the
// admin package never needs to import session directly.
type sessionLister struct {
	reg *session.Registry
}

func (l sessionLister) ListSessions() []admin.SessionSnapshot {
	snaps := l.reg.List()
	out := make([]admin.SessionSnapshot, len(snaps))
	for i, s := range snaps {
		out[i] = admin.SessionSnapshot{
			ID:         s.ID,
			Engine:     s.Engine,
			PeerAddr:   s.PeerAddr,
			StartedAt:  s.StartedAt,
			LastActive: s.LastActive,
		}
	}
	return out
}

// consoleBackend adapts the session registry and metrics registry to
// console.Backend.
type consoleBackend struct {
	reg     *session.Registry
	metrics *metrics.Registry
}

func (b consoleBackend) ListSessions() []console.SessionRow {
	snaps := b.reg.List()
	out := make([]console.SessionRow, len(snaps))
	for i, s := range snaps {
		out[i] = console.SessionRow{
			ID:         s.ID,
			Engine:     s.Engine,
			PeerAddr:   s.PeerAddr,
			StartedAt:  s.StartedAt,
			LastActive: s.LastActive,
		}
	}
	return out
}

func (b consoleBackend) Counters() console.Counters {
	t := b.metrics.Totals()
	return console.Counters{
		ActiveSessions: t.ActiveSessions,
		Admitted:       t.Admitted,
		Blocked:        t.Blocked,
		RateLimited:    t.RateLimited,
	}
}
