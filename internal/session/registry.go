// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package session

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of one active session, used by the
// admin HTTP surface.
type Snapshot struct {
	ID         string
	Engine     string
	PeerAddr   string
	StartedAt  time.Time
	LastActive time.Time
}

// Registry tracks every currently-running Session so the admin surface can
// list them without reaching into listener internals.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds s to the registry. Safe to call with a nil Registry: a
// listener with no registry configured just skips tracking.
func (r *Registry) Register(s *Session) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

// Unregister removes the session with the given id, if present.
func (r *Registry) Unregister(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// List returns a snapshot of every currently-registered session.
func (r *Registry) List() []Snapshot {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.snapshot())
	}
	return out
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Engine:     s.opts.EngineName,
		PeerAddr:   s.peerIP,
		StartedAt:  s.startedAt,
		LastActive: s.lastActivity,
	}
}
