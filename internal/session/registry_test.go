// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package session

import (
	"testing"
	"time"
)

func TestRegistryRegisterAndList(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession(nil)
	s.id = "sess-1"
	s.opts.EngineName = "stockfish"
	s.peerIP = "10.0.0.5"
	s.startedAt = time.Now()

	reg.Register(s)

	got := reg.List()
	if len(got) != 1 {
		t.Fatalf("expected 1 session, got %d", len(got))
	}
	if got[0].ID != "sess-1" || got[0].Engine != "stockfish" || got[0].PeerAddr != "10.0.0.5" {
		t.Errorf("unexpected snapshot: %+v", got[0])
	}
}

func TestRegistryUnregisterRemoves(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession(nil)
	s.id = "sess-2"
	reg.Register(s)

	reg.Unregister("sess-2")

	if got := reg.List(); len(got) != 0 {
		t.Errorf("expected empty registry, got %d entries", len(got))
	}
}

func TestRegistryNilIsSafeNoOp(t *testing.T) {
	var reg *Registry
	reg.Register(newTestSession(nil))
	reg.Unregister("anything")
	if got := reg.List(); got != nil {
		t.Errorf("expected nil list from nil registry, got %v", got)
	}
}
