// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package session

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"grimm.is/chessuci-proxyd/internal/testutil"
)

func newTestSession(policy map[string]string) *Session {
	server, _ := net.Pipe()
	return &Session{
		conn:         server,
		opts:         Options{Policy: policy},
		lastActivity: time.Now(),
	}
}

func TestRewriteCommandSubstitutesPolicyValue(t *testing.T) {
	s := newTestSession(map[string]string{"Hash": "128"})
	got := s.rewriteCommand("setoption name Hash value 64")
	want := "setoption name Hash value 128"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRewriteCommandPreservesOverrideSentinel(t *testing.T) {
	s := newTestSession(map[string]string{"Threads": overrideSentinel})
	cmd := "setoption name Threads value 4"
	if got := s.rewriteCommand(cmd); got != cmd {
		t.Errorf("expected override sentinel to forward verbatim, got %q", got)
	}
}

func TestRewriteCommandPassesThroughUnknownOption(t *testing.T) {
	s := newTestSession(map[string]string{"Hash": "128"})
	cmd := "setoption name MultiPV value 2"
	if got := s.rewriteCommand(cmd); got != cmd {
		t.Errorf("expected unmanaged option to pass through unchanged, got %q", got)
	}
}

func TestRewriteCommandIgnoresNonSetoptionLines(t *testing.T) {
	s := newTestSession(map[string]string{"Hash": "128"})
	cmd := "go depth 10"
	if got := s.rewriteCommand(cmd); got != cmd {
		t.Errorf("expected non-setoption line unchanged, got %q", got)
	}
}

func TestRewriteCommandIgnoresMalformedSetoption(t *testing.T) {
	s := newTestSession(map[string]string{"Hash": "128"})
	cmd := "setoption name Hash"
	if got := s.rewriteCommand(cmd); got != cmd {
		t.Errorf("expected malformed setoption unchanged, got %q", got)
	}
}

func TestDefaultOptionsTimings(t *testing.T) {
	o := DefaultOptions()
	if o.HeartbeatInterval != 300*time.Second {
		t.Errorf("unexpected heartbeat interval %v", o.HeartbeatInterval)
	}
	if o.InactivityTimeout != 900*time.Second {
		t.Errorf("unexpected inactivity timeout %v", o.InactivityTimeout)
	}
	if o.InactivityCheckEvery != 60*time.Second {
		t.Errorf("unexpected inactivity poll interval %v", o.InactivityCheckEvery)
	}
	if o.EngineReadTimeout != 60*time.Second {
		t.Errorf("unexpected handshake read timeout %v", o.EngineReadTimeout)
	}
}

// TestWriteToClientSerializesConcurrentWriters verifies that concurrent
// callers of writeToClient (the pump and the heartbeat both call it) never
// interleave their output mid-line.
func TestWriteToClientSerializesConcurrentWriters(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	s := newTestSession(nil)
	s.conn = server

	const writers = 20
	const linesPerWriter = 50

	lines := make(chan string, writers*linesPerWriter)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(client)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < linesPerWriter; i++ {
				_ = s.writeToClient(fmt.Sprintf("writer-%02d-line-%03d", w, i))
			}
		}(w)
	}
	wg.Wait()
	client.Close()
	server.Close()
	<-scanDone
	close(lines)

	seen := make(map[string]bool)
	for line := range lines {
		if seen[line] {
			t.Fatalf("duplicate line %q, output was corrupted", line)
		}
		seen[line] = true
		var w, i int
		if _, err := fmt.Sscanf(line, "writer-%02d-line-%03d", &w, &i); err != nil {
			t.Fatalf("line %q did not match expected shape (interleaved write?): %v", line, err)
		}
	}
	if len(seen) != writers*linesPerWriter {
		t.Errorf("expected %d distinct lines, got %d", writers*linesPerWriter, len(seen))
	}
}

// TestSessionHandshakeAgainstFakeEngine spawns a tiny shell script that
// mimics the opening of a UCI handshake and verifies the session pushes
// its policy and relays engine output up to "uciok".
func TestSessionHandshakeAgainstFakeEngine(t *testing.T) {
	testutil.RequireSubprocess(t)

	script := filepath.Join(t.TempDir(), "fake-engine.sh")
	body := "#!/bin/sh\nread _\nread _\necho id name fake\necho uciok\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}

	client, server := net.Pipe()
	defer client.Close()

	s := New(server, Options{
		EngineName:        "fake",
		EnginePath:        script,
		Policy:            map[string]string{"Hash": "64"},
		EngineReadTimeout: 5 * time.Second,
	}, nil, func() {}, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(t.Context())
	}()

	buf := make([]byte, 256)
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("reading handshake relay: %v", err)
	}
	if n == 0 {
		t.Fatal("expected some handshake output")
	}

	client.Close()
	<-done
}
