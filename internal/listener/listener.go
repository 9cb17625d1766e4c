// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package listener binds one TCP port per configured engine and hands off
// accepted connections to a session. It owns the bind/accept retry
// envelope; everything downstream of a successful accept is the session
// package's concern.
package listener

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"

	"grimm.is/chessuci-proxyd/internal/admission"
	"grimm.is/chessuci-proxyd/internal/logging"
	"grimm.is/chessuci-proxyd/internal/metrics"
	"grimm.is/chessuci-proxyd/internal/session"
)

const (
	maxBindRetries = 5
	bindRetryDelay = 5 * time.Second
)

// Options configures a single engine's listener.
type Options struct {
	Host       string
	Port       int
	EngineName string

	SessionOptions func(peer netip.Addr) session.Options

	Gate     *admission.Gate
	Permits  Permits
	Logger   *logging.Logger
	Metrics  *metrics.Registry
	Sessions *session.Registry
}

// Listener binds Host:Port and spawns a session per accepted connection.
type Listener struct {
	opts Options
}

// New builds a Listener. It does not bind until Run is called.
func New(opts Options) *Listener {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Listener{opts: opts}
}

// Run binds and accepts connections until ctx is canceled. Bind and accept
// failures share a budget of five attempts: each failure is followed by a
// five-second backoff, and on the fifth failure Run gives up and returns
// the last error. A cancellation never counts against the budget.
func (l *Listener) Run(ctx context.Context) error {
	addr := net.JoinHostPort(l.opts.Host, strconv.Itoa(l.opts.Port))

	retries := maxBindRetries
	for {
		ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			retries--
			l.opts.Logger.Error("failed to bind listener", "addr", addr, "engine", l.opts.EngineName, "error", err, "retries_left", retries)
			if retries <= 0 {
				return err
			}
			select {
			case <-time.After(bindRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		l.opts.Logger.Info("listening", "addr", ln.Addr().String(), "engine", l.opts.EngineName)
		serveErr := l.serve(ctx, ln)
		ln.Close()

		if ctx.Err() != nil {
			return nil
		}
		retries--
		l.opts.Logger.Error("listener stopped unexpectedly", "engine", l.opts.EngineName, "error", serveErr, "retries_left", retries)
		if retries <= 0 {
			return serveErr
		}
		select {
		case <-time.After(bindRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	peerAddr, ok := peerAddrOf(conn)
	if !ok {
		conn.Close()
		return
	}

	if l.opts.Gate != nil {
		class := l.opts.Gate.Classify(peerAddr)
		if class == admission.UntrustedBlocked {
			conn.Close()
			return
		}
		if class != admission.Trusted && l.opts.Gate.RequiresTrust() {
			conn.Close()
			return
		}
	}

	if l.opts.Permits != nil {
		if err := l.opts.Permits.Acquire(ctx); err != nil {
			conn.Close()
			return
		}
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if l.opts.Permits != nil {
			l.opts.Permits.Release()
		}
	}

	if l.opts.Metrics != nil {
		l.opts.Metrics.SessionOpened(l.opts.EngineName)
		defer l.opts.Metrics.SessionClosed(l.opts.EngineName)
	}

	sess := session.New(conn, l.opts.SessionOptions(peerAddr), l.opts.Logger, release, l.opts.Sessions)
	if err := sess.Run(ctx); err != nil {
		l.opts.Logger.Debug("session ended", "engine", l.opts.EngineName, "error", err)
	}
}

func peerAddrOf(conn net.Conn) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}
