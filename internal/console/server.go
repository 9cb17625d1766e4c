// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package console

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	wishlog "github.com/charmbracelet/wish/logging"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"grimm.is/chessuci-proxyd/internal/logging"
)

// Config controls the console SSH server.
type Config struct {
	ListenAddr  string
	HostKeyPath string
	// Password authenticates every session; the console has no concept of
	// distinct operator accounts.
	Password string
}

// Server is the SSH-served dashboard.
type Server struct {
	cfg     Config
	backend Backend
	logger  *logging.Logger
	srv     *ssh.Server
}

// New builds a Server. It does not bind until Run is called.
func New(cfg Config, backend Backend, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{cfg: cfg, backend: backend, logger: logger}

	srv, err := wish.NewServer(
		wish.WithAddress(cfg.ListenAddr),
		wish.WithHostKeyPath(cfg.HostKeyPath),
		wish.WithPasswordAuth(s.authenticate),
		wish.WithMiddleware(
			bm.MiddlewareWithProgramHandler(s.program, termenv.ANSI256),
			wishlog.MiddlewareWithLogger(newAdapter(logger)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build console ssh server: %w", err)
	}
	s.srv = srv
	return s, nil
}

func (s *Server) authenticate(ctx ssh.Context, password string) bool {
	if s.cfg.Password == "" {
		s.logger.Warn("console password not configured, denying all logins")
		return false
	}
	ok := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	if !ok {
		s.logger.Warn("console auth failed", "user", ctx.User())
	}
	return ok
}

func (s *Server) program(sess ssh.Session) *tea.Program {
	m := NewModel(s.backend)
	return tea.NewProgram(m, tea.WithInput(sess), tea.WithOutput(sess))
}

// Run listens until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("console server listening", "addr", s.cfg.ListenAddr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == ssh.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.srv.Shutdown(context.Background())
	}
}

// adapter routes wish's internal log chatter through the proxy's own
// structured logger at debug level.
type adapter struct {
	logger *logging.Logger
}

func newAdapter(logger *logging.Logger) *adapter {
	return &adapter{logger: logger}
}

func (a *adapter) Printf(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf("[console] "+format, args...))
}

func (a *adapter) Write(p []byte) (int, error) {
	a.logger.Debug("[console] " + string(p))
	return len(p), nil
}
