// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package daemon wires every other package together into the running
// proxy process: it builds one listener per configured engine, provisions
// the firewall, starts the admin and console surfaces, and owns the
// top-level signal-driven shutdown.
package daemon

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/chessuci-proxyd/internal/admin"
	"grimm.is/chessuci-proxyd/internal/admission"
	"grimm.is/chessuci-proxyd/internal/config"
	"grimm.is/chessuci-proxyd/internal/console"
	"grimm.is/chessuci-proxyd/internal/firewall"
	"grimm.is/chessuci-proxyd/internal/listener"
	"grimm.is/chessuci-proxyd/internal/logging"
	"grimm.is/chessuci-proxyd/internal/metrics"
	"grimm.is/chessuci-proxyd/internal/netrange"
	"grimm.is/chessuci-proxyd/internal/session"
)

const watchdogInterval = 300 * time.Second

// Supervisor owns the full boot sequence and the lifetime of every
// listener.
type Supervisor struct {
	cfg      *config.Config
	logger   *logging.Logger
	fw       firewall.Controller
	metrics  *metrics.Registry
	sessions *session.Registry
	crashDir string
}

// Sessions returns the registry of currently active sessions, for the
// admin HTTP surface to read.
func (s *Supervisor) Sessions() *session.Registry {
	return s.sessions
}

// New builds a Supervisor. fw may be nil, in which case a NoopController
// is used.
func New(cfg *config.Config, logger *logging.Logger, fw firewall.Controller, reg *metrics.Registry) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if fw == nil {
		fw = firewall.NewNoopController()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Supervisor{cfg: cfg, logger: logger, fw: fw, metrics: reg, sessions: session.NewRegistry(), crashDir: cfg.BaseLogDir}
}

// Run executes the boot sequence and blocks until ctx is canceled, then
// shuts every listener down and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.ensureLogDir(); err != nil {
		return err
	}

	if err := s.configureFirewall(ctx); err != nil {
		s.logger.Error("firewall configuration failed", "error", err)
	}

	permits := listener.NewPermits(s.cfg.MaxConnections)
	gate := admission.New(admission.Config{
		TrustedSources:           s.cfg.TrustedSources,
		TrustedSubnets:           s.cfg.TrustedSubnets,
		EnableTrustedSources:     s.cfg.EnableTrustedSources,
		MaxConnectionAttempts:    s.cfg.MaxConnectionAttempts,
		ConnectionAttemptPeriod:  s.cfg.ConnectionAttemptPeriod(),
		EnableFirewallIPBlocking: s.cfg.EnableFirewallIPBlocking,
		LogUntrustedAttempts:     s.cfg.LogUntrustedConnectionAttempts,
		BaseLogDir:               s.cfg.BaseLogDir,
		Metrics:                  s.metrics,
		EngineName:               "all",
	}, s.logger, s.fw, s.cfg.AllEnginePorts())

	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for name, engine := range s.cfg.Engines {
		name, engine := name, engine
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runEngineListener(runCtx, name, engine, gate, permits)
		}()
	}

	if s.cfg.Admin != nil && s.cfg.Admin.Enabled {
		adminSrv := admin.New(admin.Config{
			ListenAddr: s.cfg.Admin.ListenAddr,
			Metrics:    s.metrics,
			Sessions:   sessionLister{reg: s.sessions},
		}, s.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adminSrv.Run(runCtx); err != nil {
				s.logger.Error("admin server exited", "error", err)
			}
		}()
	}

	if s.cfg.Console != nil && s.cfg.Console.Enabled {
		consoleSrv, err := console.New(console.Config{
			ListenAddr:  s.cfg.Console.ListenAddr,
			HostKeyPath: s.cfg.Console.HostKeyPath,
			Password:    s.cfg.Console.Password,
		}, consoleBackend{reg: s.sessions, metrics: s.metrics}, s.logger)
		if err != nil {
			s.logger.Error("failed to build console server", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := consoleSrv.Run(runCtx); err != nil {
					s.logger.Error("console server exited", "error", err)
				}
			}()
		}
	}

	go s.watchdog(runCtx)

	<-runCtx.Done()
	s.logger.Info("shutdown initiated")
	cancel()
	wg.Wait()
	s.logger.Info("shutdown complete")
	return nil
}

func (s *Supervisor) runEngineListener(ctx context.Context, name string, engine config.EngineConfig, gate *admission.Gate, permits listener.Permits) {
	policy := s.cfg.MergedPolicy(name)

	l := listener.New(listener.Options{
		Host:       s.cfg.Host,
		Port:       engine.Port,
		EngineName: name,
		Gate:       gate,
		Permits:    permits,
		Logger:     s.logger,
		Metrics:    s.metrics,
		Sessions:   s.sessions,
		SessionOptions: func(peer netip.Addr) session.Options {
			opts := session.DefaultOptions()
			opts.EngineName = name
			opts.EnginePath = engine.Path
			opts.Policy = policy
			opts.EnableUCILog = s.cfg.EnableUCILog
			opts.DetailedLogVerbosity = s.cfg.DetailedLogVerbosity
			if s.cfg.EnableUCILog {
				opts.UCILogPath = uciLogPath(s.cfg.BaseLogDir, name)
			}
			return opts
		},
	})

	s.logger.Info("starting listener for engine", "engine", name, "port", engine.Port, "path", engine.Path)
	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("listener exited", "engine", name, "error", err)
	}
}

func (s *Supervisor) configureFirewall(ctx context.Context) error {
	if !s.cfg.EnableFirewallRules {
		s.logger.Info("firewall rule configuration disabled, skipping")
		return nil
	}
	if !s.cfg.EnableFirewallSubnetBlocking {
		return nil
	}

	worker := netrange.NewWorker(s.cfg.TrustedSources, s.cfg.TrustedSubnets)
	plan, err := worker.Wait(ctx)
	if err != nil {
		return err
	}
	return s.fw.Configure(s.cfg.AllEnginePorts(), plan.Prefixes)
}

func (s *Supervisor) ensureLogDir() error {
	return os.MkdirAll(s.cfg.BaseLogDir, 0755)
}

func (s *Supervisor) watchdog(ctx context.Context) {
	t := time.NewTicker(watchdogInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.logger.Info("watchdog: server is responsive")
		}
	}
}

func uciLogPath(baseDir, engineName string) string {
	if baseDir == "" {
		baseDir = "LOG"
	}
	return filepath.Join(baseDir, "communication_log_"+engineName+".txt")
}
