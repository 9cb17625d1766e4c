// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command chessuci-proxyd runs the multi-engine UCI proxy daemon: it
// loads a configuration file, binds one listener per configured engine,
// and serves traffic until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/chessuci-proxyd/internal/config"
	"grimm.is/chessuci-proxyd/internal/daemon"
	"grimm.is/chessuci-proxyd/internal/firewall"
	"grimm.is/chessuci-proxyd/internal/logging"
	"grimm.is/chessuci-proxyd/internal/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.json", "path to the daemon's JSON configuration file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chessuci-proxyd: failed to load config: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Output: os.Stdout,
		Level:  parseLevel(*logLevel),
	})

	if cfg.EnableServerLog {
		fileLogger, f, err := logger.WithFile(cfg.BaseLogDir+"/server.log", parseLevel(*logLevel))
		if err != nil {
			logger.Warn("failed to open server log file, continuing with stdout only", "error", err)
		} else {
			defer f.Close()
			logger = fileLogger
		}
	}

	tracker := daemon.NewCrashTracker(cfg.BaseLogDir, daemon.DefaultCrashTrackerConfig())
	if !daemon.ShouldSkipDetection() && tracker.ShouldEnterSafeMode() {
		logger.Error("too many recent crashes, refusing to start until history clears",
			"threshold", daemon.DefaultCrashThreshold, "window", daemon.DefaultCrashWindow)
		return 2
	}

	var fw firewall.Controller = firewall.NewNoopController()
	if cfg.EnableFirewallRules || cfg.EnableFirewallIPBlocking {
		fw = firewall.NewPlatformController(logger)
	}
	reg := metrics.NewRegistry()
	sup := daemon.New(cfg, logger, fw, reg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracker.StartStabilityTimer()
	runErr := sup.Run(ctx)

	exitCode := 0
	if runErr != nil {
		logger.Error("daemon exited with error", "error", runErr)
		exitCode = 1
	}
	if err := tracker.RecordExit(exitCode, 0, false); err != nil {
		logger.Warn("failed to persist crash tracker state", "error", err)
	}
	return exitCode
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
