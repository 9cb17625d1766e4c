//go:build windows

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strings"
	"sync"
	"time"

	"grimm.is/chessuci-proxyd/internal/logging"
)

const execTimeout = 15 * time.Second

// NetshController provisions Windows Firewall rules via netsh advfirewall.
// Every call shells out and blocks; callers should not invoke it from a hot
// path (the admission gate dispatches BlockIP on its own goroutine).
type NetshController struct {
	logger *logging.Logger
	mu     sync.Mutex // serializes rule reads against rule updates
}

// NewNetshController returns a Controller backed by the real Windows
// Firewall. logger may be nil, in which case a no-op logger is used.
func NewNetshController(logger *logging.Logger) *NetshController {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NetshController{logger: logger}
}

func (c *NetshController) run(args ...string) (stdout string, stderr string, exitErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "netsh", args...)
	var out, errOut strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	exitErr = cmd.Run()
	return out.String(), errOut.String(), exitErr
}

// BlockIP adds addr to the Chess-Block-IPs rule, scoped to ports, creating
// the rule if it does not yet exist.
func (c *NetshController) BlockIP(addr netip.Addr, ports []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !addr.IsValid() || !addr.IsGlobalUnicast() {
		c.logger.Warn("skipping block of non-global address", "ip", addr.String())
		return nil
	}
	ip := addr.String()

	stdout, _, err := c.run("advfirewall", "firewall", "show", "rule", "name="+blockIPsRuleName)
	if err == nil {
		existing := parseRemoteIPs(stdout)
		for _, e := range existing {
			if e == ip {
				c.logger.Info("ip already blocked", "ip", ip)
				return nil
			}
		}
		updated := strings.Join(append(existing, ip), ",")
		_, stderr, setErr := c.run("advfirewall", "firewall", "set", "rule",
			"name="+blockIPsRuleName, "new", "remoteip="+updated)
		if setErr != nil {
			return fmt.Errorf("firewall: update %s with %s: %s", blockIPsRuleName, ip, stderr)
		}
		c.logger.Info("added ip to block rule", "ip", ip, "rule", blockIPsRuleName)
		return nil
	}

	_, stderr, addErr := c.run("advfirewall", "firewall", "add", "rule",
		"name="+blockIPsRuleName, "dir=in", "action=block", "protocol=TCP",
		"localport="+joinPorts(ports), "remoteip="+ip, "enable=yes")
	if addErr != nil {
		return fmt.Errorf("firewall: create %s for %s: %s", blockIPsRuleName, ip, stderr)
	}
	c.logger.Info("created block rule", "ip", ip, "rule", blockIPsRuleName)
	return nil
}

// Configure replaces the Chess-Block-Other rule with a single rule covering
// every prefix in the plan.
func (c *NetshController) Configure(ports []int, prefixes []netip.Prefix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, stderr, delErr := c.run("advfirewall", "firewall", "delete", "rule", "name="+blockOtherRuleName)
	if delErr != nil && !strings.Contains(stderr, "No rules match the specified criteria") {
		c.logger.Error("failed to delete existing rule", "rule", blockOtherRuleName, "error", stderr)
	}

	if len(prefixes) == 0 {
		return nil
	}

	remote := make([]string, len(prefixes))
	for i, p := range prefixes {
		remote[i] = p.String()
	}

	_, stderr, addErr := c.run("advfirewall", "firewall", "add", "rule",
		"name="+blockOtherRuleName, "dir=in", "action=block", "protocol=TCP",
		"localport="+joinPorts(ports), "remoteip="+strings.Join(remote, ","), "enable=yes")
	if addErr != nil {
		return fmt.Errorf("firewall: create %s: %s", blockOtherRuleName, stderr)
	}
	c.logger.Info("configured subnet block rule", "rule", blockOtherRuleName, "prefixes", len(prefixes))
	return nil
}
