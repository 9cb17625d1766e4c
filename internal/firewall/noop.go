// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import "net/netip"

// NoopController satisfies Controller without touching the host firewall.
// It is selected on non-Windows builds and whenever the corresponding
// enable_firewall_* flags are off, so session and admission code never
// needs to know whether firewalling is actually active.
type NoopController struct{}

// NewNoopController returns a Controller that records nothing and always
// succeeds.
func NewNoopController() *NoopController { return &NoopController{} }

func (NoopController) Configure(ports []int, prefixes []netip.Prefix) error { return nil }

func (NoopController) BlockIP(addr netip.Addr, ports []int) error { return nil }
