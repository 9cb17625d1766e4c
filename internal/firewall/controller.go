// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firewall provisions the Windows Firewall rules that back the
// proxy's IP- and subnet-blocking features. The real implementation shells
// out to netsh; a no-op implementation stands in on non-Windows builds and
// whenever the feature is disabled in configuration, so the rest of the
// daemon never has to branch on platform or on whether firewalling is on.
package firewall

import "net/netip"

// Controller provisions and maintains the firewall rules that back
// admission decisions.
type Controller interface {
	// Configure installs or refreshes the Chess-Block-Other rule covering
	// ports, blocking everything in prefixes.
	Configure(ports []int, prefixes []netip.Prefix) error

	// BlockIP adds addr to the Chess-Block-IPs rule, scoped to ports,
	// creating the rule if it does not yet exist. Idempotent: blocking an
	// address already present in the rule is a no-op.
	BlockIP(addr netip.Addr, ports []int) error
}
