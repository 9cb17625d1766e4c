// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package netrange computes the set of public IPv4 ranges that the firewall
// should block everything except the configured trusted sources and
// subnets. The computation is CPU-bound but small; it runs off the accept
// loop so a large trusted list never stalls an inbound connection.
package netrange

import (
	"fmt"
	"net/netip"

	"go4.org/netipx"
)

// publicUnicastRanges are the thirteen fixed ranges the block plan starts
// from. Together they cover all of IPv4 except 0.0.0.0/8, 10.0.0.0/8 and
// 192.128.0.0-207.255.255.255 (which holds 192.168.0.0/16). Loopback,
// link-local, 100.64.0.0/10, 172.16.0.0/12 and the 224.0.0.0/3
// multicast/reserved space all lie inside the list.
var publicUnicastRanges = []string{
	"1.0.0.0/8",
	"2.0.0.0/7",
	"4.0.0.0/6",
	"8.0.0.0/7",
	"11.0.0.0/8",
	"12.0.0.0/6",
	"16.0.0.0/4",
	"32.0.0.0/3",
	"64.0.0.0/2",
	"128.0.0.0/2",
	"192.0.0.0/9",
	"208.0.0.0/4",
	"224.0.0.0/3",
}

// Plan is the computed set of prefixes the firewall should block, expressed
// as a comma-joined remoteip argument suitable for a single netsh rule.
type Plan struct {
	Prefixes []netip.Prefix
}

// RemoteIPArg renders the plan's prefixes as netsh's comma-separated
// remoteip value, e.g. "1.0.0.0/8,2.0.0.0/7".
func (p Plan) RemoteIPArg() string {
	if len(p.Prefixes) == 0 {
		return ""
	}
	out := make([]byte, 0, len(p.Prefixes)*12)
	for i, pfx := range p.Prefixes {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, pfx.String()...)
	}
	return string(out)
}

// Compute returns the public unicast space with every trusted source and
// trusted subnet excluded. Trusted sources are single hosts; trusted
// subnets are CIDRs. Malformed entries are skipped rather than failing the
// whole computation, since a single bad config entry should not take down
// firewall provisioning for every other trusted party.
func Compute(trustedSources, trustedSubnets []string) (Plan, error) {
	var avoid netipx.IPSetBuilder
	for _, cidr := range publicUnicastRanges {
		pfx, err := netip.ParsePrefix(cidr)
		if err != nil {
			return Plan{}, fmt.Errorf("netrange: invalid built-in range %q: %w", cidr, err)
		}
		avoid.AddPrefix(pfx)
	}

	for _, host := range trustedSources {
		addr, err := netip.ParseAddr(host)
		if err != nil {
			continue
		}
		avoid.RemovePrefix(netip.PrefixFrom(addr, addr.BitLen()))
	}
	for _, cidr := range trustedSubnets {
		pfx, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		avoid.RemovePrefix(pfx)
	}

	set, err := avoid.IPSet()
	if err != nil {
		return Plan{}, fmt.Errorf("netrange: build set: %w", err)
	}

	return Plan{Prefixes: set.Prefixes()}, nil
}
