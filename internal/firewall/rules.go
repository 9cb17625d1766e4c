// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	blockIPsRuleName   = "Chess-Block-IPs"
	blockOtherRuleName = "Chess-Block-Other"
)

var remoteIPPattern = regexp.MustCompile(`RemoteIP:\s*(.*)`)

// parseRemoteIPs extracts the comma-separated RemoteIP list from a
// `netsh advfirewall firewall show rule` report.
func parseRemoteIPs(netshOutput string) []string {
	m := remoteIPPattern.FindStringSubmatch(netshOutput)
	if len(m) < 2 {
		return nil
	}
	raw := strings.TrimSpace(m[1])
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}
