// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError describes one malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every ValidationError found during Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any errors were collected.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks c for the invariants the daemon requires before it will
// boot. It does not mutate c.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Host == "" {
		errs = append(errs, ValidationError{"host", "must not be empty"})
	}
	if len(c.Engines) == 0 {
		errs = append(errs, ValidationError{"engines", "at least one engine must be configured"})
	}
	if c.MaxConnections < 1 {
		errs = append(errs, ValidationError{"max_connections", "must be >= 1"})
	}
	if c.MaxConnectionAttempts < 1 {
		errs = append(errs, ValidationError{"max_connection_attempts", "must be >= 1"})
	}
	if c.ConnectionAttemptPeriodSeconds < 1 {
		errs = append(errs, ValidationError{"connection_attempt_period", "must be >= 1 second"})
	}

	seenPorts := make(map[int]string)
	for name, e := range c.Engines {
		field := fmt.Sprintf("engines.%s", name)
		if e.Path == "" {
			errs = append(errs, ValidationError{field + ".path", "must not be empty"})
		}
		if e.Port < 1 || e.Port > 65535 {
			errs = append(errs, ValidationError{field + ".port", "must be between 1 and 65535"})
		} else if other, dup := seenPorts[e.Port]; dup {
			errs = append(errs, ValidationError{field + ".port", fmt.Sprintf("already used by engine %q", other)})
		} else {
			seenPorts[e.Port] = name
		}
	}

	for _, ip := range c.TrustedSources {
		if net.ParseIP(ip) == nil {
			errs = append(errs, ValidationError{"trusted_sources", fmt.Sprintf("%q is not a valid IPv4 literal", ip)})
		}
	}
	for _, cidr := range c.TrustedSubnets {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, ValidationError{"trusted_subnets", fmt.Sprintf("%q is not a valid CIDR: %v", cidr, err)})
		}
	}

	if c.BaseLogDir == "" && (c.EnableServerLog || c.EnableUCILog || c.LogUntrustedConnectionAttempts) {
		errs = append(errs, ValidationError{"base_log_dir", "must be set when any logging flag is enabled"})
	}

	return errs
}
