// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"
	"os"
	"time"

	flerrors "grimm.is/chessuci-proxyd/internal/errors"
)

// ConnectionAttemptPeriod returns the configured window as a time.Duration.
func (c *Config) ConnectionAttemptPeriod() time.Duration {
	return time.Duration(c.ConnectionAttemptPeriodSeconds) * time.Second
}

// Load reads and validates the JSON configuration file at path. A parse or
// validation failure is fatal at boot.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, flerrors.Wrapf(err, flerrors.KindNotFound, "read config file %s", path)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, flerrors.Wrapf(err, flerrors.KindValidation, "parse config file %s", path)
	}

	applyDefaults(&c)

	if errs := c.Validate(); errs.HasErrors() {
		return nil, flerrors.Wrap(errs, flerrors.KindValidation, "invalid configuration")
	}

	return &c, nil
}

// applyDefaults fills in the log directory and optional sections. Missing
// optional feature flags already default to false through JSON's zero
// values; BaseLogDir defaults to "LOG", and absent admin and console
// sections become disabled, non-nil configs.
func applyDefaults(c *Config) {
	if c.BaseLogDir == "" {
		c.BaseLogDir = "LOG"
	}
	if c.Admin == nil {
		c.Admin = &AdminConfig{Enabled: false}
	}
	if c.Console == nil {
		c.Console = &ConsoleConfig{Enabled: false}
	}
}
