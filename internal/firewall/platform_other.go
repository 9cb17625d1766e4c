// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !windows

package firewall

import "grimm.is/chessuci-proxyd/internal/logging"

// NewPlatformController returns a no-op Controller on platforms without a
// netsh-equivalent integration.
func NewPlatformController(logger *logging.Logger) Controller {
	return NewNoopController()
}
