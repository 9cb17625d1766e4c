// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package testutil

import (
	"os"
	"testing"
)

// RequireSubprocess skips the test unless CHESSUCI_SUBPROCESS_TEST is set.
// Tests that spawn a real child process (an engine stand-in, netsh) only
// run in an environment set up for it.
func RequireSubprocess(t *testing.T) {
	t.Helper()
	if os.Getenv("CHESSUCI_SUBPROCESS_TEST") == "" {
		t.Skip("Skipping test: requires CHESSUCI_SUBPROCESS_TEST environment")
	}
}
