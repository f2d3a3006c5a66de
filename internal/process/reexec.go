package process

import (
	"fmt"
	"os"
	"syscall"
)

// Reexec replaces the running process with a fresh copy of the same
// executable, keeping its arguments and environment. It only returns on
// failure.
func Reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil { //nolint:gosec // Re-executing ourselves
		return fmt.Errorf("re-executing %s: %w", exe, err)
	}
	return nil
}
