//go:build !linux

package main

import (
	"fmt"
	"runtime"
)

// reexec is only supported on Linux; elsewhere the process exits and its
// supervisor is expected to start it again.
func reexec() error {
	return fmt.Errorf("%w: re-exec not supported on %s", errRestart, runtime.GOOS)
}
