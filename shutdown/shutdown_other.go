//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Notify subscribes ch to interrupt and SIGTERM.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
