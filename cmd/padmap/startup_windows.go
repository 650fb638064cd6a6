//go:build windows

package main

import (
	"log/slog"
	"os"

	"github.com/Alia5/padmap/internal/util"
)

// Started from Explorer there is nobody to type a command, so run the monitor.
func init() {
	if !util.IsRunFromGUI() || len(os.Args) > 1 {
		return
	}
	slog.Info("Detected GUI startup, starting the monitor")
	slog.Warn("Run from a CLI for more options!")
	os.Args = append(os.Args, "monitor")
}
