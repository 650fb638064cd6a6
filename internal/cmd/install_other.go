//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
	"runtime"
)

var errInstallUnsupported = errors.New("service installation is only supported on linux")

func install(logger *slog.Logger) error {
	logger.Error("install not supported", "os", runtime.GOOS)
	return errInstallUnsupported
}

func uninstall(logger *slog.Logger) error {
	logger.Error("uninstall not supported", "os", runtime.GOOS)
	return errInstallUnsupported
}
