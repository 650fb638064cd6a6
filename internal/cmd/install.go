package cmd

import "log/slog"

// Install registers padmap monitor as a user service that starts on login.
type Install struct{}

func (c *Install) Run(logger *slog.Logger) error {
	return install(logger)
}

// Uninstall removes the service created by Install.
type Uninstall struct{}

func (c *Uninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}
