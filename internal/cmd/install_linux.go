//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Alia5/padmap/internal/configpaths"
)

const serviceName = "padmap-monitor.service"

// userUnitPath returns ~/.config/systemd/user/padmap-monitor.service.
func userUnitPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "systemd", "user", serviceName), nil
}

func install(logger *slog.Logger) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolved
	}

	unitPath, err := userUnitPath()
	if err != nil {
		return err
	}
	if err := configpaths.EnsureDir(unitPath); err != nil {
		return err
	}
	if err := os.WriteFile(unitPath, []byte(systemdUnitContent(exePath)), 0o644); err != nil {
		return err
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	} {
		if err := runSystemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("padmap monitor service installed", "path", unitPath, "exe", exePath)
	return nil
}

func uninstall(logger *slog.Logger) error {
	unitPath, err := userUnitPath()
	if err != nil {
		return err
	}

	var errs []error
	for _, args := range [][]string{{"stop", serviceName}, {"disable", serviceName}} {
		if err := runSystemctl(args...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("padmap monitor service removed", "path", unitPath)
	return nil
}

func systemdUnitContent(exePath string) string {
	return fmt.Sprintf(`[Unit]
Description=padmap controller monitor

[Service]
Type=simple
ExecStart=%q monitor
Restart=on-failure

[Install]
WantedBy=default.target
`, exePath)
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl --user %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
