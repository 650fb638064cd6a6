package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/Alia5/padmap/buttonmap"
	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/internal/configpaths"
	"github.com/Alia5/padmap/internal/manager"
	"github.com/Alia5/padmap/storage"
)

// DriverSelect picks the drivers a command enumerates.
type DriverSelect struct {
	Driver []string `help:"Drivers to use (all registered drivers by default)" sep:"," env:"PADMAP_DRIVERS"`
}

func (d DriverSelect) drivers() (map[string]driver.Registration, error) {
	return driver.Lookup(d.Driver...)
}

// ButtonMapConfig configures button map persistence.
type ButtonMapConfig struct {
	Format   string        `help:"File format for new button maps" enum:"json,yaml,toml" default:"json" env:"PADMAP_BUTTONMAP_FORMAT"`
	Lifetime time.Duration `help:"How long a loaded button map is served from cache" default:"2s" env:"PADMAP_BUTTONMAP_LIFETIME"`
}

// Storage holds the flags shared by every command that touches button maps.
type Storage struct {
	DataDir   string          `help:"Directory holding button maps (defaults to the user data directory)" env:"PADMAP_DATA_DIR"`
	ButtonMap ButtonMapConfig `embed:"" prefix:"buttonmap."`

	// Fs overrides the filesystem the data dir is resolved on.
	Fs afero.Fs `kong:"-"`
}

func (s *Storage) backend(logger *slog.Logger) (*storage.FileBackend, error) {
	fsys := s.Fs
	if fsys == nil {
		dir := s.DataDir
		if dir == "" {
			var err error
			if dir, err = configpaths.DefaultDataDir(); err != nil {
				return nil, fmt.Errorf("resolve data dir: %w", err)
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		logger.Debug("using data dir", "path", dir)
		fsys = afero.NewBasePathFs(afero.NewOsFs(), dir)
	}
	return storage.NewFileBackend(fsys, logger), nil
}

// openStore resolves dev's resource path and returns a store for it. An
// existing file in any format wins over the configured format.
func (s *Storage) openStore(dev manager.Device, h device.Handle, registry *device.Registry, logger *slog.Logger) (*buttonmap.Store, error) {
	backend, err := s.backend(logger)
	if err != nil {
		return nil, err
	}
	format, err := storage.ParseFormat(s.ButtonMap.Format)
	if err != nil {
		return nil, err
	}

	path := storage.ResourcePath(dev.Info, format)
	for _, f := range []storage.Format{storage.FormatJSON, storage.FormatYAML, storage.FormatTOML} {
		candidate := storage.ResourcePath(dev.Info, f)
		if _, err := backend.Load(candidate); err == nil || !errors.Is(err, buttonmap.ErrNotFound) {
			path = candidate
			break
		}
	}

	lifetime := s.ButtonMap.Lifetime
	if lifetime <= 0 {
		lifetime = buttonmap.DefaultLifetime
	}
	return buttonmap.NewStore(path, h, backend.ForDevice(dev.Info),
		buttonmap.WithLifetime(lifetime),
		buttonmap.WithAxisConfigurer(registry),
		buttonmap.WithLogger(logger),
	), nil
}

var (
	ErrNoDevice        = errors.New("no matching device")
	ErrAmbiguousDevice = errors.New("device selector matches several devices")
)

// resolveDevice picks one device by enumeration index or by a case-insensitive
// substring of its name.
func resolveDevice(devices []manager.Device, selector string) (manager.Device, error) {
	if n, err := strconv.Atoi(selector); err == nil {
		if n < 0 || n >= len(devices) {
			return manager.Device{}, fmt.Errorf("%w: index %d of %d", ErrNoDevice, n, len(devices))
		}
		return devices[n], nil
	}

	var found []manager.Device
	needle := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Info.Name), needle) {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return manager.Device{}, fmt.Errorf("%w: %q", ErrNoDevice, selector)
	case 1:
		return found[0], nil
	}
	return manager.Device{}, fmt.Errorf("%w: %q (%d devices)", ErrAmbiguousDevice, selector, len(found))
}
