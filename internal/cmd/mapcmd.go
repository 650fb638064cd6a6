package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Alia5/padmap/buttonmap"
	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/internal/manager"
)

// MapCommand groups the button map subcommands.
type MapCommand struct {
	Show  MapShow  `cmd:"" help:"Print the stored button map of a device"`
	Set   MapSet   `cmd:"" help:"Bind one feature and save the map"`
	Reset MapReset `cmd:"" help:"Delete every feature of one profile"`
}

// DeviceArg is the device selector shared by the map subcommands.
type DeviceArg struct {
	DriverSelect `embed:""`
	Device       string `arg:"" help:"Device index (as listed by 'devices') or part of its name"`
}

// open resolves the device, registers it and returns its store.
func (a *DeviceArg) open(st *Storage, logger *slog.Logger) (*buttonmap.Store, manager.Device, error) {
	drivers, err := a.drivers()
	if err != nil {
		return nil, manager.Device{}, err
	}
	devices, err := manager.Enumerate(drivers, logger)
	if err != nil {
		return nil, manager.Device{}, err
	}
	dev, err := resolveDevice(devices, a.Device)
	if err != nil {
		return nil, manager.Device{}, err
	}

	registry := device.NewRegistry(logger)
	dev.Handle = registry.Add(dev.Info)
	store, err := st.openStore(dev, dev.Handle, registry, logger)
	if err != nil {
		return nil, manager.Device{}, err
	}
	return store, dev, nil
}

type MapShow struct {
	DeviceArg `embed:""`
	Profile   string `help:"Only print this profile"`

	Out io.Writer `kong:"-"`
}

func (c *MapShow) Run(logger *slog.Logger, st *Storage) error {
	store, dev, err := c.open(st, logger)
	if err != nil {
		return err
	}
	if err := store.Refresh(); err != nil {
		return err
	}

	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%s (%s)\n", dev.Info.Name, store.ResourcePath())

	profiles := store.Profiles()
	if c.Profile != "" {
		profiles = []string{c.Profile}
	}
	if len(profiles) == 0 {
		fmt.Fprintln(out, "  no features mapped")
		return nil
	}
	for _, id := range profiles {
		fmt.Fprintf(out, "  %s\n", id)
		for _, f := range store.Features(id) {
			fmt.Fprintf(out, "    %-20s %-14s %s\n", f.Name, f.Type, formatSlots(f))
		}
	}
	return nil
}

func formatSlots(f buttonmap.Feature) string {
	var parts []string
	for i, slot := range f.Type.SlotNames() {
		p := f.Primitive(i)
		if p.IsUnknown() {
			continue
		}
		if f.Type.SlotCount() == 1 {
			parts = append(parts, p.String())
			continue
		}
		parts = append(parts, slot+"="+p.String())
	}
	return strings.Join(parts, ", ")
}

type MapSet struct {
	DeviceArg  `embed:""`
	Profile    string   `arg:"" help:"Controller profile id, e.g. game.controller.default"`
	Feature    string   `arg:"" help:"Feature name"`
	Type       string   `arg:"" help:"Feature type (scalar, analogstick, accelerometer, motor, ...)"`
	Primitives []string `arg:"" optional:"" help:"One primitive per slot, e.g. 'button 3', 'hat 0 up', 'axis 1 -'"`
}

var ErrSlotCount = errors.New("wrong number of primitives for feature type")

// feature parses the arguments into a feature.
func (c *MapSet) feature() (buttonmap.Feature, error) {
	t, err := buttonmap.ParseFeatureType(c.Type)
	if err != nil {
		return buttonmap.Feature{}, err
	}
	if len(c.Primitives) != t.SlotCount() {
		return buttonmap.Feature{}, fmt.Errorf("%w: %s takes %d (%s), got %d",
			ErrSlotCount, t, t.SlotCount(), strings.Join(t.SlotNames(), ", "), len(c.Primitives))
	}
	f := buttonmap.Feature{Name: c.Feature, Type: t}
	for i, text := range c.Primitives {
		p, err := buttonmap.ParsePrimitive(text)
		if err != nil {
			return buttonmap.Feature{}, err
		}
		f.Primitives[i] = p
	}
	return f, nil
}

func (c *MapSet) Run(logger *slog.Logger, st *Storage) error {
	f, err := c.feature()
	if err != nil {
		return err
	}
	store, dev, err := c.open(st, logger)
	if err != nil {
		return err
	}
	if err := store.Refresh(); err != nil {
		return err
	}

	store.MapFeatures(c.Profile, buttonmap.FeatureVector{f})
	if err := store.SaveButtonMap(); err != nil {
		store.RevertButtonMap()
		return fmt.Errorf("save button map: %w", err)
	}
	logger.Info("feature mapped", "device", dev.Info.Name, "profile", c.Profile,
		"feature", f.Name, "primitives", formatSlots(f), "path", store.ResourcePath())
	return nil
}

type MapReset struct {
	DeviceArg `embed:""`
	Profile   string `arg:"" help:"Controller profile id to clear"`
}

func (c *MapReset) Run(logger *slog.Logger, st *Storage) error {
	store, dev, err := c.open(st, logger)
	if err != nil {
		return err
	}
	if err := store.Refresh(); err != nil {
		return err
	}
	ok, err := store.ResetButtonMap(c.Profile)
	if err != nil {
		store.RevertButtonMap()
		return fmt.Errorf("reset button map: %w", err)
	}
	if !ok {
		logger.Info("profile has no features", "device", dev.Info.Name, "profile", c.Profile)
		return nil
	}
	logger.Info("profile reset", "device", dev.Info.Name, "profile", c.Profile)
	return nil
}
