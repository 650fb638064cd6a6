package device

import (
	"errors"
	"log/slog"
	"sync"
)

// Handle references a device owned by a Registry.
type Handle int

// InvalidHandle is never returned by Add.
const InvalidHandle Handle = -1

var ErrUnknownHandle = errors.New("unknown device handle")

// AxisConfiguration is the calibration the button map engine applies to an axis.
type AxisConfiguration struct {
	Center  int8
	Range   uint8
	Trigger bool
}

// Configuration holds per-device settings that depend on how the device is mapped.
type Configuration struct {
	Axes map[uint]AxisConfiguration
}

func (c Configuration) clone() Configuration {
	out := Configuration{Axes: make(map[uint]AxisConfiguration, len(c.Axes))}
	for k, v := range c.Axes {
		out.Axes[k] = v
	}
	return out
}

type entry struct {
	info   Info
	config Configuration
}

// Registry is the sole owner of device records. Joysticks and button map
// stores refer to devices by Handle. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	devices []*entry
	changed bool
	logger  *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger uses slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Add stores a device and returns its handle. Handles of removed devices are
// not reused.
func (r *Registry) Add(info Info) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, &entry{
		info:   info,
		config: Configuration{Axes: map[uint]AxisConfiguration{}},
	})
	r.changed = true
	return Handle(len(r.devices) - 1)
}

// Find returns the handle of a registered device equal to info.
func (r *Registry) Find(info Info) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.devices {
		if e != nil && e.info.Equals(info) {
			return Handle(i), true
		}
	}
	return InvalidHandle, false
}

// Update replaces the identification of a device, typically a ghost entry
// that has been identified by a rescan.
func (r *Registry) Update(h Handle, info Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.lookup(h)
	if e == nil {
		return ErrUnknownHandle
	}
	e.info = info
	r.changed = true
	return nil
}

// Remove drops a device. Removing an unknown handle is a no-op.
func (r *Registry) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookup(h) != nil {
		r.devices[h] = nil
		r.changed = true
	}
}

// Info returns the identification of a device.
func (r *Registry) Info(h Handle) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.lookup(h); e != nil {
		return e.info, true
	}
	return Info{}, false
}

// Configuration returns a copy of the device configuration.
func (r *Registry) Configuration(h Handle) (Configuration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.lookup(h); e != nil {
		return e.config.clone(), true
	}
	return Configuration{}, false
}

// Handles lists live devices in ascending order.
func (r *Registry) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.devices))
	for i, e := range r.devices {
		if e != nil {
			out = append(out, Handle(i))
		}
	}
	return out
}

// LoadAxisFromAPI recalibrates one axis from the metadata reported by the
// driver. Axes the driver did not describe fall back to a centered stick.
func (r *Registry) LoadAxisFromAPI(axisIndex uint, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.lookup(h)
	if e == nil {
		r.logger.Warn("axis reload for unknown device", "handle", h, "axis", axisIndex)
		return
	}
	cfg := AxisConfiguration{Center: 0, Range: 1}
	if int(axisIndex) < len(e.info.Axes) {
		api := e.info.Axes[axisIndex]
		cfg = AxisConfiguration{Center: api.Center, Range: api.Range, Trigger: api.Trigger}
		if cfg.Range == 0 {
			cfg.Range = 1
		}
	}
	e.config.Axes[axisIndex] = cfg
	r.logger.Debug("loaded axis configuration", "device", e.info.Name, "axis", axisIndex,
		"center", cfg.Center, "range", cfg.Range, "trigger", cfg.Trigger)
}

// SetChanged marks the device list as changed (or acknowledged).
func (r *Registry) SetChanged(changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = changed
}

// Changed reports whether devices were added, removed or updated since the
// last SetChanged(false).
func (r *Registry) Changed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

func (r *Registry) lookup(h Handle) *entry {
	if h < 0 || int(h) >= len(r.devices) {
		return nil
	}
	return r.devices[h]
}
