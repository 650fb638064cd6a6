// Package manager polls every attached controller and forwards its events.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/internal/log"
	"github.com/Alia5/padmap/joystick"
)

const (
	DefaultInterval       = 10 * time.Millisecond
	DefaultRescanInterval = 5 * time.Second
)

// Batch is the events one device produced in one poll.
type Batch struct {
	Handle device.Handle
	Device device.Info
	Time   time.Time
	Events []joystick.Event
}

// Sink receives event batches. It is called from the device's poll
// goroutine and must not block for long.
type Sink func(Batch)

// Device is a controller known to the manager.
type Device struct {
	Handle device.Handle `json:"handle"`
	Driver string        `json:"driver"`
	Info   device.Info   `json:"info"`
}

type Option func(*Manager)

func WithInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

func WithRescanInterval(d time.Duration) Option {
	return func(m *Manager) { m.rescanInterval = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithRawLogger(raw log.RawLogger) Option {
	return func(m *Manager) { m.raw = raw }
}

func WithSink(sink Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

type worker struct {
	dev    Device
	cancel context.CancelFunc
}

// Manager owns one poll goroutine per device. Devices are registered in
// the shared registry; everything else is confined to the goroutines.
type Manager struct {
	registry       *device.Registry
	drivers        map[string]driver.Registration
	logger         *slog.Logger
	raw            log.RawLogger
	sink           Sink
	interval       time.Duration
	rescanInterval time.Duration

	rescan chan struct{}

	mu      sync.Mutex
	workers map[device.Handle]*worker
}

func New(registry *device.Registry, drivers map[string]driver.Registration, opts ...Option) *Manager {
	m := &Manager{
		registry:       registry,
		drivers:        drivers,
		logger:         slog.Default(),
		raw:            log.NewRaw(nil),
		sink:           func(Batch) {},
		interval:       DefaultInterval,
		rescanInterval: DefaultRescanInterval,
		rescan:         make(chan struct{}, 1),
		workers:        map[device.Handle]*worker{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.rescanInterval <= 0 {
		m.rescanInterval = DefaultRescanInterval
	}
	return m
}

// Enumerate lists the devices every driver currently reports without
// opening them.
func Enumerate(drivers map[string]driver.Registration, logger *slog.Logger) ([]Device, error) {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Device
	var errs []error
	for _, name := range names {
		bindings, err := drivers[name].Enumerate()
		if err != nil {
			logger.Warn("driver enumeration failed", "driver", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, b := range bindings {
			out = append(out, Device{Handle: device.InvalidHandle, Driver: name, Info: b.Info()})
		}
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Devices returns the devices that are currently polled, by handle.
func (m *Manager) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Device, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w.dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Rescan asks Run to enumerate drivers again. It never blocks.
func (m *Manager) Rescan() {
	select {
	case m.rescan <- struct{}{}:
	default:
	}
}

// Run polls devices until ctx is cancelled. Drivers are enumerated on start,
// periodically and whenever a ghost device shows activity.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(m.rescanInterval)
		defer ticker.Stop()
		for {
			m.scan(ctx, g)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			case <-m.rescan:
			}
		}
	})

	return g.Wait()
}

func (m *Manager) scan(ctx context.Context, g *errgroup.Group) {
	names := make([]string, 0, len(m.drivers))
	for name := range m.drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		bindings, err := m.drivers[name].Enumerate()
		if err != nil {
			m.logger.Debug("driver enumeration failed", "driver", name, "error", err)
			continue
		}
		for _, b := range bindings {
			m.attach(ctx, g, name, b)
		}
	}
	m.registry.SetChanged(false)
}

func (m *Manager) attach(ctx context.Context, g *errgroup.Group, driverName string, b driver.Binding) {
	info := b.Info()

	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.registry.Find(info); ok {
		if _, running := m.workers[h]; running {
			return
		}
	}

	h := device.InvalidHandle
	for wh, w := range m.workers {
		if w.dev.Info.IsGhost() && !info.IsGhost() &&
			w.dev.Driver == driverName && w.dev.Info.RequestedPort == info.RequestedPort {
			m.logger.Info("ghost device identified", "handle", wh, "name", info.Name)
			w.cancel()
			delete(m.workers, wh)
			if err := m.registry.Update(wh, info); err == nil {
				h = wh
			}
			break
		}
	}
	if h == device.InvalidHandle {
		h = m.registry.Add(info)
	}

	dev := Device{Handle: h, Driver: driverName, Info: info}
	wctx, cancel := context.WithCancel(ctx)
	m.workers[h] = &worker{dev: dev, cancel: cancel}
	m.logger.Info("device attached", "handle", h, "driver", driverName, "name", info.Name,
		"buttons", info.ButtonCount, "hats", info.HatCount, "axes", info.AxisCount)

	g.Go(func() error {
		defer cancel()
		m.poll(wctx, dev, b)
		return nil
	})
}

func (m *Manager) detach(h device.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workers[h]; ok {
		w.cancel()
		delete(m.workers, h)
		m.registry.Remove(h)
	}
}

// poll runs one device until ctx is cancelled or the device fails.
func (m *Manager) poll(ctx context.Context, dev Device, b driver.Binding) {
	logger := m.logger.With("handle", dev.Handle, "device", dev.Info.Name)

	if err := b.Open(); err != nil {
		logger.Warn("failed to open device", "error", err)
		m.detach(dev.Handle)
		return
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Debug("close failed", "error", err)
		}
	}()

	js := joystick.New(dev.Handle, dev.Info, b, joystick.WithLogger(logger))
	if err := js.Initialize(); err != nil {
		m.detach(dev.Handle)
		return
	}
	defer js.Deinitialize()

	raw, _ := b.(driver.RawStater)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		events, err := js.GetEvents()
		if err != nil {
			logger.Warn("device lost", "error", err)
			m.detach(dev.Handle)
			return
		}
		if raw != nil {
			m.raw.Log(fmt.Sprintf("%s%d", dev.Driver, dev.Info.RequestedPort), raw.RawState())
		}
		if a := js.TakeActivation(); a.Ghost {
			m.registry.SetChanged(true)
			m.Rescan()
		}
		if len(events) > 0 {
			m.sink(Batch{Handle: dev.Handle, Device: dev.Info, Time: js.LastEventTime(), Events: events})
		}
	}
}
