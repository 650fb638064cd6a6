package manager_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/driver/virtual"
	"github.com/Alia5/padmap/internal/manager"
	th "github.com/Alia5/padmap/internal/testing"
	"github.com/Alia5/padmap/joystick"
)

type collector struct {
	mu      sync.Mutex
	batches []manager.Batch
}

func (c *collector) sink(b manager.Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, b)
}

func (c *collector) events() []joystick.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []joystick.Event
	for _, b := range c.batches {
		out = append(out, b.Events...)
	}
	return out
}

type rawRecorder struct {
	mu      sync.Mutex
	devices []string
}

func (r *rawRecorder) Log(dev string, _ []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, dev)
}

func (r *rawRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

func padInfo(port int) device.Info {
	return device.Info{
		Name:          "Test Pad",
		Provider:      virtual.Name,
		VendorID:      0x1209,
		ProductID:     0x0002,
		RequestedPort: port,
		ButtonCount:   2,
		AxisCount:     1,
	}
}

func staticDriver(t *testing.T, pads ...*virtual.Pad) map[string]driver.Registration {
	return map[string]driver.Registration{
		virtual.Name: th.CreateMockRegistration(t, virtual.Name, func() ([]driver.Binding, error) {
			out := make([]driver.Binding, len(pads))
			for i, p := range pads {
				out[i] = p
			}
			return out, nil
		}),
	}
}

func start(t *testing.T, m *manager.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("manager did not stop")
		}
	})
}

func TestManagerForwardsEvents(t *testing.T) {
	pad := virtual.NewPad(padInfo(0), []virtual.Frame{
		{Buttons: map[uint]bool{1: true}},
		{Axes: map[uint]float32{0: 0.5}},
		{Buttons: map[uint]bool{1: false}},
	})
	c := &collector{}
	raw := &rawRecorder{}
	registry := device.NewRegistry(slog.New(slog.DiscardHandler))
	m := manager.New(registry, staticDriver(t, pad),
		manager.WithInterval(time.Millisecond),
		manager.WithLogger(slog.New(slog.DiscardHandler)),
		manager.WithRawLogger(raw),
		manager.WithSink(c.sink),
	)
	start(t, m)

	want := []joystick.Event{
		joystick.ButtonEvent(1, true),
		joystick.AxisEvent(0, 0.5),
		joystick.ButtonEvent(1, false),
	}
	require.Eventually(t, func() bool { return len(c.events()) >= len(want) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, want, c.events()[:len(want)])
	assert.Positive(t, raw.count())

	devices := m.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, virtual.Name, devices[0].Driver)
	assert.Equal(t, []device.Handle{devices[0].Handle}, registry.Handles())
}

func TestManagerDoesNotAttachTwice(t *testing.T) {
	pad := virtual.NewPad(padInfo(0), nil)
	m := manager.New(device.NewRegistry(slog.New(slog.DiscardHandler)), staticDriver(t, pad),
		manager.WithInterval(time.Millisecond),
		manager.WithRescanInterval(time.Millisecond),
		manager.WithLogger(slog.New(slog.DiscardHandler)),
	)
	start(t, m)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, m.Devices(), 1)
}

func TestManagerSkipsDevicesWithoutInputs(t *testing.T) {
	logger, logs := th.NewCaptureLogger()
	info := padInfo(0)
	info.ButtonCount, info.AxisCount = 0, 0
	registry := device.NewRegistry(slog.New(slog.DiscardHandler))
	m := manager.New(registry, staticDriver(t, virtual.NewPad(info, nil)),
		manager.WithInterval(time.Millisecond),
		manager.WithLogger(logger),
	)
	start(t, m)

	require.Eventually(t, func() bool {
		return len(logs.Messages(slog.LevelError)) > 0
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(m.Devices()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, registry.Handles())
}

type failingPad struct {
	*virtual.Pad
}

func (failingPad) ScanEvents(joystick.StateSink) error { return errors.New("unplugged") }

func TestManagerDetachesLostDevice(t *testing.T) {
	registry := device.NewRegistry(slog.New(slog.DiscardHandler))
	m := manager.New(registry, map[string]driver.Registration{
		"flaky": th.CreateMockRegistration(t, "flaky", func() ([]driver.Binding, error) {
			return []driver.Binding{failingPad{virtual.NewPad(padInfo(0), nil)}}, nil
		}),
	},
		manager.WithInterval(time.Millisecond),
		manager.WithRescanInterval(time.Hour),
		manager.WithLogger(slog.New(slog.DiscardHandler)),
	)
	start(t, m)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, m.Devices())
	assert.Empty(t, registry.Handles())
}

func TestManagerRescansOnGhostActivity(t *testing.T) {
	ghostInfo := padInfo(3)
	ghostInfo.Name, ghostInfo.VendorID, ghostInfo.ProductID = "", 0, 0
	ghost := virtual.NewPad(ghostInfo, []virtual.Frame{{Buttons: map[uint]bool{0: true}}})
	identified := virtual.NewPad(padInfo(3), nil)

	var mu sync.Mutex
	scans := 0
	registry := device.NewRegistry(slog.New(slog.DiscardHandler))
	m := manager.New(registry, map[string]driver.Registration{
		virtual.Name: th.CreateMockRegistration(t, virtual.Name, func() ([]driver.Binding, error) {
			mu.Lock()
			defer mu.Unlock()
			scans++
			if scans == 1 {
				return []driver.Binding{ghost}, nil
			}
			return []driver.Binding{identified}, nil
		}),
	},
		manager.WithInterval(time.Millisecond),
		manager.WithRescanInterval(time.Hour),
		manager.WithLogger(slog.New(slog.DiscardHandler)),
	)
	start(t, m)

	require.Eventually(t, func() bool {
		devices := m.Devices()
		return len(devices) == 1 && devices[0].Info.Name == "Test Pad"
	}, 2*time.Second, 5*time.Millisecond)

	devices := m.Devices()
	info, ok := registry.Info(devices[0].Handle)
	require.True(t, ok)
	assert.Equal(t, "Test Pad", info.Name)
	assert.Len(t, registry.Handles(), 1, "the ghost handle is reused")
}

func TestEnumerate(t *testing.T) {
	drivers := staticDriver(t, virtual.NewPad(padInfo(0), nil), virtual.NewPad(padInfo(1), nil))
	drivers["broken"] = th.CreateMockRegistration(t, "broken", func() ([]driver.Binding, error) {
		return nil, errors.New("no backend")
	})

	devices, err := manager.Enumerate(drivers, slog.New(slog.DiscardHandler))
	require.NoError(t, err, "one failing driver does not fail the listing")
	require.Len(t, devices, 2)
	assert.Equal(t, 1, devices[1].Info.RequestedPort)

	delete(drivers, virtual.Name)
	_, err = manager.Enumerate(drivers, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
