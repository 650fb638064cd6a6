package testing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/padmap/buttonmap"
	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
)

// MemoryBackend is an in-memory buttonmap.Backend that counts calls and can
// be made to fail.
type MemoryBackend struct {
	Maps    map[string]buttonmap.ButtonMap
	Loads   int
	Saves   int
	LoadErr error
	SaveErr error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{Maps: map[string]buttonmap.ButtonMap{}}
}

func (b *MemoryBackend) Load(resourcePath string) (buttonmap.ButtonMap, error) {
	b.Loads++
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	m, ok := b.Maps[resourcePath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", buttonmap.ErrNotFound, resourcePath)
	}
	return m.Clone(), nil
}

func (b *MemoryBackend) Save(resourcePath string, m buttonmap.ButtonMap) error {
	b.Saves++
	if b.SaveErr != nil {
		return b.SaveErr
	}
	b.Maps[resourcePath] = m.Clone()
	return nil
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AxisRecorder records LoadAxisFromAPI calls.
type AxisRecorder struct {
	Calls []uint
}

func (a *AxisRecorder) LoadAxisFromAPI(axisIndex uint, _ device.Handle) {
	a.Calls = append(a.Calls, axisIndex)
}

// CaptureHandler is a slog.Handler that keeps every record it receives.
type CaptureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewCaptureLogger returns a logger writing into a CaptureHandler.
func NewCaptureLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{}
	return slog.New(h), h
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *CaptureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *CaptureHandler) WithGroup(string) slog.Handler      { return h }

// Messages returns the messages logged at level.
func (h *CaptureHandler) Messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.records {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

// Attr returns the value of key on the i-th record logged at level.
func (h *CaptureHandler) Attr(level slog.Level, i int, key string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level != level {
			continue
		}
		if n == i {
			var val string
			r.Attrs(func(a slog.Attr) bool {
				if a.Key == key {
					val = a.Value.String()
					return false
				}
				return true
			})
			return val
		}
		n++
	}
	return ""
}

type mockRegistration struct {
	name      string
	enumerate func() ([]driver.Binding, error)
}

func (m *mockRegistration) Enumerate() ([]driver.Binding, error) {
	return m.enumerate()
}

// CreateMockRegistration returns a driver registration whose Enumerate
// returns whatever enumerate returns.
func CreateMockRegistration(
	t *testing.T,
	name string,
	enumerate func() ([]driver.Binding, error),
) driver.Registration {
	t.Helper()
	return &mockRegistration{name: name, enumerate: enumerate}
}
