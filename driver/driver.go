// Package driver connects controller backends to the joystick differ.
package driver

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/joystick"
)

// ErrUnknownDriver is returned when a driver name has not been registered.
var ErrUnknownDriver = errors.New("unknown driver")

// Binding is one physical device exposed by a driver.
type Binding interface {
	joystick.Driver
	// Info returns the identification and capability counts of the device.
	Info() device.Info
	Open() error
	Close() error
}

// RawStater is implemented by bindings that can expose the last report
// they read, for trace logging.
type RawStater interface {
	RawState() []byte
}

// Registration describes a driver backend.
type Registration interface {
	// Enumerate returns a binding for every device currently attached.
	// Bindings are returned closed.
	Enumerate() ([]Binding, error)
}

// OptIn is implemented by registrations that are only used when named
// explicitly, such as test and demo drivers.
type OptIn interface {
	OptIn() bool
}

var (
	driverRegistry   = make(map[string]Registration)
	driverRegistryMu sync.RWMutex
)

// RegisterDriver registers a driver backend under a case-insensitive name.
// This should be called from driver package init() functions.
func RegisterDriver(name string, reg Registration) {
	driverRegistryMu.Lock()
	defer driverRegistryMu.Unlock()
	driverRegistry[strings.ToLower(name)] = reg
}

// GetRegistration retrieves a registered driver by name.
// Returns nil if not found.
func GetRegistration(name string) Registration {
	driverRegistryMu.RLock()
	defer driverRegistryMu.RUnlock()
	return driverRegistry[strings.ToLower(name)]
}

// ListDrivers returns the names of all registered drivers, sorted.
func ListDrivers() []string {
	driverRegistryMu.RLock()
	defer driverRegistryMu.RUnlock()
	names := make([]string, 0, len(driverRegistry))
	for name := range driverRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves names to registrations. An empty list selects every
// registered driver except opt-in ones.
func Lookup(names ...string) (map[string]Registration, error) {
	if len(names) == 0 {
		for _, name := range ListDrivers() {
			if o, ok := GetRegistration(name).(OptIn); ok && o.OptIn() {
				continue
			}
			names = append(names, name)
		}
	}
	out := make(map[string]Registration, len(names))
	for _, name := range names {
		reg := GetRegistration(name)
		if reg == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, name)
		}
		out[strings.ToLower(name)] = reg
	}
	return out, nil
}
