//go:build !windows

package xinput

import "github.com/Alia5/padmap/driver"

func init() {
	driver.RegisterDriver(Name, registration{})
}

// XInput only exists on Windows; elsewhere the driver reports no devices.
type registration struct{}

func (registration) Enumerate() ([]driver.Binding, error) { return nil, nil }
