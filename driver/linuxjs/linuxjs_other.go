//go:build !linux

package linuxjs

import "github.com/Alia5/padmap/driver"

func init() {
	driver.RegisterDriver(Name, registration{})
}

type registration struct{}

func (registration) Enumerate() ([]driver.Binding, error) { return nil, nil }
