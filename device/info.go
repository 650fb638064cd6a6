// Package device describes physical controllers and owns them in a registry.
package device

import (
	"regexp"
	"strings"
)

// AxisInfo is the calibration a driver reports for one axis.
type AxisInfo struct {
	// Center is the resting position: 0 for sticks, -1 or 1 for triggers
	// that rest at one end of their travel.
	Center int8 `json:"center"`
	// Range is the travel of the axis in normalized units (1 or 2).
	Range uint8 `json:"range"`
	// Trigger marks axes that only move in one direction from rest.
	Trigger bool `json:"trigger,omitempty"`
}

// Info identifies a controller and reports its static capabilities.
// Counts are queried once when the device is initialized.
type Info struct {
	Name          string     `json:"name"`
	Provider      string     `json:"provider"`
	VendorID      uint16     `json:"vendorId,omitempty"`
	ProductID     uint16     `json:"productId,omitempty"`
	RequestedPort int        `json:"requestedPort"`
	ButtonCount   uint       `json:"buttonCount"`
	HatCount      uint       `json:"hatCount"`
	AxisCount     uint       `json:"axisCount"`
	MotorCount    uint       `json:"motorCount"`
	Axes          []AxisInfo `json:"axes,omitempty"`
}

// IsGhost reports whether the entry is a placeholder that lacks any
// identification. Ghost entries are replaced once the device shows activity
// and the owning registry rescans.
func (i Info) IsGhost() bool {
	return i.Name == "" && i.VendorID == 0 && i.ProductID == 0
}

// HasInputs reports whether the device exposes at least one button, hat or axis.
func (i Info) HasInputs() bool {
	return i.ButtonCount > 0 || i.HatCount > 0 || i.AxisCount > 0
}

// Equals compares identity and capabilities. Axis calibration is not part
// of the identity.
func (i Info) Equals(o Info) bool {
	return i.Name == o.Name &&
		i.Provider == o.Provider &&
		i.VendorID == o.VendorID &&
		i.ProductID == o.ProductID &&
		i.RequestedPort == o.RequestedPort &&
		i.ButtonCount == o.ButtonCount &&
		i.HatCount == o.HatCount &&
		i.AxisCount == o.AxisCount
}

var (
	macAddress = regexp.MustCompile(`(?i)\s*[(\[]?\b([0-9a-f]{2}[:-]){5}[0-9a-f]{2}\b[)\]]?`)
	unsafeRune = regexp.MustCompile(`[^A-Za-z0-9 _\-.()]+`)
)

// SanitizeName makes a device name safe to use in file names. Bluetooth MAC
// addresses, which Sony controllers append to their names, are removed so
// the same controller maps to the same resource on every connection.
func SanitizeName(name string) string {
	name = macAddress.ReplaceAllString(name, "")
	name = unsafeRune.ReplaceAllString(name, "_")
	return strings.TrimSpace(name)
}
