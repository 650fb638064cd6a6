package buttonmap

import (
	"fmt"
	"slices"
	"strings"
)

// FeatureType is the closed set of logical feature kinds. The type fixes how
// many primitive slots a feature uses and what each slot means.
type FeatureType uint8

const (
	FeatureUnknown FeatureType = iota
	FeatureScalar
	FeatureAnalogStick
	FeatureAccelerometer
	FeatureMotor
	FeatureRelPointer
	FeatureAbsPointer
	FeatureWheel
	FeatureThrottle
	FeatureKey
)

// MaxPrimitives is the largest slot count of any feature type.
const MaxPrimitives = 4

// Slot indexes per feature type.
const (
	ScalarSlot = 0

	AnalogStickUp    = 0
	AnalogStickDown  = 1
	AnalogStickRight = 2
	AnalogStickLeft  = 3

	AccelerometerPositiveX = 0
	AccelerometerPositiveY = 1
	AccelerometerPositiveZ = 2

	WheelLeft  = 0
	WheelRight = 1

	ThrottleUp   = 0
	ThrottleDown = 1
)

type featureTypeInfo struct {
	name  string
	slots []string
}

var featureTypes = map[FeatureType]featureTypeInfo{
	FeatureScalar:        {"scalar", []string{"scalar"}},
	FeatureAnalogStick:   {"analogstick", []string{"up", "down", "right", "left"}},
	FeatureAccelerometer: {"accelerometer", []string{"positive_x", "positive_y", "positive_z"}},
	FeatureMotor:         {"motor", []string{"scalar"}},
	FeatureRelPointer:    {"relpointer", []string{"up", "down", "right", "left"}},
	FeatureAbsPointer:    {"abspointer", nil},
	FeatureWheel:         {"wheel", []string{"left", "right"}},
	FeatureThrottle:      {"throttle", []string{"up", "down"}},
	FeatureKey:           {"key", []string{"scalar"}},
}

func (t FeatureType) String() string {
	if info, ok := featureTypes[t]; ok {
		return info.name
	}
	return "unknown"
}

// ParseFeatureType is the inverse of FeatureType.String.
func ParseFeatureType(s string) (FeatureType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, info := range featureTypes {
		if info.name == s {
			return t, nil
		}
	}
	return FeatureUnknown, fmt.Errorf("unrecognized feature type %q", s)
}

// SlotNames returns the names of the slots a feature type uses, in slot order.
func (t FeatureType) SlotNames() []string {
	return slices.Clone(featureTypes[t].slots)
}

// SlotCount returns how many primitive slots the type uses.
func (t FeatureType) SlotCount() int {
	return len(featureTypes[t].slots)
}

// SlotIndex resolves a slot name for the type.
func (t FeatureType) SlotIndex(name string) (int, bool) {
	i := slices.Index(featureTypes[t].slots, name)
	return i, i >= 0
}

// Feature is a named logical control built from up to four primitives.
// Slots the type does not use stay Unknown.
type Feature struct {
	Name       string
	Type       FeatureType
	Primitives [MaxPrimitives]Primitive
}

// NewScalar returns a single-primitive feature such as a face button or trigger.
func NewScalar(name string, p Primitive) Feature {
	f := Feature{Name: name, Type: FeatureScalar}
	f.Primitives[ScalarSlot] = p
	return f
}

// NewMotor returns a rumble motor feature.
func NewMotor(name string, p Primitive) Feature {
	f := Feature{Name: name, Type: FeatureMotor}
	f.Primitives[ScalarSlot] = p
	return f
}

// NewAnalogStick returns a four-direction stick feature.
func NewAnalogStick(name string, up, down, right, left Primitive) Feature {
	return Feature{
		Name:       name,
		Type:       FeatureAnalogStick,
		Primitives: [MaxPrimitives]Primitive{up, down, right, left},
	}
}

// NewAccelerometer returns a three-axis accelerometer feature.
func NewAccelerometer(name string, x, y, z Primitive) Feature {
	return Feature{
		Name:       name,
		Type:       FeatureAccelerometer,
		Primitives: [MaxPrimitives]Primitive{x, y, z},
	}
}

// Primitive returns the primitive in slot i, or Unknown when i is out of range.
func (f Feature) Primitive(i int) Primitive {
	if i < 0 || i >= MaxPrimitives {
		return Primitive{}
	}
	return f.Primitives[i]
}

// IsEmpty reports whether every slot is Unknown.
func (f Feature) IsEmpty() bool {
	for _, p := range f.Primitives {
		if !p.IsUnknown() {
			return false
		}
	}
	return true
}

// PrimitivesEqual reports whether two features of the same type are bound to
// the same primitives. Only scalar, motor, analog stick and accelerometer
// features take part in conflict swaps; other types never compare equal.
func PrimitivesEqual(lhs, rhs Feature) bool {
	if lhs.Type != rhs.Type {
		return false
	}
	var slots int
	switch lhs.Type {
	case FeatureScalar, FeatureMotor:
		slots = 1
	case FeatureAnalogStick:
		slots = 4
	case FeatureAccelerometer:
		slots = 3
	default:
		return false
	}
	for i := 0; i < slots; i++ {
		if lhs.Primitives[i] != rhs.Primitives[i] {
			return false
		}
	}
	return true
}

// FeatureVector is an ordered list of features for one profile. Order is
// significant: earlier features keep contested primitives.
type FeatureVector []Feature

// Clone returns an independent copy.
func (v FeatureVector) Clone() FeatureVector {
	if v == nil {
		return nil
	}
	return slices.Clone(v)
}

// Find returns the feature with the given name.
func (v FeatureVector) Find(name string) (Feature, bool) {
	if i := v.index(name); i >= 0 {
		return v[i], true
	}
	return Feature{}, false
}

func (v FeatureVector) index(name string) int {
	return slices.IndexFunc(v, func(f Feature) bool { return f.Name == name })
}

// ButtonMap maps controller profile ids to their features.
type ButtonMap map[string]FeatureVector

// Clone returns a deep copy. The result is never nil.
func (m ButtonMap) Clone() ButtonMap {
	out := make(ButtonMap, len(m))
	for id, v := range m {
		out[id] = v.Clone()
	}
	return out
}

// Profiles returns the profile ids in ascending order.
func (m ButtonMap) Profiles() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Axes returns the distinct axis indexes referenced by semi-axis primitives,
// in ascending order.
func Axes(features FeatureVector) []uint {
	var axes []uint
	for _, f := range features {
		for _, p := range f.Primitives {
			if p.Type == PrimitiveSemiAxis && !slices.Contains(axes, p.Index) {
				axes = append(axes, p.Index)
			}
		}
	}
	slices.Sort(axes)
	return axes
}
