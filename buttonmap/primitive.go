// Package buttonmap maps logical controller features onto driver primitives.
//
// A ButtonMap holds, per controller profile, an ordered FeatureVector. Earlier
// features win when two features claim the same primitive; Sanitize enforces
// that rule and MergeFeature applies an edit on top of it. Store adds a
// time-bounded cache over a Backend plus revert support.
package buttonmap

import (
	"fmt"
	"strconv"
	"strings"
)

// PrimitiveType discriminates Primitive values.
type PrimitiveType uint8

const (
	PrimitiveUnknown PrimitiveType = iota
	PrimitiveButton
	PrimitiveHat
	PrimitiveSemiAxis
	PrimitiveMotor
)

func (t PrimitiveType) String() string {
	switch t {
	case PrimitiveButton:
		return "button"
	case PrimitiveHat:
		return "hat"
	case PrimitiveSemiAxis:
		return "axis"
	case PrimitiveMotor:
		return "motor"
	}
	return "unknown"
}

// HatDirection is one cardinal direction of a hat switch.
type HatDirection uint8

const (
	HatNone  HatDirection = 0x0
	HatUp    HatDirection = 0x1
	HatRight HatDirection = 0x2
	HatDown  HatDirection = 0x4
	HatLeft  HatDirection = 0x8
)

var hatNames = map[HatDirection]string{
	HatUp:    "up",
	HatRight: "right",
	HatDown:  "down",
	HatLeft:  "left",
}

func (d HatDirection) String() string {
	if s, ok := hatNames[d]; ok {
		return s
	}
	return "none"
}

// SemiAxisDirection selects the half of an axis a primitive responds to.
type SemiAxisDirection int8

const (
	SemiAxisNegative SemiAxisDirection = -1
	SemiAxisNone     SemiAxisDirection = 0
	SemiAxisPositive SemiAxisDirection = 1
)

func (d SemiAxisDirection) String() string {
	switch d {
	case SemiAxisPositive:
		return "+"
	case SemiAxisNegative:
		return "-"
	}
	return "0"
}

// Primitive is the smallest physical input unit. The zero value is the
// Unknown primitive, used as a tombstone for cleared slots. Primitives are
// comparable with ==; constructors normalize fields so equal inputs compare
// equal.
type Primitive struct {
	Type  PrimitiveType
	Index uint
	Hat   HatDirection
	// Direction, Center and Range are only set for semi-axes.
	Direction SemiAxisDirection
	Center    int8
	Range     uint8
}

// Button returns a button primitive.
func Button(index uint) Primitive {
	return Primitive{Type: PrimitiveButton, Index: index}
}

// Hat returns a hat direction primitive.
func Hat(index uint, dir HatDirection) Primitive {
	return Primitive{Type: PrimitiveHat, Index: index, Hat: dir}
}

// SemiAxis returns a semi-axis centered at zero with unit range.
func SemiAxis(index uint, dir SemiAxisDirection) Primitive {
	return SemiAxisRange(index, 0, dir, 1)
}

// SemiAxisRange returns a semi-axis with an explicit center and range, as
// used for triggers that rest at one end of their travel.
func SemiAxisRange(index uint, center int8, dir SemiAxisDirection, rng uint8) Primitive {
	if rng == 0 {
		rng = 1
	}
	return Primitive{Type: PrimitiveSemiAxis, Index: index, Direction: dir, Center: center, Range: rng}
}

// Motor returns a motor primitive.
func Motor(index uint) Primitive {
	return Primitive{Type: PrimitiveMotor, Index: index}
}

// IsUnknown reports whether p is the tombstone primitive.
func (p Primitive) IsUnknown() bool {
	return p.Type == PrimitiveUnknown
}

// String returns the canonical text form, e.g. "button 3", "hat 0 up",
// "axis 2 +" or "axis 4 + center=-1 range=2". The unknown primitive is "".
func (p Primitive) String() string {
	switch p.Type {
	case PrimitiveButton:
		return fmt.Sprintf("button %d", p.Index)
	case PrimitiveHat:
		return fmt.Sprintf("hat %d %s", p.Index, p.Hat)
	case PrimitiveSemiAxis:
		s := fmt.Sprintf("axis %d %s", p.Index, p.Direction)
		if p.Center != 0 || p.Range != 1 {
			s += fmt.Sprintf(" center=%d range=%d", p.Center, p.Range)
		}
		return s
	case PrimitiveMotor:
		return fmt.Sprintf("motor %d", p.Index)
	}
	return ""
}

func (p Primitive) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Primitive) UnmarshalText(text []byte) error {
	parsed, err := ParsePrimitive(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePrimitive parses the canonical text form produced by String. The
// empty string and "unknown" parse to the unknown primitive.
func ParsePrimitive(s string) (Primitive, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "unknown") {
		return Primitive{}, nil
	}
	if len(fields) < 2 {
		return Primitive{}, fmt.Errorf("malformed primitive %q", s)
	}
	index, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Primitive{}, fmt.Errorf("malformed primitive index in %q: %w", s, err)
	}
	idx := uint(index)

	switch fields[0] {
	case "button":
		if len(fields) != 2 {
			return Primitive{}, fmt.Errorf("malformed button %q", s)
		}
		return Button(idx), nil
	case "motor":
		if len(fields) != 2 {
			return Primitive{}, fmt.Errorf("malformed motor %q", s)
		}
		return Motor(idx), nil
	case "hat":
		if len(fields) != 3 {
			return Primitive{}, fmt.Errorf("malformed hat %q", s)
		}
		for dir, name := range hatNames {
			if name == fields[2] {
				return Hat(idx, dir), nil
			}
		}
		return Primitive{}, fmt.Errorf("unrecognized hat direction %q", fields[2])
	case "axis":
		if len(fields) != 3 && len(fields) != 5 {
			return Primitive{}, fmt.Errorf("malformed axis %q", s)
		}
		var dir SemiAxisDirection
		switch fields[2] {
		case "+":
			dir = SemiAxisPositive
		case "-":
			dir = SemiAxisNegative
		default:
			return Primitive{}, fmt.Errorf("malformed axis direction %q", fields[2])
		}
		var center int64
		rng := uint64(1)
		if len(fields) == 5 {
			if center, err = parseOption(fields[3], "center", 8, true); err != nil {
				return Primitive{}, err
			}
			r, err := parseOption(fields[4], "range", 8, false)
			if err != nil {
				return Primitive{}, err
			}
			rng = uint64(r)
		}
		if center < -1 || center > 1 || rng < 1 || rng > 2 {
			return Primitive{}, fmt.Errorf("axis calibration out of range in %q", s)
		}
		return SemiAxisRange(idx, int8(center), dir, uint8(rng)), nil
	}
	return Primitive{}, fmt.Errorf("unrecognized primitive %q", s)
}

func parseOption(field, key string, bits int, signed bool) (int64, error) {
	value, ok := strings.CutPrefix(field, key+"=")
	if !ok {
		return 0, fmt.Errorf("expected %s=<n>, got %q", key, field)
	}
	if signed {
		return strconv.ParseInt(value, 10, bits)
	}
	u, err := strconv.ParseUint(value, 10, bits)
	return int64(u), err
}
