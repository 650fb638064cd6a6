// Package joystick turns polled controller state into discrete input events.
package joystick

import "strings"

// HatState is an 8-way hat position. Diagonals combine two directions.
type HatState uint8

const (
	HatCentered HatState = 0
	HatUp       HatState = 1 << 0
	HatRight    HatState = 1 << 1
	HatDown     HatState = 1 << 2
	HatLeft     HatState = 1 << 3

	HatUpRight   = HatUp | HatRight
	HatDownRight = HatDown | HatRight
	HatUpLeft    = HatUp | HatLeft
	HatDownLeft  = HatDown | HatLeft
)

func (h HatState) String() string {
	if h == HatCentered {
		return "centered"
	}
	var parts []string
	for _, d := range []struct {
		bit  HatState
		name string
	}{{HatUp, "up"}, {HatDown, "down"}, {HatRight, "right"}, {HatLeft, "left"}} {
		if h&d.bit != 0 {
			parts = append(parts, d.name)
		}
	}
	return strings.Join(parts, "-")
}

// AxisState is the last reported position of an axis. Seen is set when the
// driver reported the axis during the current poll.
type AxisState struct {
	Value float32 `json:"value"`
	Seen  bool    `json:"seen"`
}

// State is a snapshot of every input of one controller.
type State struct {
	Buttons []bool      `json:"buttons"`
	Hats    []HatState  `json:"hats"`
	Axes    []AxisState `json:"axes"`
}

func newState(buttons, hats, axes uint) State {
	return State{
		Buttons: make([]bool, buttons),
		Hats:    make([]HatState, hats),
		Axes:    make([]AxisState, axes),
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		Buttons: append([]bool(nil), s.Buttons...),
		Hats:    append([]HatState(nil), s.Hats...),
		Axes:    append([]AxisState(nil), s.Axes...),
	}
}

func (s *State) copyFrom(src State) {
	copy(s.Buttons, src.Buttons)
	copy(s.Hats, src.Hats)
	copy(s.Axes, src.Axes)
}
