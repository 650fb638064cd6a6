package joystick

import "fmt"

// EventType tells which field of an Event carries the value.
type EventType uint8

const (
	EventButton EventType = iota + 1
	EventHat
	EventAxis
	EventMotor
)

var eventTypeNames = map[EventType]string{
	EventButton: "button",
	EventHat:    "hat",
	EventAxis:   "axis",
	EventMotor:  "motor",
}

func (t EventType) String() string {
	if n, ok := eventTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

func (t EventType) MarshalText() ([]byte, error) {
	if _, ok := eventTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown event type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(text []byte) error {
	for k, v := range eventTypeNames {
		if v == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", text)
}

// Event is a single input change, or an output command for motors.
// Value holds the axis position or the motor strength.
type Event struct {
	Type    EventType `json:"type"`
	Index   uint      `json:"index"`
	Pressed bool      `json:"pressed,omitempty"`
	Hat     HatState  `json:"hat,omitempty"`
	Value   float32   `json:"value,omitempty"`
}

func ButtonEvent(index uint, pressed bool) Event {
	return Event{Type: EventButton, Index: index, Pressed: pressed}
}

func HatEvent(index uint, state HatState) Event {
	return Event{Type: EventHat, Index: index, Hat: state}
}

func AxisEvent(index uint, value float32) Event {
	return Event{Type: EventAxis, Index: index, Value: value}
}

func MotorEvent(index uint, strength float32) Event {
	return Event{Type: EventMotor, Index: index, Value: strength}
}

func (e Event) String() string {
	switch e.Type {
	case EventButton:
		if e.Pressed {
			return fmt.Sprintf("button %d pressed", e.Index)
		}
		return fmt.Sprintf("button %d released", e.Index)
	case EventHat:
		return fmt.Sprintf("hat %d %s", e.Index, e.Hat)
	case EventAxis:
		return fmt.Sprintf("axis %d %.4f", e.Index, e.Value)
	case EventMotor:
		return fmt.Sprintf("motor %d %.2f", e.Index, e.Value)
	}
	return e.Type.String()
}
