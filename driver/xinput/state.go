// Package xinput reads Xbox controllers through the Windows XInput API.
package xinput

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/joystick"
)

// Name is the driver name the package registers under.
const Name = "xinput"

// MaxControllers is the number of user indexes XInput exposes.
const MaxControllers = 4

// XINPUT_GAMEPAD button bits. Guide is only reported by the undocumented
// XInputGetStateEx.
const (
	ButtonDpadUp        uint16 = 0x0001
	ButtonDpadDown      uint16 = 0x0002
	ButtonDpadLeft      uint16 = 0x0004
	ButtonDpadRight     uint16 = 0x0008
	ButtonStart         uint16 = 0x0010
	ButtonBack          uint16 = 0x0020
	ButtonLeftThumb     uint16 = 0x0040
	ButtonRightThumb    uint16 = 0x0080
	ButtonLeftShoulder  uint16 = 0x0100
	ButtonRightShoulder uint16 = 0x0200
	ButtonGuide         uint16 = 0x0400
	ButtonA             uint16 = 0x1000
	ButtonB             uint16 = 0x2000
	ButtonX             uint16 = 0x4000
	ButtonY             uint16 = 0x8000
)

// buttonOrder maps driver button indexes to XInput bits.
var buttonOrder = [...]uint16{
	ButtonA, ButtonB, ButtonX, ButtonY,
	ButtonLeftShoulder, ButtonRightShoulder,
	ButtonBack, ButtonStart,
	ButtonLeftThumb, ButtonRightThumb,
	ButtonDpadUp, ButtonDpadRight, ButtonDpadDown, ButtonDpadLeft,
	ButtonGuide,
}

const (
	axisCount    = 6
	motorCount   = 2
	maxTrigger   = math.MaxUint8
	maxThumb     = math.MaxInt16
	stateSize    = 16
	vibrationMax = math.MaxUint16
)

// State is XINPUT_STATE as returned by XInputGetState.
type State struct {
	PacketNumber uint32
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// MarshalBinary encodes State in the 16-byte XINPUT_STATE layout.
func (s *State) MarshalBinary() ([]byte, error) {
	b := make([]byte, stateSize)
	binary.LittleEndian.PutUint32(b[0:4], s.PacketNumber)
	binary.LittleEndian.PutUint16(b[4:6], s.Buttons)
	b[6] = s.LeftTrigger
	b[7] = s.RightTrigger
	binary.LittleEndian.PutUint16(b[8:10], uint16(s.ThumbLX))
	binary.LittleEndian.PutUint16(b[10:12], uint16(s.ThumbLY))
	binary.LittleEndian.PutUint16(b[12:14], uint16(s.ThumbRX))
	binary.LittleEndian.PutUint16(b[14:16], uint16(s.ThumbRY))
	return b, nil
}

// UnmarshalBinary decodes an XINPUT_STATE. Trailing padding, as in
// XINPUT_STATE_EX, is ignored.
func (s *State) UnmarshalBinary(data []byte) error {
	if len(data) < stateSize {
		return io.ErrUnexpectedEOF
	}
	s.PacketNumber = binary.LittleEndian.Uint32(data[0:4])
	s.Buttons = binary.LittleEndian.Uint16(data[4:6])
	s.LeftTrigger = data[6]
	s.RightTrigger = data[7]
	s.ThumbLX = int16(binary.LittleEndian.Uint16(data[8:10]))
	s.ThumbLY = int16(binary.LittleEndian.Uint16(data[10:12]))
	s.ThumbRX = int16(binary.LittleEndian.Uint16(data[12:14]))
	s.ThumbRY = int16(binary.LittleEndian.Uint16(data[14:16]))
	return nil
}

// Apply reports the state to sink. Thumb Y axes are inverted so up is
// negative, like every other driver.
func (s *State) Apply(sink joystick.StateSink) {
	for i, bit := range buttonOrder {
		sink.SetButtonValue(uint(i), s.Buttons&bit != 0)
	}
	sink.SetAxisValueRaw(0, int64(s.ThumbLX), maxThumb)
	sink.SetAxisValueRaw(1, -int64(s.ThumbLY), maxThumb)
	sink.SetAxisValueRaw(2, int64(s.ThumbRX), maxThumb)
	sink.SetAxisValueRaw(3, -int64(s.ThumbRY), maxThumb)
	sink.SetAxisValueRaw(4, int64(s.LeftTrigger), maxTrigger)
	sink.SetAxisValueRaw(5, int64(s.RightTrigger), maxTrigger)
}

// Vibration is XINPUT_VIBRATION.
type Vibration struct {
	LeftMotorSpeed  uint16
	RightMotorSpeed uint16
}

// Set stores strength in [0,1] for motor 0 (left, low frequency) or 1
// (right, high frequency).
func (v *Vibration) Set(index uint, strength float32) bool {
	speed := uint16(math.Round(float64(min(max(strength, 0), 1)) * vibrationMax))
	switch index {
	case 0:
		v.LeftMotorSpeed = speed
	case 1:
		v.RightMotorSpeed = speed
	default:
		return false
	}
	return true
}

func (v *Vibration) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], v.LeftMotorSpeed)
	binary.LittleEndian.PutUint16(b[2:4], v.RightMotorSpeed)
	return b, nil
}

// ControllerInfo describes the controller at a user index.
func ControllerInfo(index uint) device.Info {
	axes := make([]device.AxisInfo, axisCount)
	for i := range axes {
		axes[i] = device.AxisInfo{Center: 0, Range: 1}
	}
	axes[4].Trigger = true
	axes[5].Trigger = true
	return device.Info{
		Name:          "Xbox 360-compatible controller",
		Provider:      Name,
		VendorID:      0x045e,
		ProductID:     0x028e,
		RequestedPort: int(index),
		ButtonCount:   uint(len(buttonOrder)),
		AxisCount:     axisCount,
		MotorCount:    motorCount,
		Axes:          axes,
	}
}

func (s State) String() string {
	return fmt.Sprintf("packet=%d buttons=%#04x lt=%d rt=%d lx=%d ly=%d rx=%d ry=%d",
		s.PacketNumber, s.Buttons, s.LeftTrigger, s.RightTrigger, s.ThumbLX, s.ThumbLY, s.ThumbRX, s.ThumbRY)
}
