// Package virtual provides a scriptable in-memory controller.
package virtual

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/joystick"
)

// Name is the driver name the package registers under.
const Name = "virtual"

var ErrClosed = errors.New("virtual pad is closed")

func init() {
	driver.RegisterDriver(Name, &registration{})
}

// Frame is the input a Pad reports on one poll. Inputs absent from a
// frame keep their previous value, except axes, which are only reported
// when present.
type Frame struct {
	Buttons map[uint]bool
	Hats    map[uint]joystick.HatState
	Axes    map[uint]float32
}

// Pad is a controller whose input is a list of frames, one per poll.
type Pad struct {
	mu     sync.Mutex
	info   device.Info
	frames []Frame
	loop   bool
	pos    int
	open   bool
	raw    []byte
	motors []float32
}

type PadOption func(*Pad)

// Loop replays the frames from the start once they are exhausted.
func Loop() PadOption {
	return func(p *Pad) { p.loop = true }
}

func NewPad(info device.Info, frames []Frame, opts ...PadOption) *Pad {
	if info.Provider == "" {
		info.Provider = Name
	}
	p := &Pad{
		info:   info,
		frames: frames,
		motors: make([]float32, info.MotorCount),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pad) Info() device.Info { return p.info }

func (p *Pad) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	return nil
}

func (p *Pad) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	return nil
}

// Push appends frames to the script.
func (p *Pad) Push(frames ...Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frames...)
}

func (p *Pad) ScanEvents(sink joystick.StateSink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrClosed
	}
	if p.pos >= len(p.frames) {
		if !p.loop || len(p.frames) == 0 {
			return nil
		}
		p.pos = 0
	}
	f := p.frames[p.pos]
	p.pos++

	for i, v := range f.Buttons {
		sink.SetButtonValue(i, v)
	}
	for i, v := range f.Hats {
		sink.SetHatValue(i, v)
	}
	for i, v := range f.Axes {
		sink.SetAxisValue(i, v)
	}
	p.raw = encodeFrame(f, p.info)
	return nil
}

func (p *Pad) SendMotorCommand(index uint, strength float32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open || index >= uint(len(p.motors)) {
		return false
	}
	p.motors[index] = strength
	return true
}

// Motors returns the last strength sent to each motor.
func (p *Pad) Motors() []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float32(nil), p.motors...)
}

// RawState returns the last frame as a packed report: a little-endian
// button bitmask, one byte per hat and an int16 per axis.
func (p *Pad) RawState() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.raw...)
}

func encodeFrame(f Frame, info device.Info) []byte {
	b := make([]byte, 4+info.HatCount+2*info.AxisCount)
	var buttons uint32
	for i, v := range f.Buttons {
		if v && i < 32 {
			buttons |= 1 << i
		}
	}
	binary.LittleEndian.PutUint32(b[0:4], buttons)
	for i, v := range f.Hats {
		if i < info.HatCount {
			b[4+i] = byte(v)
		}
	}
	off := 4 + info.HatCount
	for i, v := range f.Axes {
		if i < info.AxisCount {
			binary.LittleEndian.PutUint16(b[off+2*i:], uint16(int16(v*math.MaxInt16)))
		}
	}
	return b
}

type registration struct {
	mu   sync.Mutex
	pads []*Pad
}

// Install replaces the pads the registered driver enumerates.
func Install(pads ...*Pad) {
	reg := driver.GetRegistration(Name).(*registration)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.pads = pads
}

// OptIn keeps the virtual pad out of the default driver selection.
func (r *registration) OptIn() bool { return true }

func (r *registration) Enumerate() ([]driver.Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pads == nil {
		r.pads = []*Pad{DemoPad()}
	}
	out := make([]driver.Binding, len(r.pads))
	for i, p := range r.pads {
		out[i] = p
	}
	return out, nil
}

// DemoPad returns a looping pad that presses buttons, turns the hat and
// sweeps the left stick.
func DemoPad() *Pad {
	info := device.Info{
		Name:        "Virtual Gamepad",
		Provider:    Name,
		VendorID:    0x1209,
		ProductID:   0x0001,
		ButtonCount: 11,
		HatCount:    1,
		AxisCount:   6,
		MotorCount:  2,
		Axes: []device.AxisInfo{
			{Center: 0, Range: 1}, {Center: 0, Range: 1},
			{Center: 0, Range: 1}, {Center: 0, Range: 1},
			{Center: -1, Range: 2, Trigger: true}, {Center: -1, Range: 2, Trigger: true},
		},
	}

	var frames []Frame
	for step := range 16 {
		t := float64(step) / 16 * 2 * math.Pi
		f := Frame{
			Buttons: map[uint]bool{uint(step/4) % 4: step%4 < 2},
			Axes:    map[uint]float32{0: float32(math.Cos(t)), 1: float32(math.Sin(t))},
		}
		if step%8 == 0 {
			f.Hats = map[uint]joystick.HatState{0: joystick.HatUp << (step / 8)}
		}
		frames = append(frames, f)
	}
	return NewPad(info, frames, Loop())
}
