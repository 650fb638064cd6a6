//go:build sdl

// Package sdl reads controllers through the SDL3 joystick API, loaded at
// runtime with purego. Build with -tags sdl; the SDL3 shared library must
// be installed.
package sdl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jupiterrider/purego-sdl3/sdl"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/joystick"
)

// Name is the driver name the package registers under.
const Name = "sdl"

var ErrDisconnected = errors.New("joystick disconnected")

// SDL is not reentrant; every call goes through mu.
var (
	mu     sync.Mutex
	inited bool
)

func init() {
	driver.RegisterDriver(Name, registration{})
}

func ensureInit() error {
	if inited {
		return nil
	}
	if !sdl.Init(sdl.InitJoystick) {
		return fmt.Errorf("SDL init: %s", sdl.GetError())
	}
	inited = true
	return nil
}

// pump drains the SDL event queue so joystick state is current.
func pump() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
	}
}

type registration struct{}

func (registration) Enumerate() ([]driver.Binding, error) {
	mu.Lock()
	defer mu.Unlock()
	if err := ensureInit(); err != nil {
		return nil, err
	}
	pump()

	var out []driver.Binding
	for port, id := range sdl.GetJoysticks() {
		js := sdl.OpenJoystick(id)
		if js == nil {
			continue
		}
		info := device.Info{
			Name:          device.SanitizeName(sdl.GetJoystickName(js)),
			Provider:      Name,
			VendorID:      sdl.GetJoystickVendor(js),
			ProductID:     sdl.GetJoystickProduct(js),
			RequestedPort: port,
			ButtonCount:   uint(max(sdl.GetNumJoystickButtons(js), 0)),
			HatCount:      uint(max(sdl.GetNumJoystickHats(js), 0)),
			AxisCount:     uint(max(sdl.GetNumJoystickAxes(js), 0)),
		}
		for range info.AxisCount {
			info.Axes = append(info.Axes, device.AxisInfo{Center: 0, Range: 1})
		}
		sdl.CloseJoystick(js)
		out = append(out, &binding{id: id, info: info})
	}
	return out, nil
}

type binding struct {
	id   sdl.JoystickID
	info device.Info
	js   *sdl.Joystick
}

func (b *binding) Info() device.Info { return b.info }

func (b *binding) Open() error {
	mu.Lock()
	defer mu.Unlock()
	if b.js != nil {
		return nil
	}
	if err := ensureInit(); err != nil {
		return err
	}
	b.js = sdl.OpenJoystick(b.id)
	if b.js == nil {
		return fmt.Errorf("open joystick %d: %s", b.id, sdl.GetError())
	}
	return nil
}

func (b *binding) Close() error {
	mu.Lock()
	defer mu.Unlock()
	if b.js != nil {
		sdl.CloseJoystick(b.js)
		b.js = nil
	}
	return nil
}

func (b *binding) ScanEvents(sink joystick.StateSink) error {
	mu.Lock()
	defer mu.Unlock()
	if b.js == nil || !sdl.JoystickConnected(b.js) {
		return ErrDisconnected
	}
	pump()

	for i := range int32(b.info.ButtonCount) {
		sink.SetButtonValue(uint(i), sdl.GetJoystickButton(b.js, i))
	}
	for i := range int32(b.info.HatCount) {
		sink.SetHatValue(uint(i), joystick.HatState(sdl.GetJoystickHat(b.js, i)))
	}
	for i := range int32(b.info.AxisCount) {
		sink.SetAxisValueRaw(uint(i), int64(sdl.GetJoystickAxis(b.js, i)), 32767)
	}
	return nil
}

// Rumble is not wired up for SDL joysticks.
func (b *binding) SendMotorCommand(uint, float32) bool { return false }
