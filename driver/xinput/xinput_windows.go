//go:build windows

package xinput

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/joystick"
)

const (
	errorSuccess            = 0
	errorDeviceNotConnected = 1167
	// XInputGetStateEx is only exported by ordinal.
	getStateExOrdinal = 100
)

var ErrNotConnected = errors.New("controller not connected")

func init() {
	driver.RegisterDriver(Name, &registration{})
}

type library struct {
	once       sync.Once
	err        error
	getState   uintptr
	getStateEx uintptr
	setState   uintptr
}

var dll library

func (l *library) load() error {
	l.once.Do(func() {
		for _, name := range []string{"xinput1_4.dll", "xinput1_3.dll", "xinput9_1_0.dll"} {
			lazy := windows.NewLazySystemDLL(name)
			if err := lazy.Load(); err != nil {
				l.err = err
				continue
			}
			getState := lazy.NewProc("XInputGetState")
			setState := lazy.NewProc("XInputSetState")
			if err := getState.Find(); err != nil {
				l.err = err
				continue
			}
			l.getState = getState.Addr()
			if setState.Find() == nil {
				l.setState = setState.Addr()
			}
			if addr, err := windows.GetProcAddressByOrdinal(windows.Handle(lazy.Handle()), getStateExOrdinal); err == nil {
				l.getStateEx = addr
			}
			l.err = nil
			return
		}
		l.err = fmt.Errorf("load xinput: %w", l.err)
	})
	return l.err
}

// state reads the padded XINPUT_STATE_EX, falling back to XInputGetState
// when the guide button is unavailable.
func (l *library) state(index uint) (State, error) {
	var buf [stateSize + 4]byte
	proc := l.getStateEx
	if proc == 0 {
		proc = l.getState
	}
	r, _, _ := syscall.SyscallN(proc, uintptr(index), uintptr(unsafe.Pointer(&buf[0])))
	switch r {
	case errorSuccess:
	case errorDeviceNotConnected:
		return State{}, ErrNotConnected
	default:
		return State{}, syscall.Errno(r)
	}
	var s State
	err := s.UnmarshalBinary(buf[:])
	return s, err
}

func (l *library) vibrate(index uint, v Vibration) bool {
	if l.setState == 0 {
		return false
	}
	r, _, _ := syscall.SyscallN(l.setState, uintptr(index), uintptr(unsafe.Pointer(&v)))
	return r == errorSuccess
}

type registration struct{}

func (registration) Enumerate() ([]driver.Binding, error) {
	if err := dll.load(); err != nil {
		return nil, err
	}
	var out []driver.Binding
	for i := range uint(MaxControllers) {
		if _, err := dll.state(i); err != nil {
			continue
		}
		out = append(out, &binding{index: i})
	}
	return out, nil
}

type binding struct {
	mu        sync.Mutex
	index     uint
	last      State
	vibration Vibration
}

func (b *binding) Info() device.Info { return ControllerInfo(b.index) }
func (b *binding) Open() error       { return dll.load() }

func (b *binding) Close() error {
	b.SendMotorCommand(0, 0)
	b.SendMotorCommand(1, 0)
	return nil
}

func (b *binding) ScanEvents(sink joystick.StateSink) error {
	s, err := dll.state(b.index)
	if err != nil {
		return fmt.Errorf("xinput %d: %w", b.index, err)
	}
	b.mu.Lock()
	b.last = s
	b.mu.Unlock()
	s.Apply(sink)
	return nil
}

func (b *binding) SendMotorCommand(index uint, strength float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.vibration.Set(index, strength) {
		return false
	}
	return dll.vibrate(b.index, b.vibration)
}

func (b *binding) RawState() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, _ := b.last.MarshalBinary()
	return raw
}
