//go:build linux

package linuxjs

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/driver"
	"github.com/Alia5/padmap/joystick"
)

const readBatch = 64

func init() {
	driver.RegisterDriver(Name, &registration{sysfs: afero.NewReadOnlyFs(afero.NewOsFs())})
}

type registration struct {
	sysfs afero.Fs
}

func (r *registration) Enumerate() ([]driver.Binding, error) {
	paths, err := filepath.Glob("/dev/input/js*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []driver.Binding
	var errs []error
	for _, path := range paths {
		b, err := probe(path, r.sysfs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func probe(path string, sysfs afero.Fs) (*binding, error) {
	node := filepath.Base(path)
	index, err := NodeIndex(node)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)

	var buttons, axes uint8
	if err := ioctl(fd, jsiocgButtons, unsafe.Pointer(&buttons)); err != nil {
		return nil, fmt.Errorf("%s JSIOCGBUTTONS: %w", path, err)
	}
	if err := ioctl(fd, jsiocgAxes, unsafe.Pointer(&axes)); err != nil {
		return nil, fmt.Errorf("%s JSIOCGAXES: %w", path, err)
	}
	var buf [128]byte
	var name string
	if ioctl(fd, jsiocgName(uint32(len(buf))), unsafe.Pointer(&buf[0])) == nil {
		name, _, _ = strings.Cut(string(buf[:]), "\x00")
	}

	return &binding{
		path: path,
		fd:   -1,
		info: DeviceInfo(index, name, ReadMetadata(sysfs, node), buttons, axes),
	}, nil
}

func ioctl(fd int, req uint32, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

type binding struct {
	mu   sync.Mutex
	path string
	fd   int
	info device.Info
	raw  []byte
}

func (b *binding) Info() device.Info { return b.info }

func (b *binding) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(b.path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", b.path, err)
	}
	b.fd = fd
	return nil
}

func (b *binding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

// ScanEvents drains every queued js_event.
func (b *binding) ScanEvents(sink joystick.StateSink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return unix.EBADF
	}

	buf := make([]byte, EventSize*readBatch)
	var raw []byte
	for {
		n, err := unix.Read(b.fd, buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", b.path, err)
		}
		if n == 0 {
			break
		}
		raw = append(raw, buf[:n]...)
		for _, e := range DecodeEvents(buf[:n]) {
			e.Apply(sink)
		}
		if n < len(buf) {
			break
		}
	}
	if len(raw) > 0 {
		b.raw = raw
	}
	return nil
}

// The joystick API has no force feedback.
func (b *binding) SendMotorCommand(uint, float32) bool { return false }

func (b *binding) RawState() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.raw...)
}
