// Package linuxjs reads controllers through the Linux joystick API
// (/dev/input/js*).
package linuxjs

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/joystick"
)

// Name is the driver name the package registers under.
const Name = "linux"

// js_event types.
const (
	EventButton = 0x01
	EventAxis   = 0x02
	EventInit   = 0x80
)

// EventSize is sizeof(struct js_event).
const EventSize = 8

const maxAxis = math.MaxInt16

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
	iocRead      = 2
)

func ioc(dir, typ, nr, size uint32) uint32 {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

var (
	jsiocgAxes    = ioc(iocRead, 'j', 0x11, 1)
	jsiocgButtons = ioc(iocRead, 'j', 0x12, 1)
)

func jsiocgName(length uint32) uint32 { return ioc(iocRead, 'j', 0x13, length) }

// Event is struct js_event.
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// UnmarshalBinary decodes one 8-byte js_event.
func (e *Event) UnmarshalBinary(data []byte) error {
	if len(data) < EventSize {
		return io.ErrUnexpectedEOF
	}
	e.Time = binary.LittleEndian.Uint32(data[0:4])
	e.Value = int16(binary.LittleEndian.Uint16(data[4:6]))
	e.Type = data[6]
	e.Number = data[7]
	return nil
}

func (e *Event) MarshalBinary() ([]byte, error) {
	b := make([]byte, EventSize)
	binary.LittleEndian.PutUint32(b[0:4], e.Time)
	binary.LittleEndian.PutUint16(b[4:6], uint16(e.Value))
	b[6] = e.Type
	b[7] = e.Number
	return b, nil
}

// Apply reports the event to sink. The synthetic init flag is ignored so
// the initial state is reported like any other change.
func (e Event) Apply(sink joystick.StateSink) {
	switch e.Type &^ EventInit {
	case EventButton:
		sink.SetButtonValue(uint(e.Number), e.Value != 0)
	case EventAxis:
		sink.SetAxisValueRaw(uint(e.Number), int64(e.Value), maxAxis)
	}
}

// DecodeEvents decodes every complete js_event in buf. A trailing partial
// event is ignored.
func DecodeEvents(buf []byte) []Event {
	events := make([]Event, 0, len(buf)/EventSize)
	for off := 0; off+EventSize <= len(buf); off += EventSize {
		var e Event
		_ = e.UnmarshalBinary(buf[off:])
		events = append(events, e)
	}
	return events
}

// Metadata is what sysfs reports about a joystick node.
type Metadata struct {
	Name      string
	VendorID  uint16
	ProductID uint16
}

// ReadMetadata reads /sys/class/input/<node>/device. Missing files leave
// the field zero.
func ReadMetadata(sysfs afero.Fs, node string) Metadata {
	dir := filepath.Join("/sys/class/input", node, "device")
	readHex := func(name string) uint16 {
		b, err := afero.ReadFile(sysfs, filepath.Join(dir, "id", name))
		if err != nil {
			return 0
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 16, 16)
		if err != nil {
			return 0
		}
		return uint16(v)
	}
	var m Metadata
	if b, err := afero.ReadFile(sysfs, filepath.Join(dir, "name")); err == nil {
		m.Name = strings.TrimSpace(string(b))
	}
	m.VendorID = readHex("vendor")
	m.ProductID = readHex("product")
	return m
}

// DeviceInfo builds the device record from what the kernel reports. The
// kernel exposes hats as pairs of axes, so HatCount is always 0.
func DeviceInfo(index int, name string, meta Metadata, buttons, axes uint8) device.Info {
	if name == "" {
		name = meta.Name
	}
	info := device.Info{
		Name:          device.SanitizeName(name),
		Provider:      Name,
		VendorID:      meta.VendorID,
		ProductID:     meta.ProductID,
		RequestedPort: index,
		ButtonCount:   uint(buttons),
		AxisCount:     uint(axes),
	}
	for range axes {
		info.Axes = append(info.Axes, device.AxisInfo{Center: 0, Range: 1})
	}
	return info
}

// NodeIndex returns N for "jsN".
func NodeIndex(node string) (int, error) {
	n, ok := strings.CutPrefix(node, "js")
	if !ok {
		return 0, fmt.Errorf("not a joystick node: %s", node)
	}
	return strconv.Atoi(n)
}
