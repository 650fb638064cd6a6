package monitor

import (
	"fmt"
	"time"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/internal/manager"
	"github.com/Alia5/padmap/joystick"
)

// Message types sent to clients.
const (
	TypeDevices        = "devices"
	TypeEvent          = "event"
	TypeDeviceSelected = "device_selected"
)

// AllDevices is the device filter that passes every device.
const AllDevices = device.InvalidHandle

// DeviceRef identifies the device a message refers to.
type DeviceRef struct {
	Handle device.Handle `json:"handle"`
	Driver string        `json:"driver,omitempty"`
	Info   device.Info   `json:"info"`
}

// Message is a server to client websocket message.
type Message struct {
	Type      string          `json:"type"`
	Seq       int64           `json:"seq"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
	Device    *DeviceRef      `json:"device,omitempty"`
	Event     *joystick.Event `json:"event,omitempty"`
	Devices   []DeviceRef     `json:"devices,omitempty"`
}

// ClientMessage is a client to server websocket message.
type ClientMessage struct {
	Type   string        `json:"type"`
	Handle device.Handle `json:"handle"`
}

func NewEventMessage(seq int64, b manager.Batch, e joystick.Event) *Message {
	return &Message{
		Type:      TypeEvent,
		Seq:       seq,
		Timestamp: b.Time.UnixMilli(),
		Device:    &DeviceRef{Handle: b.Handle, Info: b.Device},
		Event:     &e,
	}
}

func NewDevicesMessage(seq int64, devices []manager.Device) *Message {
	refs := make([]DeviceRef, len(devices))
	for i, d := range devices {
		refs[i] = DeviceRef{Handle: d.Handle, Driver: d.Driver, Info: d.Info}
	}
	return &Message{
		Type:      TypeDevices,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Devices:   refs,
	}
}

func NewDeviceSelectedMessage(h device.Handle) *Message {
	return &Message{
		Type:      TypeDeviceSelected,
		Timestamp: time.Now().UnixMilli(),
		Device:    &DeviceRef{Handle: h},
	}
}

// Problem is an RFC 7807 problem+json error body.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (p Problem) Error() string {
	return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
}

func ErrBadRequest(detail string) Problem {
	return Problem{Status: 400, Title: "Bad Request", Detail: detail}
}

func ErrNotFound(detail string) Problem {
	return Problem{Status: 404, Title: "Not Found", Detail: detail}
}
