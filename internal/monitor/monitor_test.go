package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/internal/manager"
	"github.com/Alia5/padmap/joystick"
)

type fakeDevices []manager.Device

func (f fakeDevices) Devices() []manager.Device { return f }

func (f fakeDevices) Info(h device.Handle) (device.Info, bool) {
	for _, d := range f {
		if d.Handle == h {
			return d.Info, true
		}
	}
	return device.Info{}, false
}

func testDevices() fakeDevices {
	return fakeDevices{
		{Handle: 0, Driver: "virtual", Info: device.Info{Name: "Pad A", Provider: "virtual", ButtonCount: 4}},
		{Handle: 1, Driver: "virtual", Info: device.Info{Name: "Pad B", Provider: "virtual", ButtonCount: 4, RequestedPort: 1}},
	}
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	devices := testDevices()
	s := New(devices, devices, slog.New(slog.DiscardHandler))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return s, ln.Addr().String()
}

func dial(t *testing.T, s *Server, addr string) *websocket.Conn {
	t.Helper()
	before := s.hub.Len()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.hub.Len() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func batch(h device.Handle, events ...joystick.Event) manager.Batch {
	return manager.Batch{Handle: h, Time: time.UnixMilli(1_700_000_000_000), Events: events}
}

func TestInitialDeviceList(t *testing.T) {
	s, addr := startServer(t)
	conn := dial(t, s, addr)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeDevices, msg.Type)
	require.Len(t, msg.Devices, 2)
	assert.Equal(t, "Pad B", msg.Devices[1].Info.Name)
}

func TestEventsAreBroadcast(t *testing.T) {
	s, addr := startServer(t)
	a := dial(t, s, addr)
	b := dial(t, s, addr)
	readMessage(t, a)
	readMessage(t, b)

	s.Broadcaster().Sink(batch(0, joystick.ButtonEvent(2, true), joystick.AxisEvent(0, 0.5)))

	for _, conn := range []*websocket.Conn{a, b} {
		first := readMessage(t, conn)
		second := readMessage(t, conn)
		assert.Equal(t, TypeEvent, first.Type)
		assert.Equal(t, int64(1_700_000_000_000), first.Timestamp)
		require.NotNil(t, first.Event)
		assert.Equal(t, joystick.ButtonEvent(2, true), *first.Event)
		require.NotNil(t, second.Event)
		assert.Equal(t, joystick.AxisEvent(0, 0.5), *second.Event)
		assert.Less(t, first.Seq, second.Seq)
	}
}

func TestSelectDeviceFiltersEvents(t *testing.T) {
	s, addr := startServer(t)
	conn := dial(t, s, addr)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "select_device", Handle: 1}))
	selected := readMessage(t, conn)
	assert.Equal(t, TypeDeviceSelected, selected.Type)
	require.NotNil(t, selected.Device)
	assert.Equal(t, device.Handle(1), selected.Device.Handle)

	s.Broadcaster().Sink(batch(0, joystick.ButtonEvent(0, true)))
	s.Broadcaster().Sink(batch(1, joystick.ButtonEvent(3, true)))

	msg := readMessage(t, conn)
	assert.Equal(t, device.Handle(1), msg.Device.Handle)
	assert.Equal(t, joystick.ButtonEvent(3, true), *msg.Event)
}

func TestSelectUnknownDeviceIsIgnored(t *testing.T) {
	s, addr := startServer(t)
	conn := dial(t, s, addr)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "select_device", Handle: 9}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "select_device", Handle: AllDevices}))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeDeviceSelected, msg.Type)
	assert.Equal(t, AllDevices, msg.Device.Handle)
}

func TestDeviceEndpoints(t *testing.T) {
	_, addr := startServer(t)

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
	}{
		{name: "list", path: "/devices", status: http.StatusOK, contentType: "application/json"},
		{name: "one", path: "/devices/1", status: http.StatusOK, contentType: "application/json"},
		{name: "unknown", path: "/devices/7", status: http.StatusNotFound, contentType: "application/problem+json"},
		{name: "invalid", path: "/devices/pad", status: http.StatusBadRequest, contentType: "application/problem+json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get("http://" + addr + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
		})
	}

	resp, err := http.Get("http://" + addr + "/devices/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var ref DeviceRef
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ref))
	assert.Equal(t, "Pad B", ref.Info.Name)
}

func TestClientWants(t *testing.T) {
	c := &Client{}
	c.filter.Store(int64(AllDevices))
	assert.True(t, c.Wants(3))

	c.SetFilter(1)
	assert.True(t, c.Wants(1))
	assert.False(t, c.Wants(3))
	assert.True(t, c.Wants(AllDevices))
}
