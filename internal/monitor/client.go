package monitor

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/padmap/device"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// DeviceLookup reports whether a handle names a live device.
type DeviceLookup interface {
	Info(h device.Handle) (device.Info, bool)
}

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
	filter atomic.Int64
	logger *slog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: conn.RemoteAddr().String(),
	}
	c.logger = logger.With("remote", c.remote)
	c.filter.Store(int64(AllDevices))
	return c
}

// Wants reports whether the client listens to messages about h. Messages
// addressed to AllDevices reach every client.
func (c *Client) Wants(h device.Handle) bool {
	f := device.Handle(c.filter.Load())
	return h == AllDevices || f == AllDevices || f == h
}

func (c *Client) SetFilter(h device.Handle) {
	c.filter.Store(int64(h))
}

// WritePump drains the send channel into the connection and keeps it alive
// with pings. It returns when the hub closes the channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("monitor write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump handles client commands until the connection closes.
func (c *Client) ReadPump(devices DeviceLookup) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("monitor read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid monitor message", "error", err)
			continue
		}

		switch msg.Type {
		case "select_device":
			if msg.Handle != AllDevices {
				if _, ok := devices.Info(msg.Handle); !ok {
					c.logger.Warn("select unknown device", "handle", msg.Handle)
					continue
				}
			}
			c.SetFilter(msg.Handle)
			if out, err := json.Marshal(NewDeviceSelectedMessage(msg.Handle)); err == nil {
				c.hub.sendTo(c, out)
			}
			c.logger.Info("monitor client selected device", "handle", msg.Handle)
		default:
			c.logger.Warn("unknown monitor message", "type", msg.Type)
		}
	}
}
