package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Alia5/padmap/internal/manager"
)

const deviceSyncInterval = 5 * time.Second

// DeviceLister returns the devices currently being polled.
type DeviceLister interface {
	Devices() []manager.Device
}

// Broadcaster turns manager batches into hub messages.
type Broadcaster struct {
	hub     *Hub
	devices DeviceLister
	seq     atomic.Int64
	logger  *slog.Logger
}

func NewBroadcaster(h *Hub, devices DeviceLister, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{hub: h, devices: devices, logger: logger}
}

// Sink is a manager.Sink. Every event of the batch becomes one message.
func (b *Broadcaster) Sink(batch manager.Batch) {
	for _, e := range batch.Events {
		data, err := json.Marshal(NewEventMessage(b.seq.Add(1), batch, e))
		if err != nil {
			b.logger.Error("marshal event message", "error", err)
			continue
		}
		b.hub.Broadcast(data, batch.Handle)
	}
}

// SendInitialState queues the device list for a client that is not yet
// registered.
func (b *Broadcaster) SendInitialState(c *Client) {
	data, err := json.Marshal(NewDevicesMessage(b.seq.Add(1), b.devices.Devices()))
	if err != nil {
		b.logger.Error("marshal devices message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Run resends the device list to every client periodically until ctx is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(deviceSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.hub.Len() == 0 {
				continue
			}
			data, err := json.Marshal(NewDevicesMessage(b.seq.Add(1), b.devices.Devices()))
			if err != nil {
				b.logger.Error("marshal devices message", "error", err)
				continue
			}
			b.hub.Broadcast(data, AllDevices)
		}
	}
}
