package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/internal/log"
	"github.com/Alia5/padmap/internal/manager"
)

// Watch polls every device and prints its events.
type Watch struct {
	DriverSelect `embed:""`
	Interval     time.Duration `help:"Poll interval" default:"10ms" env:"PADMAP_WATCH_INTERVAL"`
	Rescan       time.Duration `help:"Interval between driver rescans" default:"5s" env:"PADMAP_WATCH_RESCAN"`
	For          time.Duration `help:"Stop after this long (0 runs until interrupted)" default:"0s"`
	JSON         bool          `help:"Print JSON lines (default when stdout is not a terminal)"`

	Out io.Writer `kong:"-"`
}

// watchLine is one JSON line of watch output.
type watchLine struct {
	Time   time.Time     `json:"time"`
	Handle device.Handle `json:"handle"`
	Device string        `json:"device"`
	Event  any           `json:"event"`
}

func (c *Watch) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.For > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.For)
		defer cancel()
	}

	out := c.Out
	jsonLines := c.JSON
	if out == nil {
		out = os.Stdout
		jsonLines = jsonLines || !term.IsTerminal(int(os.Stdout.Fd()))
	}
	return c.watch(ctx, logger, rawLogger, out, jsonLines)
}

func (c *Watch) watch(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger, out io.Writer, jsonLines bool) error {
	drivers, err := c.drivers()
	if err != nil {
		return err
	}

	var mu sync.Mutex
	enc := json.NewEncoder(out)
	sink := func(b manager.Batch) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range b.Events {
			if jsonLines {
				_ = enc.Encode(watchLine{Time: b.Time, Handle: b.Handle, Device: b.Device.Name, Event: e})
				continue
			}
			fmt.Fprintf(out, "%s  [%d] %-24s %s\n", b.Time.Format("15:04:05.000"), b.Handle, b.Device.Name, e)
		}
	}

	registry := device.NewRegistry(logger)
	m := manager.New(registry, drivers,
		manager.WithInterval(c.Interval),
		manager.WithRescanInterval(c.Rescan),
		manager.WithLogger(logger),
		manager.WithRawLogger(rawLogger),
		manager.WithSink(sink),
	)
	logger.Info("watching devices", "drivers", len(drivers), "interval", c.Interval)
	return m.Run(ctx)
}
