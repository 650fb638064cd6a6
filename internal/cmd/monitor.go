package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/internal/log"
	"github.com/Alia5/padmap/internal/manager"
	"github.com/Alia5/padmap/internal/monitor"
)

// Monitor polls every device and streams its events to websocket clients.
type Monitor struct {
	DriverSelect   `embed:""`
	monitor.Config `embed:""`
	Interval       time.Duration `help:"Poll interval" default:"10ms" env:"PADMAP_MONITOR_INTERVAL"`
	Rescan         time.Duration `help:"Interval between driver rescans" default:"5s" env:"PADMAP_MONITOR_RESCAN"`
}

// Run is called by Kong when the monitor command is executed.
func (c *Monitor) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.Serve(ctx, logger, rawLogger)
}

func (c *Monitor) Serve(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	drivers, err := c.drivers()
	if err != nil {
		return err
	}

	registry := device.NewRegistry(logger)
	var broadcaster *monitor.Broadcaster
	m := manager.New(registry, drivers,
		manager.WithInterval(c.Interval),
		manager.WithRescanInterval(c.Rescan),
		manager.WithLogger(logger),
		manager.WithRawLogger(rawLogger),
		manager.WithSink(func(b manager.Batch) { broadcaster.Sink(b) }),
	)
	srv := monitor.New(m, registry, logger)
	broadcaster = srv.Broadcaster()

	logger.Info("starting padmap monitor", "addr", c.Addr, "drivers", len(drivers))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, c.Addr) })
	return g.Wait()
}
