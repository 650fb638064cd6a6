package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/Alia5/padmap/internal/manager"
)

// Devices lists the controllers the selected drivers report.
type Devices struct {
	DriverSelect `embed:""`
	JSON         bool `help:"Print JSON instead of a table" env:"PADMAP_DEVICES_JSON"`

	Out io.Writer `kong:"-"`
}

func (c *Devices) Run(logger *slog.Logger) error {
	drivers, err := c.drivers()
	if err != nil {
		return err
	}
	devices, err := manager.Enumerate(drivers, logger)
	if err != nil {
		return err
	}

	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}
	return printDevices(out, devices)
}

func printDevices(out io.Writer, devices []manager.Device) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(out, "no devices found")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDRIVER\tNAME\tVID:PID\tPORT\tBUTTONS\tHATS\tAXES\tMOTORS")
	for i, d := range devices {
		name := d.Info.Name
		if name == "" {
			name = "(unidentified)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%04x:%04x\t%d\t%d\t%d\t%d\t%d\n",
			i, d.Driver, name, d.Info.VendorID, d.Info.ProductID, d.Info.RequestedPort,
			d.Info.ButtonCount, d.Info.HatCount, d.Info.AxisCount, d.Info.MotorCount)
	}
	return tw.Flush()
}
