// Package config defines the padmap command line.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/padmap/internal/cmd"
)

// LogConfig holds the logging flags shared by every command.
type LogConfig struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"PADMAP_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"PADMAP_LOG_FILE"`
	RawFile string `help:"Write raw device reports to this file" env:"PADMAP_LOG_RAW_FILE"`
}

// CLI is the root command.
type CLI struct {
	Config  string           `help:"Path to a JSON, YAML or TOML configuration file" env:"PADMAP_CONFIG" type:"path"`
	Version kong.VersionFlag `help:"Print the version and exit"`

	Log         LogConfig `embed:"" prefix:"log."`
	cmd.Storage `embed:""`

	Devices   cmd.Devices       `cmd:"" help:"List attached controllers"`
	Watch     cmd.Watch         `cmd:"" help:"Print controller events as they happen"`
	Map       cmd.MapCommand    `cmd:"" help:"Inspect and edit button maps"`
	Monitor   cmd.Monitor       `cmd:"" help:"Stream controller events to websocket clients"`
	Install   cmd.Install       `cmd:"" help:"Install padmap monitor as a systemd user service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the padmap monitor user service"`
	Cfg       cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
