package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/fabricctl/internal/logging"
	"github.com/danmuck/fabricctl/internal/openflow"
	"github.com/danmuck/fabricctl/internal/routing"
)

// Config is the resolved runtime configuration of fabricctl.
type Config struct {
	Fabric     FabricConfig
	Controller ControllerConfig
	Admin      AdminConfig
	Log        LogConfig
}

type FabricConfig struct {
	Fanout        int
	Depth         int
	Network       int
	FlatThreshold uint64
}

type ControllerConfig struct {
	ListenAddr       string
	Mode             string
	HandshakeTimeout time.Duration
	EchoInterval     time.Duration
	DeadAfter        time.Duration
	WriteTimeout     time.Duration
	OutboundQueue    int
}

type AdminConfig struct {
	Enabled     bool
	ListenAddr  string
	CorsOrigins []string
}

type LogConfig struct {
	Level string
}

func Default() Config {
	r := routing.DefaultConfig()
	of := openflow.DefaultConfig()
	return Config{
		Fabric: FabricConfig{
			Fanout:        r.Fanout,
			Depth:         r.Depth,
			Network:       int(r.Network),
			FlatThreshold: r.FlatThreshold,
		},
		Controller: ControllerConfig{
			ListenAddr:       of.ListenAddr,
			Mode:             string(routing.ModeTopology),
			HandshakeTimeout: of.HandshakeTimeout,
			EchoInterval:     of.EchoInterval,
			DeadAfter:        of.DeadAfter,
			WriteTimeout:     of.WriteTimeout,
			OutboundQueue:    of.OutboundQueue,
		},
		Admin: AdminConfig{
			Enabled:     true,
			ListenAddr:  "127.0.0.1:9090",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func Validate(cfg Config) error {
	if cfg.Fabric.Network < 1 || cfg.Fabric.Network > 254 {
		return fmt.Errorf("fabric network %d must be in 1..254", cfg.Fabric.Network)
	}
	if err := cfg.Routing().Validate(); err != nil {
		return fmt.Errorf("fabric config invalid: %w", err)
	}
	if _, err := routing.ParseMode(cfg.Controller.Mode); err != nil {
		return fmt.Errorf("controller config invalid: %w", err)
	}
	if strings.TrimSpace(cfg.Controller.ListenAddr) == "" {
		return fmt.Errorf("controller config missing listen_addr")
	}
	if cfg.Controller.HandshakeTimeout < 0 || cfg.Controller.EchoInterval < 0 ||
		cfg.Controller.DeadAfter < 0 || cfg.Controller.WriteTimeout < 0 {
		return fmt.Errorf("controller durations must not be negative")
	}
	if cfg.Controller.EchoInterval > 0 && cfg.Controller.DeadAfter > 0 &&
		cfg.Controller.DeadAfter <= cfg.Controller.EchoInterval {
		return fmt.Errorf("controller dead_after (%s) must exceed echo_interval (%s)",
			cfg.Controller.DeadAfter, cfg.Controller.EchoInterval)
	}
	if cfg.Controller.OutboundQueue < 1 {
		return fmt.Errorf("controller outbound_queue must be positive")
	}
	if cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.ListenAddr) == "" {
		return fmt.Errorf("admin config missing listen_addr")
	}
	if !logging.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log level %q unknown", cfg.Log.Level)
	}
	return nil
}

// Routing is the engine configuration. Network must already be validated.
func (c Config) Routing() routing.Config {
	return routing.Config{
		Fanout:        c.Fabric.Fanout,
		Depth:         c.Fabric.Depth,
		Network:       uint8(c.Fabric.Network),
		FlatThreshold: c.Fabric.FlatThreshold,
	}
}

func (c Config) OpenFlow() openflow.Config {
	of := openflow.DefaultConfig()
	of.ListenAddr = c.Controller.ListenAddr
	of.HandshakeTimeout = c.Controller.HandshakeTimeout
	of.EchoInterval = c.Controller.EchoInterval
	of.DeadAfter = c.Controller.DeadAfter
	of.WriteTimeout = c.Controller.WriteTimeout
	of.OutboundQueue = c.Controller.OutboundQueue
	return of
}

// Mode returns the validated forwarding mode.
func (c Config) Mode() routing.Mode {
	mode, err := routing.ParseMode(c.Controller.Mode)
	if err != nil {
		return routing.ModeTopology
	}
	return mode
}
