package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk shape. Durations are Go duration strings.
type fileConfig struct {
	Fabric     fileFabric     `toml:"fabric"`
	Controller fileController `toml:"controller"`
	Admin      fileAdmin      `toml:"admin"`
	Log        fileLog        `toml:"log"`
}

type fileFabric struct {
	Fanout        int    `toml:"fanout"`
	Depth         int    `toml:"depth"`
	Network       int    `toml:"network"`
	FlatThreshold uint64 `toml:"flat_threshold"`
}

type fileController struct {
	ListenAddr       string `toml:"listen_addr"`
	Mode             string `toml:"mode"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	EchoInterval     string `toml:"echo_interval"`
	DeadAfter        string `toml:"dead_after"`
	WriteTimeout     string `toml:"write_timeout"`
	OutboundQueue    int    `toml:"outbound_queue"`
}

type fileAdmin struct {
	Enabled     bool     `toml:"enabled"`
	ListenAddr  string   `toml:"listen_addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

type fileLog struct {
	Level string `toml:"level"`
}

// Load reads path and overlays only the keys it defines onto Default.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := overlay(Default(), raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	cfg, err := overlay(Default(), raw, meta)
	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlay(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("fabric", "fanout") {
		cfg.Fabric.Fanout = raw.Fabric.Fanout
	}
	if meta.IsDefined("fabric", "depth") {
		cfg.Fabric.Depth = raw.Fabric.Depth
	}
	if meta.IsDefined("fabric", "network") {
		cfg.Fabric.Network = raw.Fabric.Network
	}
	if meta.IsDefined("fabric", "flat_threshold") {
		cfg.Fabric.FlatThreshold = raw.Fabric.FlatThreshold
	}

	if meta.IsDefined("controller", "listen_addr") {
		cfg.Controller.ListenAddr = strings.TrimSpace(raw.Controller.ListenAddr)
	}
	if meta.IsDefined("controller", "mode") {
		cfg.Controller.Mode = strings.TrimSpace(raw.Controller.Mode)
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"handshake_timeout", raw.Controller.HandshakeTimeout, &cfg.Controller.HandshakeTimeout},
		{"echo_interval", raw.Controller.EchoInterval, &cfg.Controller.EchoInterval},
		{"dead_after", raw.Controller.DeadAfter, &cfg.Controller.DeadAfter},
		{"write_timeout", raw.Controller.WriteTimeout, &cfg.Controller.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined("controller", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse controller.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("controller", "outbound_queue") {
		cfg.Controller.OutboundQueue = raw.Controller.OutboundQueue
	}

	if meta.IsDefined("admin", "enabled") {
		cfg.Admin.Enabled = raw.Admin.Enabled
	}
	if meta.IsDefined("admin", "listen_addr") {
		cfg.Admin.ListenAddr = strings.TrimSpace(raw.Admin.ListenAddr)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CorsOrigins = normalizeOrigins(raw.Admin.CorsOrigins)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		Fabric: fileFabric{
			Fanout:        cfg.Fabric.Fanout,
			Depth:         cfg.Fabric.Depth,
			Network:       cfg.Fabric.Network,
			FlatThreshold: cfg.Fabric.FlatThreshold,
		},
		Controller: fileController{
			ListenAddr:       cfg.Controller.ListenAddr,
			Mode:             cfg.Controller.Mode,
			HandshakeTimeout: cfg.Controller.HandshakeTimeout.String(),
			EchoInterval:     cfg.Controller.EchoInterval.String(),
			DeadAfter:        cfg.Controller.DeadAfter.String(),
			WriteTimeout:     cfg.Controller.WriteTimeout.String(),
			OutboundQueue:    cfg.Controller.OutboundQueue,
		},
		Admin: fileAdmin{
			Enabled:     cfg.Admin.Enabled,
			ListenAddr:  cfg.Admin.ListenAddr,
			CorsOrigins: cfg.Admin.CorsOrigins,
		},
		Log: fileLog{Level: cfg.Log.Level},
	}
}
