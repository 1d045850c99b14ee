package openflow

import "time"

// Config defines control-channel timing and limits.
type Config struct {
	ListenAddr       string
	HandshakeTimeout time.Duration
	EchoInterval     time.Duration
	DeadAfter        time.Duration
	WriteTimeout     time.Duration
	OutboundQueue    int
	MaxMessageBytes  int
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:       ":6653",
		HandshakeTimeout: 5 * time.Second,
		EchoInterval:     5 * time.Second,
		DeadAfter:        15 * time.Second,
		WriteTimeout:     5 * time.Second,
		OutboundQueue:    256,
		MaxMessageBytes:  0xffff,
	}
}
