package chat

import "time"

// Config holds the runtime settings for the chat server.
type Config struct {
	// Addr is the TCP listen address for client connections.
	Addr string
	// MetricsAddr is the HTTP listen address for the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string
	// IdleTimeout disconnects sessions with no successful read for this long.
	IdleTimeout time.Duration
	// SweepInterval is the cadence of the idle-session sweep.
	SweepInterval time.Duration
	// OutboundQueue is the per-session bound on queued outbound frames.
	OutboundQueue int
	// ReadBuffer is the size of each connection's read buffer.
	ReadBuffer int
	// EventBuffer is the capacity of the reactor's event channel.
	EventBuffer int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Addr:          ":5000",
		MetricsAddr:   ":9090",
		IdleTimeout:   5 * time.Minute,
		SweepInterval: 100 * time.Millisecond,
		OutboundQueue: 256,
		ReadBuffer:    4096,
		EventBuffer:   128,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	if c.OutboundQueue <= 0 {
		c.OutboundQueue = def.OutboundQueue
	}
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = def.ReadBuffer
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	return c
}
