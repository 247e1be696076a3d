package server

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds server tuning knobs. The zero value is usable; unset fields
// fall back to the defaults below.
type Config struct {
	// Name answers Query(ClientName).
	Name string

	// ReadTimeout bounds one WebSocket read. Heartbeats keep an idle but
	// healthy connection inside it.
	ReadTimeout time.Duration

	// WriteTimeout bounds one WebSocket write.
	WriteTimeout time.Duration

	// HeartbeatInterval is the WebSocket ping cadence.
	HeartbeatInterval time.Duration

	// RequestQueue is the resolver inbox depth. A full inbox rejects the
	// request with a Text error instead of stalling the read loop.
	RequestQueue int

	// Logger receives structured logs. Defaults to slog.Default.
	Logger *slog.Logger

	// Registry receives the server's Prometheus metrics.
	// Defaults to a fresh registry exposed on the Handler's /metrics.
	Registry *prometheus.Registry
}

// Defaults.
const (
	DefaultName              = "scenelink-server"
	DefaultReadTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultHeartbeatInterval = 20 * time.Second
	DefaultRequestQueue      = 64
)

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.RequestQueue <= 0 {
		c.RequestQueue = DefaultRequestQueue
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	return c
}
