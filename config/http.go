package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	minHTTPTimeout      = time.Second
	defaultMaxBodyBytes = 32 << 20
)

// HTTPConfig contains HTTP server and callback delivery configuration.
type HTTPConfig struct {
	// Port is the TCP port to listen on; 0 picks a free port.
	Port int `env:"PORT" envDefault:"4003"`

	// Host is the interface to bind. Empty binds all interfaces.
	Host string `env:"HTTP_HOST" envDefault:""`

	// MaxConnections caps concurrently accepted connections; 0 is unlimited.
	MaxConnections int `env:"HTTP_MAX_CONNECTIONS" envDefault:"0"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT"  envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`

	// MaxBodyBytes bounds inbound submission bodies.
	MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"33554432"`

	// CallbackTimeout bounds the single result delivery attempt.
	CallbackTimeout time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Host = strings.TrimSpace(h.Host)
	if h.Port < 0 || h.Port > 65535 {
		h.Port = 4003
	}
	if h.MaxConnections < 0 {
		h.MaxConnections = 0
	}
	if h.ReadTimeout < minHTTPTimeout {
		h.ReadTimeout = minHTTPTimeout
	}
	if h.WriteTimeout < minHTTPTimeout {
		h.WriteTimeout = minHTTPTimeout
	}
	if h.MaxBodyBytes <= 0 {
		h.MaxBodyBytes = defaultMaxBodyBytes
	}
	if h.CallbackTimeout <= 0 {
		h.CallbackTimeout = 60 * time.Second
	}
}

// Addr is the listen address built from Host and Port.
func (h *HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}
