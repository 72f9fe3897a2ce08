package server

import (
	"net"
	"net/http"
	"time"

	"jewelry-catalog/internal/config"
)

const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

// New builds the HTTP server. Unset timeouts fall back to the defaults above.
func New(cfg *config.Config, handler http.Handler) *http.Server {
	read, write, idle := defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout
	if s := cfg.Server; s != nil {
		read = orDefault(s.ReadTimeout, read)
		write = orDefault(s.WriteTimeout, write)
		idle = orDefault(s.IdleTimeout, idle)
	}

	host := cfg.Host
	if host == "localhost" {
		host = ""
	}

	return &http.Server{
		Addr:              net.JoinHostPort(host, cfg.Port),
		Handler:           handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
