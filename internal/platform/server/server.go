package server

import (
	"net"
	"net/http"
	"time"

	"face-gallery/internal/config"
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// New builds the HTTP server listening on host:port. Zero timeouts in cfg fall
// back to the defaults.
func New(host, port string, cfg *config.ServerConfig, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	if cfg == nil {
		return srv
	}
	if cfg.ReadTimeout > 0 {
		srv.ReadTimeout = cfg.ReadTimeout
		srv.ReadHeaderTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		srv.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.IdleTimeout > 0 {
		srv.IdleTimeout = cfg.IdleTimeout
	}
	return srv
}
