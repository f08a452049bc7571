package config

import (
	"fmt"
	"net"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	addrs := []struct {
		name, addr string
	}{
		{"server.http_addr", cfg.Server.HTTPAddr},
		{"server.metrics_addr", cfg.Server.MetricsAddr},
		{"server.grpc_addr", cfg.Server.GRPCAddr},
	}
	for _, a := range addrs {
		// empty disables the optional listeners
		if a.addr == "" && a.name != "server.http_addr" {
			continue
		}
		if _, _, err := net.SplitHostPort(a.addr); err != nil {
			return fmt.Errorf("%s: invalid address %q: %w", a.name, a.addr, err)
		}
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	switch cfg.Storage.Driver {
	case "badger":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the badger driver")
		}
	case "sqlite":
		if cfg.Storage.Path == "" && cfg.Runtime.DatabaseURL == "" {
			return fmt.Errorf("storage.path or DATABASE_URL is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}

	if cfg.ISR.IndexRevalidate <= 0 || cfg.ISR.PostRevalidate <= 0 {
		return fmt.Errorf("isr revalidate intervals must be positive")
	}
	if cfg.ISR.RegenTimeout <= 0 {
		return fmt.Errorf("isr.regen_timeout must be positive")
	}
	return nil
}
