// Package config loads process configuration: defaults, then an optional
// YAML file, then environment variables. Command-line flags are applied by
// the caller before Validate and Normalize.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	NATS      NATSConfig      `yaml:"nats"`
	ISR       ISRConfig       `yaml:"isr"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Public    PublicConfig    `yaml:"public"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type ISRConfig struct {
	IndexRevalidate time.Duration `yaml:"index_revalidate"`
	PostRevalidate  time.Duration `yaml:"post_revalidate"`
	RegenTimeout    time.Duration `yaml:"regen_timeout"`
	RevalidateToken string        `yaml:"revalidate_token"`
	Prerender       bool          `yaml:"prerender"`
}

type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RuntimeConfig holds server-only values. Only Mode changes behavior
// (logger flavor); the rest is displayed on the environment page.
type RuntimeConfig struct {
	Mode        string `yaml:"mode"`
	ServerLabel string `yaml:"server_label"`
	Environment string `yaml:"environment"`
	DatabaseURL string `yaml:"database_url"`
	APIKey      string `yaml:"api_key"`
	Region      string `yaml:"region"`
	Ray         string `yaml:"ray"`
	AppVersion  string `yaml:"app_version"`
	BuildID     string `yaml:"build_id"`
}

// PublicConfig values are safe to render into any page.
type PublicConfig struct {
	APIURL  string `yaml:"api_url"`
	AppName string `yaml:"app_name"`
	Version string `yaml:"version"`
}

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
	ModeTest        = "test"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			MetricsAddr:     ":9090",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "badger",
			Path:   "./data/badger",
		},
		ISR: ISRConfig{
			IndexRevalidate: 30 * time.Second,
			PostRevalidate:  60 * time.Second,
			RegenTimeout:    10 * time.Second,
			Prerender:       true,
		},
		Runtime: RuntimeConfig{
			Mode:        ModeDevelopment,
			ServerLabel: "default-server",
			Environment: ModeDevelopment,
		},
		Public: PublicConfig{
			AppName: "Go Rendering Showcase",
			Version: "1.0.0",
		},
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from defaults, the YAML file at path (if any) and
// the environment.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	str(&cfg.Runtime.Mode, "APP_ENV", "NODE_ENV")
	str(&cfg.Runtime.ServerLabel, "SERVER_ID")
	str(&cfg.Runtime.Environment, "ENVIRONMENT")
	str(&cfg.Runtime.DatabaseURL, "DATABASE_URL")
	str(&cfg.Runtime.APIKey, "API_KEY")
	str(&cfg.Runtime.Region, "EDGE_REGION")
	str(&cfg.Runtime.Ray, "EDGE_RAY")
	str(&cfg.Runtime.AppVersion, "APP_VERSION")
	str(&cfg.Runtime.BuildID, "BUILD_ID")

	str(&cfg.Public.APIURL, "PUBLIC_API_URL")
	str(&cfg.Public.AppName, "PUBLIC_APP_NAME")
	str(&cfg.Public.Version, "PUBLIC_VERSION")

	str(&cfg.NATS.URL, "NATS_URL")
	str(&cfg.ISR.RevalidateToken, "REVALIDATE_TOKEN")
	str(&cfg.Storage.Driver, "STORAGE_DRIVER")
	str(&cfg.Storage.Path, "STORAGE_PATH")

	if v, ok := lookup("TELEMETRY_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TELEMETRY_ENABLED: %w", err)
		}
		cfg.Telemetry.Enabled = b
	}
	return nil
}
