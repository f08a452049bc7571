package config

import "strings"

// Normalize applies post-validation normalization.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Runtime.Mode = strings.ToLower(strings.TrimSpace(cfg.Runtime.Mode))
	if cfg.Runtime.Mode == "" {
		cfg.Runtime.Mode = ModeDevelopment
	}

	cfg.Public.APIURL = strings.TrimRight(cfg.Public.APIURL, "/")

	// sqlite falls back to DATABASE_URL
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.Path == "" {
		cfg.Storage.Path = strings.TrimPrefix(cfg.Runtime.DatabaseURL, "sqlite://")
	}
}

// IsProduction reports whether the runtime mode is production.
func (c *Config) IsProduction() bool {
	return c.Runtime.Mode == ModeProduction
}
