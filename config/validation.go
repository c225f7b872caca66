package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Route styles.
const (
	RoutesFunctions = "functions"
	RoutesREST      = "rest"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Span exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// MaxRetryAttempts bounds api.retryattempts.
const MaxRetryAttempts = 10

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// Validate checks cfg and returns the first problem found.
func Validate(cfg *Config) error {
	if !slices.Contains(Environments(), cfg.App.Env) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("unknown environment %q", cfg.App.Env), Environments())
	}
	if err := validateAPI(&cfg.API); err != nil {
		return fmt.Errorf("api config: %w", err)
	}
	if err := validateSession(&cfg.Session); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	if cfg.Navigation.LoginPath == "" {
		return NewMissingFieldError("navigation.loginpath")
	}
	if !slices.Contains(logLevels, strings.ToLower(cfg.Log.Level)) {
		return fmt.Errorf("log config: %w", NewInvalidFieldError("log.level", fmt.Sprintf("unknown level %q", cfg.Log.Level), logLevels))
	}
	exporters := []string{ExporterNone, ExporterStdout, ExporterOTLP}
	if !slices.Contains(exporters, cfg.Observability.Exporter) {
		return NewInvalidFieldError("observability.exporter", fmt.Sprintf("unknown exporter %q", cfg.Observability.Exporter), exporters)
	}
	if cfg.Observability.MetricInterval < 0 {
		return NewInvalidFieldError("observability.metricinterval", "must not be negative", nil)
	}
	return nil
}

func validateAPI(cfg *APIConfig) error {
	if cfg.BaseURL == "" {
		return NewMissingFieldError("api.baseurl")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewInvalidFieldError("api.baseurl", fmt.Sprintf("not an absolute http(s) url: %q", cfg.BaseURL), nil)
	}
	if cfg.Timeout <= 0 {
		return NewInvalidFieldError("api.timeout", "must be positive", nil)
	}
	if cfg.RetryAttempts < 0 || cfg.RetryAttempts > MaxRetryAttempts {
		return NewInvalidFieldError("api.retryattempts", fmt.Sprintf("must be between 0 and %d", MaxRetryAttempts), nil)
	}
	if cfg.RetryDelay < 0 || cfg.MaxRetryDelay < 0 {
		return NewInvalidFieldError("api.retrydelay", "delays must not be negative", nil)
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return NewInvalidFieldError("api.ratelimit", "must not be negative", nil)
	}
	if cfg.MaxPayloadLogBytes < 0 {
		return NewInvalidFieldError("api.maxpayloadlogbytes", "must not be negative", nil)
	}
	routes := []string{RoutesFunctions, RoutesREST}
	if !slices.Contains(routes, cfg.Routes) {
		return NewInvalidFieldError("api.routes", fmt.Sprintf("unknown route style %q", cfg.Routes), routes)
	}
	return nil
}

func validateSession(cfg *SessionConfig) error {
	backends := []string{BackendFile, BackendMemory, BackendRedis, BackendSQLite}
	if !slices.Contains(backends, cfg.Backend) {
		return NewInvalidFieldError("session.backend", fmt.Sprintf("unknown backend %q", cfg.Backend), backends)
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return NewMissingFieldError("session.key")
	}
	switch cfg.Backend {
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return NewMissingFieldError("session.redis.addr")
		}
	case BackendSQLite:
		if cfg.SQLite.Path == "" {
			return NewMissingFieldError("session.sqlite.path")
		}
	}
	return nil
}
