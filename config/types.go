package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the complete client configuration.
// The embedded koanf instance keeps custom keys reachable through the accessors.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	API           APIConfig           `koanf:"api" json:"api" yaml:"api"`
	Session       SessionConfig       `koanf:"session" json:"session" yaml:"session"`
	Navigation    NavigationConfig    `koanf:"navigation" json:"navigation" yaml:"navigation"`
	Checkout      CheckoutConfig      `koanf:"checkout" json:"checkout" yaml:"checkout"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig identifies the deployment the client talks to.
type AppConfig struct {
	Name string `koanf:"name" json:"name" yaml:"name"`
	// Env is one of development, staging or production. When empty it is derived from Host.
	Env string `koanf:"env" json:"env" yaml:"env"`
	// Host is the site host name the client acts on behalf of (e.g. app.giihelpdesk.com).
	Host string `koanf:"host" json:"host" yaml:"host"`
}

// APIConfig holds the request parameters of the account API.
// It is read once at startup and never changes for the lifetime of a client.
type APIConfig struct {
	BaseURL       string        `koanf:"baseurl" json:"baseurl" yaml:"baseurl"`
	Timeout       time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	RetryAttempts int           `koanf:"retryattempts" json:"retryattempts" yaml:"retryattempts"`
	RetryDelay    time.Duration `koanf:"retrydelay" json:"retrydelay" yaml:"retrydelay"`
	// MaxRetryDelay caps the backoff delay; zero leaves it uncapped.
	MaxRetryDelay time.Duration `koanf:"maxretrydelay" json:"maxretrydelay" yaml:"maxretrydelay"`
	// RateLimit is the outbound requests-per-second budget; zero disables the limiter.
	RateLimit float64 `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	RateBurst int     `koanf:"rateburst" json:"rateburst" yaml:"rateburst"`
	// Routes selects the endpoint naming style: "functions" or "rest".
	Routes      string `koanf:"routes" json:"routes" yaml:"routes"`
	LogPayloads bool   `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads"`
	// MaxPayloadLogBytes caps body previews when LogPayloads is on.
	MaxPayloadLogBytes int `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes"`
	// RequestIDHeader names the correlation header sent with every call.
	RequestIDHeader string `koanf:"requestidheader" json:"requestidheader" yaml:"requestidheader"`
}

// SessionConfig selects where the Session record is persisted.
type SessionConfig struct {
	Backend string       `koanf:"backend" json:"backend" yaml:"backend"`
	Key     string       `koanf:"key" json:"key" yaml:"key"`
	File    FileConfig   `koanf:"file" json:"file" yaml:"file"`
	Redis   RedisConfig  `koanf:"redis" json:"redis" yaml:"redis"`
	SQLite  SQLiteConfig `koanf:"sqlite" json:"sqlite" yaml:"sqlite"`
}

// FileConfig configures the JSON file backend. An empty Path resolves under the user config dir.
type FileConfig struct {
	Path string `koanf:"path" json:"path" yaml:"path"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `koanf:"addr" json:"addr" yaml:"addr"`
	Password string `koanf:"password" json:"-" yaml:"password"`
	DB       int    `koanf:"db" json:"db" yaml:"db"`
	Prefix   string `koanf:"prefix" json:"prefix" yaml:"prefix"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `koanf:"path" json:"path" yaml:"path"`
}

// NavigationConfig describes the protected area and where a forced sign-out lands.
type NavigationConfig struct {
	ProtectedPrefix string `koanf:"protectedprefix" json:"protectedprefix" yaml:"protectedprefix"`
	LoginPath       string `koanf:"loginpath" json:"loginpath" yaml:"loginpath"`
}

// CheckoutConfig holds the Paddle checkout identifiers.
type CheckoutConfig struct {
	VendorID    string            `koanf:"vendorid" json:"vendorid" yaml:"vendorid"`
	Environment string            `koanf:"environment" json:"environment" yaml:"environment"`
	ClientToken string            `koanf:"clienttoken" json:"-" yaml:"clienttoken"`
	Products    map[string]string `koanf:"products" json:"products" yaml:"products"`
	SuccessURL  string            `koanf:"successurl" json:"successurl" yaml:"successurl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// ObservabilityConfig selects the span and metric exporter.
type ObservabilityConfig struct {
	Exporter string `koanf:"exporter" json:"exporter" yaml:"exporter"`
	// Endpoint is the OTLP/HTTP collector, either host:port or a base URL.
	Endpoint    string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	ServiceName string `koanf:"servicename" json:"servicename" yaml:"servicename"`
	// MetricInterval is the export period of the metric reader; pending
	// metrics are always exported on shutdown.
	MetricInterval time.Duration `koanf:"metricinterval" json:"metricinterval" yaml:"metricinterval"`
}
