package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// HELPDESK_API_BASEURL maps to the api.baseurl key.
const EnvPrefix = "HELPDESK_"

const (
	defaultConfigFile = "config.yaml"
	defaultDotEnvFile = ".env"
)

//go:embed profiles.yaml
var profilesYAML []byte

type loadOptions struct {
	file        string
	dotenv      string
	environment string
	host        string
	environ     func() []string
}

// Option customizes Load.
type Option func(*loadOptions)

// WithFile sets the base YAML file. Missing files are skipped.
func WithFile(path string) Option {
	return func(o *loadOptions) { o.file = path }
}

// WithDotEnv sets the .env file merged below the process environment.
// An empty path disables .env loading.
func WithDotEnv(path string) Option {
	return func(o *loadOptions) { o.dotenv = path }
}

// WithEnvironment forces the environment name, bypassing host detection.
func WithEnvironment(env string) Option {
	return func(o *loadOptions) { o.environment = env }
}

// WithHost sets the site host used for environment detection.
func WithHost(host string) Option {
	return func(o *loadOptions) { o.host = host }
}

// WithEnviron replaces os.Environ as the environment variable source.
func WithEnviron(fn func() []string) Option {
	return func(o *loadOptions) { o.environ = fn }
}

// Load builds the configuration from, in increasing priority:
// defaults, the environment profile, config.yaml, config.<env>.yaml,
// the .env file and HELPDESK_* environment variables.
// Command-line overrides passed through WithEnvironment and WithHost win over all of them.
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{
		file:    defaultConfigFile,
		dotenv:  defaultDotEnvFile,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(&o)
	}

	environ, err := mergedEnviron(o)
	if err != nil {
		return nil, err
	}

	// First pass: find out which environment we are in.
	first := koanf.New(".")
	if err := loadSources(first, o, environ, ""); err != nil {
		return nil, err
	}
	applyOverrides(first, o)

	env := first.String("app.env")
	if env == "" {
		env = ResolveEnvironment(first.String("app.host"))
	}

	// Second pass: the real load with the profile of that environment.
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := loadProfile(k, env); err != nil {
		return nil, err
	}
	if err := loadSources(k, o, environ, env); err != nil {
		return nil, err
	}
	applyOverrides(k, o)
	if err := k.Set("app.env", env); err != nil {
		return nil, fmt.Errorf("failed to set app.env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name": "helpdesk-client",
		"app.host": "",

		"api.maxretrydelay":      "0s",
		"api.ratelimit":          0,
		"api.rateburst":          1,
		"api.routes":             RoutesFunctions,
		"api.logpayloads":        false,
		"api.maxpayloadlogbytes": 1024,
		"api.requestidheader":    "X-Request-ID",

		"session.backend":      BackendFile,
		"session.key":          "user",
		"session.file.path":    "",
		"session.redis.addr":   "localhost:6379",
		"session.redis.db":     0,
		"session.redis.prefix": "helpdesk:",
		"session.sqlite.path":  "helpdesk.db",

		"navigation.protectedprefix": "/account/",
		"navigation.loginpath":       "/auth/login.html",

		"checkout.vendorid":       "37642",
		"checkout.environment":    "sandbox",
		"checkout.products.free":  "FREE_PRODUCT_ID",
		"checkout.products.pro":   "pro_01k4kjp0jmd33g5jek3xk28esp",
		"checkout.products.team":  "TEAM_PRODUCT_ID",
		"checkout.successurl":     "",

		"log.level":  "info",
		"log.pretty": false,

		"observability.exporter":       ExporterNone,
		"observability.endpoint":       "",
		"observability.servicename":    "helpdesk-client",
		"observability.metricinterval": "30s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func loadProfile(k *koanf.Koanf, env string) error {
	profiles := koanf.New(".")
	if err := profiles.Load(rawbytes.Provider(profilesYAML), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse environment profiles: %w", err)
	}
	key := "profiles." + env
	if !profiles.Exists(key) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("no profile for environment %q", env), Environments())
	}
	if err := k.Merge(profiles.Cut(key)); err != nil {
		return fmt.Errorf("failed to apply %s profile: %w", env, err)
	}
	return nil
}

// loadSources layers the YAML files and environment variables onto k.
// The environment specific file is only read once env is known.
func loadSources(k *koanf.Koanf, o loadOptions, environ []string, env string) error {
	if err := loadOptionalFile(k, o.file); err != nil {
		return err
	}
	if env != "" && o.file != "" {
		if err := loadOptionalFile(k, envFileName(o.file, env)); err != nil {
			return err
		}
	}

	provider := envprovider.Provider(".", envprovider.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
		EnvironFunc: func() []string { return environ },
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func applyOverrides(k *koanf.Koanf, o loadOptions) {
	if o.host != "" {
		_ = k.Set("app.host", o.host)
	}
	if o.environment != "" {
		_ = k.Set("app.env", strings.ToLower(o.environment))
	}
}

// mergedEnviron returns the .env entries followed by the process
// environment so real variables win over the file.
func mergedEnviron(o loadOptions) ([]string, error) {
	var environ []string
	if o.dotenv != "" {
		values, err := godotenv.Read(o.dotenv)
		switch {
		case err == nil:
			for key, value := range values {
				environ = append(environ, key+"="+value)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", o.dotenv, err)
		}
	}
	if o.environ != nil {
		environ = append(environ, o.environ()...)
	}
	return environ, nil
}

// envKey converts HELPDESK_SESSION_REDIS_ADDR to session.redis.addr.
func envKey(name string) string {
	name = strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "_", ".")
}

// envFileName turns config.yaml into config.<env>.yaml.
func envFileName(base, env string) string {
	ext := ".yaml"
	if strings.HasSuffix(base, ".yml") {
		ext = ".yml"
	}
	return strings.TrimSuffix(base, ext) + "." + env + ext
}

// All returns every resolved key, for display.
func (c *Config) All() map[string]any {
	if c.k == nil {
		return map[string]any{}
	}
	return c.k.All()
}

// String returns the raw value of key, including keys the struct does not model.
func (c *Config) String(key string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(key)
}
