package config

import "strings"

// Environment names.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Environments lists the known environment names.
func Environments() []string {
	return []string{EnvDevelopment, EnvStaging, EnvProduction}
}

// ResolveEnvironment picks the environment for a site host.
// Any host that is not local or a staging/dev host, including an empty one,
// is production.
func ResolveEnvironment(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	switch {
	case host == "localhost", host == "127.0.0.1":
		return EnvDevelopment
	case strings.Contains(host, "staging"), strings.Contains(host, "dev"):
		return EnvStaging
	default:
		return EnvProduction
	}
}
