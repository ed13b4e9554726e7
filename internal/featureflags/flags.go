// Package featureflags reads boolean toggles from FLAG_<NAME> environment variables.
package featureflags

import (
	"os"
	"strings"
)

// StrictProviderAuth turns on auth-shape rules for every cloud/product pair,
// not only aws/s3.
const StrictProviderAuth = "strict_provider_auth"

// known lists every flag the server reads, for startup logging
var known = []string{StrictProviderAuth}

// Enabled reports whether FLAG_<NAME> is set to 1, true, yes or on (any case).
func Enabled(name string) bool {
	return parse(os.Getenv(envName(name)))
}

// Snapshot returns the current value of every known flag.
func Snapshot() map[string]bool {
	out := make(map[string]bool, len(known))
	for _, name := range known {
		out[name] = Enabled(name)
	}
	return out
}

func envName(name string) string {
	return "FLAG_" + strings.ToUpper(name)
}

func parse(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
