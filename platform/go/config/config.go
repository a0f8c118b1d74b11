package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the core needs from the environment. Values map
// 1:1 with env vars parsed by caarlos0/env.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL is the tenant-scoped Postgres connection the record store uses.
	DatabaseURL string `env:"DATABASE_URL,required"`
	// SchemaPrefix is prepended to tenant codes when deriving schema names.
	SchemaPrefix string `env:"SCHEMA_PREFIX" envDefault:""`
	// AllowedTenants is the static tenant allow-list.
	AllowedTenants []string `env:"ALLOWED_TENANTS" envSeparator:"," envDefault:"s22,big7"`
	// ValidateDebounce is the quiet window after the last edit before the
	// remote confirmation call is issued.
	ValidateDebounce time.Duration `env:"VALIDATE_DEBOUNCE" envDefault:"600ms"`

	// AuthBaseURL is the identity provider endpoint (password grant REST API).
	AuthBaseURL string `env:"AUTH_BASE_URL,required"`
	// AuthAPIKey is sent as the provider's apikey header when set.
	AuthAPIKey string `env:"AUTH_API_KEY"`
	// RPCBaseURL hosts the schema confirmation RPC; defaults to AuthBaseURL.
	RPCBaseURL string `env:"RPC_BASE_URL"`

	// SessionFile persists the identity session across process restarts.
	SessionFile string `env:"SESSION_FILE" envDefault:"~/.schemagate/session.json"`

	// StorageBucket is the fixed bucket profile images are uploaded to.
	StorageBucket string `env:"STORAGE_BUCKET" envDefault:"profile-images"`
	// StorageCredentialsFile optionally points at a service account JSON for GCS.
	StorageCredentialsFile string `env:"STORAGE_CREDENTIALS_FILE"`
}

// Load parses the environment and resolves derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if cfg.RPCBaseURL == "" {
		cfg.RPCBaseURL = cfg.AuthBaseURL
	}

	sessionFile, err := expandHome(cfg.SessionFile)
	if err != nil {
		return Config{}, fmt.Errorf("resolve session file: %w", err)
	}
	cfg.SessionFile = sessionFile

	return cfg, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
