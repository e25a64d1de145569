package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete client configuration, loadable from environment
// variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	APIBaseURL    string        `usage:"Backend API base URL (STOREFRONT_API_BASE_URL or API_BASE_URL)" flag:"api-base-url"`
	StatePath     string        `usage:"Path of the persistent state file" flag:"state-path"`
	Currency      string        `default:"MXN" usage:"ISO 4217 display currency"`
	HTTPTimeout   time.Duration `default:"30s" usage:"Per-request HTTP timeout" flag:"http-timeout"`
	PollInterval  time.Duration `default:"2s" usage:"State file poll interval for cross-process changes" flag:"poll-interval"`
	PromoPackPath string        `default:"" usage:"Offline promo-code pack path (optional)" flag:"promo-pack"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API base URL is required: set STOREFRONT_API_BASE_URL or API_BASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps standard environment variable names to the
// STOREFRONT_-prefixed configuration and picks a per-user state location
// when none is set.
func (c *Config) applyPlatformDefaults() {
	if c.APIBaseURL == "" {
		if v := os.Getenv("API_BASE_URL"); v != "" {
			c.APIBaseURL = v
		}
	}
	if c.StatePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		c.StatePath = filepath.Join(dir, "storefront", "state.json")
	}
}
