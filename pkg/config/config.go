package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Engine  EngineConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KASIRPOS_APP_ENV" default:"dev"`
	TerminalID   string `envconfig:"KASIRPOS_TERMINAL_ID" required:"true"`
	LogLevel     string `envconfig:"KASIRPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KASIRPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the engine at the retail backend.
type APIConfig struct {
	BaseURL        string        `envconfig:"KASIRPOS_API_BASE_URL" required:"true"`
	AuthToken      string        `envconfig:"KASIRPOS_API_AUTH_TOKEN"`
	RequestTimeout time.Duration `envconfig:"KASIRPOS_API_REQUEST_TIMEOUT" default:"10s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", EnvAPIBaseURL)
	}
	return nil
}

type EngineConfig struct {
	SearchDebounce    time.Duration `envconfig:"KASIRPOS_SEARCH_DEBOUNCE" default:"300ms"`
	SearchResultLimit int           `envconfig:"KASIRPOS_SEARCH_RESULT_LIMIT" default:"10"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"KASIRPOS_METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"KASIRPOS_METRICS_ADDR" default:":9123"`
}
