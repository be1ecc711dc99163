// Package config loads edgeboard's configuration.
//
// Precedence, lowest to highest: built-in defaults, the config file
// (~/.edgeboard/config.json or config.toml), a .env file, the process
// environment. Environment values are read once, at Load.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// fallbackPort is used when no usable API URL is configured.
const fallbackPort = 8000

// Config is the application configuration. It is built once in main and
// passed explicitly to the poller and the UI.
type Config struct {
	API  APIConfig  `json:"api" toml:"api"`
	Poll PollConfig `json:"poll" toml:"poll"`
	Beta BetaConfig `json:"beta" toml:"beta"`
	UI   UIConfig   `json:"ui" toml:"ui"`
}

// APIConfig describes how to reach the edges API.
type APIConfig struct {
	BaseURL   string   `json:"base_url" toml:"base_url"`
	Protocol  string   `json:"protocol" toml:"protocol"` // used by the fallback URL
	Hostname  string   `json:"hostname" toml:"hostname"` // used by the fallback URL
	Timeout   Duration `json:"timeout" toml:"timeout"`
	RateLimit float64  `json:"rate_limit" toml:"rate_limit"` // requests per second
	Burst     int      `json:"burst" toml:"burst"`
}

// PollConfig tunes the edges poller.
type PollConfig struct {
	Interval    Duration `json:"interval" toml:"interval"`
	RetryBudget int      `json:"retry_budget" toml:"retry_budget"`
	BackoffStep Duration `json:"backoff_step" toml:"backoff_step"` // delay after attempt n is n×BackoffStep
	Debounce    Duration `json:"debounce" toml:"debounce"`
}

// BetaConfig carries the beta-mode flags shown by the dashboard.
type BetaConfig struct {
	Enabled    bool   `json:"enabled" toml:"enabled"`
	Disclaimer string `json:"disclaimer" toml:"disclaimer"`
	Banner     string `json:"banner" toml:"banner"`
	ViewOnly   bool   `json:"view_only" toml:"view_only"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	ToastDuration Duration `json:"toast_duration" toml:"toast_duration"`
	Debug         bool     `json:"debug" toml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Protocol:  "http",
			Hostname:  "localhost",
			Timeout:   Duration(30 * time.Second),
			RateLimit: 2,
			Burst:     3,
		},
		Poll: PollConfig{
			Interval:    Duration(5 * time.Minute),
			RetryBudget: 3,
			BackoffStep: Duration(1500 * time.Millisecond),
			Debounce:    Duration(1500 * time.Millisecond),
		},
		Beta: BetaConfig{
			Banner: "Beta: recommendations are experimental and may be wrong.",
		},
		UI: UIConfig{
			ToastDuration: Duration(4 * time.Second),
		},
	}
}

// Dir returns ~/.edgeboard.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".edgeboard")
}

// Path returns the default config file path. config.json wins over
// config.toml when both exist.
func Path() string {
	jsonPath := filepath.Join(Dir(), "config.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	tomlPath := filepath.Join(Dir(), "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	return jsonPath
}

// LogDir returns the directory holding the text log.
func LogDir() string {
	return filepath.Join(Dir(), "logs")
}

// EventLogPath returns the JSONL event log written by the TUI.
func EventLogPath() string {
	return filepath.Join(Dir(), "edgeboard.events.jsonl")
}

// Options controls where Load looks.
type Options struct {
	File    string // config file; empty means Path()
	EnvFile string // dotenv file; empty means ".env"
}

// Load builds the configuration from defaults, file, .env and environment.
// A missing config file or .env file is not an error.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	file := opts.File
	if file == "" {
		file = Path()
	}
	if err := cfg.mergeFile(file); err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		dotenv = nil
	}

	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the config file at path onto c.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from EDGEBOARD_* variables looked up via lookup.
// Unparseable numeric or boolean values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = Duration(d)
			}
		}
	}

	str("EDGEBOARD_API_URL", &c.API.BaseURL)
	str("EDGEBOARD_PROTOCOL", &c.API.Protocol)
	str("EDGEBOARD_HOSTNAME", &c.API.Hostname)
	dur("EDGEBOARD_API_TIMEOUT", &c.API.Timeout)

	dur("EDGEBOARD_POLL_INTERVAL", &c.Poll.Interval)
	if v, ok := lookup("EDGEBOARD_RETRY_BUDGET"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Poll.RetryBudget = n
		}
	}

	boolean("EDGEBOARD_BETA_MODE", &c.Beta.Enabled)
	str("EDGEBOARD_BETA_DISCLAIMER", &c.Beta.Disclaimer)
	str("EDGEBOARD_BETA_BANNER", &c.Beta.Banner)
	boolean("EDGEBOARD_VIEW_ONLY", &c.Beta.ViewOnly)
	boolean("EDGEBOARD_DEBUG", &c.UI.Debug)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, errors.New("api.rate_limit must be positive"))
	}
	if c.API.Burst < 1 {
		errs = append(errs, errors.New("api.burst must be at least 1"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be positive"))
	}
	if c.Poll.RetryBudget < 1 {
		errs = append(errs, errors.New("poll.retry_budget must be at least 1"))
	}
	if c.Poll.BackoffStep < 0 {
		errs = append(errs, errors.New("poll.backoff_step must not be negative"))
	}
	if c.Poll.Debounce < 0 {
		errs = append(errs, errors.New("poll.debounce must not be negative"))
	}
	if c.UI.ToastDuration <= 0 {
		errs = append(errs, errors.New("ui.toast_duration must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ResolveBaseURL returns the API base URL without a trailing slash.
// When BaseURL is empty or its host is an unresolved placeholder, it falls
// back to {protocol}://{hostname}:8000.
func (a APIConfig) ResolveBaseURL() string {
	if raw := strings.TrimSpace(a.BaseURL); raw != "" && !placeholderHost(raw) {
		return strings.TrimRight(raw, "/")
	}
	protocol := strings.TrimSuffix(a.Protocol, ":")
	if protocol == "" {
		protocol = "http"
	}
	hostname := a.Hostname
	if hostname == "" {
		hostname = "localhost"
	}
	return fmt.Sprintf("%s://%s:%d", protocol, hostname, fallbackPort)
}

// placeholderTokens are host fragments that mark a URL copied from a
// template and never filled in.
var placeholderTokens = []string{
	"<", ">", "{", "}", "$", "__",
	"your-", "your_", "changeme", "placeholder", "example.invalid",
}

// placeholderHost reports whether raw has no usable host.
func placeholderHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return true
	}
	host := strings.ToLower(u.Host)
	for _, tok := range placeholderTokens {
		if strings.Contains(host, tok) {
			return true
		}
	}
	return false
}

// Duration is a time.Duration that reads and writes as a Go duration
// string ("5m", "1500ms") in both JSON and TOML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", b, err)
	}
	*d = Duration(parsed)
	return nil
}
