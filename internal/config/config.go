package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"UnlimitedChat/internal/locale"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto" // follow the terminal background

	DefaultBaseURL = "http://127.0.0.1:5000"
	DefaultTimeout = 120 * time.Second
	DefaultLogDir  = "logs"
)

// Config holds application configuration
type Config struct {
	BaseURL   string        // Root URL of the chat backend
	Timeout   time.Duration // Per-request timeout; a chat turn can take a while on CPU models
	Theme     string        // light, dark or auto
	Locale    string        // zh or en
	LogDir    string
	Debug     bool
	Plain     bool // Line-oriented console instead of the full-screen UI
	Telemetry bool // Export traces and metrics to files under LogDir
}

// Load reads configuration from the environment. Values are later
// overridden by command line flags.
func Load() (Config, error) {
	timeout, err := parseDurationEnv("UNLIMITED_CHAT_TIMEOUT", DefaultTimeout)
	if err != nil {
		return Config{}, err
	}

	debug, err := parseBoolEnv("DEBUG", false)
	if err != nil {
		return Config{}, err
	}

	telemetry, err := parseBoolEnv("UNLIMITED_CHAT_TELEMETRY", false)
	if err != nil {
		return Config{}, err
	}

	return Config{
		BaseURL:   getEnvOrDefault("UNLIMITED_CHAT_URL", DefaultBaseURL),
		Timeout:   timeout,
		Theme:     strings.ToLower(getEnvOrDefault("THEME", ThemeDark)),
		Locale:    getEnvOrDefault("UNLIMITED_CHAT_LOCALE", locale.Default),
		LogDir:    getEnvOrDefault("UNLIMITED_CHAT_LOG_DIR", DefaultLogDir),
		Debug:     debug,
		Telemetry: telemetry,
	}, nil
}

// Validate checks the values a flag or environment variable could have
// set to something unusable.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend URL %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend URL %q: missing host", c.BaseURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	switch c.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("unknown theme %q (light|dark|auto)", c.Theme)
	}

	if _, err := locale.Lookup(c.Locale); err != nil {
		return err
	}

	if strings.TrimSpace(c.LogDir) == "" {
		return fmt.Errorf("log directory cannot be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// Bare numbers are seconds.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
