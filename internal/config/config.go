package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingConfig is returned when no host configuration was provided at all.
	ErrMissingConfig = errors.New("config: missing RAVEN_CONFIG (set RAVEN_CONFIG or RAVEN_BUSINESS_ID/RAVEN_API_URL)")

	// ErrMissingBusinessID is returned when the host config has no business id.
	ErrMissingBusinessID = errors.New("config: missing businessId in RAVEN_CONFIG")

	// ErrMissingAPIURL is returned when the host config has no api url.
	ErrMissingAPIURL = errors.New("config: missing apiUrl in RAVEN_CONFIG")
)

// HostConfig is the object the embedding host provides before the widget starts.
type HostConfig struct {
	BusinessID string `json:"businessId"`
	APIURL     string `json:"apiUrl"`
}

// Config holds widget configuration
type Config struct {
	Host HostConfig

	// HostProvided is false when neither RAVEN_CONFIG nor the individual
	// host variables were set.
	HostProvided bool

	Env       string
	LogLevel  string
	LogFormat string
	LogFile   string
	Locale    string

	StorageBackend string
	StoragePath    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	RedisKeyPrefix string
	DatabaseURL    string

	SendTimeout     time.Duration
	RequestTimeout  time.Duration
	EndOverlayDelay time.Duration

	MetricsAddr string

	MockAPIPort        string
	MockAPIReplyDelay  time.Duration
	MockAPICORSOrigins []string
	MockAPIChatRate    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	host, provided, err := loadHostConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Host:         host,
		HostProvided: provided,

		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),
		Locale:    detectLocale(),

		StorageBackend: strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", "sqlite"))),
		StoragePath:    getEnv("STORAGE_PATH", defaultStoragePath()),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "raven:"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		SendTimeout:     getEnvAsDuration("SEND_TIMEOUT", 30*time.Second),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		EndOverlayDelay: getEnvAsDuration("END_OVERLAY_DELAY", 1500*time.Millisecond),

		MetricsAddr: getEnv("METRICS_ADDR", ""),

		MockAPIPort:        getEnv("MOCKAPI_PORT", "8081"),
		MockAPIReplyDelay:  getEnvAsDuration("MOCKAPI_REPLY_DELAY", 0),
		MockAPICORSOrigins: getEnvAsList("MOCKAPI_CORS_ORIGINS"),
		MockAPIChatRate:    getEnvAsInt("MOCKAPI_CHAT_RATE_PER_MINUTE", 0),
	}, nil
}

// Validate enforces the embedding contract: both host fields are required.
func (c *Config) Validate() error {
	if !c.HostProvided && c.Host.BusinessID == "" && c.Host.APIURL == "" {
		return ErrMissingConfig
	}
	if strings.TrimSpace(c.Host.BusinessID) == "" {
		return ErrMissingBusinessID
	}
	if strings.TrimSpace(c.Host.APIURL) == "" {
		return ErrMissingAPIURL
	}
	return nil
}

func loadHostConfig() (HostConfig, bool, error) {
	var host HostConfig
	provided := false
	if raw := strings.TrimSpace(os.Getenv("RAVEN_CONFIG")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &host); err != nil {
			return HostConfig{}, false, fmt.Errorf("config: decode RAVEN_CONFIG: %w", err)
		}
		provided = true
	}
	if v := getEnv("RAVEN_BUSINESS_ID", ""); v != "" {
		host.BusinessID = v
		provided = true
	}
	if v := getEnv("RAVEN_API_URL", ""); v != "" {
		host.APIURL = v
		provided = true
	}
	host.BusinessID = strings.TrimSpace(host.BusinessID)
	host.APIURL = strings.TrimRight(strings.TrimSpace(host.APIURL), "/")
	return host, provided, nil
}

// detectLocale follows the POSIX precedence for the message locale.
func detectLocale() string {
	for _, key := range []string{"RAVEN_LOCALE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "raven-widget.db"
	}
	return filepath.Join(home, ".raven", "widget.db")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
