package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the application configuration.
type Config struct {
	DBPath         string
	LogLevel       string
	GlobalMailPath string

	// Notification poller settings.
	PollUserID   string
	PollFolder   string
	PollInterval time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBPath:         getEnv("MAILROOM_DB_PATH", "/data/mailroom.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		GlobalMailPath: getEnv("MAIL_SERVICE_CONFIG", ""),
		PollUserID:     getEnv("POLL_USER_ID", ""),
		PollFolder:     getEnv("POLL_FOLDER", "INBOX"),
		PollInterval:   time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 60)) * time.Second,
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("MAILROOM_DB_PATH is required")
	}

	return cfg, nil
}

// GlobalMailConfig is the organization-wide mail-service configuration,
// loaded from a YAML file. It is one branch of the credential precedence
// chain used when a user has no mailbox of their own configured.
type GlobalMailConfig struct {
	Host string `yaml:"host"`
	Auth struct {
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
	} `yaml:"auth"`
	Enabled bool `yaml:"enabled"`
}

// LoadGlobalMailConfig reads the global mail-service configuration from
// the given path, or from a set of default locations when path is empty.
// A missing file is not an error; it yields a nil config.
func LoadGlobalMailConfig(path string) (*GlobalMailConfig, error) {
	paths := []string{path}
	if path == "" {
		paths = []string{
			"/etc/mailroom/mailservice.yaml",
			"./config/mailservice.yaml",
			"./mailservice.yaml",
		}
	}

	var data []byte
	var err error
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err = os.ReadFile(filepath.Clean(p))
		if err == nil {
			break
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mail service config: %w", err)
	}

	var cfg GlobalMailConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse mail service config: %w", err)
	}

	return &cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
