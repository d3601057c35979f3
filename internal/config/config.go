package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	// RemoteDatabase points at the shared record store both apps sync
	// through. It is a separate Postgres database, typically on a different
	// host than the local store.
	RemoteDatabase struct {
		Host     string `yaml:"host" env:"REMOTE_DB_HOST"`
		Port     string `yaml:"port" env:"REMOTE_DB_PORT"`
		User     string `yaml:"user" env:"REMOTE_DB_USER"`
		Password string `yaml:"password" env:"REMOTE_DB_PASSWORD"`
		DBName   string `yaml:"dbname" env:"REMOTE_DB_NAME"`
		SSLMode  string `yaml:"sslmode" env:"REMOTE_DB_SSLMODE"`
	} `yaml:"remote_database"`

	Sync struct {
		ZonePrefix          string `yaml:"zone_prefix" env:"SYNC_ZONE_PREFIX"`
		ReplayInterval      string `yaml:"replay_interval" env:"SYNC_REPLAY_INTERVAL"`
		CompletedOpTTL      string `yaml:"completed_op_ttl" env:"SYNC_COMPLETED_OP_TTL"`
		ProbeInterval       string `yaml:"probe_interval" env:"SYNC_PROBE_INTERVAL"`
		WriteQueueBuffer    int    `yaml:"write_queue_buffer" env:"SYNC_WRITE_QUEUE_BUFFER"`
		IntegrityOnStartup  bool   `yaml:"integrity_on_startup" env:"SYNC_INTEGRITY_ON_STARTUP"`
	} `yaml:"sync"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		// Read file
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML into Config structure
		err = yaml.Unmarshal(file, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	err := loadFromEnv(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	// Database defaults
	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "rightrudder"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	// Remote store defaults
	config.RemoteDatabase.Host = "localhost"
	config.RemoteDatabase.Port = "5432"
	config.RemoteDatabase.User = "postgres"
	config.RemoteDatabase.Password = "postgres"
	config.RemoteDatabase.DBName = "rightrudder_remote"
	config.RemoteDatabase.SSLMode = "disable"

	// Sync defaults
	config.Sync.ZonePrefix = "student-"
	config.Sync.ReplayInterval = "5m"
	config.Sync.CompletedOpTTL = "168h"
	config.Sync.ProbeInterval = "30s"
	config.Sync.WriteQueueBuffer = 256
	config.Sync.IntegrityOnStartup = true

	// JWT defaults
	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.Issuer = "rightrudder.app"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return applyEnvOverrides(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	// Ensure required fields are set
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	// Validate JWT expiration format
	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	// Validate sync durations
	if _, err := time.ParseDuration(config.Sync.ReplayInterval); err != nil {
		return fmt.Errorf("invalid sync replay interval format: %w", err)
	}
	if _, err := time.ParseDuration(config.Sync.CompletedOpTTL); err != nil {
		return fmt.Errorf("invalid completed operation TTL format: %w", err)
	}
	if _, err := time.ParseDuration(config.Sync.ProbeInterval); err != nil {
		return fmt.Errorf("invalid connectivity probe interval format: %w", err)
	}

	return nil
}

// GetPostgresConnectionString returns the local store connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetRemoteConnectionString returns the shared remote store connection string
func (c *Config) GetRemoteConnectionString() string {
	sslMode := c.RemoteDatabase.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.RemoteDatabase.User,
		c.RemoteDatabase.Password,
		c.RemoteDatabase.Host,
		c.RemoteDatabase.Port,
		c.RemoteDatabase.DBName,
		sslMode,
	)
}

// ReplayInterval returns the parsed offline replay interval
func (c *Config) ReplayInterval() time.Duration {
	d, _ := time.ParseDuration(c.Sync.ReplayInterval)
	return d
}

// CompletedOpTTL returns the parsed completed operation retention window
func (c *Config) CompletedOpTTL() time.Duration {
	d, _ := time.ParseDuration(c.Sync.CompletedOpTTL)
	return d
}

// ProbeInterval returns the parsed connectivity probe interval
func (c *Config) ProbeInterval() time.Duration {
	d, _ := time.ParseDuration(c.Sync.ProbeInterval)
	return d
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool gets an environment variable as a boolean or returns a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	// Convert string to lowercase for checking
	valueLower := strings.ToLower(valueStr)
	if valueLower == "true" || valueLower == "1" || valueLower == "yes" {
		return true
	}
	if valueLower == "false" || valueLower == "0" || valueLower == "no" {
		return false
	}

	return defaultValue
}

// GetEnvAsDuration gets an environment variable as a duration or returns a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
