// Package config loads the server configuration from a JSON file and
// environment variables. The resulting Config is constructed once at
// startup and injected; nothing here is a process-wide mutable.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

const ServerVersion = "0.1.0"

// Config holds the application configuration.
type Config struct {
	APIServerAddress string `json:"api_listener"`
	DatabasePath     string `json:"database_path"`
	StoragePath      string `json:"storage_path"`
	JWTSigningKey    string `json:"jwt_signing_key"`
	TokenTTLMinutes  int    `json:"token_ttl_minutes"`
	ShutdownDelay    int    `json:"shutdown_delay_seconds"`
	ConfigFileUsed   string `json:"-"` // Not from config file, but tracked for info
}

// Default configuration values if not provided in file or env vars.
const (
	defaultAPIServerAddress = ":8080"
	defaultDatabasePath     = "./data/ext-market.db"
	defaultStoragePath      = "./data/artifacts"
	defaultTokenTTLMinutes  = 60
	defaultShutdownDelay    = 5
	configFileName          = "ext-market.config.json"
)

// Load reads the configuration from the JSON file (if present) and applies
// environment-variable overrides.
func Load() (*Config, error) {
	cfg := Default()
	configFilePath := configFilePathFromEnv()

	if err := loadConfigFile(cfg, configFilePath); err != nil {
		if !os.IsNotExist(err) { // Ignore file not found, use defaults or env vars
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg.ConfigFileUsed = configFilePath
	}

	applyEnvironmentVariables(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		APIServerAddress: defaultAPIServerAddress,
		DatabasePath:     defaultDatabasePath,
		StoragePath:      defaultStoragePath,
		TokenTTLMinutes:  defaultTokenTTLMinutes,
		ShutdownDelay:    defaultShutdownDelay,
	}
}

func configFilePathFromEnv() string {
	if envPath := os.Getenv("EXT_MARKET_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return configFileName
}

func loadConfigFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

func applyEnvironmentVariables(cfg *Config) {
	setIfEnvExists(&cfg.APIServerAddress, "EXT_MARKET_API_ADDRESS")
	setIfEnvExists(&cfg.DatabasePath, "EXT_MARKET_DATABASE_PATH")
	setIfEnvExists(&cfg.StoragePath, "EXT_MARKET_STORAGE_PATH")
	setIfEnvExists(&cfg.JWTSigningKey, "EXT_MARKET_JWT_KEY")
	setIntIfEnvExists(&cfg.TokenTTLMinutes, "EXT_MARKET_TOKEN_TTL_MINUTES")
	setIntIfEnvExists(&cfg.ShutdownDelay, "EXT_MARKET_SHUTDOWN_DELAY")
}

func setIfEnvExists(configValue *string, envName string) {
	if val := os.Getenv(envName); val != "" {
		*configValue = val
	}
}

func setIntIfEnvExists(configValue *int, envName string) {
	if val := os.Getenv(envName); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*configValue = n
		}
	}
}

func validate(cfg *Config) error {
	if cfg.APIServerAddress == "" {
		return fmt.Errorf("API listener address cannot be empty")
	}
	if cfg.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if cfg.StoragePath == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if cfg.JWTSigningKey == "" {
		return fmt.Errorf("JWT signing key must be configured")
	}
	if cfg.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if cfg.ShutdownDelay < 0 {
		return fmt.Errorf("shutdown delay must be non-negative")
	}
	return nil
}
