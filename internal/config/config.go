// Package config loads entraflow configuration from an optional YAML config
// file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"entraflow/pkg/logging"
)

const (
	userConfigDir  = ".config/entraflow"
	configFileName = "config.yaml"
)

// Defaults applied before the config file and environment are consulted.
const (
	DefaultTenantID    = "common"
	DefaultRedirectURI = "https://login.microsoftonline.com/common/oauth2/nativeclient"
	DefaultScope       = "https://graph.microsoft.com/.default"
	DefaultSessionDir  = ".sessions"
)

// Config holds everything the authentication flow needs. ClientID is the
// only required field; everything else has a usable default.
type Config struct {
	ClientID    string   `yaml:"clientID,omitempty"`
	TenantID    string   `yaml:"tenantID,omitempty"`
	RedirectURI string   `yaml:"redirectURI,omitempty"`
	Scopes      []string `yaml:"scopes,omitempty"`
	Headless    bool     `yaml:"headless,omitempty"`
	SessionDir  string   `yaml:"sessionDir,omitempty"`
}

// ConfigurationError indicates required configuration is missing. It is
// fatal and surfaced immediately; it never becomes an authentication
// failure result.
type ConfigurationError struct {
	Field string
	Env   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s (set %s)", e.Field, e.Env)
}

// GetDefaultConfigPathOrPanic returns ~/.config/entraflow.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

func defaultConfig() Config {
	return Config{
		TenantID:    DefaultTenantID,
		RedirectURI: DefaultRedirectURI,
		Scopes:      []string{DefaultScope},
		SessionDir:  DefaultSessionDir,
	}
}

// Load builds the effective configuration: defaults, then config.yaml from
// configPath (if present), then environment variable overrides. An optional
// envFile (.env format) is loaded into the environment first.
//
// Load does not require ClientID to be set; callers that start an
// authentication flow must call Validate.
func Load(configPath, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("error loading env file %s: %w", envFile, err)
		}
		logging.Debug("Config", "Loaded environment from %s", envFile)
	} else {
		// Default .env in the working directory, if one exists.
		_ = godotenv.Load()
	}

	cfg := defaultConfig()

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("Config", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the config. These use
// the same names as the Azure tooling this flow authenticates against.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AZURE_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("AZURE_TENANT_ID"); v != "" {
		cfg.TenantID = v
	}
	if v := os.Getenv("AZURE_REDIRECT_URI"); v != "" {
		cfg.RedirectURI = v
	}
	if v := os.Getenv("AZURE_SCOPES"); v != "" {
		var scopes []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		cfg.Scopes = scopes
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.Headless = true
		default:
			cfg.Headless = false
		}
	}
	if v := os.Getenv("SESSION_DIR"); v != "" {
		cfg.SessionDir = v
	}
}

// Validate checks that the configuration is sufficient to run an
// authentication flow.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return &ConfigurationError{Field: "clientID", Env: "AZURE_CLIENT_ID"}
	}
	return nil
}
