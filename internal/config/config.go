package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPipelineURL = "http://localhost:8010/pipeline"
	DefaultAddressURL  = "http://127.0.0.1:8000/api/addresses"
	DefaultDBPath      = "routedesk.db"
	DefaultLogDir      = "logs"
	DefaultConfigFile  = "routedesk.yaml"
)

// Config holds application configuration
type Config struct {
	PipelineURL string `yaml:"pipeline_url"` // Chatbot pipeline endpoint
	AddressURL  string `yaml:"address_url"`  // Base URL of the address optimization API
	DBPath      string `yaml:"db_path"`      // SQLite file backing the key-value store
	LogDir      string `yaml:"log_dir"`
	SessionID   string `yaml:"session_id"` // Overrides the stored chat session id
	Debug       bool   `yaml:"debug"`

	NewSession bool `yaml:"-"` // Mint a fresh session id instead of reusing the stored one
}

// Default returns the configuration used when no file or overrides are present
func Default() Config {
	return Config{
		PipelineURL: DefaultPipelineURL,
		AddressURL:  DefaultAddressURL,
		DBPath:      DefaultDBPath,
		LogDir:      DefaultLogDir,
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROUTEDESK_PIPELINE_URL"); v != "" {
		c.PipelineURL = v
	}
	if v := os.Getenv("ROUTEDESK_ADDRESS_URL"); v != "" {
		c.AddressURL = v
	}
	if v := os.Getenv("ROUTEDESK_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("ROUTEDESK_SESSION_ID"); v != "" {
		c.SessionID = v
	}
}

// fillDefaults restores defaults for fields a config file blanked out
func (c *Config) fillDefaults() {
	d := Default()
	if c.PipelineURL == "" {
		c.PipelineURL = d.PipelineURL
	}
	if c.AddressURL == "" {
		c.AddressURL = d.AddressURL
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogDir == "" {
		c.LogDir = d.LogDir
	}
}
