package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models triagekit.yml.
type Config struct {
	Engine struct {
		DefaultTeam string `yaml:"default_team"`
		Customer    string `yaml:"customer"`
		Seed        int64  `yaml:"seed"`
	} `yaml:"engine"`
	Classifier struct {
		ModelPath string `yaml:"model_path"`
	} `yaml:"classifier"`
	Store struct {
		Workspace string `yaml:"workspace"`
	} `yaml:"store"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tk init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Engine.DefaultTeam == "" {
		return fmt.Errorf("config.engine.default_team is required")
	}
	if c.Engine.Customer == "" {
		return fmt.Errorf("config.engine.customer is required")
	}
	if c.Engine.Seed < 0 {
		return fmt.Errorf("config.engine.seed must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with '/'")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "triagekit.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `engine:
  # Team used when neither the model nor the keyword tables can route.
  default_team: ECCLSPassiveMonitorTraining
  customer: Internal Services
  # 0 means a fresh random seed per run.
  seed: 0

classifier:
  # Path to a linear model artifact (JSON). Empty disables model routing.
  model_path: ""

store:
  workspace: "."

server:
  addr: ":8080"
  base_path: /v0
  # Empty disables bearer auth.
  jwt_secret: ""
`
