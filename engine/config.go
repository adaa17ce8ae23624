package engine

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pagecraft configuration.
type Config struct {
	Listen     string        `yaml:"listen"`
	TemplateDB string        `yaml:"template_db"`
	Browser    BrowserConfig `yaml:"browser"`
	Advice     AdviceConfig  `yaml:"advice"`

	// TemplateGlob switches URL matching from exact to glob patterns.
	TemplateGlob bool `yaml:"template_glob"`
}

// BrowserConfig controls the Chrome connection.
type BrowserConfig struct {
	Remote  string `yaml:"remote"` // DevTools URL; empty launches locally
	Headful bool   `yaml:"headful"`
	Stealth bool   `yaml:"stealth"`
}

// AdviceConfig configures the optional restructuring-advice service.
type AdviceConfig struct {
	APIKey  string `yaml:"api_key"` // falls back to OPENAI_API_KEY
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LoadDefaults returns the default configuration, for running without
// a config file.
func LoadDefaults() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8793"
	}
	if c.TemplateDB == "" {
		c.TemplateDB = "data/templates.db"
	}
	if c.Advice.Model == "" {
		c.Advice.Model = "gpt-4o-mini"
	}
}
