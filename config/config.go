// Package config loads config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/logging"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
	"gopkg.in/yaml.v2"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "MFP_CONFIG"

// DefaultPath is resolved against the working directory.
const DefaultPath = "config.yaml"

type Config struct {
	Http struct {
		Port            int           `yaml:"port"`
		Timeout         time.Duration `yaml:"timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Artifacts struct {
		ModelPath  string `yaml:"model_path"`
		ScalerPath string `yaml:"scaler_path"`
		Watch      *bool  `yaml:"watch"`
	} `yaml:"artifacts"`
	Form struct {
		Variant ml.Variant `yaml:"variant"`
		// Layout is "sidebar" or "main"; empty picks the variant's own layout.
		Layout string `yaml:"layout"`
	} `yaml:"form"`
	Labels struct {
		Decode *bool          `yaml:"decode"`
		Names  map[int]string `yaml:"names"`
	} `yaml:"labels"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	UI struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
		Locale   string `yaml:"locale"`
	} `yaml:"ui"`
}

// Path returns the config file to read: $MFP_CONFIG, else config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8501
	}
	if c.Http.Timeout <= 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Http.ShutdownTimeout <= 0 {
		c.Http.ShutdownTimeout = 5 * time.Second
	}

	defaults := ml.DefaultArtifactConfig()
	if c.Artifacts.ModelPath == "" {
		c.Artifacts.ModelPath = defaults.ModelPath
	}
	if c.Artifacts.ScalerPath == "" {
		c.Artifacts.ScalerPath = defaults.ScalerPath
	}
	if c.Artifacts.Watch == nil {
		watch := true
		c.Artifacts.Watch = &watch
	}

	if c.Form.Variant == "" {
		c.Form.Variant = ml.VariantExtended
	}
	if c.Form.Layout == "" {
		c.Form.Layout = "sidebar"
		if c.Form.Variant == ml.VariantBasic {
			c.Form.Layout = "main"
		}
	}

	// The basic form shows raw model labels; the extended form decodes them.
	if c.Labels.Decode == nil {
		decode := c.Form.Variant != ml.VariantBasic
		c.Labels.Decode = &decode
	}
	if len(c.Labels.Names) == 0 {
		c.Labels.Names = ml.DefaultFailureLabels()
	}

	if c.Cache.Size < 0 {
		c.Cache.Size = 0
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}

	if c.UI.Title == "" {
		c.UI.Title = "Machine Predictive Maintenance App"
	}
	if c.UI.Subtitle == "" {
		c.UI.Subtitle = "Predict machine failure type using a trained ML model."
	}
	if c.UI.Locale == "" {
		c.UI.Locale = "en"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Http.Port < 1 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if _, err := ml.SchemaFor(c.Form.Variant); err != nil {
		return err
	}
	if c.Form.Layout != "sidebar" && c.Form.Layout != "main" {
		return fmt.Errorf("form.layout must be sidebar or main, got %q", c.Form.Layout)
	}
	if err := c.Logging().Validate(); err != nil {
		return err
	}
	return nil
}

// Schema returns the form schema for the configured variant.
func (c *Config) Schema() *ml.Schema {
	schema, err := ml.SchemaFor(c.Form.Variant)
	if err != nil {
		return ml.ExtendedSchema()
	}
	return schema
}

// ArtifactConfig maps the artifacts section onto the loader's config.
func (c *Config) ArtifactConfig() ml.ArtifactConfig {
	return ml.ArtifactConfig{
		ModelPath:  c.Artifacts.ModelPath,
		ScalerPath: c.Artifacts.ScalerPath,
	}
}

// LabelTable builds the label decoder from the labels section.
func (c *Config) LabelTable() *ml.LabelTable {
	return ml.NewLabelTable(*c.Labels.Decode, c.Labels.Names)
}

func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
