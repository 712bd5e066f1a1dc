// Package config loads the YAML configuration, falling back to defaults when
// no file is given.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Preview describes the on-screen viewport the preview surface is fitted to.
// The box should be pre-sized to the page aspect ratio (1:1.414).
type Preview struct {
	BoxWidth   float64 `yaml:"boxWidth"`
	BoxHeight  float64 `yaml:"boxHeight"`
	PixelRatio float64 `yaml:"pixelRatio"`
}

// Debounce holds the quiet periods for coalescing rapid edits.
type Debounce struct {
	Validate Duration `yaml:"validate"`
	Preview  Duration `yaml:"preview"`
}

// Config is the program configuration.
type Config struct {
	// Listen is the resolver endpoint's bind address.
	Listen string `yaml:"listen"`
	// Database is the lookup store path.
	Database string `yaml:"database"`
	// Resolver is the base URL render-time resolution goes through.
	Resolver string `yaml:"resolver"`
	// HTTPTimeout bounds outbound resolution and image fetches.
	HTTPTimeout Duration `yaml:"httpTimeout"`

	Preview  Preview  `yaml:"preview"`
	Debounce Debounce `yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		Database:    "barcodes.db",
		Resolver:    "http://localhost:8080",
		HTTPTimeout: Duration(10 * time.Second),
		Preview: Preview{
			BoxWidth:   420,
			BoxHeight:  594,
			PixelRatio: 2,
		},
		Debounce: Debounce{
			Validate: Duration(500 * time.Millisecond),
			Preview:  Duration(300 * time.Millisecond),
		},
	}
}

// Load reads the configuration file at path; an empty path yields defaults.
// Missing keys keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	if cfg.Preview.PixelRatio <= 0 {
		cfg.Preview.PixelRatio = 1
	}
	return cfg, nil
}
