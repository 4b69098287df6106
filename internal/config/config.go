package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/homebuddy/cropkit/pkg/codec"
	"github.com/homebuddy/cropkit/pkg/geometry"
)

// Config holds the application configuration
type Config struct {
	Crop    CropConfig    `yaml:"crop"`
	Codec   CodecConfig   `yaml:"codec"`
	Framing FramingConfig `yaml:"framing"`
	Logging LoggingConfig `yaml:"logging"`
}

// CropConfig holds the crop profiles offered to callers
type CropConfig struct {
	DefaultProfile string    `yaml:"default_profile"`
	Profiles       []Profile `yaml:"profiles"`
}

// Profile is one crop target: an overlay and the zoom range that goes with it
type Profile struct {
	Name         string  `yaml:"name"`
	Shape        string  `yaml:"shape"` // circle, square or rectangle
	Size         float64 `yaml:"size,omitempty"`
	AspectRatio  float64 `yaml:"aspect_ratio,omitempty"`
	FillFraction float64 `yaml:"fill_fraction,omitempty"`
	ZoomMin      float64 `yaml:"zoom_min"`
	ZoomMax      float64 `yaml:"zoom_max"`
}

// CodecConfig holds configuration for the crop encode step
type CodecConfig struct {
	Quality     float64 `yaml:"quality"` // compress quality in (0,1]
	Format      string  `yaml:"format"`
	MaxWidth    int     `yaml:"max_width"`
	OutputDir   string  `yaml:"output_dir"`
	Prefix      string  `yaml:"prefix"`
	Suffix      string  `yaml:"suffix"`
	HTTPTimeout string  `yaml:"http_timeout"`
	UserAgent   string  `yaml:"user_agent"`
}

// FramingConfig selects how an initial pan/zoom is suggested
type FramingConfig struct {
	Backend       string  `yaml:"backend"` // none, saliency or ollama
	URL           string  `yaml:"url"`
	Model         string  `yaml:"model"`
	SendSize      int     `yaml:"send_size"`
	SendQuality   int     `yaml:"send_quality"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Crop: CropConfig{
			DefaultProfile: "avatar",
			Profiles: []Profile{
				{Name: "avatar", Shape: "circle", Size: 200, ZoomMin: 0.5, ZoomMax: 3.0},
				{Name: "banner", Shape: "rectangle", AspectRatio: 470.0 / 200.0, FillFraction: 0.9, ZoomMin: 0.2, ZoomMax: 5.0},
			},
		},
		Codec: CodecConfig{
			Quality:     0.8,
			Format:      "jpeg",
			MaxWidth:    0,
			OutputDir:   "./output",
			Suffix:      "_cropped",
			HTTPTimeout: "30s",
			UserAgent:   "cropkit/1.0",
		},
		Framing: FramingConfig{
			Backend:       "none",
			URL:           "http://localhost:11434",
			Model:         "llava",
			SendSize:      768,
			SendQuality:   85,
			MinConfidence: 0.3,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Crop.Profiles) == 0 {
		return fmt.Errorf("crop.profiles cannot be empty")
	}
	seen := map[string]bool{}
	for i, p := range c.Crop.Profiles {
		if p.Name == "" {
			return fmt.Errorf("crop.profiles[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("crop.profiles[%d]: duplicate profile %q", i, p.Name)
		}
		seen[p.Name] = true
		if _, err := p.Overlay(); err != nil {
			return fmt.Errorf("crop.profiles[%d] (%s): %w", i, p.Name, err)
		}
		if err := p.ZoomRange().Validate(); err != nil {
			return fmt.Errorf("crop.profiles[%d] (%s): %w", i, p.Name, err)
		}
	}
	if c.Crop.DefaultProfile != "" && !seen[c.Crop.DefaultProfile] {
		return fmt.Errorf("crop.default_profile %q is not a defined profile", c.Crop.DefaultProfile)
	}

	if c.Codec.Quality <= 0 || c.Codec.Quality > 1 {
		return fmt.Errorf("codec.quality must be in (0,1]")
	}
	if _, err := codec.ParseFormat(c.Codec.Format); err != nil {
		return fmt.Errorf("codec.format: %w", err)
	}
	if c.Codec.MaxWidth < 0 {
		return fmt.Errorf("codec.max_width cannot be negative")
	}
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}

	switch c.Framing.Backend {
	case "", "none", "saliency":
	case "ollama":
		if c.Framing.URL == "" || c.Framing.Model == "" {
			return fmt.Errorf("framing.url and framing.model are required for the ollama backend")
		}
	default:
		return fmt.Errorf("framing.backend must be none, saliency or ollama")
	}
	if c.Framing.MinConfidence < 0 || c.Framing.MinConfidence > 1 {
		return fmt.Errorf("framing.min_confidence must be between 0 and 1")
	}

	return nil
}

// Profile returns the named crop profile; an empty name selects the default profile
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.Crop.DefaultProfile
	}
	for _, p := range c.Crop.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown crop profile %q", name)
}

// Overlay converts the profile into an overlay spec
func (p Profile) Overlay() (geometry.OverlaySpec, error) {
	shape, err := geometry.ParseShape(p.Shape)
	if err != nil {
		return geometry.OverlaySpec{}, err
	}
	o := geometry.OverlaySpec{
		Shape:        shape,
		Size:         p.Size,
		AspectRatio:  p.AspectRatio,
		FillFraction: p.FillFraction,
	}
	if err := o.Validate(); err != nil {
		return geometry.OverlaySpec{}, err
	}
	return o, nil
}

// ZoomRange returns the profile's scale bounds
func (p Profile) ZoomRange() geometry.ZoomRange {
	return geometry.ZoomRange{Min: p.ZoomMin, Max: p.ZoomMax}
}

// HTTPTimeout parses codec.http_timeout; empty means the codec default
func (c *Config) HTTPTimeout() (time.Duration, error) {
	if c.Codec.HTTPTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Codec.HTTPTimeout)
	if err != nil {
		return 0, fmt.Errorf("codec.http_timeout: %w", err)
	}
	return d, nil
}

// CodecConfig converts the codec section into codec.Config
func (c *Config) CodecConfig() (codec.Config, error) {
	timeout, err := c.HTTPTimeout()
	if err != nil {
		return codec.Config{}, err
	}
	return codec.Config{
		OutputDir:   c.Codec.OutputDir,
		Prefix:      c.Codec.Prefix,
		Suffix:      c.Codec.Suffix,
		HTTPTimeout: timeout,
		UserAgent:   c.Codec.UserAgent,
	}, nil
}

// CodecOptions converts the codec section into encode options
func (c *Config) CodecOptions() (codec.Options, error) {
	format, err := codec.ParseFormat(c.Codec.Format)
	if err != nil {
		return codec.Options{}, err
	}
	return codec.Options{
		CompressQuality: c.Codec.Quality,
		Format:          format,
		MaxWidth:        c.Codec.MaxWidth,
	}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./cropkit.yaml"
	}
	return filepath.Join(home, ".config", "cropkit", "config.yaml")
}
