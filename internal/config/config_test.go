package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homebuddy/cropkit/pkg/codec"
	"github.com/homebuddy/cropkit/pkg/geometry"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	avatar, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "avatar", avatar.Name)
	assert.Equal(t, geometry.ZoomRange{Min: 0.5, Max: 3}, avatar.ZoomRange())
	ov, err := avatar.Overlay()
	require.NoError(t, err)
	assert.Equal(t, geometry.CircleOverlay(200), ov)

	banner, err := cfg.Profile("banner")
	require.NoError(t, err)
	assert.Equal(t, geometry.ZoomRange{Min: 0.2, Max: 5}, banner.ZoomRange())
	ov, err = banner.Overlay()
	require.NoError(t, err)
	assert.Equal(t, geometry.Rectangle, ov.Shape)
	assert.InDelta(t, 2.35, ov.AspectRatio, 1e-9)

	_, err = cfg.Profile("poster")
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Codec.Format = "webp"
	cfg.Framing.Backend = "saliency"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
codec:
  quality: 0.6
  format: png
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.6, cfg.Codec.Quality)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Len(t, cfg.Crop.Profiles, 2)
	assert.Equal(t, "_cropped", cfg.Codec.Suffix)

	opts, err := cfg.CodecOptions()
	require.NoError(t, err)
	assert.Equal(t, codec.Options{CompressQuality: 0.6, Format: codec.PNG}, opts)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codec: [1, 2"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no profiles":       func(c *Config) { c.Crop.Profiles = nil },
		"unnamed profile":   func(c *Config) { c.Crop.Profiles[0].Name = "" },
		"duplicate profile": func(c *Config) { c.Crop.Profiles[1].Name = "avatar" },
		"bad shape":         func(c *Config) { c.Crop.Profiles[0].Shape = "star" },
		"zero size":         func(c *Config) { c.Crop.Profiles[0].Size = 0 },
		"inverted zoom":     func(c *Config) { c.Crop.Profiles[1].ZoomMin = 6 },
		"missing default":   func(c *Config) { c.Crop.DefaultProfile = "poster" },
		"quality zero":      func(c *Config) { c.Codec.Quality = 0 },
		"quality high":      func(c *Config) { c.Codec.Quality = 1.5 },
		"bad format":        func(c *Config) { c.Codec.Format = "bmp" },
		"negative width":    func(c *Config) { c.Codec.MaxWidth = -1 },
		"bad timeout":       func(c *Config) { c.Codec.HTTPTimeout = "soon" },
		"bad backend":       func(c *Config) { c.Framing.Backend = "magic" },
		"ollama no model":   func(c *Config) { c.Framing.Backend = "ollama"; c.Framing.Model = "" },
		"bad confidence":    func(c *Config) { c.Framing.MinConfidence = 2 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCodecConfig(t *testing.T) {
	cfg := Default()
	cc, err := cfg.CodecConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cc.HTTPTimeout)
	assert.Equal(t, "./output", cc.OutputDir)
	assert.Equal(t, "cropkit/1.0", cc.UserAgent)

	cfg.Codec.HTTPTimeout = ""
	cc, err = cfg.CodecConfig()
	require.NoError(t, err)
	assert.Zero(t, cc.HTTPTimeout)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(GetConfigPath()))
}
