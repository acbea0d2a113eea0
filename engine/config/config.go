// Package config loads the renderer configuration from a TOML document.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level renderer configuration.
type Config struct {
	// Backend selects the renderer backend by name: one of the registered
	// backends such as "noop", "gl", "gles" or "webgl". An empty value lets
	// the registry pick the best available one.
	Backend string `toml:"backend"`
	// VSync synchronizes buffer swaps with the display refresh.
	VSync bool `toml:"vsync"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// ClearColor is the RGBA clear color applied at the start of each frame.
	ClearColor [4]float32 `toml:"clear_color"`

	Window WindowConfig `toml:"window"`
	Assets AssetsConfig `toml:"assets"`
	Limits LimitsConfig `toml:"limits"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type AssetsConfig struct {
	// Dir is the root directory watched for asset files.
	Dir string `toml:"dir"`
	// HotReload re-uploads textures when their source file changes on disk.
	HotReload bool `toml:"hot_reload"`
}

type LimitsConfig struct {
	// MaxTextureCount caps the texture handle table.
	MaxTextureCount uint32 `toml:"max_texture_count"`
	// MaxSpriteGroupCount caps the sprite group handle table.
	MaxSpriteGroupCount uint32 `toml:"max_sprite_group_count"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend:    "",
		VSync:      true,
		LogLevel:   "info",
		ClearColor: [4]float32{0, 0, 0, 1},
		Window: WindowConfig{
			Title:  "prism",
			Width:  1280,
			Height: 720,
		},
		Assets: AssetsConfig{
			Dir:       "assets",
			HotReload: false,
		},
		Limits: LimitsConfig{
			MaxTextureCount:     1024,
			MaxSpriteGroupCount: 256,
		},
	}
}

// Load reads a TOML configuration file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a TOML document on top of the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("config: window dimensions must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Limits.MaxTextureCount == 0 {
		return fmt.Errorf("config: max_texture_count must be > 0")
	}
	if c.Limits.MaxSpriteGroupCount == 0 {
		return fmt.Errorf("config: max_sprite_group_count must be > 0")
	}
	return nil
}
