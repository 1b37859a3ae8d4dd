package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prisma/engine/core"
)

// Config is the renderer configuration, loaded from a TOML file next to the
// binary. Every field has a working default so a missing file is not an error.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShaderConfig   `toml:"shaders"`
}

type WindowConfig struct {
	Title      string `toml:"title"`
	Width      uint32 `toml:"width"`
	Height     uint32 `toml:"height"`
	Fullscreen bool   `toml:"fullscreen"`
	Vsync      bool   `toml:"vsync"`
}

type RendererConfig struct {
	Debug bool `toml:"debug"`
	// EphemeralRingBufSize is the initial byte capacity of the per-frame
	// transient allocator. Undersizing it only costs a reallocation warning.
	EphemeralRingBufSize uint32 `toml:"ephemeral_ring_buf_size"`
	FramesInFlight       uint32 `toml:"frames_in_flight"`
}

type ShaderConfig struct {
	CacheDir  string `toml:"cache_dir"`
	SkipCache bool   `toml:"skip_cache"`
	Optimize  bool   `toml:"optimize"`
	// SourceDir is where GLSL sources and their includes are resolved from.
	SourceDir string `toml:"source_dir"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Prisma Demo",
			Width:  1280,
			Height: 720,
			Vsync:  true,
		},
		Renderer: RendererConfig{
			EphemeralRingBufSize: 1 * 1024 * 1024,
			FramesInFlight:       2,
		},
		Shaders: ShaderConfig{
			CacheDir:  "cache",
			SourceDir: "shaders",
			Optimize:  true,
		},
	}
}

// Load reads the configuration from path, falling back to defaults when the
// file does not exist. A present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogDebug("config %q not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}
