// Package config loads viking.toml, the optional startup configuration.
package config

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

const DefaultPath = "viking.toml"

type ApplicationConfig struct {
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
}

// WindowConfig is the initial geometry used when the settings file has none.
type WindowConfig struct {
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	Validation bool `toml:"validation"`
	// MaxSamples caps the MSAA sample count. Powers of two from 1 to 64.
	MaxSamples uint32 `toml:"max_samples"`
}

type AssetsConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`

	ColorVertexShader      string `toml:"color_vertex_shader"`
	ColorFragmentShader    string `toml:"color_fragment_shader"`
	TexturedVertexShader   string `toml:"textured_vertex_shader"`
	TexturedFragmentShader string `toml:"textured_fragment_shader"`

	// Paths relative to Dir.
	Model   string `toml:"model"`
	Texture string `toml:"texture"`
}

type SettingsConfig struct {
	Path string `toml:"path"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Window      WindowConfig      `toml:"window"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetsConfig      `toml:"assets"`
	Settings    SettingsConfig    `toml:"settings"`
}

func Defaults() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Viking",
			LogLevel: "info",
		},
		Window: WindowConfig{
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			MaxSamples: 8,
		},
		Assets: AssetsConfig{
			Dir:                    "assets",
			ColorVertexShader:      "color.vert",
			ColorFragmentShader:    "color.frag",
			TexturedVertexShader:   "tex.vert",
			TexturedFragmentShader: "tex.frag",
			Model:                  "models/cube.obj",
			Texture:                "textures/checker.png",
		},
		Settings: SettingsConfig{
			Path: "settings.toml",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Keys that do not map to a field are rejected.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogDebug("no configuration at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open configuration")
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Wrapf(core.ErrInvalidConfig, "%s: %s", path, strict.String())
		}
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Wrapf(core.ErrInvalidConfig, format, args...)
	}

	if c.Application.Name == "" {
		return invalid("application.name is empty")
	}
	if _, err := log.ParseLevel(c.Application.LogLevel); err != nil {
		return invalid("application.log_level %q", c.Application.LogLevel)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return invalid("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if s := c.Renderer.MaxSamples; s == 0 || s > 64 || s&(s-1) != 0 {
		return invalid("renderer.max_samples %d is not a power of two up to 64", s)
	}
	if c.Assets.Dir == "" {
		return invalid("assets.dir is empty")
	}
	for key, value := range map[string]string{
		"assets.color_vertex_shader":      c.Assets.ColorVertexShader,
		"assets.color_fragment_shader":    c.Assets.ColorFragmentShader,
		"assets.textured_vertex_shader":   c.Assets.TexturedVertexShader,
		"assets.textured_fragment_shader": c.Assets.TexturedFragmentShader,
		"assets.model":                    c.Assets.Model,
		"assets.texture":                  c.Assets.Texture,
	} {
		if value == "" {
			return invalid("%s is empty", key)
		}
	}
	if c.Settings.Path == "" {
		return invalid("settings.path is empty")
	}
	return nil
}
