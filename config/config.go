// Package config loads the TOML settings of a xeogl application.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"xeogl/renderer"
)

// Window configures the glfw window of the demo.
type Window struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	Resizable  bool   `toml:"resizable"`
	VSync      bool   `toml:"vsync"`
	Fullscreen bool   `toml:"fullscreen"`
}

func DefaultWindow() Window {
	return Window{
		Width:     1280,
		Height:    720,
		Title:     "xeogl",
		Resizable: true,
		VSync:     true,
	}
}

// Log configures the zap logger.
type Log struct {
	Level string `toml:"level"`
}

// Config is the top-level settings file.
type Config struct {
	Window   Window          `toml:"window"`
	Renderer renderer.Config `toml:"renderer"`
	Log      Log             `toml:"log"`
}

func Default() Config {
	return Config{
		Window:   DefaultWindow(),
		Renderer: renderer.DefaultConfig(),
		Log:      Log{Level: "info"},
	}
}

// Parse decodes data over the defaults. Keys the Config does not know are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown settings:\n%s", strict.String())
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.MaxTextureUnits < 0 {
		errs = append(errs, fmt.Errorf("max_texture_units %d is negative", c.Renderer.MaxTextureUnits))
	}
	return errors.Join(errs...)
}
