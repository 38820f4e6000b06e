// Package config holds the value types describing what to pack and how the
// packed application should present itself. Everything here is plain data;
// validation happens once, before the packer touches the filesystem.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a configuration rejected by Validate. Callers can
// test with errors.Is; the wrapped message names the offending field.
var ErrInvalidConfig = errors.New("invalid pack configuration")

// WindowConfig describes the WebView window the packed app opens.
type WindowConfig struct {
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	Resizable   bool `json:"resizable"`
	Fullscreen  bool `json:"fullscreen"`
	Decorations bool `json:"decorations"`
}

// DefaultWindow is used when the caller leaves the window zero-valued.
func DefaultWindow() WindowConfig {
	return WindowConfig{
		Width:       1024,
		Height:      768,
		Resizable:   true,
		Decorations: true,
	}
}

// CompressionConfig selects the codec sections are compressed with. The
// choice is recorded in the container's config block so a reader knows how
// to decode sections before touching them.
type CompressionConfig struct {
	Codec string `json:"codec"`
	Level int    `json:"level"`
}

// PackConfig is the full input to a pack operation.
type PackConfig struct {
	Mode   PackMode
	Output string
	Title  string
	Window WindowConfig

	Protection *ProtectionConfig

	// Icon is a path to a PNG used both as the window icon and, on
	// Windows shells, as the executable icon resource.
	Icon string

	// Env is injected into the packed app's process environment at launch.
	Env map[string]string

	UserAgent string
	Debug     bool

	Compression CompressionConfig
}

// Validate checks the configuration and returns ErrInvalidConfig-wrapped
// errors describing the first problem found.
func (c *PackConfig) Validate() error {
	if c.Mode == nil {
		return fmt.Errorf("%w: mode is required", ErrInvalidConfig)
	}
	if err := c.Mode.validate(); err != nil {
		return err
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidConfig)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window dimensions must be positive (got %dx%d)",
			ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Protection != nil {
		if err := c.Protection.validate(); err != nil {
			return err
		}
		if c.Protection.Enabled && !c.modeHasPythonBackend() {
			return fmt.Errorf("%w: protection requires a python backend", ErrInvalidConfig)
		}
	}
	return nil
}

func (c *PackConfig) modeHasPythonBackend() bool {
	fs, ok := c.Mode.(FullStackMode)
	return ok && fs.Backend.Kind == BackendPython
}
