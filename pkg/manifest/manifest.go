// Package manifest reads the declarative avpack.toml and converts it to a
// PackConfig. The packer core never sees TOML; conversion happens entirely
// at this edge, including resolution of manifest-relative paths.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/auroraview/avpack/pkg/config"
)

// Manifest mirrors the avpack.toml schema.
type Manifest struct {
	Package    PackageTable      `toml:"package"`
	URL        string            `toml:"url"`
	Frontend   *FrontendTable    `toml:"frontend"`
	Backend    *BackendTable     `toml:"backend"`
	Window     *WindowTable      `toml:"window"`
	Protection *ProtectionTable  `toml:"protection"`
	Build      BuildTable        `toml:"build"`
	Env        map[string]string `toml:"env"`
}

// PackageTable names the product.
type PackageTable struct {
	Title     string `toml:"title"`
	Output    string `toml:"output"`
	Icon      string `toml:"icon"`
	UserAgent string `toml:"user_agent"`
	Debug     bool   `toml:"debug"`
}

// FrontendTable locates the static asset tree.
type FrontendTable struct {
	Path  string `toml:"path"`
	Index string `toml:"index"`
}

// BackendTable describes the packed backend process.
type BackendTable struct {
	Kind     string `toml:"kind"`
	Entry    string `toml:"entry"`
	Manifest string `toml:"manifest"`
	Args     string `toml:"args"`
}

// WindowTable overrides the default window geometry.
type WindowTable struct {
	Width       int   `toml:"width"`
	Height      int   `toml:"height"`
	Resizable   *bool `toml:"resizable"`
	Fullscreen  bool  `toml:"fullscreen"`
	Decorations *bool `toml:"decorations"`
}

// ProtectionTable configures the code-protection toolkit.
type ProtectionTable struct {
	Enabled    bool     `toml:"enabled"`
	Mode       string   `toml:"mode"`
	Exclusions []string `toml:"exclusions"`
	DCC        string   `toml:"dcc"`
}

// BuildTable tunes container encoding.
type BuildTable struct {
	Compression string `toml:"compression"`
	Level       int    `toml:"level"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %v", config.ErrInvalidConfig, path, err)
	}
	return &m, nil
}

// ToPackConfig converts the manifest. Relative paths are resolved against
// baseDir, usually the manifest's own directory, so a manifest works no
// matter where avpack is invoked from.
func (m *Manifest) ToPackConfig(baseDir string) (*config.PackConfig, error) {
	mode, err := m.mode(baseDir)
	if err != nil {
		return nil, err
	}

	cfg := &config.PackConfig{
		Mode:      mode,
		Output:    resolve(baseDir, m.Package.Output),
		Title:     m.Package.Title,
		Window:    m.window(),
		Icon:      resolve(baseDir, m.Package.Icon),
		Env:       m.Env,
		UserAgent: m.Package.UserAgent,
		Debug:     m.Package.Debug,
		Compression: config.CompressionConfig{
			Codec: m.Build.Compression,
			Level: m.Build.Level,
		},
	}

	if m.Protection != nil {
		cfg.Protection = &config.ProtectionConfig{
			Enabled:    m.Protection.Enabled,
			Mode:       config.ProtectionMode(m.Protection.Mode),
			Exclusions: m.Protection.Exclusions,
			DCC:        m.Protection.DCC,
		}
	}

	return cfg, nil
}

// mode derives the PackMode variant from which tables are populated.
// Exactly one shape must emerge; ambiguity is rejected rather than ranked.
func (m *Manifest) mode(baseDir string) (config.PackMode, error) {
	hasURL := m.URL != ""
	hasFrontend := m.Frontend != nil
	hasBackend := m.Backend != nil

	switch {
	case hasURL && (hasFrontend || hasBackend):
		return nil, fmt.Errorf("%w: url and frontend/backend tables are mutually exclusive", config.ErrInvalidConfig)
	case hasURL:
		return config.URLMode{URL: m.URL}, nil
	case hasBackend && !hasFrontend:
		return nil, fmt.Errorf("%w: backend table requires a frontend table", config.ErrInvalidConfig)
	case hasFrontend && hasBackend:
		kind, err := config.ParseBackendKind(m.Backend.Kind)
		if err != nil {
			return nil, err
		}
		return config.FullStackMode{
			Frontend: config.FrontendMode{
				Path:  resolve(baseDir, m.Frontend.Path),
				Index: m.Frontend.Index,
			},
			Backend: config.Backend{
				Kind:     kind,
				Entry:    resolve(baseDir, m.Backend.Entry),
				Manifest: resolve(baseDir, m.Backend.Manifest),
				Args:     m.Backend.Args,
			},
		}, nil
	case hasFrontend:
		return config.FrontendMode{
			Path:  resolve(baseDir, m.Frontend.Path),
			Index: m.Frontend.Index,
		}, nil
	}
	return nil, fmt.Errorf("%w: manifest selects no mode (need url, frontend, or frontend+backend)", config.ErrInvalidConfig)
}

func (m *Manifest) window() config.WindowConfig {
	w := config.DefaultWindow()
	if m.Window == nil {
		return w
	}
	if m.Window.Width > 0 {
		w.Width = m.Window.Width
	}
	if m.Window.Height > 0 {
		w.Height = m.Window.Height
	}
	if m.Window.Resizable != nil {
		w.Resizable = *m.Window.Resizable
	}
	if m.Window.Decorations != nil {
		w.Decorations = *m.Window.Decorations
	}
	w.Fullscreen = m.Window.Fullscreen
	return w
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
