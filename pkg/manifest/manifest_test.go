package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auroraview/avpack/pkg/config"
)

func writeManifest(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "avpack.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dir
}

func TestLoadFullStack(t *testing.T) {
	path, dir := writeManifest(t, `
[package]
title = "Render Farm Monitor"
output = "dist/monitor"
icon = "assets/icon.png"
user_agent = "monitor/1.0"

[frontend]
path = "web/dist"
index = "main.html"

[backend]
kind = "python"
entry = "srv/main.py"
manifest = "srv/requirements.txt"
args = "--port 0 --quiet"

[window]
width = 1440
height = 900
resizable = false

[protection]
enabled = true
mode = "py2pyd"
exclusions = ["settings.py", "test_*.py"]
dcc = "maya"

[build]
compression = "bzip2"
level = 9

[env]
MONITOR_MODE = "packed"
`)

	m, err := Load(path)
	require.NoError(t, err)

	cfg, err := m.ToPackConfig(dir)
	require.NoError(t, err)

	fs, ok := cfg.Mode.(config.FullStackMode)
	require.True(t, ok, "mode is %T", cfg.Mode)
	require.Equal(t, filepath.Join(dir, "web/dist"), fs.Frontend.Path)
	require.Equal(t, "main.html", fs.Frontend.Index)
	require.Equal(t, config.BackendPython, fs.Backend.Kind)
	require.Equal(t, filepath.Join(dir, "srv/main.py"), fs.Backend.Entry)
	require.Equal(t, "--port 0 --quiet", fs.Backend.Args)

	require.Equal(t, "Render Farm Monitor", cfg.Title)
	require.Equal(t, filepath.Join(dir, "dist/monitor"), cfg.Output)
	require.Equal(t, filepath.Join(dir, "assets/icon.png"), cfg.Icon)
	require.Equal(t, 1440, cfg.Window.Width)
	require.False(t, cfg.Window.Resizable)
	require.True(t, cfg.Window.Decorations, "unset decorations keeps the default")

	require.NotNil(t, cfg.Protection)
	require.Equal(t, config.ProtectionPy2Pyd, cfg.Protection.Mode)
	require.Equal(t, []string{"settings.py", "test_*.py"}, cfg.Protection.Exclusions)
	require.Equal(t, "maya", cfg.Protection.DCC)

	require.Equal(t, "bzip2", cfg.Compression.Codec)
	require.Equal(t, 9, cfg.Compression.Level)
	require.Equal(t, "packed", cfg.Env["MONITOR_MODE"])
}

func TestLoadURLMode(t *testing.T) {
	path, dir := writeManifest(t, `
url = "https://example.com"

[package]
title = "Thin Window"
output = "thin"
`)
	m, err := Load(path)
	require.NoError(t, err)

	cfg, err := m.ToPackConfig(dir)
	require.NoError(t, err)

	u, ok := cfg.Mode.(config.URLMode)
	require.True(t, ok)
	require.Equal(t, "https://example.com", u.URL)
	require.Equal(t, config.DefaultWindow(), cfg.Window)
}

func TestModeAmbiguityRejected(t *testing.T) {
	path, dir := writeManifest(t, `
url = "https://example.com"

[package]
title = "X"
output = "x"

[frontend]
path = "web"
`)
	m, err := Load(path)
	require.NoError(t, err)

	_, err = m.ToPackConfig(dir)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBackendWithoutFrontendRejected(t *testing.T) {
	path, dir := writeManifest(t, `
[package]
title = "X"
output = "x"

[backend]
kind = "node"
entry = "srv.js"
`)
	m, err := Load(path)
	require.NoError(t, err)

	_, err = m.ToPackConfig(dir)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNoModeRejected(t *testing.T) {
	path, dir := writeManifest(t, `
[package]
title = "X"
output = "x"
`)
	m, err := Load(path)
	require.NoError(t, err)

	_, err = m.ToPackConfig(dir)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestAbsolutePathsNotRebased(t *testing.T) {
	abs := filepath.Join(string(filepath.Separator), "opt", "app", "web")
	path, dir := writeManifest(t, `
[package]
title = "X"
output = "x"

[frontend]
path = "`+filepath.ToSlash(abs)+`"
`)
	m, err := Load(path)
	require.NoError(t, err)

	cfg, err := m.ToPackConfig(dir)
	require.NoError(t, err)
	require.Equal(t, abs, cfg.Mode.(config.FrontendMode).Path)
}

func TestLoadBadTOML(t *testing.T) {
	path, _ := writeManifest(t, `[package`)
	_, err := Load(path)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
