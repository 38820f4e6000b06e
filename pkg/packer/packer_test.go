package packer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auroraview/avpack/pkg/bundle"
	"github.com/auroraview/avpack/pkg/codec"
	"github.com/auroraview/avpack/pkg/config"
	"github.com/auroraview/avpack/pkg/extract"
	"github.com/auroraview/avpack/pkg/overlay"
	"github.com/auroraview/avpack/pkg/protect"
)

var fakeShell = []byte("\x7fELF pretend this is a real shell binary\n")

func writeShell(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "shell")
	require.NoError(t, os.WriteFile(path, fakeShell, 0o755))
	return path
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestPackFrontendEndToEnd(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)

	frontend := filepath.Join(dir, "web")
	writeTree(t, frontend, map[string]string{
		"index.html": "hello, html!", // 12 bytes
		"style.css":  "body{ }\n",    // 8 bytes
	})

	output := filepath.Join(dir, "app")
	cfg := &config.PackConfig{
		Mode:   config.FrontendMode{Path: frontend},
		Output: output,
		Title:  "Demo",
		Window: config.DefaultWindow(),
	}

	pk, err := New(cfg)
	require.NoError(t, err)

	got, err := pk.Pack(context.Background(), shellPath)
	require.NoError(t, err)
	require.Equal(t, output, got)

	// The packed file begins with the untouched shell bytes.
	packed, err := os.ReadFile(output)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(packed, fakeShell))

	container, err := overlay.DetectFile(output)
	require.NoError(t, err)
	require.NotNil(t, container)
	require.Equal(t, uint64(len(fakeShell)), container.Offset)

	paths := map[string]uint64{}
	for _, sec := range container.Sections {
		paths[sec.Path] = sec.Size
	}
	require.Equal(t, map[string]uint64{"index.html": 12, "style.css": 8}, paths)

	// Extraction reproduces both files byte for byte in a fresh session.
	m, err := extract.Extract(context.Background(), container, extract.Options{Root: filepath.Join(dir, "tmp")})
	require.NoError(t, err)
	defer m.Cleanup()

	index, err := os.ReadFile(m.Files["index.html"])
	require.NoError(t, err)
	require.Equal(t, "hello, html!", string(index))

	style, err := os.ReadFile(m.Files["style.css"])
	require.NoError(t, err)
	require.Equal(t, "body{ }\n", string(style))

	require.Equal(t, "frontend", m.Payload.Mode.Type)
	require.Equal(t, "index.html", m.Payload.Mode.Index)
}

func TestPackURLZeroSections(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)
	output := filepath.Join(dir, "thin")

	cfg := &config.PackConfig{
		Mode:   config.URLMode{URL: "https://example.com"},
		Output: output,
		Title:  "Thin",
		Window: config.DefaultWindow(),
	}
	pk, err := New(cfg)
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), shellPath)
	require.NoError(t, err)

	container, err := overlay.DetectFile(output)
	require.NoError(t, err)
	require.NotNil(t, container)
	require.Empty(t, container.Sections)

	m, err := extract.Extract(context.Background(), container, extract.Options{Root: filepath.Join(dir, "tmp")})
	require.NoError(t, err)
	defer m.Cleanup()

	mode, err := m.Payload.DecodedMode()
	require.NoError(t, err)
	require.Equal(t, config.URLMode{URL: "https://example.com"}, mode)
}

func TestPackFullStack(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)

	frontend := filepath.Join(dir, "web")
	writeTree(t, frontend, map[string]string{"index.html": "<html></html>"})

	backendDir := filepath.Join(dir, "srv")
	writeTree(t, backendDir, map[string]string{
		"main.py":          "print('serve')",
		"lib/util.py":      "x = 1",
		"requirements.txt": "flask\n",
	})

	output := filepath.Join(dir, "app")
	cfg := &config.PackConfig{
		Mode: config.FullStackMode{
			Frontend: config.FrontendMode{Path: frontend},
			Backend: config.Backend{
				Kind:  config.BackendPython,
				Entry: filepath.Join(backendDir, "main.py"),
				Args:  "--port 0",
			},
		},
		Output:      output,
		Title:       "Full",
		Window:      config.DefaultWindow(),
		Compression: config.CompressionConfig{Codec: "gzip"},
	}
	pk, err := New(cfg)
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), shellPath)
	require.NoError(t, err)

	container, err := overlay.DetectFile(output)
	require.NoError(t, err)

	var paths []string
	for _, sec := range container.Sections {
		paths = append(paths, sec.Path)
	}
	require.ElementsMatch(t, []string{"index.html", "main.py", "lib/util.py", "requirements.txt"}, paths)

	m, err := extract.Extract(context.Background(), container, extract.Options{Root: filepath.Join(dir, "tmp")})
	require.NoError(t, err)
	defer m.Cleanup()

	// The backend entry is rewritten relative to the extracted root.
	require.NotNil(t, m.Payload.Mode.Backend)
	require.Equal(t, "main.py", m.Payload.Mode.Backend.Entry)
	require.Equal(t, "--port 0", m.Payload.Mode.Backend.Args)
	require.Equal(t, "gzip", m.Payload.Compression.Codec)

	// Content hash is the 16-hex session key.
	require.Len(t, m.Payload.ContentHash, 16)
	_, err = hex.DecodeString(m.Payload.ContentHash)
	require.NoError(t, err)
}

func TestPackConflictingAssetWritesNothing(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)

	frontend := filepath.Join(dir, "web")
	writeTree(t, frontend, map[string]string{
		"index.html": "<html></html>",
		"main.py":    "frontend copy",
	})
	backendDir := filepath.Join(dir, "srv")
	writeTree(t, backendDir, map[string]string{"main.py": "backend copy"})

	output := filepath.Join(dir, "app")
	cfg := &config.PackConfig{
		Mode: config.FullStackMode{
			Frontend: config.FrontendMode{Path: frontend},
			Backend:  config.Backend{Kind: config.BackendPython, Entry: filepath.Join(backendDir, "main.py")},
		},
		Output: output,
		Title:  "Clash",
		Window: config.DefaultWindow(),
	}
	pk, err := New(cfg)
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), shellPath)
	require.ErrorIs(t, err, bundle.ErrConflictingAsset)

	_, statErr := os.Stat(output)
	require.True(t, os.IsNotExist(statErr), "conflict must write nothing")
}

type explodingProtector struct{}

func (explodingProtector) Protect(context.Context, protect.Request) (protect.Result, error) {
	return protect.Result{}, fmt.Errorf("toolkit unavailable")
}

func TestPackAtomicityOnFailure(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)

	frontend := filepath.Join(dir, "web")
	writeTree(t, frontend, map[string]string{"index.html": "<html></html>"})
	backendDir := filepath.Join(dir, "srv")
	writeTree(t, backendDir, map[string]string{"main.py": "print('x')"})

	// A previous, good output must survive a failing pack byte-identical.
	output := filepath.Join(dir, "app")
	previous := []byte("previous packed executable")
	require.NoError(t, os.WriteFile(output, previous, 0o755))

	cfg := &config.PackConfig{
		Mode: config.FullStackMode{
			Frontend: config.FrontendMode{Path: frontend},
			Backend:  config.Backend{Kind: config.BackendPython, Entry: filepath.Join(backendDir, "main.py")},
		},
		Output:     output,
		Title:      "Atomic",
		Window:     config.DefaultWindow(),
		Protection: &config.ProtectionConfig{Enabled: true, Mode: config.ProtectionBytecode},
	}
	pk, err := New(cfg, WithProtector(explodingProtector{}))
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), shellPath)
	require.ErrorIs(t, err, protect.ErrProtectionFailure)

	after, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	require.Equal(t, previous, after, "failed pack must leave prior output untouched")

	// No temp litter either.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

type upperProtector struct{}

func (upperProtector) Protect(_ context.Context, req protect.Request) (protect.Result, error) {
	return protect.Result{Data: []byte(strings.ToUpper(string(req.Data)))}, nil
}

func TestPackAppliesProtection(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)

	frontend := filepath.Join(dir, "web")
	writeTree(t, frontend, map[string]string{"index.html": "<html></html>"})
	backendDir := filepath.Join(dir, "srv")
	writeTree(t, backendDir, map[string]string{
		"main.py":     "print('serve')",
		"settings.py": "DEBUG = True",
	})

	output := filepath.Join(dir, "app")
	cfg := &config.PackConfig{
		Mode: config.FullStackMode{
			Frontend: config.FrontendMode{Path: frontend},
			Backend:  config.Backend{Kind: config.BackendPython, Entry: filepath.Join(backendDir, "main.py")},
		},
		Output: output,
		Title:  "Protected",
		Window: config.DefaultWindow(),
		Protection: &config.ProtectionConfig{
			Enabled:    true,
			Mode:       config.ProtectionBytecode,
			Exclusions: []string{"settings.py"},
		},
	}
	pk, err := New(cfg, WithProtector(upperProtector{}))
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), shellPath)
	require.NoError(t, err)

	container, err := overlay.DetectFile(output)
	require.NoError(t, err)

	c, err := codec.Get(codec.DefaultName)
	require.NoError(t, err)

	decoded := map[string]string{}
	for _, sec := range container.Sections {
		raw, err := overlay.DecodeSection(sec, c)
		require.NoError(t, err)
		decoded[sec.Path] = string(raw)
	}
	require.Equal(t, "PRINT('SERVE')", decoded["main.py"])
	require.Equal(t, "DEBUG = True", decoded["settings.py"], "excluded file stays as source")
	require.Equal(t, "<html></html>", decoded["index.html"])
}

func TestPackMissingShell(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.PackConfig{
		Mode:   config.URLMode{URL: "https://example.com"},
		Output: filepath.Join(dir, "out"),
		Title:  "X",
		Window: config.DefaultWindow(),
	}
	pk, err := New(cfg)
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), filepath.Join(dir, "no-such-shell"))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPackMissingFrontendDir(t *testing.T) {
	dir := t.TempDir()
	shellPath := writeShell(t, dir)
	cfg := &config.PackConfig{
		Mode:   config.FrontendMode{Path: filepath.Join(dir, "missing")},
		Output: filepath.Join(dir, "out"),
		Title:  "X",
		Window: config.DefaultWindow(),
	}
	pk, err := New(cfg)
	require.NoError(t, err)

	_, err = pk.Pack(context.Background(), shellPath)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&config.PackConfig{})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestContentHash(t *testing.T) {
	a := []bundle.Asset{
		{Path: "a.txt", Data: []byte("one")},
		{Path: "b.txt", Data: []byte("two")},
	}
	reordered := []bundle.Asset{a[1], a[0]}

	require.Equal(t, ContentHash(a), ContentHash(reordered), "hash is order independent")
	require.Len(t, ContentHash(a), 16)

	changed := []bundle.Asset{
		{Path: "a.txt", Data: []byte("one!")},
		{Path: "b.txt", Data: []byte("two")},
	}
	require.NotEqual(t, ContentHash(a), ContentHash(changed))
}
