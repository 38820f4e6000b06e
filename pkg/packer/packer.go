// Package packer builds packed executables: shell bytes + overlay, written
// atomically so the output path is never observed half-written.
package packer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/auroraview/avpack/pkg/bundle"
	"github.com/auroraview/avpack/pkg/codec"
	"github.com/auroraview/avpack/pkg/config"
	"github.com/auroraview/avpack/pkg/icon"
	"github.com/auroraview/avpack/pkg/overlay"
	"github.com/auroraview/avpack/pkg/protect"
)

// Packer turns a validated PackConfig plus a shell binary into a packed
// executable.
type Packer struct {
	cfg       *config.PackConfig
	protector protect.Protector
	logger    hclog.Logger
}

// Option configures a Packer.
type Option func(*Packer)

// WithProtector supplies the code-protection toolkit. Required only when
// the config enables protection.
func WithProtector(p protect.Protector) Option {
	return func(pk *Packer) { pk.protector = p }
}

// WithLogger replaces the default logger.
func WithLogger(l hclog.Logger) Option {
	return func(pk *Packer) { pk.logger = l }
}

// New validates cfg and returns a Packer for it.
func New(cfg *config.PackConfig, opts ...Option) (*Packer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pk := &Packer{
		cfg:    cfg,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(pk)
	}
	return pk, nil
}

// Pack reads the shell binary at shellPath, assembles the overlay and
// commits the packed executable to the configured output path. On any
// failure the output path is untouched; only the Packer's own temp file is
// cleaned up.
func (pk *Packer) Pack(ctx context.Context, shellPath string) (string, error) {
	shell, err := os.ReadFile(shellPath)
	if err != nil {
		return "", fmt.Errorf("%w: shell binary %s: %v", config.ErrInvalidConfig, shellPath, err)
	}

	packed, err := pk.PackBytes(ctx, shell)
	if err != nil {
		return "", err
	}

	if err := commit(pk.cfg.Output, packed); err != nil {
		return "", err
	}

	pk.logger.Info("📦 packed executable written",
		"output", pk.cfg.Output,
		"size", len(packed),
		"mode", pk.cfg.Mode.Kind(),
	)
	return pk.cfg.Output, nil
}

// PackBytes is the in-memory core: shell bytes in, packed bytes out. It
// performs collection, protection, compression and serialization but no
// output IO, which keeps the atomicity decision at the caller.
func (pk *Packer) PackBytes(ctx context.Context, shell []byte) ([]byte, error) {
	assets, entryRel, err := pk.collect(ctx)
	if err != nil {
		return nil, err
	}
	pk.logger.Debug("🗂️ assets collected", "count", assets.Len())

	payload, err := config.NewPayload(pk.cfg)
	if err != nil {
		return nil, err
	}
	if payload.Mode.Backend != nil {
		payload.Mode.Backend.Entry = entryRel
	}
	payload.ContentHash = ContentHash(assets.Assets())
	if payload.Compression.Codec == "" {
		payload.Compression.Codec = codec.DefaultName
	}

	if pk.cfg.Icon != "" {
		png, err := os.ReadFile(pk.cfg.Icon)
		if err != nil {
			return nil, fmt.Errorf("%w: icon %s: %v", config.ErrInvalidConfig, pk.cfg.Icon, err)
		}
		payload.WindowIcon = png
		shell, err = icon.EmbedExecutableIcon(shell, png)
		if err != nil {
			return nil, fmt.Errorf("embed icon: %w", err)
		}
	}

	configJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal config block: %w", err)
	}

	sections, err := pk.encodeSections(ctx, assets.Assets(), payload.Compression)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(shell)+len(configJSON))
	out = append(out, shell...)
	buf := &appendBuffer{buf: out}
	if err := overlay.Write(buf, uint64(len(shell)), configJSON, sections); err != nil {
		return nil, err
	}
	return buf.buf, nil
}

// collect gathers the asset namespace for the configured mode and runs the
// protection pass. The second return is the backend entry file's logical
// path, when there is a backend.
func (pk *Packer) collect(ctx context.Context) (*bundle.Bundle, string, error) {
	b := bundle.New()
	// Protection exclusions gate protection only, never collection, so the
	// collector runs with the default exclude set.
	var excludes []string

	var entryRel string
	switch m := pk.cfg.Mode.(type) {
	case config.URLMode:
		// Nothing to pack.

	case config.FrontendMode:
		if err := b.CollectDir(m.Path, excludes); err != nil {
			return nil, "", fmt.Errorf("%w: frontend: %v", config.ErrInvalidConfig, err)
		}

	case config.FullStackMode:
		if err := b.CollectDir(m.Frontend.Path, excludes); err != nil {
			return nil, "", fmt.Errorf("%w: frontend: %v", config.ErrInvalidConfig, err)
		}

		entry := m.Backend.Entry
		if _, err := os.Stat(entry); err != nil {
			return nil, "", fmt.Errorf("%w: backend entry %s: %v", config.ErrInvalidConfig, entry, err)
		}
		backendRoot := filepath.Dir(entry)
		if err := b.CollectDir(backendRoot, excludes); err != nil {
			if errors.Is(err, bundle.ErrConflictingAsset) {
				// A frontend file and a backend file claim the same logical
				// path; surface the conflict itself, not an IO wrapper.
				return nil, "", err
			}
			return nil, "", fmt.Errorf("%w: backend: %v", config.ErrInvalidConfig, err)
		}

		rel, err := filepath.Rel(backendRoot, entry)
		if err != nil {
			return nil, "", fmt.Errorf("%w: backend entry %s: %v", config.ErrInvalidConfig, entry, err)
		}
		entryRel = filepath.ToSlash(rel)
	}

	if pk.cfg.Protection != nil && pk.cfg.Protection.Enabled {
		if err := protect.Apply(ctx, b, pk.cfg.Protection, pk.protector); err != nil {
			return nil, "", err
		}
	}

	return b, entryRel, nil
}

// encodeSections compresses assets in parallel, bounded by GOMAXPROCS, and
// returns sections in asset order so the container layout is deterministic.
func (pk *Packer) encodeSections(ctx context.Context, assets []bundle.Asset, comp config.CompressionConfig) ([]overlay.Section, error) {
	c, err := codec.Get(comp.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	sections := make([]overlay.Section, len(assets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sec, err := overlay.EncodeSection(asset.Path, asset.Data, c, comp.Level)
			if err != nil {
				return err
			}
			sections[i] = sec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sections, nil
}

// commit writes data to a temp file adjacent to output and renames it into
// place. Adjacent, because rename is only atomic within one filesystem.
func commit(output string, data []byte) error {
	dir := filepath.Dir(output)
	tmp, err := os.CreateTemp(dir, ".avpack-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp near %s: %w", output, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, output); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", output, err)
	}
	return nil
}

// appendBuffer lets overlay.Write extend an existing slice without copying
// it into a bytes.Buffer first.
type appendBuffer struct {
	buf []byte
}

func (a *appendBuffer) Write(p []byte) (int, error) {
	a.buf = append(a.buf, p...)
	return len(p), nil
}
