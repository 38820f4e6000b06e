// Package extract materializes a container's sections into a per-launch
// session directory. Sections are written into a staging directory first
// and renamed into place only when every one of them decoded and verified,
// so a session directory is either complete or absent.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/auroraview/avpack/pkg/codec"
	"github.com/auroraview/avpack/pkg/config"
	"github.com/auroraview/avpack/pkg/overlay"
)

// Manifest describes a completed extraction.
type Manifest struct {
	// SessionID is the final directory name under the temp root.
	SessionID string
	// Root is the absolute session directory.
	Root string
	// Files maps logical paths to absolute paths inside Root.
	Files map[string]string
	// Payload is the parsed config block.
	Payload *config.Payload
}

// Cleanup removes the whole session directory.
func (m *Manifest) Cleanup() error {
	return os.RemoveAll(m.Root)
}

// Options tune an extraction.
type Options struct {
	// Root overrides the temp root; DefaultRoot() when empty.
	Root string
	// Logger defaults to a null logger.
	Logger hclog.Logger
}

// Extract decodes every section of container into a fresh session
// directory and returns its manifest. Any failure, including cancellation,
// leaves nothing visible under the temp root.
func Extract(ctx context.Context, container *overlay.Container, opts Options) (*Manifest, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	payload := &config.Payload{}
	if err := json.Unmarshal(container.Config, payload); err != nil {
		return nil, fmt.Errorf("%w: config block does not parse: %v", overlay.ErrMalformedOverlay, err)
	}

	c, err := codec.Get(payload.Compression.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", overlay.ErrMalformedOverlay, err)
	}

	root := opts.Root
	if root == "" {
		root = DefaultRoot()
	}
	if err := os.MkdirAll(root, dirPerms); err != nil {
		return nil, fmt.Errorf("create temp root %s: %w", root, err)
	}

	sweepStale(root, logger)

	sessionID := sessionName(payload.ContentHash)
	staging := filepath.Join(root, sessionID+stagingSuffix)
	if err := os.MkdirAll(staging, dirPerms); err != nil {
		return nil, fmt.Errorf("create staging %s: %w", staging, err)
	}
	if err := writePIDMarker(staging); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("write session marker: %w", err)
	}

	logger.Debug("📂 extracting sections",
		"count", len(container.Sections),
		"staging", staging,
		"codec", c.Name(),
	)

	if err := writeSections(ctx, container.Sections, c, staging); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	final := filepath.Join(root, sessionID)
	if err := os.Rename(staging, final); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("commit session %s: %w", final, err)
	}

	files := make(map[string]string, len(container.Sections))
	for _, sec := range container.Sections {
		files[sec.Path] = filepath.Join(final, filepath.FromSlash(sec.Path))
	}

	logger.Info("✅ extraction complete", "session", sessionID, "files", len(files))

	return &Manifest{
		SessionID: sessionID,
		Root:      final,
		Files:     files,
		Payload:   payload,
	}, nil
}

// writeSections decodes and writes all sections in parallel. The first
// failure cancels the group; callers discard the staging directory whole.
func writeSections(ctx context.Context, sections []overlay.Section, c codec.Codec, staging string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, sec := range sections {
		sec := sec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := overlay.DecodeSection(sec, c)
			if err != nil {
				return err
			}

			target := filepath.Join(staging, filepath.FromSlash(sec.Path))
			if err := os.MkdirAll(filepath.Dir(target), dirPerms); err != nil {
				return fmt.Errorf("create directory for %s: %w", sec.Path, err)
			}
			if err := os.WriteFile(target, raw, filePerms); err != nil {
				return fmt.Errorf("write %s: %w", sec.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// sessionName combines the content hash with per-launch entropy: the hash
// keeps names stable and collision-free across content, the UUID fragment
// keeps concurrent launches of the same app apart.
func sessionName(contentHash string) string {
	if contentHash == "" {
		contentHash = "nohash"
	}
	return sessionPrefix + contentHash + "-" + uuid.NewString()[:8]
}
