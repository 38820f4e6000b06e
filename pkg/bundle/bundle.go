// Package bundle collects asset files into a single logical-path namespace
// ahead of packing. Logical paths are forward-slash relative paths; frontend
// and backend trees land in the same namespace, so a path clash between the
// two is caught here, before anything is written.
package bundle

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrConflictingAsset marks two assets claiming the same logical path.
var ErrConflictingAsset = errors.New("conflicting asset path")

// Asset is one file destined for the container: logical path plus content.
type Asset struct {
	Path string
	Data []byte
}

// Bundle accumulates assets in insertion order and rejects duplicates.
type Bundle struct {
	assets []Asset
	index  map[string]int
}

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{index: make(map[string]int)}
}

// Add appends an asset. The path is normalized (forward slashes, cleaned);
// a second asset with the same normalized path is ErrConflictingAsset.
func (b *Bundle) Add(logicalPath string, data []byte) error {
	normalized, err := Normalize(logicalPath)
	if err != nil {
		return err
	}
	if prev, exists := b.index[normalized]; exists {
		return fmt.Errorf("%w: %q already added (asset %d)", ErrConflictingAsset, normalized, prev)
	}
	b.index[normalized] = len(b.assets)
	b.assets = append(b.assets, Asset{Path: normalized, Data: data})
	return nil
}

// Assets returns the collected assets in insertion order.
func (b *Bundle) Assets() []Asset {
	return b.assets
}

// Len reports the number of collected assets.
func (b *Bundle) Len() int {
	return len(b.assets)
}

// Replace swaps the content (and optionally the path) of an existing asset.
// Used by the protection pass, which may rename a .py to its compiled form.
func (b *Bundle) Replace(logicalPath string, newPath string, data []byte) error {
	i, exists := b.index[logicalPath]
	if !exists {
		return fmt.Errorf("no asset %q to replace", logicalPath)
	}
	if newPath == logicalPath || newPath == "" {
		b.assets[i].Data = data
		return nil
	}

	normalized, err := Normalize(newPath)
	if err != nil {
		return err
	}
	if _, clash := b.index[normalized]; clash {
		return fmt.Errorf("%w: %q already present", ErrConflictingAsset, normalized)
	}
	delete(b.index, logicalPath)
	b.index[normalized] = i
	b.assets[i] = Asset{Path: normalized, Data: data}
	return nil
}

// Normalize converts a host path fragment into its logical form: forward
// slashes, no leading "./", no empty or escaping paths.
func Normalize(p string) (string, error) {
	normalized := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if normalized == "." || normalized == "/" || normalized == "" {
		return "", fmt.Errorf("empty logical path %q", p)
	}
	if path.IsAbs(normalized) || normalized == ".." || strings.HasPrefix(normalized, "../") {
		return "", fmt.Errorf("logical path %q escapes the bundle root", p)
	}
	return normalized, nil
}
