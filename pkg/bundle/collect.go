package bundle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultExcludes are skipped by CollectDir in every walk: VCS metadata,
// OS droppings, and sourcemaps that would leak original frontend sources.
var DefaultExcludes = []string{
	".git",
	".gitignore",
	".DS_Store",
	"Thumbs.db",
	"*.map",
}

// Excluded reports whether a base name matches any of the patterns
// (filepath.Match syntax). Directories matching a pattern are pruned whole.
func Excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// CollectDir walks root and adds every regular file to b under its
// root-relative logical path. DefaultExcludes plus extra are applied to
// base names; symlinks are skipped rather than followed, so a link cannot
// pull content from outside the tree.
func (b *Bundle) CollectDir(root string, extra []string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("asset directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset path %s is not a directory", root)
	}

	patterns := append(append([]string{}, DefaultExcludes...), extra...)

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}
		if p == root {
			return nil
		}
		if Excluded(d.Name(), patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", p, err)
		}
		return b.Add(filepath.ToSlash(rel), data)
	})
}
