// Package protect is the boundary to the external code-protection toolkit.
// The packer decides which files are eligible and calls the Protector once
// per file; the toolkit itself (bytecode encryption, native compilation)
// lives outside this repository.
package protect

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/auroraview/avpack/pkg/bundle"
	"github.com/auroraview/avpack/pkg/config"
)

// ErrProtectionFailure marks a toolkit rejection. The whole pack aborts;
// embedding the unprotected source instead is never acceptable.
var ErrProtectionFailure = errors.New("protection failure")

// Request is one file handed to the toolkit.
type Request struct {
	// Path is the logical path of the source file.
	Path string
	// Data is the original source bytes.
	Data []byte
	// Mode selects bytecode vs native compilation.
	Mode config.ProtectionMode
	// DCC optionally names the host application to target.
	DCC string
}

// Result is the toolkit's replacement for a Request.
type Result struct {
	// Path is the logical path to store the output under. Empty keeps the
	// request path; py2pyd toolkits typically rewrite the extension.
	Path string
	// Data is the protected payload embedded in place of the source.
	Data []byte
}

// Protector transforms one eligible source file. Implementations may shell
// out or call native code; they must honor ctx cancellation.
type Protector interface {
	Protect(ctx context.Context, req Request) (Result, error)
}

// Eligible reports whether a logical path is subject to protection: Python
// source, not matched by any exclusion glob. Patterns are tried in order
// against both the full logical path and the base name; the first match
// excludes the file.
func Eligible(logicalPath string, exclusions []string) bool {
	if path.Ext(logicalPath) != ".py" {
		return false
	}
	base := path.Base(logicalPath)
	for _, pattern := range exclusions {
		if ok, err := path.Match(pattern, logicalPath); err == nil && ok {
			return false
		}
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return false
		}
	}
	return true
}

// Apply runs the protection pass over a bundle in place. Only called for
// python backends; any toolkit error aborts with ErrProtectionFailure
// wrapping the offending path.
func Apply(ctx context.Context, b *bundle.Bundle, cfg *config.ProtectionConfig, p Protector) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if p == nil {
		return fmt.Errorf("%w: protection enabled but no toolkit available", ErrProtectionFailure)
	}

	// Snapshot paths first; Replace may rename entries while we iterate.
	var eligible []string
	for _, asset := range b.Assets() {
		if Eligible(asset.Path, cfg.Exclusions) {
			eligible = append(eligible, asset.Path)
		}
	}

	for _, logicalPath := range eligible {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("protection interrupted: %w", err)
		}

		var data []byte
		for _, asset := range b.Assets() {
			if asset.Path == logicalPath {
				data = asset.Data
				break
			}
		}

		result, err := p.Protect(ctx, Request{
			Path: logicalPath,
			Data: data,
			Mode: cfg.Mode,
			DCC:  cfg.DCC,
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProtectionFailure, logicalPath, err)
		}
		if err := b.Replace(logicalPath, result.Path, result.Data); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProtectionFailure, logicalPath, err)
		}
	}
	return nil
}
