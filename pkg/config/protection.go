package config

import "fmt"

// ProtectionMode selects how eligible Python sources are transformed before
// packing.
type ProtectionMode string

const (
	// ProtectionBytecode compiles sources to bytecode.
	ProtectionBytecode ProtectionMode = "bytecode"
	// ProtectionPy2Pyd compiles sources to native extension modules.
	ProtectionPy2Pyd ProtectionMode = "py2pyd"
)

// ProtectionConfig configures the external code-protection toolkit. It only
// applies to python backends; the packer rejects it elsewhere.
type ProtectionConfig struct {
	Enabled bool           `json:"enabled"`
	Mode    ProtectionMode `json:"mode"`

	// Exclusions are ordered glob patterns; the first match decides and the
	// matched file is packed unmodified.
	Exclusions []string `json:"exclusions,omitempty"`

	// DCC optionally names the host application the protected modules must
	// stay importable inside (e.g. "maya", "houdini"). Passed through to the
	// toolkit untouched.
	DCC string `json:"dcc,omitempty"`
}

func (p *ProtectionConfig) validate() error {
	if !p.Enabled {
		return nil
	}
	switch p.Mode {
	case ProtectionBytecode, ProtectionPy2Pyd:
		return nil
	case "":
		return fmt.Errorf("%w: protection enabled without a mode", ErrInvalidConfig)
	}
	return fmt.Errorf("%w: unknown protection mode %q", ErrInvalidConfig, p.Mode)
}
