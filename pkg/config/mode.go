package config

import "fmt"

// PackMode is a closed sum over the three packaging shapes. The unexported
// method keeps the set of variants fixed to this package.
type PackMode interface {
	// Kind returns the wire tag for the mode ("url", "frontend", "fullstack").
	Kind() string

	validate() error
}

// URLMode packs nothing but a remote URL; the shell opens it directly.
type URLMode struct {
	URL string
}

func (m URLMode) Kind() string { return "url" }

func (m URLMode) validate() error {
	if m.URL == "" {
		return fmt.Errorf("%w: url mode requires a URL", ErrInvalidConfig)
	}
	return nil
}

// FrontendMode packs a static asset tree served from the extraction root.
type FrontendMode struct {
	// Path is the directory holding the static frontend.
	Path string
	// Index is the entry document relative to Path; "index.html" when empty.
	Index string
}

func (m FrontendMode) Kind() string { return "frontend" }

// EntryDocument returns the index path, applying the default.
func (m FrontendMode) EntryDocument() string {
	if m.Index == "" {
		return "index.html"
	}
	return m.Index
}

func (m FrontendMode) validate() error {
	if m.Path == "" {
		return fmt.Errorf("%w: frontend mode requires an asset directory", ErrInvalidConfig)
	}
	return nil
}

// FullStackMode packs a static frontend plus a backend process started
// alongside the WebView.
type FullStackMode struct {
	Frontend FrontendMode
	Backend  Backend
}

func (m FullStackMode) Kind() string { return "fullstack" }

func (m FullStackMode) validate() error {
	if err := m.Frontend.validate(); err != nil {
		return err
	}
	return m.Backend.validate()
}

// BackendKind identifies the runtime the backend entry file needs.
type BackendKind string

const (
	BackendPython BackendKind = "python"
	BackendNode   BackendKind = "node"
	BackendGo     BackendKind = "go"
	BackendRust   BackendKind = "rust"
)

// ParseBackendKind maps a user-supplied string to a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(s) {
	case BackendPython, BackendNode, BackendGo, BackendRust:
		return BackendKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown backend kind %q", ErrInvalidConfig, s)
}

// Backend describes the packed backend process.
type Backend struct {
	Kind BackendKind `json:"kind"`
	// Entry is the backend entry file; its directory is packed as the
	// backend asset tree.
	Entry string `json:"entry"`
	// Manifest optionally names a dependency manifest (requirements.txt,
	// package.json) packed alongside for diagnostics.
	Manifest string `json:"manifest,omitempty"`
	// Args is an optional argument string appended to the entry command,
	// split with shell word rules at launch.
	Args string `json:"args,omitempty"`
}

func (b Backend) validate() error {
	if _, err := ParseBackendKind(string(b.Kind)); err != nil {
		return err
	}
	if b.Entry == "" {
		return fmt.Errorf("%w: backend requires an entry file", ErrInvalidConfig)
	}
	return nil
}
