package config

import "fmt"

// ModePayload is the wire form of a PackMode inside the container's config
// block. Type carries the variant tag; the other fields are populated per
// variant.
type ModePayload struct {
	Type string `json:"type"`

	// url
	URL string `json:"url,omitempty"`

	// frontend / fullstack
	Index string `json:"index,omitempty"`

	// fullstack
	Backend *Backend `json:"backend,omitempty"`
}

// Payload is the JSON document stored uncompressed in the container's config
// block. It carries everything the launcher needs before any section is
// decoded, including the codec sections were written with.
type Payload struct {
	Title  string       `json:"title"`
	Mode   ModePayload  `json:"mode"`
	Window WindowConfig `json:"window"`

	Env       map[string]string `json:"env,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Debug     bool              `json:"debug,omitempty"`

	Compression CompressionConfig `json:"compression"`

	// WindowIcon is the raw PNG shown in the WebView title bar. Kept in the
	// config block rather than a section so the launcher has it before
	// extraction.
	WindowIcon []byte `json:"window_icon,omitempty"`

	// ContentHash keys the extraction session directory; identical content
	// reuses an extraction, differing content never collides.
	ContentHash string `json:"content_hash,omitempty"`
}

// NewPayload builds the wire payload for a validated PackConfig.
func NewPayload(c *PackConfig) (*Payload, error) {
	p := &Payload{
		Title:       c.Title,
		Window:      c.Window,
		Env:         c.Env,
		UserAgent:   c.UserAgent,
		Debug:       c.Debug,
		Compression: c.Compression,
	}

	switch m := c.Mode.(type) {
	case URLMode:
		p.Mode = ModePayload{Type: m.Kind(), URL: m.URL}
	case FrontendMode:
		p.Mode = ModePayload{Type: m.Kind(), Index: m.EntryDocument()}
	case FullStackMode:
		backend := m.Backend
		p.Mode = ModePayload{Type: m.Kind(), Index: m.Frontend.EntryDocument(), Backend: &backend}
	default:
		return nil, fmt.Errorf("%w: unsupported mode %T", ErrInvalidConfig, c.Mode)
	}

	return p, nil
}

// DecodedMode reconstructs the PackMode variant from the wire tag. Asset
// directory paths are not round-tripped; the launcher works from extracted
// sections, not the original source trees.
func (p *Payload) DecodedMode() (PackMode, error) {
	switch p.Mode.Type {
	case "url":
		return URLMode{URL: p.Mode.URL}, nil
	case "frontend":
		return FrontendMode{Index: p.Mode.Index}, nil
	case "fullstack":
		if p.Mode.Backend == nil {
			return nil, fmt.Errorf("%w: fullstack payload without backend", ErrInvalidConfig)
		}
		return FullStackMode{
			Frontend: FrontendMode{Index: p.Mode.Index},
			Backend:  *p.Mode.Backend,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown mode tag %q", ErrInvalidConfig, p.Mode.Type)
}
