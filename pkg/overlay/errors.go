package overlay

import "errors"

// Sentinel errors. A file with no overlay at all is not an error; Detect
// reports that as a nil container.
var (
	// ErrMalformedOverlay marks structural damage: truncation, impossible
	// lengths, trailing garbage, duplicate paths.
	ErrMalformedOverlay = errors.New("malformed overlay")

	// ErrCorruptAsset marks a section whose bytes decode but do not match
	// their recorded checksum or size.
	ErrCorruptAsset = errors.New("corrupt asset section")

	// ErrUnsupportedVersion marks a container written by an incompatible
	// format revision.
	ErrUnsupportedVersion = errors.New("unsupported overlay version")
)
