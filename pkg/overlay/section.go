package overlay

import (
	"fmt"

	"github.com/auroraview/avpack/pkg/codec"
)

// Section is one packed asset: a logical path plus its compressed bytes and
// the metadata needed to verify the round trip.
type Section struct {
	// Path is the logical, forward-slash path inside the extracted tree.
	// Unique within a container.
	Path string

	// Size is the uncompressed payload length.
	Size uint64

	// Checksum covers the uncompressed payload (Checksum func).
	Checksum uint64

	// Compressed holds the codec output.
	Compressed []byte
}

// EncodeSection compresses raw and records size and checksum over the
// original bytes, so corruption anywhere after this point is detectable.
func EncodeSection(path string, raw []byte, c codec.Codec, level int) (Section, error) {
	compressed, err := c.Compress(raw, level)
	if err != nil {
		return Section{}, fmt.Errorf("encode section %q: %w", path, err)
	}
	return Section{
		Path:       path,
		Size:       uint64(len(raw)),
		Checksum:   Checksum(raw),
		Compressed: compressed,
	}, nil
}

// DecodeSection decompresses a section and verifies size and checksum.
// Any mismatch is reported as ErrCorruptAsset; the caller must not use
// partial output.
func DecodeSection(sec Section, c codec.Codec) ([]byte, error) {
	raw, err := c.Decompress(sec.Compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not decompress: %v", ErrCorruptAsset, sec.Path, err)
	}
	if uint64(len(raw)) != sec.Size {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes, recorded %d",
			ErrCorruptAsset, sec.Path, len(raw), sec.Size)
	}
	if got := Checksum(raw); got != sec.Checksum {
		return nil, fmt.Errorf("%w: %q checksum %016x, recorded %016x",
			ErrCorruptAsset, sec.Path, got, sec.Checksum)
	}
	return raw, nil
}
