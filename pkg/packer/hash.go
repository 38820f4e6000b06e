package packer

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/auroraview/avpack/pkg/bundle"
)

// ContentHash derives the 16-hex-char key identifying this exact asset set.
// The launcher uses it to name extraction sessions, so identical content
// can reuse an extraction and differing content never collides.
//
// The hash runs over (path, size, bytes) triples in sorted path order;
// insertion order in the container does not influence it.
func ContentHash(assets []bundle.Asset) string {
	sorted := make([]bundle.Asset, len(assets))
	copy(sorted, assets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	var size [8]byte
	for _, asset := range sorted {
		h.Write([]byte(asset.Path))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(size[:], uint64(len(asset.Data)))
		h.Write(size[:])
		h.Write(asset.Data)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
