// Package overlay implements the container appended to a shell executable:
// a config block plus compressed asset sections, terminated by a fixed-size
// footer that makes detection an O(1) read at end of file.
//
// Layout, all integers little-endian:
//
//	magic "AVPK"                                  4 bytes
//	version (major<<16 | minor)                   uint32
//	config length | config JSON (uncompressed)    uint32 + n bytes
//	section count                                 uint32
//	per section:
//	    path length | path (UTF-8)                uint16 + n bytes
//	    uncompressed size                         uint64
//	    checksum (SHA-256 first 8 bytes)          uint64
//	    compressed length | compressed bytes      uint32 + n bytes
//	footer: overlay start offset | magic          uint64 + 4 bytes
//
// The footer is the last 12 bytes of the file regardless of version, so a
// reader can always decide "overlay or not" before parsing anything.
package overlay

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Magic identifies the container, at its head and inside the footer.
var Magic = [4]byte{'A', 'V', 'P', 'K'}

// Supported format version.
const (
	VersionMajor = 1
	VersionMinor = 0
)

// FooterSize is fixed for all versions: uint64 offset + 4-byte magic.
const FooterSize = 12

// Serialization limits. Anything beyond these is damage, not data.
const (
	maxConfigSize  = 16 << 20  // 16 MiB of JSON is already absurd
	maxSectionSize = 2 << 30   // per-section compressed payload
	maxPathLen     = 4096      // logical path bytes
	maxSections    = 1 << 20   // section count
)

// EncodeVersion packs major/minor into the wire representation.
func EncodeVersion(major, minor uint16) uint32 {
	return uint32(major)<<16 | uint32(minor)
}

// DecodeVersion splits a wire version into major and minor.
func DecodeVersion(v uint32) (major, minor uint16) {
	return uint16(v >> 16), uint16(v & 0xffff)
}

// CheckVersion applies the compatibility policy: a different major or a
// minor newer than this reader fails closed; older minors are accepted.
func CheckVersion(v uint32) error {
	major, minor := DecodeVersion(v)
	if major != VersionMajor {
		return fmt.Errorf("%w: container version %d.%d, reader supports %d.x",
			ErrUnsupportedVersion, major, minor, VersionMajor)
	}
	if minor > VersionMinor {
		return fmt.Errorf("%w: container version %d.%d is newer than reader %d.%d",
			ErrUnsupportedVersion, major, minor, VersionMajor, VersionMinor)
	}
	return nil
}

// Checksum is the section integrity check: the first 8 bytes of SHA-256
// over the uncompressed payload, read little-endian.
func Checksum(data []byte) uint64 {
	sum := sha256.Sum256(data)
	return binary.LittleEndian.Uint64(sum[:8])
}
