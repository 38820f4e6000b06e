package overlay

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Write serializes an overlay to w. The caller has already written the
// shell bytes; offset is their length, recorded in the footer so a reader
// can seek back to the container head.
//
// Serialization is a single sequential pass in section order. Compression
// happens before this call; Write only moves bytes.
func Write(w io.Writer, offset uint64, configJSON []byte, sections []Section) error {
	if len(configJSON) > maxConfigSize {
		return fmt.Errorf("config block is %d bytes, limit %d", len(configJSON), maxConfigSize)
	}
	if len(sections) > maxSections {
		return fmt.Errorf("%d sections, limit %d", len(sections), maxSections)
	}

	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := writeU32(w, EncodeVersion(VersionMajor, VersionMinor)); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	if err := writeU32(w, uint32(len(configJSON))); err != nil {
		return fmt.Errorf("write config length: %w", err)
	}
	if _, err := w.Write(configJSON); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if err := writeU32(w, uint32(len(sections))); err != nil {
		return fmt.Errorf("write section count: %w", err)
	}
	for _, sec := range sections {
		if err := writeSection(w, sec); err != nil {
			return err
		}
	}

	// Footer last: a crash before this point leaves a file with no valid
	// footer, which readers treat as "no overlay".
	if err := binary.Write(w, binary.LittleEndian, offset); err != nil {
		return fmt.Errorf("write footer offset: %w", err)
	}
	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("write footer magic: %w", err)
	}

	return nil
}

func writeSection(w io.Writer, sec Section) error {
	pathBytes := []byte(sec.Path)
	if len(pathBytes) == 0 || len(pathBytes) > maxPathLen {
		return fmt.Errorf("section path length %d out of range", len(pathBytes))
	}
	if len(sec.Compressed) > maxSectionSize {
		return fmt.Errorf("section %q compressed payload is %d bytes, limit %d",
			sec.Path, len(sec.Compressed), maxSectionSize)
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(pathBytes))); err != nil {
		return fmt.Errorf("section %q: write path length: %w", sec.Path, err)
	}
	if _, err := w.Write(pathBytes); err != nil {
		return fmt.Errorf("section %q: write path: %w", sec.Path, err)
	}
	if err := binary.Write(w, binary.LittleEndian, sec.Size); err != nil {
		return fmt.Errorf("section %q: write size: %w", sec.Path, err)
	}
	if err := binary.Write(w, binary.LittleEndian, sec.Checksum); err != nil {
		return fmt.Errorf("section %q: write checksum: %w", sec.Path, err)
	}
	if err := writeU32(w, uint32(len(sec.Compressed))); err != nil {
		return fmt.Errorf("section %q: write payload length: %w", sec.Path, err)
	}
	if _, err := w.Write(sec.Compressed); err != nil {
		return fmt.Errorf("section %q: write payload: %w", sec.Path, err)
	}
	return nil
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}
