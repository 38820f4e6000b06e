package overlay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Detect probes r for an overlay. A file without one is a normal condition
// and returns (nil, nil); only structural damage in a file that does carry
// the footer magic is an error.
//
// The probe reads exactly the last FooterSize bytes, so deciding "no
// overlay" costs one small read regardless of file size.
func Detect(r io.ReaderAt, size int64) (*Container, error) {
	if size < FooterSize {
		return nil, nil
	}

	var footer [FooterSize]byte
	if _, err := r.ReadAt(footer[:], size-FooterSize); err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}
	if !bytes.Equal(footer[8:], Magic[:]) {
		return nil, nil
	}

	offset := binary.LittleEndian.Uint64(footer[:8])
	// Smallest possible container: magic + version + empty config + zero
	// section count.
	const minContainer = 4 + 4 + 4 + 4
	if offset > uint64(size-FooterSize) || int64(size-FooterSize)-int64(offset) < minContainer {
		return nil, fmt.Errorf("%w: footer offset %d out of range for %d-byte file",
			ErrMalformedOverlay, offset, size)
	}

	region := make([]byte, size-FooterSize-int64(offset))
	if _, err := r.ReadAt(region, int64(offset)); err != nil {
		return nil, fmt.Errorf("read overlay region: %w", err)
	}

	container, err := parse(region)
	if err != nil {
		return nil, err
	}
	container.Offset = offset
	return container, nil
}

// DetectFile opens path and runs Detect against it.
func DetectFile(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return Detect(f, info.Size())
}

// parse decodes the overlay region (footer already stripped). Every length
// is bounds-checked against the region before use; a container that parses
// but leaves bytes unconsumed is malformed, not "parsed with extras".
func parse(region []byte) (*Container, error) {
	p := &parser{buf: region}

	magic, err := p.take(4, "magic")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, fmt.Errorf("%w: bad leading magic %q", ErrMalformedOverlay, magic)
	}

	version, err := p.u32("version")
	if err != nil {
		return nil, err
	}
	if err := CheckVersion(version); err != nil {
		return nil, err
	}

	configLen, err := p.u32("config length")
	if err != nil {
		return nil, err
	}
	if configLen > maxConfigSize {
		return nil, fmt.Errorf("%w: config length %d exceeds limit", ErrMalformedOverlay, configLen)
	}
	configJSON, err := p.take(int(configLen), "config block")
	if err != nil {
		return nil, err
	}

	count, err := p.u32("section count")
	if err != nil {
		return nil, err
	}
	if count > maxSections {
		return nil, fmt.Errorf("%w: section count %d exceeds limit", ErrMalformedOverlay, count)
	}

	sections := make([]Section, 0, count)
	seen := make(map[string]struct{}, count)
	for i := uint32(0); i < count; i++ {
		sec, err := p.section(i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sec.Path]; dup {
			return nil, fmt.Errorf("%w: duplicate section path %q", ErrMalformedOverlay, sec.Path)
		}
		seen[sec.Path] = struct{}{}
		sections = append(sections, sec)
	}

	if p.pos != len(p.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes between last section and footer",
			ErrMalformedOverlay, len(p.buf)-p.pos)
	}

	return &Container{
		Version:  version,
		Config:   append([]byte(nil), configJSON...),
		Sections: sections,
	}, nil
}

type parser struct {
	buf []byte
	pos int
}

func (p *parser) take(n int, what string) ([]byte, error) {
	if n < 0 || p.pos+n > len(p.buf) {
		return nil, fmt.Errorf("%w: truncated reading %s (need %d bytes at offset %d of %d)",
			ErrMalformedOverlay, what, n, p.pos, len(p.buf))
	}
	out := p.buf[p.pos : p.pos+n]
	p.pos += n
	return out, nil
}

func (p *parser) u16(what string) (uint16, error) {
	b, err := p.take(2, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (p *parser) u32(what string) (uint32, error) {
	b, err := p.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (p *parser) u64(what string) (uint64, error) {
	b, err := p.take(8, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (p *parser) section(index uint32) (Section, error) {
	pathLen, err := p.u16(fmt.Sprintf("section %d path length", index))
	if err != nil {
		return Section{}, err
	}
	if pathLen == 0 {
		return Section{}, fmt.Errorf("%w: section %d has an empty path", ErrMalformedOverlay, index)
	}
	pathBytes, err := p.take(int(pathLen), fmt.Sprintf("section %d path", index))
	if err != nil {
		return Section{}, err
	}

	size, err := p.u64(fmt.Sprintf("section %d size", index))
	if err != nil {
		return Section{}, err
	}
	checksum, err := p.u64(fmt.Sprintf("section %d checksum", index))
	if err != nil {
		return Section{}, err
	}

	compLen, err := p.u32(fmt.Sprintf("section %d payload length", index))
	if err != nil {
		return Section{}, err
	}
	if compLen > maxSectionSize {
		return Section{}, fmt.Errorf("%w: section %d payload length %d exceeds limit",
			ErrMalformedOverlay, index, compLen)
	}
	compressed, err := p.take(int(compLen), fmt.Sprintf("section %d payload", index))
	if err != nil {
		return Section{}, err
	}

	return Section{
		Path:       string(pathBytes),
		Size:       size,
		Checksum:   checksum,
		Compressed: append([]byte(nil), compressed...),
	}, nil
}
