// Package codec provides the compression codecs asset sections are written
// with. Codecs register themselves at init time; the container's config
// block records which codec was used so readers resolve it by name.
package codec

import (
	"fmt"
	"sort"
)

// Codec compresses and decompresses whole section payloads. Sections are
// bounded in size, so the interface is byte-slice in, byte-slice out.
type Codec interface {
	// Name is the identifier recorded in the container config block.
	Name() string

	// Compress returns the encoded form of data at the given level. A level
	// of 0 selects the codec's default.
	Compress(data []byte, level int) ([]byte, error)

	// Decompress reverses Compress.
	Decompress(data []byte) ([]byte, error)
}

// DefaultName is the codec used when the configuration does not pick one.
const DefaultName = "zstd"

var registry = map[string]Codec{}

// Register adds a codec to the registry. Duplicate names panic; that is a
// programming error, not a runtime condition.
func Register(c Codec) {
	name := c.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("codec %q registered twice", name))
	}
	registry[name] = c
}

// Get resolves a codec by name. An empty name resolves the default.
func Get(name string) (Codec, error) {
	if name == "" {
		name = DefaultName
	}
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (have %v)", name, Names())
	}
	return c, nil
}

// Names lists registered codec names, sorted for stable output.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
