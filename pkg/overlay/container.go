package overlay

// Container is a parsed overlay: the raw config block plus all sections,
// still compressed. Decoding sections is the extractor's job.
type Container struct {
	// Version as read from the wire; already validated by the reader.
	Version uint32

	// Config is the uncompressed JSON config block, opaque at this layer.
	Config []byte

	// Sections in container order.
	Sections []Section

	// Offset is where the overlay starts in the host file, i.e. the size
	// of the shell portion.
	Offset uint64
}

// Section returns the section with the given logical path, or nil.
func (c *Container) Section(path string) *Section {
	for i := range c.Sections {
		if c.Sections[i].Path == path {
			return &c.Sections[i]
		}
	}
	return nil
}
