package logging

import (
	"bytes"
	"io"
)

// PrefixWriter adds a prefix to every complete line written through it.
// Partial lines are buffered until their newline arrives, so interleaved
// writers cannot split a prefixed line.
type PrefixWriter struct {
	prefix []byte
	out    io.Writer
	pend   bytes.Buffer
}

// NewPrefixWriter creates a PrefixWriter emitting to w.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{prefix: []byte(prefix), out: w}
}

// Write implements io.Writer.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.pend.Write(p)

	for {
		line, err := pw.pend.ReadBytes('\n')
		if err != nil {
			// Incomplete line: stash it for the next Write.
			pw.pend.Write(line)
			break
		}
		if _, err := pw.out.Write(pw.prefix); err != nil {
			return 0, err
		}
		if _, err := pw.out.Write(line); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}
