package output

import (
	"bufio"
	"io"

	"github.com/inodb/msa-indel/internal/indel"
)

// TextWriter writes one "Insertion at P: n/total" line per event.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a new plain text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// WriteHeader is a no-op; the text format has no header.
func (tw *TextWriter) WriteHeader() error { return nil }

// Write writes a single event.
func (tw *TextWriter) Write(e *indel.Event) error {
	_, err := tw.w.WriteString(e.String() + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TextWriter) Flush() error {
	return tw.w.Flush()
}
