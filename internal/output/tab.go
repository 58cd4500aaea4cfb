// Package output provides indel event output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/msa-indel/internal/indel"
)

// TabWriter writes events in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Type",
			"Position",
			"Count",
			"Total",
			"Frequency",
			"Column",
			"Length",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single event. Column is reported 1-based.
func (tw *TabWriter) Write(e *indel.Event) error {
	values := []string{
		e.Kind.String(),
		strconv.Itoa(e.Pos),
		strconv.Itoa(e.Count),
		strconv.Itoa(e.Total),
		fmt.Sprintf("%.4f", e.Frequency()),
		strconv.Itoa(e.Column + 1),
		strconv.Itoa(e.Length),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
