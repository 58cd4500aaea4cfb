package output

import (
	"bufio"
	"io"

	"github.com/goccy/go-json"

	"github.com/inodb/msa-indel/internal/indel"
)

// jsonEvent is the wire form of an event.
type jsonEvent struct {
	Type      string  `json:"type"`
	Position  int     `json:"position"`
	Count     int     `json:"count"`
	Total     int     `json:"total"`
	Frequency float64 `json:"frequency"`
	Column    int     `json:"column"`
	Length    int     `json:"length"`
}

// JSONWriter writes events as newline-delimited JSON objects.
type JSONWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONWriter creates a new JSON lines writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	bw := bufio.NewWriter(w)
	return &JSONWriter{w: bw, enc: json.NewEncoder(bw)}
}

// WriteHeader is a no-op for JSON lines.
func (jw *JSONWriter) WriteHeader() error { return nil }

// Write encodes one event. Column is reported 1-based, as in the tab format.
func (jw *JSONWriter) Write(e *indel.Event) error {
	return jw.enc.Encode(jsonEvent{
		Type:      e.Kind.String(),
		Position:  e.Pos,
		Count:     e.Count,
		Total:     e.Total,
		Frequency: e.Frequency(),
		Column:    e.Column + 1,
		Length:    e.Length,
	})
}

// Flush flushes any buffered data to the underlying writer.
func (jw *JSONWriter) Flush() error {
	return jw.w.Flush()
}
