package output

import (
	"fmt"
	"io"

	"github.com/inodb/msa-indel/internal/indel"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "tab", "json"}

// New returns the writer for the named format.
func New(format string, w io.Writer) (indel.EventWriter, error) {
	switch format {
	case "text", "":
		return NewTextWriter(w), nil
	case "tab":
		return NewTabWriter(w), nil
	case "json":
		return NewJSONWriter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
}
