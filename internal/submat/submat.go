// Package submat reads substitution matrices in compact text form and renders
// them as Go map literals.
//
// The text form starts with a line listing the symbols, one character each
// (for example "ARNDCQEGHILKMFPSTWYVBZX"). Line i after it holds the
// whitespace-separated scores of symbol i against symbols 0, 1, ... It may
// be lower-triangular or full; every score is stored for both orders.
package submat

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"io"
	"strconv"
	"strings"
)

// DefaultSkip lists the ambiguity codes left out of rendered matrices.
const DefaultSkip = "BZX"

// ErrNoSymbols is returned when the header line is missing or blank.
var ErrNoSymbols = errors.New("substitution matrix has no symbol line")

// Matrix is a symmetric table of substitution scores.
type Matrix struct {
	symbols []byte
	scores  map[byte]map[byte]int
}

// Parse reads a matrix in compact text form.
func Parse(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)

	var header string
	for scanner.Scan() {
		if header = strings.Join(strings.Fields(scanner.Text()), ""); header != "" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read matrix header: %w", err)
	}
	if header == "" {
		return nil, ErrNoSymbols
	}

	m := &Matrix{symbols: []byte(header), scores: make(map[byte]map[byte]int)}
	seen := make(map[byte]bool, len(m.symbols))
	for _, s := range m.symbols {
		if seen[s] {
			return nil, fmt.Errorf("duplicate symbol %q in matrix header", s)
		}
		seen[s] = true
		m.scores[s] = make(map[byte]int)
	}

	row := 0
	lineNumber := 1
	for scanner.Scan() && row < len(m.symbols) {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		a := m.symbols[row]
		for j, f := range fields {
			if j >= len(m.symbols) {
				break
			}
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: score %q: %w", lineNumber, f, err)
			}
			b := m.symbols[j]
			m.scores[a][b] = v
			m.scores[b][a] = v
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read matrix line %d: %w", lineNumber+1, err)
	}
	return m, nil
}

// Symbols returns the symbols in header order.
func (m *Matrix) Symbols() []byte {
	return append([]byte(nil), m.symbols...)
}

// Score returns the score for substituting a with b.
func (m *Matrix) Score(a, b byte) (int, bool) {
	row, ok := m.scores[a]
	if !ok {
		return 0, false
	}
	v, ok := row[b]
	return v, ok
}

// RenderOptions controls Render output.
type RenderOptions struct {
	Package string // emit a package clause and generated-code header when set
	Name    string // variable name, "Matrix" if empty
	Skip    string // symbols to leave out
}

// Render writes m as a gofmt-formatted Go variable of type map[byte]map[byte]int.
func Render(w io.Writer, m *Matrix, opts RenderOptions) error {
	name := opts.Name
	if name == "" {
		name = "Matrix"
	}

	var buf bytes.Buffer
	if opts.Package != "" {
		buf.WriteString("// Code generated by msa-indel submat. DO NOT EDIT.\n\n")
		fmt.Fprintf(&buf, "package %s\n\n", opts.Package)
	}
	fmt.Fprintf(&buf, "var %s = map[byte]map[byte]int{\n", name)
	for _, a := range m.symbols {
		if strings.IndexByte(opts.Skip, a) >= 0 {
			continue
		}
		fmt.Fprintf(&buf, "%s: {\n", strconv.QuoteRune(rune(a)))
		for _, b := range m.symbols {
			if strings.IndexByte(opts.Skip, b) >= 0 {
				continue
			}
			if v, ok := m.scores[a][b]; ok {
				fmt.Fprintf(&buf, "%s: %d,\n", strconv.QuoteRune(rune(b)), v)
			}
		}
		buf.WriteString("},\n")
	}
	buf.WriteString("}\n")

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format matrix source: %w", err)
	}
	_, err = w.Write(src)
	return err
}
