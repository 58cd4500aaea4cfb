// Package msa holds a multiple sequence alignment in memory.
package msa

import (
	"errors"
	"fmt"

	"github.com/inodb/msa-indel/internal/fasta"
)

// Gap is the gap symbol.
const Gap = '-'

// ErrRaggedAlignment is returned when sequences differ in length.
var ErrRaggedAlignment = errors.New("sequences have different lengths")

// RaggedError describes the first record whose length differs from the first sequence.
type RaggedError struct {
	ID    string
	Line  int
	Len   int
	Width int
}

func (e *RaggedError) Error() string {
	return fmt.Sprintf("record %q (line %d) has length %d, expected %d", e.ID, e.Line, e.Len, e.Width)
}

func (e *RaggedError) Unwrap() error { return ErrRaggedAlignment }

// Alignment is an ordered set of equal-length aligned sequences.
type Alignment struct {
	records []fasta.Record
	width   int
}

// New builds an alignment from records, keeping their order.
func New(records []fasta.Record) (*Alignment, error) {
	a := &Alignment{records: records}
	if len(records) == 0 {
		return a, nil
	}

	a.width = len(records[0].Seq)
	for _, r := range records[1:] {
		if len(r.Seq) != a.width {
			return nil, &RaggedError{ID: r.ID, Line: r.Line, Len: len(r.Seq), Width: a.width}
		}
	}
	return a, nil
}

// Read drains a FASTA reader into an alignment.
func Read(r *fasta.Reader) (*Alignment, error) {
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return New(records)
}

// Load opens path and reads the alignment it contains.
func Load(path string, opts ...fasta.Option) (*Alignment, error) {
	r, err := fasta.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return Read(r)
}

// Len returns the number of sequences.
func (a *Alignment) Len() int { return len(a.records) }

// Width returns the number of columns.
func (a *Alignment) Width() int { return a.width }

// Record returns the i-th record.
func (a *Alignment) Record(i int) fasta.Record { return a.records[i] }

// Reference returns the index of the first record whose ID equals id.
// Sequence lines read before any header have no identifier and never match.
func (a *Alignment) Reference(id string) (int, bool) {
	for i, r := range a.records {
		if r.Line > 0 && r.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Column appends the symbols at column i of every sequence to dst[:0]
// and returns the result.
func (a *Alignment) Column(i int, dst []byte) []byte {
	dst = dst[:0]
	for _, r := range a.records {
		dst = append(dst, r.Seq[i])
	}
	return dst
}

// IsGap reports whether b is the gap symbol.
func IsGap(b byte) bool { return b == Gap }

// CountGaps returns the number of gap symbols in a column.
func CountGaps(column []byte) int {
	n := 0
	for _, b := range column {
		if IsGap(b) {
			n++
		}
	}
	return n
}
