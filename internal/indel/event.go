// Package indel finds high-frequency insertion and deletion positions in a
// multiple sequence alignment, relative to a reference sequence.
package indel

import (
	"errors"
	"fmt"
)

// Kind is the type of an indel event.
type Kind int

const (
	Deletion Kind = iota
	Insertion
)

func (k Kind) String() string {
	switch k {
	case Deletion:
		return "Deletion"
	case Insertion:
		return "Insertion"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "Deletion":
		return Deletion, nil
	case "Insertion":
		return Insertion, nil
	}
	return 0, fmt.Errorf("unknown indel kind %q", s)
}

// Event is a qualifying insertion run or deletion column.
type Event struct {
	Kind   Kind
	Pos    int // 1-based reference position; insertions sit after Pos
	Count  int // sequences carrying the indel
	Total  int // sequences in the alignment, reference included
	Column int // 0-based alignment column where the event starts
	Length int // columns spanned; always 1 for deletions
}

// String formats the event as "Insertion at 12: 3/40".
func (e Event) String() string {
	return fmt.Sprintf("%s at %d: %d/%d", e.Kind, e.Pos, e.Count, e.Total)
}

// Frequency returns Count/Total.
func (e Event) Frequency() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Count) / float64(e.Total)
}

// ErrReferenceNotFound is returned when no record matches the reference identifier.
var ErrReferenceNotFound = errors.New("reference not found")

// ErrNegativeMinCount is returned for a negative minimum count.
var ErrNegativeMinCount = errors.New("minimum indel count must not be negative")

// ReferenceNotFoundError carries the identifier that could not be resolved.
type ReferenceNotFoundError struct {
	ID string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("can not locate reference %q", e.ID)
}

func (e *ReferenceNotFoundError) Unwrap() error { return ErrReferenceNotFound }

// Summary counts events by kind.
type Summary struct {
	Insertions int
	Deletions  int
}

func (s *Summary) add(e *Event) {
	switch e.Kind {
	case Insertion:
		s.Insertions++
	case Deletion:
		s.Deletions++
	}
}

// Summarize counts the events of each kind.
func Summarize(events []Event) Summary {
	var s Summary
	for i := range events {
		s.add(&events[i])
	}
	return s
}
