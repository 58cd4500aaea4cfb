package indel

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/msa-indel/internal/msa"
)

// insertionRun aggregates consecutive columns where the reference has a gap.
type insertionRun struct {
	start   int
	length  int
	present []bool // sequence i has a residue somewhere in the run
}

func newInsertionRun(col int, column []byte) *insertionRun {
	r := &insertionRun{start: col, present: make([]bool, len(column))}
	r.extend(column)
	return r
}

func (r *insertionRun) extend(column []byte) {
	r.length++
	for i, b := range column {
		r.present[i] = r.present[i] || !msa.IsGap(b)
	}
}

func (r *insertionRun) count() int {
	n := 0
	for _, p := range r.present {
		if p {
			n++
		}
	}
	return n
}

// Scanner walks an alignment column by column and yields indel events in
// column order.
type Scanner struct {
	aln      *msa.Alignment
	ref      int
	minCount int
	logger   *zap.Logger

	col     int
	pos     int
	run     *insertionRun
	column  []byte
	pending []Event
}

// NewScanner creates a scanner against the first record whose identifier
// equals referenceID. Events need at least minCount sequences to be reported.
func NewScanner(aln *msa.Alignment, referenceID string, minCount int) (*Scanner, error) {
	if minCount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeMinCount, minCount)
	}
	ref, ok := aln.Reference(referenceID)
	if !ok {
		return nil, &ReferenceNotFoundError{ID: referenceID}
	}

	return &Scanner{
		aln:      aln,
		ref:      ref,
		minCount: minCount,
		logger:   zap.NewNop(),
		pos:      1,
		column:   make([]byte, 0, aln.Len()),
	}, nil
}

// SetLogger sets the logger for debug messages about insertion runs.
func (s *Scanner) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Next returns the next event, or nil once the alignment is exhausted.
func (s *Scanner) Next() *Event {
	for len(s.pending) == 0 {
		if s.col >= s.aln.Width() {
			if s.run == nil {
				return nil
			}
			// The alignment ends inside an insertion run.
			s.closeRun()
			continue
		}
		s.step()
	}

	e := s.pending[0]
	s.pending = s.pending[1:]
	return &e
}

// All drains the scanner.
func (s *Scanner) All() []Event {
	var events []Event
	for e := s.Next(); e != nil; e = s.Next() {
		events = append(events, *e)
	}
	return events
}

// step consumes one column.
func (s *Scanner) step() {
	s.column = s.aln.Column(s.col, s.column)

	if msa.IsGap(s.column[s.ref]) {
		if s.run == nil {
			s.run = newInsertionRun(s.col, s.column)
			s.logger.Debug("insertion run opened",
				zap.Int("column", s.col),
				zap.Int("after_pos", s.pos-1))
		} else {
			s.run.extend(s.column)
		}
		s.col++
		return
	}

	if s.run != nil {
		s.closeRun()
	}

	if numdel := msa.CountGaps(s.column); numdel >= s.minCount {
		s.pending = append(s.pending, Event{
			Kind:   Deletion,
			Pos:    s.pos,
			Count:  numdel,
			Total:  s.aln.Len(),
			Column: s.col,
			Length: 1,
		})
	}

	s.pos++
	s.col++
}

// closeRun evaluates the open insertion run and discards it.
func (s *Scanner) closeRun() {
	numins := s.run.count()
	s.logger.Debug("insertion run closed",
		zap.Int("column", s.run.start),
		zap.Int("length", s.run.length),
		zap.Int("count", numins))

	if numins >= s.minCount {
		s.pending = append(s.pending, Event{
			Kind:   Insertion,
			Pos:    s.pos - 1,
			Count:  numins,
			Total:  s.aln.Len(),
			Column: s.run.start,
			Length: s.run.length,
		})
	}
	s.run = nil
}

// Scan returns every qualifying event of aln relative to referenceID.
func Scan(aln *msa.Alignment, referenceID string, minCount int) ([]Event, error) {
	s, err := NewScanner(aln, referenceID, minCount)
	if err != nil {
		return nil, err
	}
	return s.All(), nil
}
