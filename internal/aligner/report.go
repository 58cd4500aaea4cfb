package aligner

import (
	"sort"

	"github.com/inodb/msa-indel/internal/indel"
)

// Report maps a gene name to one result per input sequence.
type Report map[string][]SequenceResult

// SequenceResult is the outcome of aligning one sequence against one gene.
type SequenceResult struct {
	Name   string
	Report *GeneReport
	Error  string
}

// GeneReport is the per-gene alignment summary produced by nucamino.
type GeneReport struct {
	FirstAA           int
	FirstNA           int
	LastAA            int
	LastNA            int
	Mutations         []Mutation
	FrameShifts       []FrameShift
	AminoAcidsLine    string
	ControlLine       string
	NucleicAcidsLine  string
	IsSimpleAlignment bool
}

// Mutation is an amino acid change relative to the profile reference.
type Mutation struct {
	Position               int
	CodonText              string
	AminoAcidText          string
	ReferenceText          string
	IsInsertion            bool
	IsDeletion             bool
	IsPartial              bool
	Control                string
	InsertedCodonsText     string
	InsertedAminoAcidsText string
}

// FrameShift is an out-of-frame indel.
type FrameShift struct {
	Position         int
	NAPosition       int
	NucleicAcidsText string
	IsInsertion      bool
	IsDeletion       bool
	GapLength        int
}

// Aligned returns the number of sequences of gene that aligned without error.
func (r Report) Aligned(gene string) int {
	n := 0
	for _, res := range r[gene] {
		if res.Report != nil && res.Error == "" {
			n++
		}
	}
	return n
}

// Events tallies insertion and deletion mutations of gene by reference
// position. Positions carried by at least minCount aligned sequences are
// returned in position order, deletions before insertions at the same
// position. Column is not meaningful here and is left as Position-1.
func (r Report) Events(gene string, minCount int) []indel.Event {
	type tally struct{ ins, del int }
	counts := make(map[int]*tally)

	for _, res := range r[gene] {
		if res.Report == nil || res.Error != "" {
			continue
		}
		// A sequence counts once per position.
		seenIns := make(map[int]bool)
		seenDel := make(map[int]bool)
		for _, m := range res.Report.Mutations {
			c := counts[m.Position]
			if c == nil {
				c = &tally{}
				counts[m.Position] = c
			}
			if m.IsInsertion && !seenIns[m.Position] {
				seenIns[m.Position] = true
				c.ins++
			}
			if m.IsDeletion && !seenDel[m.Position] {
				seenDel[m.Position] = true
				c.del++
			}
		}
	}

	positions := make([]int, 0, len(counts))
	for pos := range counts {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	total := r.Aligned(gene)
	var events []indel.Event
	for _, pos := range positions {
		c := counts[pos]
		if c.del > 0 && c.del >= minCount {
			events = append(events, indel.Event{
				Kind: indel.Deletion, Pos: pos, Count: c.del, Total: total,
				Column: pos - 1, Length: 1,
			})
		}
		if c.ins > 0 && c.ins >= minCount {
			events = append(events, indel.Event{
				Kind: indel.Insertion, Pos: pos, Count: c.ins, Total: total,
				Column: pos - 1, Length: 1,
			})
		}
	}
	return events
}
