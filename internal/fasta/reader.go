// Package fasta provides a streaming reader for aligned FASTA files.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"
)

// RecordMarker starts a new record.
const RecordMarker = ">"

// DefaultCommentPrefix marks lines that are skipped entirely.
const DefaultCommentPrefix = "#"

const maxLineSize = 16 * 1024 * 1024

// Record is a single FASTA entry.
type Record struct {
	ID   string
	Seq  string
	Line int // line number of the header, 0 if the record had none
}

// Option configures a Reader.
type Option func(*Reader)

// WithKeepEmpty controls whether header-only records are returned.
// By default they are dropped.
func WithKeepEmpty(keep bool) Option {
	return func(r *Reader) { r.keepEmpty = keep }
}

// WithCommentPrefixes replaces the set of comment markers.
func WithCommentPrefixes(prefixes ...string) Option {
	return func(r *Reader) {
		r.comments = r.comments[:0]
		for _, p := range prefixes {
			if p != "" {
				r.comments = append(r.comments, p)
			}
		}
	}
}

// WithLogger sets the logger used for warnings about dropped records.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// Reader reads records one at a time from an aligned FASTA stream.
type Reader struct {
	scanner    *bufio.Scanner
	closers    []io.Closer
	lineNumber int
	comments   []string
	keepEmpty  bool
	logger     *zap.Logger

	id        string
	idLine    int
	hasHeader bool
	seq       strings.Builder
	done      bool
}

// NewReader creates a reader over r. The caller owns r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	fr := &Reader{
		scanner:  scanner,
		comments: []string{DefaultCommentPrefix},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fr)
	}
	return fr
}

// Open creates a reader for the file at path. Use "-" for stdin.
// Gzipped input is detected from its magic bytes. Plain regular files
// are memory-mapped.
func Open(path string, opts ...Option) (*Reader, error) {
	if path == "-" {
		src, closer, err := maybeGunzip(bufio.NewReader(os.Stdin))
		if err != nil {
			return nil, err
		}
		r := NewReader(src, opts...)
		if closer != nil {
			r.closers = append(r.closers, closer)
		}
		return r, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta file: %w", err)
	}
	closers := []io.Closer{file}

	var src io.Reader = file
	if info, err := file.Stat(); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		if mm, err := mmap.Map(file, mmap.RDONLY, 0); err == nil {
			src = bytes.NewReader(mm)
			closers = append([]io.Closer{unmapper(mm)}, closers...)
		}
	}

	src, gz, err := maybeGunzip(bufio.NewReader(src))
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	if gz != nil {
		closers = append([]io.Closer{gz}, closers...)
	}

	r := NewReader(src, opts...)
	r.closers = closers
	return r, nil
}

// maybeGunzip wraps br in a gzip reader if it starts with the gzip magic number.
func maybeGunzip(br *bufio.Reader) (io.Reader, io.Closer, error) {
	magic, _ := br.Peek(2)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, gz, nil
	}
	return br, nil, nil
}

type unmapper mmap.MMap

func (m unmapper) Close() error {
	mm := mmap.MMap(m)
	return mm.Unmap()
}

func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Next reads the next record.
// Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, nil
	}

	for r.scanner.Scan() {
		r.lineNumber++
		line := r.scanner.Text()

		if r.isComment(line) {
			continue
		}

		if strings.HasPrefix(line, RecordMarker) {
			rec := r.flush()
			r.id = strings.TrimSpace(strings.TrimPrefix(line, RecordMarker))
			r.idLine = r.lineNumber
			r.hasHeader = true
			if rec != nil {
				return rec, nil
			}
			continue
		}

		r.seq.WriteString(strings.TrimSpace(line))
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta line %d: %w", r.lineNumber+1, err)
	}

	r.done = true
	return r.flush(), nil
}

// flush returns the record accumulated so far, if any, and resets the buffer.
func (r *Reader) flush() *Record {
	defer func() {
		r.seq.Reset()
		r.id = ""
		r.idLine = 0
		r.hasHeader = false
	}()

	if r.seq.Len() > 0 {
		return &Record{ID: r.id, Seq: r.seq.String(), Line: r.idLine}
	}
	if !r.hasHeader {
		return nil
	}
	if r.keepEmpty {
		return &Record{ID: r.id, Line: r.idLine}
	}
	r.logger.Warn("dropping record with empty sequence",
		zap.String("id", r.id),
		zap.Int("line", r.idLine))
	return nil
}

func (r *Reader) isComment(line string) bool {
	for _, p := range r.comments {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close releases the underlying source if the reader opened it.
func (r *Reader) Close() error {
	err := closeAll(r.closers)
	r.closers = nil
	return err
}

// ReadAll drains the reader.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, *rec)
	}
}
