package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/msa-indel/internal/indel"
)

// ScanKey identifies one scan of one alignment file. CommentPrefixes and
// KeepEmpty are the reader options the file was parsed with.
type ScanKey struct {
	Source          FileFingerprint
	ReferenceID     string
	MinCount        int
	CommentPrefixes []string
	KeepEmpty       bool
}

const keyWhere = `source_path=? AND source_size=? AND source_modtime=? AND reference_id=? AND min_count=? AND comment_prefixes=? AND keep_empty=?`

func (k ScanKey) args() []any {
	return []any{
		k.Source.Path, k.Source.Size, k.Source.modTimeKey(),
		k.ReferenceID, int64(k.MinCount), k.commentKey(), k.KeepEmpty,
	}
}

// commentKey is the stored form of the comment prefixes: sorted, without
// duplicates or empty entries, newline-joined. Order does not change parsing.
func (k ScanKey) commentKey() string {
	prefixes := make([]string, 0, len(k.CommentPrefixes))
	for _, p := range k.CommentPrefixes {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	slices.Sort(prefixes)
	return strings.Join(slices.Compact(prefixes), "\n")
}

// WriteScan replaces the cached events for key using the Appender API.
func (s *Store) WriteScan(key ScanKey, events []indel.Event) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM indel_events WHERE "+keyWhere, key.args()...); err != nil {
		return fmt.Errorf("delete cached events: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM scan_runs WHERE "+keyWhere, key.args()...); err != nil {
		return fmt.Errorf("delete cached scan: %w", err)
	}

	if len(events) > 0 {
		if err := appendEvents(conn, key, events); err != nil {
			return err
		}
	}

	args := append(key.args(), int64(len(events)), time.Now().UTC().Format(time.RFC3339))
	if _, err := conn.ExecContext(ctx, `INSERT INTO scan_runs
		(source_path, source_size, source_modtime, reference_id, min_count,
		 comment_prefixes, keep_empty, event_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

func appendEvents(conn *sql.Conn, key ScanKey, events []indel.Event) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "indel_events")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	src := key.Source
	comments := key.commentKey()
	for i, e := range events {
		if err := appender.AppendRow(
			src.Path, src.Size, src.modTimeKey(), key.ReferenceID, int64(key.MinCount),
			comments, key.KeepEmpty, int64(i), e.Kind.String(), int64(e.Pos), int64(e.Count), int64(e.Total),
			int64(e.Column), int64(e.Length),
		); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}

	return appender.Flush()
}

// LookupScan returns the cached events for key in emission order.
// The bool reports whether the scan was cached at all, so a cached scan
// without events is still a hit.
func (s *Store) LookupScan(key ScanKey) ([]indel.Event, bool, error) {
	var n int64
	err := s.db.QueryRow("SELECT event_count FROM scan_runs WHERE "+keyWhere, key.args()...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query scan: %w", err)
	}

	rows, err := s.db.Query(`SELECT kind, ref_pos, num_seqs, total_seqs, col_index, run_length
		FROM indel_events
		WHERE `+keyWhere+`
		ORDER BY seq`, key.args()...)
	if err != nil {
		return nil, false, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]indel.Event, 0, n)
	for rows.Next() {
		var kind string
		var pos, count, total, col, length int64
		if err := rows.Scan(&kind, &pos, &count, &total, &col, &length); err != nil {
			return nil, false, fmt.Errorf("scan event: %w", err)
		}
		k, err := indel.ParseKind(kind)
		if err != nil {
			return nil, false, err
		}
		events = append(events, indel.Event{
			Kind: k, Pos: int(pos), Count: int(count), Total: int(total),
			Column: int(col), Length: int(length),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate events: %w", err)
	}
	if int64(len(events)) != n {
		return nil, false, fmt.Errorf("cached scan has %d events, expected %d", len(events), n)
	}
	return events, true, nil
}

// ClearScans removes all cached scans.
func (s *Store) ClearScans() error {
	if _, err := s.db.Exec("DELETE FROM indel_events"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM scan_runs")
	return err
}

// ScanCount returns the number of cached scans.
func (s *Store) ScanCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scan_runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}
