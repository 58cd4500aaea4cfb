package duckdb

import (
	"os"
	"path/filepath"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
// The path is made absolute so the same file matches from any directory.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// modTimeKey is the stored form of the modification time.
func (f FileFingerprint) modTimeKey() string {
	return f.ModTime.UTC().Format(time.RFC3339Nano)
}
