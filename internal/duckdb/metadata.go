package duckdb

import (
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// WriteSources replaces the recorded input files with fps.
func (s *Store) WriteSources(fps ...FileFingerprint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sources"); err != nil {
		return fmt.Errorf("clear sources: %w", err)
	}
	for _, fp := range fps {
		if _, err := tx.Exec("INSERT INTO sources VALUES (?, ?, ?)", fp.Path, fp.Size, fp.ModTime.UTC()); err != nil {
			return fmt.Errorf("insert source %s: %w", fp.Path, err)
		}
	}
	return tx.Commit()
}

// Sources returns the recorded input files ordered by path.
func (s *Store) Sources() ([]FileFingerprint, error) {
	rows, err := s.db.Query("SELECT path, size, mod_time FROM sources ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var fps []FileFingerprint
	for rows.Next() {
		var fp FileFingerprint
		if err := rows.Scan(&fp.Path, &fp.Size, &fp.ModTime); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}
