package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/gff2seq/internal/feature"
	"github.com/inodb/gff2seq/internal/output"
)

type sequenceKey struct {
	region, transcriptID string
}

// WriteSequences batch-inserts emitted records using the Appender API.
// Duplicate (region, transcript_id) entries keep the first record.
func (s *Store) WriteSequences(recs []output.Record) error {
	if len(recs) == 0 {
		return nil
	}

	seen := make(map[sequenceKey]bool, len(recs))
	deduped := make([]output.Record, 0, len(recs))
	for _, r := range recs {
		k := sequenceKey{r.Region, r.Name}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "sequences")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		if err := appender.AppendRow(
			r.Region, r.Name, r.Gene, r.Strand.String(),
			r.Start, r.Stop, int64(len(r.Sequence)),
			formatSegments(r), r.Sequence,
		); err != nil {
			return fmt.Errorf("append sequence %s: %w", r.Name, err)
		}
	}

	return appender.Flush()
}

// ClearSequences removes all catalogued sequences.
func (s *Store) ClearSequences() error {
	_, err := s.db.Exec("DELETE FROM sequences")
	return err
}

// SequenceCount returns the number of catalogued sequences.
func (s *Store) SequenceCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM sequences").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sequences: %w", err)
	}
	return n, nil
}

// LookupTranscript returns the catalogued sequence for a transcript, or nil
// if it was not emitted. Segments are not restored.
func (s *Store) LookupTranscript(region, transcriptID string) (*output.Record, error) {
	rows, err := s.db.Query(`SELECT gene, strand, start_pos, stop_pos, sequence
		FROM sequences WHERE region=? AND transcript_id=?`, region, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	rec := output.Record{Region: region, Name: transcriptID}
	var strand string
	if err := rows.Scan(&rec.Gene, &strand, &rec.Start, &rec.Stop, &rec.Sequence); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	rec.Strand = feature.ParseStrand(strand)
	return &rec, nil
}

func formatSegments(r output.Record) string {
	spans := make([]string, len(r.Segments))
	for i, seg := range r.Segments {
		spans[i] = fmt.Sprintf("%d-%d", seg.Start, seg.Stop)
	}
	return strings.Join(spans, ",")
}
