// Package output provides sequence output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/gff2seq/internal/assemble"
	"github.com/inodb/gff2seq/internal/feature"
	"github.com/inodb/gff2seq/internal/transcript"
)

// Record is one transcript sequence ready to be written.
type Record struct {
	Name     string
	Gene     string
	Region   string
	Strand   feature.Strand
	Start    int64
	Stop     int64
	Sequence string
	Segments []assemble.Segment
}

// NewRecord combines transcript metadata with its assembled sequence.
func NewRecord(info transcript.Info, res assemble.Result) Record {
	return Record{
		Name:     info.Name,
		Gene:     info.Gene(),
		Region:   info.Region,
		Strand:   info.Strand,
		Start:    info.Start,
		Stop:     info.Stop,
		Sequence: res.Sequence,
		Segments: res.Segments,
	}
}

// FASTAWriter writes transcript sequences as FASTA records. Each record is
// flushed as soon as it is written.
type FASTAWriter struct {
	w       *bufio.Writer
	tag     string
	verbose bool
	width   int
}

// NewFASTAWriter creates a FASTA writer. tag is prepended to every header;
// verbose adds the assembled feature spans to the header.
func NewFASTAWriter(w io.Writer, tag string, verbose bool) *FASTAWriter {
	return &FASTAWriter{
		w:       bufio.NewWriter(w),
		tag:     tag,
		verbose: verbose,
	}
}

// SetWrap sets the sequence line width. Zero writes each sequence on a
// single line.
func (fw *FASTAWriter) SetWrap(width int) {
	fw.width = width
}

// Header returns the header line for rec, without the leading '>'.
func (fw *FASTAWriter) Header(rec Record) string {
	gene := rec.Gene
	if gene == "" {
		gene = rec.Name
	}

	fields := []string{
		fw.tag + rec.Name,
		gene,
		rec.Region,
		rec.Strand.String(),
		fmt.Sprintf("%d:%d", rec.Start, rec.Stop),
		strconv.Itoa(len(rec.Sequence)),
	}

	if fw.verbose {
		spans := make([]string, len(rec.Segments))
		for i, s := range rec.Segments {
			spans[i] = fmt.Sprintf("%d-%d", s.Start, s.Stop)
		}
		fields = append(fields, strings.Join(spans, ","))
	}

	return strings.Join(fields, "\t")
}

// Write writes a single record and flushes it.
func (fw *FASTAWriter) Write(rec Record) error {
	if _, err := fw.w.WriteString(">" + fw.Header(rec) + "\n"); err != nil {
		return err
	}

	seq := rec.Sequence
	if fw.width <= 0 {
		if _, err := fw.w.WriteString(seq + "\n"); err != nil {
			return err
		}
		return fw.w.Flush()
	}

	for len(seq) > 0 {
		n := min(fw.width, len(seq))
		if _, err := fw.w.WriteString(seq[:n] + "\n"); err != nil {
			return err
		}
		seq = seq[n:]
	}
	return fw.w.Flush()
}
