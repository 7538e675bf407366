package feature

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// fastaDirective ends the feature section of a GFF3 file.
const fastaDirective = "##FASTA"

// Reader streams Records from GTF or GFF3 input. Lines that do not parse
// as features are skipped and counted.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	rec     Record
	skipped int
	err     error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	// Increase buffer size for long attribute columns
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)
	return &Reader{sc: sc}
}

// Next advances to the next feature record, returning false at the end of
// input or on a read error.
func (r *Reader) Next() bool {
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()

		if strings.HasPrefix(line, fastaDirective) {
			return false
		}
		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseLine(line, r.line)
		if err != nil {
			r.skipped++
			continue
		}
		r.rec = rec
		return true
	}
	if err := r.sc.Err(); err != nil {
		r.err = fmt.Errorf("scan annotation: %w", err)
	}
	return false
}

// Record returns the record read by the last call to Next.
func (r *Reader) Record() Record {
	return r.rec
}

// Skipped returns the number of non-comment lines that could not be parsed.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Err returns the first read error encountered.
func (r *Reader) Err() error {
	return r.err
}

// ParseLine parses a single GTF or GFF3 line. The attribute dialect is
// detected from the attribute column itself.
func ParseLine(line string, lineNum int) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return Record{}, fmt.Errorf("invalid annotation line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse start: %w", err)
	}
	stop, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse end: %w", err)
	}

	rec := Record{
		Type:   strings.ToLower(fields[2]),
		Region: fields[0],
		Start:  start,
		Stop:   stop,
		Strand: ParseStrand(fields[6]),
		Line:   lineNum,
	}

	attrs, gff3 := parseAttributes(fields[8])
	if gff3 {
		rec.Name = attrs["ID"]
		rec.Parents = splitParents(attrs["Parent"])
		rec.Grandparent = attrs["gene_id"]
		return rec, nil
	}

	switch rec.Type {
	case "gene":
		rec.Name = attrs["gene_id"]
	case "transcript", "mrna":
		rec.Name = attrs["transcript_id"]
		rec.Parents = splitParents(attrs["gene_id"])
	default:
		rec.Name = attrs["exon_id"]
		rec.Parents = splitParents(attrs["transcript_id"])
		rec.Grandparent = attrs["gene_id"]
	}
	return rec, nil
}

// parseAttributes parses column 9 in either dialect:
//
//	GTF:  key "value"; key "value"; ...
//	GFF3: key=value;key=value
//
// The second return value reports whether any GFF3-style pair was seen.
// Repeated keys keep the last value.
func parseAttributes(attrStr string) (map[string]string, bool) {
	attrs := make(map[string]string)
	gff3 := false

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		eq := strings.Index(part, "=")
		sp := strings.Index(part, " ")
		switch {
		case eq > 0 && (sp == -1 || eq < sp):
			gff3 = true
			attrs[part[:eq]] = strings.TrimSpace(part[eq+1:])
		case sp > 0:
			value := strings.TrimSpace(part[sp+1:])
			attrs[part[:sp]] = strings.Trim(value, "\"")
		}
	}

	return attrs, gff3
}

// splitParents splits a comma-separated parent list, dropping empty names.
func splitParents(s string) []string {
	if s == "" {
		return nil
	}
	var parents []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parents = append(parents, p)
		}
	}
	return parents
}
