// Package feature provides the normalized annotation record and a GTF/GFF3
// line parser that produces it.
package feature

import "strings"

// Child feature types, lower-cased.
const (
	TypeCDS  = "cds"
	TypeExon = "exon"
)

// Strand is the orientation of a feature.
type Strand byte

// Strand values as they appear in column 7 of GTF/GFF3.
const (
	StrandUnknown Strand = '.'
	StrandForward Strand = '+'
	StrandReverse Strand = '-'
)

// ParseStrand converts a strand column to a Strand. Anything other than
// "+" or "-" is unknown.
func ParseStrand(s string) Strand {
	switch s {
	case "+":
		return StrandForward
	case "-":
		return StrandReverse
	default:
		return StrandUnknown
	}
}

// String returns the single-character column form of the strand.
func (s Strand) String() string {
	if s == 0 {
		return string(StrandUnknown)
	}
	return string(s)
}

// Known reports whether the strand is + or -.
func (s Strand) Known() bool {
	return s == StrandForward || s == StrandReverse
}

// Record is one annotation line reduced to the fields transcript
// reconstruction needs.
type Record struct {
	Type        string   // lower-cased feature type (column 3)
	Name        string   // own identifier, empty for anonymous child features
	Parents     []string // declared parents in file order
	Grandparent string   // gene reference carried by child features, if any
	Region      string   // sequence name (column 1)
	Start       int64    // 1-based, inclusive
	Stop        int64    // 1-based, inclusive
	Strand      Strand
	Line        int // 1-based source line number
}

// Len returns the number of bases covered by the record, regardless of
// whether Start and Stop are ordered.
func (r *Record) Len() int64 {
	d := r.Stop - r.Start
	if d < 0 {
		d = -d
	}
	return d + 1
}

// IsChildType reports whether t is one of the types transcripts are
// assembled from.
func IsChildType(t string) bool {
	return t == TypeCDS || t == TypeExon
}

// AlternateChildType returns the child type to retry with when t is absent
// from an annotation.
func AlternateChildType(t string) string {
	if strings.EqualFold(t, TypeExon) {
		return TypeCDS
	}
	return TypeExon
}
