// Package extract runs transcript reconstruction and sequence extraction
// over an annotation and a genome.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/gff2seq/internal/assemble"
	"github.com/inodb/gff2seq/internal/feature"
)

// ErrIntronsNonCoding is returned when intron inclusion and non-coding mode
// are both requested.
var ErrIntronsNonCoding = errors.New("--introns and --non-coding are mutually exclusive")

// Options configures a run. It is built once from the command line and not
// modified afterwards.
type Options struct {
	ChildType            string // "cds" or "exon"
	AllowIsoforms        bool   // Emit every transcript instead of one per gene
	CoordinateIsoforms   bool   // Also collapse overlapping transcripts of different genes
	VerboseHeaders       bool   // Add assembled feature spans to headers
	HeaderTag            string // Literal prefix for every header
	NonCoding            bool   // Use the full transcript span
	LeaveLowercase       bool   // Preserve genome casing
	IncludeIntrons       bool   // Insert lower-case introns
	IntronTruncateLength int    // Shorten introns longer than this; 0 disables
	Translate            bool   // Emit amino acids
	Workers              int    // Assembly workers per region; 0 uses NumCPU
	Wrap                 int    // Sequence line width; 0 disables wrapping
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() Options {
	return Options{ChildType: feature.TypeCDS}
}

// Validate checks for inconsistent settings. It must be called before any
// input is read.
func (o Options) Validate() error {
	if o.IncludeIntrons && o.NonCoding {
		return ErrIntronsNonCoding
	}
	if !feature.IsChildType(strings.ToLower(o.ChildType)) {
		return fmt.Errorf("invalid feature type %q: must be cds or exon", o.ChildType)
	}
	if o.IntronTruncateLength < 0 {
		return fmt.Errorf("invalid intron truncation length %d", o.IntronTruncateLength)
	}
	if o.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", o.Workers)
	}
	return nil
}

// AssembleOptions returns the subset of options used by the assembler.
func (o Options) AssembleOptions() assemble.Options {
	return assemble.Options{
		NonCoding:            o.NonCoding,
		LeaveLowercase:       o.LeaveLowercase,
		IncludeIntrons:       o.IncludeIntrons,
		IntronTruncateLength: o.IntronTruncateLength,
		Translate:            o.Translate,
	}
}
