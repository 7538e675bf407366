package assemble

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gff2seq/internal/feature"
	"github.com/inodb/gff2seq/internal/transcript"
)

// Options controls how a transcript sequence is assembled.
type Options struct {
	NonCoding            bool // Use the transcript span instead of its children
	LeaveLowercase       bool // Keep genome casing for non-intron sequence
	IncludeIntrons       bool // Insert lower-case introns between features
	IntronTruncateLength int  // Shorten introns longer than this; 0 disables
	Translate            bool // Translate the assembled sequence
}

// Segment is one piece of an assembled sequence, either a feature or a
// synthesized intron.
type Segment struct {
	Start  int64
	Stop   int64
	Strand feature.Strand
	Order  float64 // Source line number; introns take the mean of their flanks
	Intron bool
}

// Result is an assembled transcript sequence.
type Result struct {
	Sequence    string
	Segments    []Segment      // In assembly order
	Consensus   feature.Strand // Most common strand among the features
	MixedStrand bool           // No single most common strand; file order was used
}

// Assembler builds sequences for transcripts of one genome.
type Assembler struct {
	opts   Options
	logger *zap.Logger
}

// NewAssembler creates an assembler with the given options.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts:   opts,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning messages.
func (a *Assembler) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Assemble extracts the sequence of n from regionSeq, the full sequence of
// the transcript's region.
func (a *Assembler) Assemble(regionSeq string, n *transcript.Node) Result {
	segs := a.features(n)

	consensus, mixed := consensusStrand(segs)
	if mixed {
		a.logger.Warn("mixed strands within transcript; using file order",
			zap.String("transcript", n.Info.Name),
			zap.String("region", n.Info.Region))
	}
	orderSegments(segs, consensus, mixed)

	if a.opts.IncludeIntrons && len(segs) > 1 {
		segs = withIntrons(segs, consensus)
	}

	var b strings.Builder
	regionLen := int64(len(regionSeq))
	for _, s := range segs {
		if max(s.Start, s.Stop) > regionLen {
			a.logger.Warn("feature extends past end of region",
				zap.String("transcript", n.Info.Name),
				zap.String("region", n.Info.Region),
				zap.Int64("stop", max(s.Start, s.Stop)),
				zap.Int64("region_length", regionLen))
		}
		b.WriteString(a.chunk(regionSeq, s))
	}

	seq := b.String()
	if a.opts.Translate {
		seq = Translate(seq)
	}

	return Result{
		Sequence:    seq,
		Segments:    segs,
		Consensus:   consensus,
		MixedStrand: mixed,
	}
}

// features returns the unordered feature list for n.
func (a *Assembler) features(n *transcript.Node) []Segment {
	children := n.Children()
	if a.opts.NonCoding {
		var order float64
		if len(children) > 0 {
			order = float64(children[0].Line)
		}
		return []Segment{{
			Start:  n.Info.Start,
			Stop:   n.Info.Stop,
			Strand: n.Info.Strand,
			Order:  order,
		}}
	}

	segs := make([]Segment, len(children))
	for i, c := range children {
		segs[i] = Segment{
			Start:  c.Start,
			Stop:   c.Stop,
			Strand: c.Strand,
			Order:  float64(c.Line),
		}
	}
	return segs
}

// chunk extracts, orients and cases the sequence of one segment.
func (a *Assembler) chunk(regionSeq string, s Segment) string {
	c := slice(regionSeq, s.Start, s.Stop)
	if s.Strand == feature.StrandReverse {
		c = ReverseComplement(c)
	}

	switch {
	case s.Intron:
		c = strings.ToLower(c)
	case a.opts.IncludeIntrons, !a.opts.LeaveLowercase:
		c = strings.ToUpper(c)
	}

	if s.Intron && a.opts.IntronTruncateLength > 0 && len(c) > a.opts.IntronTruncateLength {
		half := a.opts.IntronTruncateLength / 2
		c = c[:half] + c[len(c)-half:]
	}
	return c
}

// slice returns seq[start-1:stop] for 1-based inclusive coordinates,
// clamped to the bounds of seq.
func slice(seq string, start, stop int64) string {
	n := int64(len(seq))
	lo := min(max(start-1, 0), n)
	hi := min(max(stop, 0), n)
	if hi <= lo {
		return ""
	}
	return seq[lo:hi]
}

// consensusStrand returns the most common strand among segs. When more than
// one strand shares the highest count, mixed is true and the strand seen
// first among them is returned.
func consensusStrand(segs []Segment) (strand feature.Strand, mixed bool) {
	counts := make(map[feature.Strand]int)
	var order []feature.Strand
	for _, s := range segs {
		if counts[s.Strand] == 0 {
			order = append(order, s.Strand)
		}
		counts[s.Strand]++
	}

	best := 0
	for _, st := range order {
		switch c := counts[st]; {
		case c > best:
			best, strand, mixed = c, st, false
		case c == best:
			mixed = true
		}
	}
	return strand, mixed
}

// orderSegments sorts segs into coding direction.
func orderSegments(segs []Segment, consensus feature.Strand, mixed bool) {
	switch {
	case mixed:
		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].Order < segs[j].Order
		})
	case consensus == feature.StrandReverse:
		sort.SliceStable(segs, func(i, j int) bool {
			if segs[i].Stop != segs[j].Stop {
				return segs[i].Stop > segs[j].Stop
			}
			return segs[i].Start < segs[j].Start
		})
	default:
		sort.SliceStable(segs, func(i, j int) bool {
			if segs[i].Start != segs[j].Start {
				return segs[i].Start < segs[j].Start
			}
			return segs[i].Stop < segs[j].Stop
		})
	}
}

// withIntrons interleaves an intron between each adjacent pair of segs.
// The intron covers the gap between the two features whichever one has
// the lower coordinates.
func withIntrons(segs []Segment, strand feature.Strand) []Segment {
	out := make([]Segment, 0, 2*len(segs)-1)
	for i, s := range segs {
		if i > 0 {
			p := segs[i-1]
			out = append(out, Segment{
				Start:  min(max(p.Start, p.Stop), max(s.Start, s.Stop)) + 1,
				Stop:   max(min(p.Start, p.Stop), min(s.Start, s.Stop)) - 1,
				Strand: strand,
				Order:  (p.Order + s.Order) / 2,
				Intron: true,
			})
		}
		out = append(out, s)
	}
	return out
}
