package assemble

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gff2seq/internal/feature"
	"github.com/inodb/gff2seq/internal/transcript"
)

// testRegion is 400 bases: G x99, A at 100-200, T at 201-299, C at 300-350,
// G x50.
var testRegion = strings.Repeat("G", 99) +
	strings.Repeat("A", 101) +
	strings.Repeat("T", 99) +
	strings.Repeat("C", 51) +
	strings.Repeat("G", 50)

type span struct {
	start, stop int64
	strand      feature.Strand
}

func newTranscript(spans ...span) *transcript.Node {
	n := transcript.NewNode(transcript.Info{Name: "T1", Parent: "G1", Region: "chr1", Strand: spans[0].strand})
	for i, s := range spans {
		n.AddChild(feature.Record{
			Type:    feature.TypeCDS,
			Parents: []string{"T1"},
			Region:  "chr1",
			Start:   s.start,
			Stop:    s.stop,
			Strand:  s.strand,
			Line:    i + 1,
		})
	}
	n.Finalize()
	return n
}

func TestAssemble_PlusStrand(t *testing.T) {
	n := newTranscript(span{100, 200, '+'}, span{300, 350, '+'})
	res := NewAssembler(Options{}).Assemble(testRegion, n)

	assert.Equal(t, strings.Repeat("A", 101)+strings.Repeat("C", 51), res.Sequence)
	assert.Len(t, res.Sequence, 152)
	assert.Equal(t, int64(100), n.Info.Start)
	assert.Equal(t, int64(350), n.Info.Stop)
	assert.False(t, res.MixedStrand)
}

func TestAssemble_MinusStrand(t *testing.T) {
	// Children are listed in ascending order; assembly must still start at
	// the feature with the higher coordinates.
	n := newTranscript(span{100, 200, '-'}, span{300, 350, '-'})
	res := NewAssembler(Options{}).Assemble(testRegion, n)

	want := ReverseComplement(strings.Repeat("A", 101) + strings.Repeat("C", 51))
	assert.Equal(t, want, res.Sequence)
	assert.Equal(t, strings.Repeat("G", 51)+strings.Repeat("T", 101), res.Sequence)

	require.Len(t, res.Segments, 2)
	assert.Equal(t, int64(300), res.Segments[0].Start)
	assert.Equal(t, int64(100), res.Segments[1].Start)
}

func TestAssemble_MinusStrandEqualStops(t *testing.T) {
	n := newTranscript(span{50, 60, '-'}, span{40, 60, '-'}, span{10, 20, '-'})
	res := NewAssembler(Options{}).Assemble(testRegion, n)

	require.Len(t, res.Segments, 3)
	assert.Equal(t, int64(40), res.Segments[0].Start)
	assert.Equal(t, int64(50), res.Segments[1].Start)
	assert.Equal(t, int64(10), res.Segments[2].Start)
}

func TestAssemble_Introns(t *testing.T) {
	n := newTranscript(span{100, 200, '+'}, span{300, 350, '+'})
	res := NewAssembler(Options{IncludeIntrons: true}).Assemble(testRegion, n)

	want := strings.Repeat("A", 101) + strings.Repeat("t", 99) + strings.Repeat("C", 51)
	assert.Equal(t, want, res.Sequence)

	require.Len(t, res.Segments, 3)
	intron := res.Segments[1]
	assert.True(t, intron.Intron)
	assert.Equal(t, int64(201), intron.Start)
	assert.Equal(t, int64(299), intron.Stop)
	assert.Equal(t, 1.5, intron.Order)
}

func TestAssemble_IntronsMinusStrand(t *testing.T) {
	n := newTranscript(span{100, 200, '-'}, span{300, 350, '-'})
	res := NewAssembler(Options{IncludeIntrons: true}).Assemble(testRegion, n)

	want := strings.Repeat("G", 51) + strings.Repeat("a", 99) + strings.Repeat("T", 101)
	assert.Equal(t, want, res.Sequence)
	assert.Equal(t, int64(201), res.Segments[1].Start)
	assert.Equal(t, int64(299), res.Segments[1].Stop)
}

func TestAssemble_IntronTruncation(t *testing.T) {
	n := newTranscript(span{100, 200, '+'}, span{300, 350, '+'})

	for _, l := range []int{10, 11, 98} {
		res := NewAssembler(Options{IncludeIntrons: true, IntronTruncateLength: l}).Assemble(testRegion, n)
		intron := res.Sequence[101 : len(res.Sequence)-51]
		assert.Len(t, intron, 2*(l/2), "L=%d", l)
	}

	// Introns no longer than L are kept whole.
	res := NewAssembler(Options{IncludeIntrons: true, IntronTruncateLength: 99}).Assemble(testRegion, n)
	assert.Len(t, res.Sequence, 101+99+51)
}

func TestAssemble_IntronTruncationKeepsEnds(t *testing.T) {
	region := "AAAA" + "cgtacgtacgtaTG" + "AAAA"
	n := newTranscript(span{1, 4, '+'}, span{19, 22, '+'})
	res := NewAssembler(Options{IncludeIntrons: true, IntronTruncateLength: 7}).Assemble(region, n)

	// Intron is positions 5-18 ("cgtacgtacgtatg"), truncated to 3 + 3.
	assert.Equal(t, "AAAA"+"cgt"+"atg"+"AAAA", res.Sequence)
}

func TestAssemble_SingleFeatureNoIntron(t *testing.T) {
	n := newTranscript(span{100, 200, '+'})
	res := NewAssembler(Options{IncludeIntrons: true}).Assemble(testRegion, n)
	assert.Equal(t, strings.Repeat("A", 101), res.Sequence)
	assert.Len(t, res.Segments, 1)
}

func TestAssemble_RoundTripWithoutIntrons(t *testing.T) {
	region := strings.ToLower(testRegion[:150]) + testRegion[150:]
	for _, strand := range []feature.Strand{'+', '-'} {
		n := newTranscript(span{120, 180, strand}, span{300, 350, strand}, span{20, 40, strand})
		plain := NewAssembler(Options{}).Assemble(region, n)
		withIntrons := NewAssembler(Options{IncludeIntrons: true}).Assemble(region, n)

		stripped := strings.Map(func(r rune) rune {
			if unicode.IsLower(r) {
				return -1
			}
			return r
		}, withIntrons.Sequence)
		assert.Equal(t, plain.Sequence, stripped, "strand %s", strand)
	}
}

func TestAssemble_Case(t *testing.T) {
	region := "aaaaCCCCgggg"
	n := newTranscript(span{3, 10, '+'})

	assert.Equal(t, "AACCCCGG", NewAssembler(Options{}).Assemble(region, n).Sequence)
	assert.Equal(t, "aaCCCCgg", NewAssembler(Options{LeaveLowercase: true}).Assemble(region, n).Sequence)

	// Intron mode forces features to upper case even with LeaveLowercase.
	two := newTranscript(span{1, 2, '+'}, span{11, 12, '+'})
	res := NewAssembler(Options{IncludeIntrons: true, LeaveLowercase: true}).Assemble(region, two)
	assert.Equal(t, "AA"+"aaccccgg"+"GG", res.Sequence)
}

func TestAssemble_MixedStrandFallsBackToFileOrder(t *testing.T) {
	n := newTranscript(span{300, 350, '+'}, span{100, 200, '-'})
	res := NewAssembler(Options{}).Assemble(testRegion, n)

	assert.True(t, res.MixedStrand)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, int64(300), res.Segments[0].Start)
	assert.Equal(t, strings.Repeat("C", 51)+strings.Repeat("T", 101), res.Sequence)
}

func TestAssemble_MajorityStrand(t *testing.T) {
	n := newTranscript(span{10, 20, '-'}, span{300, 310, '+'}, span{100, 110, '-'})
	res := NewAssembler(Options{}).Assemble(testRegion, n)

	assert.False(t, res.MixedStrand)
	assert.Equal(t, feature.StrandReverse, res.Consensus)
	assert.Equal(t, int64(300), res.Segments[0].Start)
	assert.Equal(t, int64(100), res.Segments[1].Start)
	assert.Equal(t, int64(10), res.Segments[2].Start)
}

func TestAssemble_NonCoding(t *testing.T) {
	n := newTranscript(span{100, 200, '+'}, span{300, 350, '+'})
	res := NewAssembler(Options{NonCoding: true}).Assemble(testRegion, n)

	assert.Equal(t, testRegion[99:350], res.Sequence)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, int64(100), res.Segments[0].Start)
	assert.Equal(t, int64(350), res.Segments[0].Stop)
}

func TestAssemble_Translate(t *testing.T) {
	region := "NNATGGCCtaaNN"
	n := newTranscript(span{3, 11, '+'})
	res := NewAssembler(Options{Translate: true, LeaveLowercase: true}).Assemble(region, n)
	assert.Equal(t, "MA*", res.Sequence)
}

func TestAssemble_ClampsToRegion(t *testing.T) {
	n := newTranscript(span{395, 410, '+'})
	res := NewAssembler(Options{}).Assemble(testRegion, n)
	assert.Equal(t, strings.Repeat("G", 6), res.Sequence)
}

func TestConsensusStrand(t *testing.T) {
	seg := func(s feature.Strand) Segment { return Segment{Strand: s} }

	st, mixed := consensusStrand([]Segment{seg('+'), seg('+'), seg('-')})
	assert.Equal(t, feature.StrandForward, st)
	assert.False(t, mixed)

	st, mixed = consensusStrand([]Segment{seg('-'), seg('+')})
	assert.Equal(t, feature.StrandReverse, st)
	assert.True(t, mixed)

	st, mixed = consensusStrand([]Segment{seg('.')})
	assert.Equal(t, feature.StrandUnknown, st)
	assert.False(t, mixed)
}

func TestSlice(t *testing.T) {
	assert.Equal(t, "BCD", slice("ABCDE", 2, 4))
	assert.Equal(t, "A", slice("ABCDE", 1, 1))
	assert.Equal(t, "", slice("ABCDE", 4, 2))
	assert.Equal(t, "DE", slice("ABCDE", 4, 9))
	assert.Equal(t, "", slice("ABCDE", 7, 9))
}
