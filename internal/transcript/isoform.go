package transcript

import (
	"sort"

	"github.com/biogo/store/interval"
)

// Span is a closed genomic interval.
type Span struct {
	Start, Stop int64
}

// Overlaps reports whether two closed intervals share at least one base.
// The interval with the lower start is compared against the start of the
// other; intervals with identical starts always overlap.
func Overlaps(a, b Span) bool {
	lo, hi := a, b
	if hi.Start < lo.Start {
		lo, hi = hi, lo
	}
	return hi.Start <= lo.Stop
}

// acceptedSpan is a Span stored in an interval tree of accepted isoforms.
type acceptedSpan struct {
	Span
	id uintptr
}

func (s acceptedSpan) ID() uintptr { return s.id }
func (s acceptedSpan) Range() interval.IntRange {
	return interval.IntRange{Start: int(s.Start), End: int(s.Stop)}
}
func (s acceptedSpan) Overlap(b interval.IntRange) bool {
	return Overlaps(s.Span, Span{Start: int64(b.Start), Stop: int64(b.End)})
}

// spanQuery adapts a Span to the tree's query interface.
type spanQuery Span

func (q spanQuery) Overlap(b interval.IntRange) bool {
	return Overlaps(Span(q), Span{Start: int64(b.Start), Stop: int64(b.End)})
}

// ByLength orders transcripts longest first, breaking ties by name.
func ByLength(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := &nodes[i].Info, &nodes[j].Info
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		return a.Name < b.Name
	})
}

// SelectIsoforms keeps one transcript per gene in each region: the longest,
// with the lexically smallest name winning ties. When useCoordinateOverlap
// is set, a transcript is also rejected if its span overlaps any transcript
// already kept in the same region, whatever its gene.
func SelectIsoforms(m Map, useCoordinateOverlap bool) Map {
	selected := make(Map, len(m))

	for region, nodes := range m {
		candidates := make([]*Node, 0, len(nodes))
		for _, n := range nodes {
			if len(n.Children()) > 0 {
				candidates = append(candidates, n)
			}
		}
		ByLength(candidates)

		seenGenes := make(map[string]bool)
		var seenCoords interval.IntTree
		var nextID uintptr

		kept := make(map[string]*Node)
		for _, n := range candidates {
			gene := n.Info.Parent
			if gene != "" && seenGenes[gene] {
				continue
			}
			span := Span{Start: n.Info.Start, Stop: n.Info.Stop}
			if useCoordinateOverlap && len(seenCoords.Get(spanQuery(span))) > 0 {
				continue
			}

			if gene != "" {
				seenGenes[gene] = true
			}
			nextID++
			// Spans are recomputed as (min, max) so they are never inverted.
			_ = seenCoords.Insert(acceptedSpan{Span: span, id: nextID}, false)
			kept[n.Info.Name] = n
		}

		if len(kept) > 0 {
			selected[region] = kept
		}
	}

	return selected
}
