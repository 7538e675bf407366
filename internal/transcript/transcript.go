// Package transcript reconstructs transcript models from annotation records
// and selects representative isoforms.
package transcript

import (
	"sort"

	"github.com/inodb/gff2seq/internal/feature"
)

// Info describes a transcript. Start, Stop and Length are derived from the
// children during finalization and never taken from a declared
// transcript-level line.
type Info struct {
	Name     string         // Transcript ID
	Parent   string         // Gene ID; equals Name when no gene is known
	Region   string         // Sequence name
	Strand   feature.Strand // Declared strand
	Start    int64          // Min child start (1-based)
	Stop     int64          // Max child stop (1-based, inclusive)
	Length   int64          // Sum of child span lengths
	Inferred bool           // Synthesized from a child's parent reference
}

// Gene returns the gene identifier, falling back to the transcript name.
func (i *Info) Gene() string {
	if i.Parent == "" {
		return i.Name
	}
	return i.Parent
}

// merge overwrites i with the non-empty fields of o. It is applied when an
// explicit transcript-level record is seen, so the result is no longer
// inferred.
func (i *Info) merge(o Info) {
	if o.Parent != "" {
		i.Parent = o.Parent
	}
	if o.Region != "" {
		i.Region = o.Region
	}
	if o.Strand.Known() {
		i.Strand = o.Strand
	}
	i.Inferred = false
}

type childKey struct {
	start, stop int64
	strand      feature.Strand
}

// Node is a transcript with the child features it is assembled from.
type Node struct {
	Info     Info
	children []feature.Record
	seen     map[childKey]struct{}
}

// NewNode returns a node with no children.
func NewNode(info Info) *Node {
	return &Node{Info: info, seen: make(map[childKey]struct{})}
}

// AddChild attaches rec unless a child with the same coordinates and strand
// is already present. It reports whether rec was added.
func (n *Node) AddChild(rec feature.Record) bool {
	k := childKey{start: rec.Start, stop: rec.Stop, strand: rec.Strand}
	if _, ok := n.seen[k]; ok {
		return false
	}
	n.seen[k] = struct{}{}
	n.children = append(n.children, rec)
	return true
}

// Children returns the child features in the order they were added.
func (n *Node) Children() []feature.Record {
	return n.children
}

// Finalize recomputes the span and length from the current children.
func (n *Node) Finalize() {
	if len(n.children) == 0 {
		n.Info.Start, n.Info.Stop, n.Info.Length = 0, 0, 0
		return
	}
	start, stop := n.children[0].Start, n.children[0].Stop
	var length int64
	for i := range n.children {
		c := &n.children[i]
		start = min(start, c.Start)
		stop = max(stop, c.Stop)
		length += c.Len()
	}
	n.Info.Start, n.Info.Stop, n.Info.Length = start, stop, length
}

// Map holds transcripts by region, then by transcript name.
type Map map[string]map[string]*Node

// Count returns the total number of transcripts.
func (m Map) Count() int {
	n := 0
	for _, nodes := range m {
		n += len(nodes)
	}
	return n
}

// Regions returns the region names in sorted order.
func (m Map) Regions() []string {
	regions := make([]string, 0, len(m))
	for r := range m {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// Sorted returns the transcripts of region ordered by start coordinate,
// then name.
func (m Map) Sorted(region string) []*Node {
	nodes := make([]*Node, 0, len(m[region]))
	for _, n := range m[region] {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := &nodes[i].Info, &nodes[j].Info
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Name < b.Name
	})
	return nodes
}

// Get returns the named transcript in region, or nil.
func (m Map) Get(region, name string) *Node {
	return m[region][name]
}
