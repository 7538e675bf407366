package transcript

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/inodb/gff2seq/internal/feature"
)

// ErrNoChildFeatures is returned when an annotation contains neither CDS nor
// exon features.
var ErrNoChildFeatures = errors.New("no CDS or exon features found in annotation")

// RecordSource yields annotation records. *feature.Reader satisfies it.
type RecordSource interface {
	Next() bool
	Record() feature.Record
	Err() error
}

// Opener opens the annotation. IndexFile calls it exactly once, so it may
// return a non-seekable stream such as stdin.
type Opener func() (io.ReadCloser, error)

// Index is the result of one indexing pass.
type Index struct {
	Transcripts    Map
	ChildType      string          // Child type transcripts were built from
	ChildTypeFound bool            // Whether any record of ChildType was seen
	SeenTypes      map[string]bool // Every feature type observed
	Orphans        int             // Child records with no parent reference
	Skipped        int             // Lines the parser could not read
}

// Indexer folds annotation records into transcripts.
type Indexer struct {
	childType string
	logger    *zap.Logger
}

// NewIndexer creates an indexer that assembles transcripts from records of
// childType ("cds" or "exon").
func NewIndexer(childType string) *Indexer {
	return &Indexer{
		childType: childType,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (x *Indexer) SetLogger(l *zap.Logger) {
	x.logger = l
}

// Index reads every record from src and returns the finalized transcripts.
func (x *Indexer) Index(src RecordSource) (*Index, error) {
	b := newBuilder(x.childType)
	for src.Next() {
		b.add(src.Record())
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	b.finalize()
	return b.idx, nil
}

// IndexFile indexes the annotation opened by open. When the configured child
// type is absent but the alternate one is present, the records kept from the
// first pass are indexed again with the alternate type. ErrNoChildFeatures is
// returned when neither type exists.
func (x *Indexer) IndexFile(open Opener) (*Index, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := feature.NewReader(rc)
	first := &replaySource{src: r, drop: x.childType}
	idx, err := x.Index(first)
	if err != nil {
		return nil, fmt.Errorf("index annotation: %w", err)
	}
	skipped := r.Skipped()

	if !idx.ChildTypeFound {
		alt := feature.AlternateChildType(x.childType)
		if !idx.SeenTypes[alt] {
			return nil, ErrNoChildFeatures
		}
		x.logger.Warn("no features of requested type; retrying with alternate type",
			zap.String("requested", x.childType),
			zap.String("alternate", alt))

		sub := &Indexer{childType: alt, logger: x.logger}
		if idx, err = sub.Index(&replaySource{recs: first.kept}); err != nil {
			return nil, fmt.Errorf("index annotation: %w", err)
		}
		if !idx.ChildTypeFound {
			return nil, fmt.Errorf("retry with %s: %w", alt, ErrNoChildFeatures)
		}
	}
	idx.Skipped = skipped

	if idx.Orphans > 0 {
		x.logger.Warn("skipped child features with no parent",
			zap.String("type", idx.ChildType),
			zap.Int("orphans", idx.Orphans))
	}
	if idx.Skipped > 0 {
		x.logger.Debug("skipped unparseable annotation lines", zap.Int("lines", idx.Skipped))
	}
	return idx, nil
}

// replaySource streams records from src while keeping every record whose type
// is not drop. With src nil it replays recs instead. A retry only happens when
// no record of type drop was seen, so the kept records are the whole input.
type replaySource struct {
	src  RecordSource
	drop string
	kept []feature.Record

	recs []feature.Record
	cur  feature.Record
}

func (s *replaySource) Next() bool {
	if s.src == nil {
		if len(s.recs) == 0 {
			return false
		}
		s.cur, s.recs = s.recs[0], s.recs[1:]
		return true
	}
	if !s.src.Next() {
		return false
	}
	s.cur = s.src.Record()
	if s.cur.Type != s.drop {
		s.kept = append(s.kept, s.cur)
	}
	return true
}

func (s *replaySource) Record() feature.Record { return s.cur }

func (s *replaySource) Err() error {
	if s.src == nil {
		return nil
	}
	return s.src.Err()
}

// builder holds the collect-phase state of one indexing pass.
type builder struct {
	idx          *Index
	grandparents map[string]map[string]string // region -> parent -> gene
	hasChildren  map[string]bool              // regions that received a child
}

func newBuilder(childType string) *builder {
	return &builder{
		idx: &Index{
			Transcripts: make(Map),
			ChildType:   childType,
			SeenTypes:   make(map[string]bool),
		},
		grandparents: make(map[string]map[string]string),
		hasChildren:  make(map[string]bool),
	}
}

func (b *builder) add(rec feature.Record) {
	b.idx.SeenTypes[rec.Type] = true

	switch {
	case rec.Type == b.idx.ChildType:
		b.idx.ChildTypeFound = true
		b.addChild(rec)
	case feature.IsChildType(rec.Type):
		// The alternate child type only matters for the retry decision.
	default:
		b.addTranscript(rec)
	}
}

// node returns the node for (region, name), creating it from info if absent.
func (b *builder) node(region, name string, info Info) (*Node, bool) {
	nodes, ok := b.idx.Transcripts[region]
	if !ok {
		nodes = make(map[string]*Node)
		b.idx.Transcripts[region] = nodes
	}
	if n, ok := nodes[name]; ok {
		return n, false
	}
	n := NewNode(info)
	nodes[name] = n
	return n, true
}

func (b *builder) addTranscript(rec feature.Record) {
	if rec.Name == "" {
		return
	}

	info := Info{
		Name:   rec.Name,
		Region: rec.Region,
		Strand: rec.Strand,
	}
	// A transcript belongs to one gene for isoform grouping: the first
	// declared parent.
	if len(rec.Parents) > 0 {
		info.Parent = rec.Parents[0]
	}

	n, created := b.node(rec.Region, rec.Name, info)
	if created {
		if n.Info.Parent == "" {
			n.Info.Parent = rec.Name
		}
		return
	}
	n.Info.merge(info)
}

func (b *builder) addChild(rec feature.Record) {
	if len(rec.Parents) == 0 {
		b.idx.Orphans++
		return
	}

	for _, p := range rec.Parents {
		n, _ := b.node(rec.Region, p, Info{
			Name:     p,
			Parent:   p,
			Region:   rec.Region,
			Strand:   rec.Strand,
			Inferred: true,
		})
		n.AddChild(rec)

		if rec.Grandparent != "" {
			gps, ok := b.grandparents[rec.Region]
			if !ok {
				gps = make(map[string]string)
				b.grandparents[rec.Region] = gps
			}
			if _, ok := gps[p]; !ok {
				gps[p] = rec.Grandparent
			}
		}
	}
	b.hasChildren[rec.Region] = true
}

// finalize drops empty regions and childless transcripts, derives span and
// length, and substitutes grandparent genes for self-parented transcripts.
func (b *builder) finalize() {
	m := b.idx.Transcripts
	for region, nodes := range m {
		if !b.hasChildren[region] {
			delete(m, region)
			continue
		}
		for name, n := range nodes {
			if len(n.Children()) == 0 {
				delete(nodes, name)
				continue
			}
			n.Finalize()
			if n.Info.Parent == n.Info.Name {
				if gene, ok := b.grandparents[region][name]; ok {
					n.Info.Parent = gene
				}
			}
		}
		if len(nodes) == 0 {
			delete(m, region)
		}
	}
}
