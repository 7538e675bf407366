package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/gff2seq/internal/assemble"
	"github.com/inodb/gff2seq/internal/duckdb"
	"github.com/inodb/gff2seq/internal/genome"
	"github.com/inodb/gff2seq/internal/input"
	"github.com/inodb/gff2seq/internal/output"
	"github.com/inodb/gff2seq/internal/transcript"
)

// Summary reports the outcome of a run.
type Summary struct {
	ChildType      string        // Child type transcripts were built from
	Transcripts    int           // Transcripts after isoform selection
	Emitted        int           // Records written
	MissingRegions []string      // Regions with transcripts absent from the genome
	Elapsed        time.Duration // Wall time of Run
}

// Extractor builds transcripts from an annotation and writes their
// sequences.
type Extractor struct {
	opts    Options
	logger  *zap.Logger
	catalog *duckdb.Store
}

// New creates an extractor. The options are validated here so that
// conflicting settings fail before any input is read.
func New(opts Options) (*Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.ChildType = strings.ToLower(opts.ChildType)
	return &Extractor{
		opts:   opts,
		logger: zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for warning and info messages.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetCatalog records every emitted sequence in store.
func (e *Extractor) SetCatalog(store *duckdb.Store) {
	e.catalog = store
}

// Index reads the annotation and returns the transcripts to emit, after
// isoform selection unless all isoforms were requested.
func (e *Extractor) Index(open transcript.Opener) (transcript.Map, string, error) {
	indexer := transcript.NewIndexer(e.opts.ChildType)
	indexer.SetLogger(e.logger)

	idx, err := indexer.IndexFile(open)
	if err != nil {
		return nil, "", err
	}

	m := idx.Transcripts
	if !e.opts.AllowIsoforms {
		m = transcript.SelectIsoforms(m, e.opts.CoordinateIsoforms)
	}
	e.logger.Debug("indexed annotation",
		zap.String("type", idx.ChildType),
		zap.Int("regions", len(m)),
		zap.Int("transcripts", m.Count()))
	return m, idx.ChildType, nil
}

// Emit streams the genome from r and writes one record per transcript in m.
// Reading stops as soon as every region in m has been emitted.
func (e *Extractor) Emit(ctx context.Context, m transcript.Map, r io.Reader, w *output.FASTAWriter) (Summary, error) {
	sum := Summary{Transcripts: m.Count()}

	asm := assemble.NewAssembler(e.opts.AssembleOptions())
	asm.SetLogger(e.logger)

	done := make(map[string]bool, len(m))
	remaining := len(m)

	sc := genome.NewScanner(r)
	for remaining > 0 && sc.Next() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		region := sc.Region()
		if _, ok := m[region.Name]; !ok || done[region.Name] {
			continue
		}

		var batch []output.Record
		err := asm.AssembleAll(region.Sequence, m.Sorted(region.Name), e.opts.Workers, func(res assemble.WorkResult) error {
			rec := output.NewRecord(res.Node.Info, res.Result)
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("write %s: %w", rec.Name, err)
			}
			sum.Emitted++
			if e.catalog != nil {
				batch = append(batch, rec)
			}
			return nil
		})
		if err != nil {
			return sum, err
		}

		if e.catalog != nil {
			if err := e.catalog.WriteSequences(batch); err != nil {
				return sum, fmt.Errorf("catalog region %s: %w", region.Name, err)
			}
		}

		done[region.Name] = true
		remaining--
	}
	if err := sc.Err(); err != nil {
		return sum, err
	}

	if remaining > 0 {
		for _, name := range m.Regions() {
			if !done[name] {
				sum.MissingRegions = append(sum.MissingRegions, name)
			}
		}
		e.logger.Warn("annotated regions not found in genome",
			zap.Strings("regions", sum.MissingRegions))
	}

	return sum, nil
}

// Run indexes the annotation at annotationPath, then writes sequences from
// the genome at genomePath to out. Either path may be "-" for stdin, but
// not both.
func (e *Extractor) Run(ctx context.Context, annotationPath, genomePath string, out io.Writer) (Summary, error) {
	start := time.Now()

	if annotationPath == input.Stdin && genomePath == input.Stdin {
		return Summary{}, fmt.Errorf("annotation and genome cannot both be read from stdin")
	}

	m, childType, err := e.Index(func() (io.ReadCloser, error) {
		return input.Open(annotationPath)
	})
	if err != nil {
		return Summary{}, err
	}

	if e.catalog != nil {
		if err := e.prepareCatalog(annotationPath, genomePath); err != nil {
			return Summary{}, err
		}
	}

	g, err := input.Open(genomePath)
	if err != nil {
		return Summary{}, err
	}
	defer g.Close()

	w := output.NewFASTAWriter(out, e.opts.HeaderTag, e.opts.VerboseHeaders)
	w.SetWrap(e.opts.Wrap)

	sum, err := e.Emit(ctx, m, g, w)
	sum.ChildType = childType
	sum.Elapsed = time.Since(start)
	if err != nil {
		return sum, err
	}

	e.logger.Info("extraction complete",
		zap.String("type", sum.ChildType),
		zap.Int("sequences", sum.Emitted),
		zap.Duration("runtime", sum.Elapsed))

	if e.catalog != nil {
		n, err := e.catalog.SequenceCount()
		if err != nil {
			return sum, fmt.Errorf("count catalog: %w", err)
		}
		e.logger.Info("catalog updated", zap.Int("sequences", n))
	}
	return sum, nil
}

// prepareCatalog clears previously catalogued sequences and records the
// input files of this run.
func (e *Extractor) prepareCatalog(paths ...string) error {
	if err := e.catalog.ClearSequences(); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	var fps []duckdb.FileFingerprint
	for _, p := range paths {
		if p == input.Stdin {
			continue
		}
		fp, err := duckdb.StatFile(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		fps = append(fps, fp)
	}
	return e.catalog.WriteSources(fps...)
}
