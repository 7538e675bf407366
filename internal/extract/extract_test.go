package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/gff2seq/internal/assemble"
	"github.com/inodb/gff2seq/internal/duckdb"
	"github.com/inodb/gff2seq/internal/feature"
	"github.com/inodb/gff2seq/internal/genome"
	"github.com/inodb/gff2seq/internal/output"
	"github.com/inodb/gff2seq/internal/transcript"
)

const (
	sampleAnnotation = "../../testdata/sample.gff3"
	sampleGenome     = "../../testdata/sample.fa"
)

func newExtractor(t *testing.T, opts Options) *Extractor {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func stringOpener(s string) transcript.Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

// parseFASTA splits FASTA output into header -> sequence.
func parseFASTA(t *testing.T, s string) map[string]string {
	t.Helper()
	recs := make(map[string]string)
	var header string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if strings.HasPrefix(line, ">") {
			header = line[1:]
			continue
		}
		recs[header] += line
	}
	return recs
}

func loadRegion(t *testing.T, name string) string {
	t.Helper()
	f, err := os.Open(sampleGenome)
	require.NoError(t, err)
	defer f.Close()
	sc := genome.NewScanner(f)
	for sc.Next() {
		if sc.Region().Name == name {
			return sc.Region().Sequence
		}
	}
	require.NoError(t, sc.Err())
	t.Fatalf("region %s not in sample genome", name)
	return ""
}

func TestRun_SampleFiles(t *testing.T) {
	e := newExtractor(t, DefaultOptions())

	var out bytes.Buffer
	sum, err := e.Run(context.Background(), sampleAnnotation, sampleGenome, &out)
	require.NoError(t, err)

	assert.Equal(t, feature.TypeCDS, sum.ChildType)
	assert.Equal(t, 3, sum.Transcripts)
	assert.Equal(t, 2, sum.Emitted)
	assert.Equal(t, []string{"chrMissing"}, sum.MissingRegions)

	recs := parseFASTA(t, out.String())
	require.Len(t, recs, 2)

	tx1 := recs["tx1\tgene1\tchr1\t+\t100:350\t152"]
	assert.Equal(t, strings.Repeat("A", 101)+strings.Repeat("C", 51), tx1)

	ctg2 := loadRegion(t, "ctg2")
	want := assemble.ReverseComplement(ctg2[99:120]) + assemble.ReverseComplement(ctg2[9:30])
	assert.Equal(t, want, recs["tx3\tgene2\tctg2\t-\t10:120\t42"])
}

func TestRun_AllIsoformsVerbose(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowIsoforms = true
	opts.VerboseHeaders = true
	opts.HeaderTag = "x_"
	e := newExtractor(t, opts)

	var out bytes.Buffer
	sum, err := e.Run(context.Background(), sampleAnnotation, sampleGenome, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Emitted)

	recs := parseFASTA(t, out.String())
	assert.Contains(t, recs, "x_tx1\tgene1\tchr1\t+\t100:350\t152\t100-200,300-350")
	assert.Contains(t, recs, "x_tx2\tgene1\tchr1\t+\t100:200\t101\t100-200")
	assert.Contains(t, recs, "x_tx3\tgene2\tctg2\t-\t10:120\t42\t100-120,10-30")
}

func TestRun_EmitsInStartOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowIsoforms = true
	e := newExtractor(t, opts)

	var out bytes.Buffer
	_, err := e.Run(context.Background(), sampleAnnotation, sampleGenome, &out)
	require.NoError(t, err)

	var names []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, ">") {
			names = append(names, strings.SplitN(line[1:], "\t", 2)[0])
		}
	}
	assert.Equal(t, []string{"tx1", "tx2", "tx3"}, names)
}

func TestRun_Catalog(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	defer store.Close()

	core, logs := observer.New(zap.InfoLevel)
	e := newExtractor(t, DefaultOptions())
	e.SetLogger(zap.New(core))
	e.SetCatalog(store)

	_, err = e.Run(context.Background(), sampleAnnotation, sampleGenome, io.Discard)
	require.NoError(t, err)

	n, err := store.SequenceCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, err := store.LookupTranscript("chr1", "tx1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "gene1", rec.Gene)

	fps, err := store.Sources()
	require.NoError(t, err)
	assert.Len(t, fps, 2)

	entries := logs.FilterMessage("catalog updated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["sequences"])
}

func TestNew_IntronsNonCodingExclusive(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeIntrons = true
	opts.NonCoding = true
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrIntronsNonCoding)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"upper-case type", func(o *Options) { o.ChildType = "CDS" }, false},
		{"exon", func(o *Options) { o.ChildType = "exon" }, false},
		{"bad type", func(o *Options) { o.ChildType = "gene" }, true},
		{"negative truncation", func(o *Options) { o.IntronTruncateLength = -1 }, true},
		{"negative workers", func(o *Options) { o.Workers = -2 }, true},
		{"introns alone", func(o *Options) { o.IncludeIntrons = true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if tt.wantErr {
				assert.Error(t, opts.Validate())
			} else {
				assert.NoError(t, opts.Validate())
			}
		})
	}
}

func TestIndex_DefaultKeepsLongestIsoform(t *testing.T) {
	annotation := `chr1	.	CDS	1	500	.	+	0	gene_id "G1"; transcript_id "long";
chr1	.	CDS	1	300	.	+	0	gene_id "G1"; transcript_id "short";
`
	m, childType, err := newExtractor(t, DefaultOptions()).Index(stringOpener(annotation))
	require.NoError(t, err)

	assert.Equal(t, feature.TypeCDS, childType)
	require.Len(t, m["chr1"], 1)
	assert.Contains(t, m["chr1"], "long")
}

func TestIndex_NoChildFeatures(t *testing.T) {
	annotation := "chr1\t.\tgene\t1\t500\t.\t+\t.\tID=g1\n"
	_, _, err := newExtractor(t, DefaultOptions()).Index(stringOpener(annotation))
	assert.ErrorIs(t, err, transcript.ErrNoChildFeatures)
}

// failingReader fails any read, proving the genome was not read that far.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("read past last needed region")
}

func TestEmit_StopsAfterLastRegion(t *testing.T) {
	annotation := "chr1\t.\tCDS\t2\t4\t.\t+\t0\tParent=t1\n"
	e := newExtractor(t, DefaultOptions())
	m, _, err := e.Index(stringOpener(annotation))
	require.NoError(t, err)

	g := io.MultiReader(strings.NewReader(">chr1\nACGTAC\n>chr2\n"), failingReader{})

	var out bytes.Buffer
	sum, err := e.Emit(context.Background(), m, g, output.NewFASTAWriter(&out, "", false))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Emitted)
	assert.Equal(t, ">t1\tt1\tchr1\t+\t2:4\t3\nCGT\n", out.String())
}

func TestEmit_Cancelled(t *testing.T) {
	annotation := "chr1\t.\tCDS\t2\t4\t.\t+\t0\tParent=t1\n"
	e := newExtractor(t, DefaultOptions())
	m, _, err := e.Index(stringOpener(annotation))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Emit(ctx, m, strings.NewReader(">chr1\nACGTAC\n"), output.NewFASTAWriter(io.Discard, "", false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_AnnotationFromStdinRetriesAlternateType(t *testing.T) {
	dir := t.TempDir()
	annotation := filepath.Join(dir, "exons.gtf")
	require.NoError(t, os.WriteFile(annotation,
		[]byte("chr1\t.\texon\t2\t5\t.\t+\t.\tgene_id \"g1\"; transcript_id \"t1\";\n"), 0o644))
	genomePath := filepath.Join(dir, "genome.fa")
	require.NoError(t, os.WriteFile(genomePath, []byte(">chr1\nACGTACGT\n"), 0o644))

	f, err := os.Open(annotation)
	require.NoError(t, err)
	defer f.Close()
	stdin := os.Stdin
	os.Stdin = f
	defer func() { os.Stdin = stdin }()

	e := newExtractor(t, DefaultOptions())
	var out bytes.Buffer
	sum, err := e.Run(context.Background(), "-", genomePath, &out)
	require.NoError(t, err)

	assert.Equal(t, feature.TypeExon, sum.ChildType)
	assert.Equal(t, 1, sum.Emitted)
	assert.Equal(t, ">t1\tg1\tchr1\t+\t2:5\t4\nCGTA\n", out.String())
}

func TestRun_BothStdin(t *testing.T) {
	_, err := newExtractor(t, DefaultOptions()).Run(context.Background(), "-", "-", io.Discard)
	assert.Error(t, err)
}
