// Package input opens annotation and genome files for streaming.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

var gzipMagic = []byte{0x1f, 0x8b}

// Open opens path for reading. Gzip input is detected from the ".gz"
// suffix or the gzip magic bytes and decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	var f io.ReadCloser
	if path == Stdin {
		f = io.NopCloser(os.Stdin)
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		f = file
	}

	br := bufio.NewReaderSize(f, 64*1024)
	if !strings.HasSuffix(path, ".gz") && !hasGzipMagic(br) {
		return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip reader for %s: %w", path, err)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
}

func hasGzipMagic(br *bufio.Reader) bool {
	b, err := br.Peek(len(gzipMagic))
	if err != nil {
		return false
	}
	return b[0] == gzipMagic[0] && b[1] == gzipMagic[1]
}

// readCloser closes every layer of a stacked reader, innermost first.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
