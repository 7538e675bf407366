// Package genome streams reference sequences from a FASTA file.
package genome

import (
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// Region is one named sequence of the genome with its letters exactly as
// they appear in the file.
type Region struct {
	Name     string
	Sequence string
}

// Scanner yields genome regions in file order.
type Scanner struct {
	sc  *seqio.Scanner
	cur Region
}

// NewScanner returns a Scanner reading FASTA from r. Letters are not
// validated against an alphabet, so IUPAC codes and soft-masked
// (lower-case) bases pass through unchanged.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		sc: seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant))),
	}
}

// Next advances to the next region.
func (s *Scanner) Next() bool {
	if !s.sc.Next() {
		return false
	}
	seq := s.sc.Seq().(*linear.Seq)
	s.cur = Region{
		Name:     seq.Name(),
		Sequence: string(alphabet.LettersToBytes(seq.Seq)),
	}
	return true
}

// Region returns the region read by the last call to Next.
func (s *Scanner) Region() Region {
	return s.cur
}

// Err returns the first non-EOF error encountered.
func (s *Scanner) Err() error {
	if err := s.sc.Error(); err != nil {
		return fmt.Errorf("scan genome: %w", err)
	}
	return nil
}
