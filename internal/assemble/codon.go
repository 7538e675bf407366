// Package assemble builds transcript sequences from genome coordinates.
package assemble

import "strings"

// Standard genetic code: DNA codon to amino acid (single letter).
var codonTable = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"TAT": 'Y', "TAC": 'Y', "TAA": '*', "TAG": '*',
	"TGT": 'C', "TGC": 'C', "TGA": '*', "TGG": 'W',

	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',

	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',

	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// TranslateCodon translates a codon to its amino acid, ignoring case and
// reading U as T. Returns 'X' for ambiguous or unknown codons and '*' for
// stop codons.
func TranslateCodon(codon string) byte {
	if len(codon) != 3 {
		return 'X'
	}
	key := strings.ReplaceAll(strings.ToUpper(codon), "U", "T")
	if aa, ok := codonTable[key]; ok {
		return aa
	}
	return 'X'
}

// Translate translates a nucleotide sequence to amino acids. A trailing
// partial codon is dropped.
func Translate(seq string) string {
	n := (len(seq) / 3) * 3

	var result strings.Builder
	result.Grow(n / 3)

	for i := 0; i < n; i += 3 {
		result.WriteByte(TranslateCodon(seq[i : i+3]))
	}

	return result.String()
}

// complementTable maps IUPAC nucleotide codes to their complements,
// preserving case. Unlisted bytes complement to 'N'.
var complementTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 'N'
	}
	pairs := []string{
		"AT", "TA", "UA", "GC", "CG",
		"RY", "YR", "SS", "WW", "KM", "MK",
		"BV", "VB", "DH", "HD", "NN",
	}
	for _, p := range pairs {
		t[p[0]] = p[1]
		t[p[0]+'a'-'A'] = p[1] + 'a' - 'A'
	}
	t['-'] = '-'
	t['.'] = '.'
	t['*'] = '*'
	return t
}()

// complement returns the complement of a single base.
func complement(base byte) byte {
	return complementTable[base]
}

// ReverseComplement returns the reverse complement of a nucleotide sequence,
// including IUPAC ambiguity codes.
func ReverseComplement(seq string) string {
	n := len(seq)
	result := make([]byte, n)
	for i := 0; i < n; i++ {
		result[i] = complement(seq[n-1-i])
	}
	return string(result)
}
