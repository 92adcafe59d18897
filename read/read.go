// Package read holds the sequencing-read data model shared by the whole
// pipeline: single reads, mated pairs and the batches that are handed to
// workers.
package read

import (
	"fmt"
	"math"
	"strings"
)

// Read is one sequencing record. Sequence and Quality (phred+33) always
// have the same length for a well-formed read. Trimming never mutates a
// Read in place; it produces a shortened copy.
type Read struct {
	Name     string
	Sequence string
	Quality  string
}

// Length returns the number of bases in the read.
func (r *Read) Length() int {
	return len(r.Sequence)
}

// Validate reports whether the record is structurally sound.
func (r *Read) Validate() error {
	if len(r.Sequence) != len(r.Quality) {
		return fmt.Errorf("read %s: sequence length %d != quality length %d",
			r.Name, len(r.Sequence), len(r.Quality))
	}
	return nil
}

// Subsequence returns a copy of the read restricted to [start, end).
func (r *Read) Subsequence(start, end int) *Read {
	return &Read{
		Name:     r.Name,
		Sequence: r.Sequence[start:end],
		Quality:  r.Quality[start:end],
	}
}

// CountN counts ambiguous bases, case-insensitive.
func (r *Read) CountN() int {
	return strings.Count(r.Sequence, "N") + strings.Count(r.Sequence, "n")
}

// Pair is a mated read pair from one fragment. R2 is nil for single-end
// data. Malformed marks records that failed structural validation; they
// flow through the pipeline so the trimmer can classify and count them.
type Pair struct {
	R1        *Read
	R2        *Read
	Malformed bool
}

// IsPaired reports whether the pair carries a mate.
func (p *Pair) IsPaired() bool {
	return p.R2 != nil
}

// Batch is the unit of work handed to a worker: an ordered slice of pairs
// plus the strictly-increasing index the reader assigned. The index is the
// sole ordering key used downstream.
type Batch struct {
	Index int64
	Pairs []*Pair
}

var complementTable = [256]byte{
	'A': 'T', 'T': 'A', 'G': 'C', 'C': 'G',
	'a': 't', 't': 'a', 'g': 'c', 'c': 'g',
	'N': 'N', 'n': 'n',
}

// Complement returns the complement of a single base. Unknown symbols
// complement to N.
func Complement(b byte) byte {
	c := complementTable[b]
	if c == 0 {
		return 'N'
	}
	return c
}

// ReverseComplement returns the reverse complement of seq.
func ReverseComplement(seq string) string {
	rc := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		rc[len(seq)-1-i] = Complement(seq[i])
	}
	return string(rc)
}

// Phred33ToError converts a phred+33 quality byte to an error probability.
func Phred33ToError(qual byte) float64 {
	return math.Pow(10, -(float64(qual)-33)/10.0)
}

// MeanError returns the mean per-base error probability of a quality
// string. NaN for an empty string.
func MeanError(quality string) float64 {
	total := 0.0
	for i := 0; i < len(quality); i++ {
		total += Phred33ToError(quality[i])
	}
	return total / float64(len(quality))
}
