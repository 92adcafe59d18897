package align

import (
	"sort"

	"pairTrimmer/read"
)

// InsertOpts are the tuning knobs of the paired insert alignment.
type InsertOpts struct {
	MinOverlap      int     // minimum overlap between read1 and revcomp(read2)
	MinIdentity     float64 // minimum matches/overlap over the aligned region
	MismatchPenalty int     // score penalty per mismatching base (match scores +1)

	// Mismatch correction inside an accepted overlap.
	Correct      bool
	QualityDelta int // minimum phred difference before a base is overwritten

	// Known 3' adapters, used to corroborate near-threshold candidates.
	// May be nil; acceptance never requires them.
	Adapter1, Adapter2  *Adapter
	MinAdapterOverlap   int
	AdapterMismatchFrac float64
}

// InsertMatch describes an accepted insert alignment. InsertLength is the
// estimated length of the biological fragment; both mates are trimmed to
// it.
type InsertMatch struct {
	InsertLength int
	Overlap      int
	Matches      int
	Mismatches   int
	Corrected    int // bases overwritten by mismatch correction
}

// Identity is the fraction of matching bases in the overlap.
func (m *InsertMatch) Identity() float64 {
	return float64(m.Matches) / float64(m.Overlap)
}

type insertCandidate struct {
	offset     int
	overlap    int
	matches    int
	mismatches int
	score      int
}

// InsertAligner estimates the insert length of a mated pair by aligning
// read1 against the reverse complement of read2. One instance per worker;
// the candidate slice is reused scratch state.
type InsertAligner struct {
	opts       InsertOpts
	candidates []insertCandidate
}

// NewInsertAligner builds an insert aligner with the given options.
func NewInsertAligner(opts InsertOpts) *InsertAligner {
	if opts.MismatchPenalty < 1 {
		opts.MismatchPenalty = 1
	}
	return &InsertAligner{opts: opts}
}

// Align locates the insert boundary shared by a pair, or returns nil when
// no offset clears the overlap and identity thresholds (long-insert
// libraries, degraded overlaps). A nil result is not an error; the caller
// falls back to per-mate adapter matching.
//
// Geometry: with an insert of length L shorter than the reads, read1 is
// insert+adapter1 and revcomp(read2) is revcomp(adapter2)+insert, so
// read1's prefix aligns against a suffix of revcomp(read2) at offset
// n-L. The scan is gapless: overlapping mates share indels, so only
// substitutions are expected inside the overlap.
func (ia *InsertAligner) Align(r1, r2 *read.Read) *InsertMatch {
	n := r1.Length()
	if r2.Length() < n {
		n = r2.Length()
	}
	if n < ia.opts.MinOverlap {
		return nil
	}
	seq1 := r1.Sequence[:n]
	rc2 := read.ReverseComplement(r2.Sequence[:n])

	ia.candidates = ia.candidates[:0]
	for offset := 0; offset <= n-ia.opts.MinOverlap; offset++ {
		overlap := n - offset
		maxMismatches := int(float64(overlap) * (1 - ia.opts.MinIdentity))
		matches, mismatches := 0, 0
		for i := 0; i < overlap; i++ {
			if upper(seq1[i]) == upper(rc2[offset+i]) && upper(seq1[i]) != 'N' {
				matches++
			} else {
				mismatches++
				if mismatches > maxMismatches {
					break
				}
			}
		}
		if mismatches > maxMismatches {
			continue
		}
		ia.candidates = append(ia.candidates, insertCandidate{
			offset:     offset,
			overlap:    overlap,
			matches:    matches,
			mismatches: mismatches,
			score:      matches - ia.opts.MismatchPenalty*mismatches,
		})
	}
	if len(ia.candidates) == 0 {
		return nil
	}

	sort.Slice(ia.candidates, func(i, j int) bool {
		a, b := ia.candidates[i], ia.candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		return a.overlap > b.overlap
	})

	chosen := ia.candidates[0]
	if ia.opts.Adapter1 != nil || ia.opts.Adapter2 != nil {
		for _, c := range ia.candidates {
			if ia.corroborated(r1, r2, n-c.offset) {
				chosen = c
				break
			}
		}
	}

	return &InsertMatch{
		InsertLength: n - chosen.offset,
		Overlap:      chosen.overlap,
		Matches:      chosen.matches,
		Mismatches:   chosen.mismatches,
	}
}

// corroborated checks that the read tails beyond the candidate insert are
// consistent with the known adapters. Tails too short to judge count as
// consistent.
func (ia *InsertAligner) corroborated(r1, r2 *read.Read, insertLen int) bool {
	ok := false
	short := true
	check := func(r *read.Read, a *Adapter) {
		if a == nil || r.Length() <= insertLen {
			return
		}
		tail := r.Sequence[insertLen:]
		if len(tail) < ia.opts.MinAdapterOverlap {
			return
		}
		short = false
		length, _, errors := ComparePrefixes(a.Sequence, tail)
		if float64(errors) <= float64(length)*ia.opts.AdapterMismatchFrac {
			ok = true
		}
	}
	check(r1, ia.opts.Adapter1)
	check(r2, ia.opts.Adapter2)
	return ok || short
}

// CorrectMismatches overwrites mismatching bases inside an accepted
// overlap when one mate's quality is higher by at least QualityDelta.
// Both mates receive the winning base (complement-mirrored) and the
// higher of the two quality scores. Bases outside the overlap are never
// touched. Returns the corrected copies and the number of corrections;
// the inputs are returned unchanged when nothing qualifies.
func (ia *InsertAligner) CorrectMismatches(r1, r2 *read.Read, m *InsertMatch) (*read.Read, *read.Read, int) {
	if !ia.opts.Correct || m == nil {
		return r1, r2, 0
	}
	overlap := m.InsertLength
	if r1.Length() < overlap {
		overlap = r1.Length()
	}
	if r2.Length() < overlap {
		overlap = r2.Length()
	}

	var s1, q1, s2, q2 []byte
	corrected := 0
	for i := 0; i < overlap; i++ {
		j := m.InsertLength - 1 - i // mirrored position in read2
		if j >= r2.Length() {
			continue
		}
		b1 := upper(r1.Sequence[i])
		b2 := read.Complement(upper(r2.Sequence[j]))
		if b1 == b2 {
			continue
		}
		p1, p2 := r1.Quality[i], r2.Quality[j]
		delta := int(p1) - int(p2)
		if delta < 0 {
			delta = -delta
		}
		if delta < ia.opts.QualityDelta {
			continue
		}
		if s1 == nil {
			s1, q1 = []byte(r1.Sequence), []byte(r1.Quality)
			s2, q2 = []byte(r2.Sequence), []byte(r2.Quality)
		}
		hq := p1
		if p2 > hq {
			hq = p2
		}
		if p1 >= p2 {
			s2[j] = read.Complement(b1)
		} else {
			s1[i] = b2
		}
		q1[i], q2[j] = hq, hq
		corrected++
	}
	if corrected == 0 {
		return r1, r2, 0
	}
	m.Corrected += corrected
	out1 := &read.Read{Name: r1.Name, Sequence: string(s1), Quality: string(q1)}
	out2 := &read.Read{Name: r2.Name, Sequence: string(s2), Quality: string(q2)}
	return out1, out2, corrected
}
