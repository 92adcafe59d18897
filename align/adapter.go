// Package align implements the two trimming aligners: a semi-global
// adapter matcher for single reads and an insert aligner for mated pairs.
package align

import (
	"fmt"
	"strings"
)

// Adapter describes one 3' adapter to search for.
type Adapter struct {
	Name         string
	Sequence     string
	Anchored     bool    // occurrence must reach the 3' end of the read
	MaxErrorRate float64 // allowed errors as a fraction of the aligned adapter length
	MinOverlap   int     // minimum aligned adapter bases for a partial occurrence
}

// Validate checks the adapter spec before processing starts.
func (a *Adapter) Validate() error {
	if len(a.Sequence) == 0 {
		return fmt.Errorf("adapter %q: empty sequence", a.Name)
	}
	for i := 0; i < len(a.Sequence); i++ {
		switch upper(a.Sequence[i]) {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return fmt.Errorf("adapter %q: invalid base %q", a.Name, a.Sequence[i])
		}
	}
	if a.MaxErrorRate < 0 || a.MaxErrorRate >= 1 {
		return fmt.Errorf("adapter %q: error rate %v out of range [0,1)", a.Name, a.MaxErrorRate)
	}
	if a.MinOverlap < 1 || a.MinOverlap > len(a.Sequence) {
		return fmt.Errorf("adapter %q: min overlap %d out of range [1,%d]", a.Name, a.MinOverlap, len(a.Sequence))
	}
	return nil
}

// Match locates one adapter occurrence within a read. Offsets follow the
// half-open convention: the adapter occupies read[RStart:RStop] and
// adapter[AStart:AStop].
type Match struct {
	AStart, AStop int
	RStart, RStop int
	Matches       int
	Errors        int
}

// Length is the number of aligned adapter bases.
func (m *Match) Length() int {
	return m.AStop - m.AStart
}

type cell struct {
	cost    int
	matches int
	origin  int // read position where the adapter alignment starts
}

// Matcher aligns reads against a fixed adapter set. Each worker owns one
// Matcher; the DP column is scratch state reused across calls and must not
// be shared between goroutines.
type Matcher struct {
	adapters []*Adapter
	column   []cell
}

// NewMatcher builds a matcher for the given adapters.
func NewMatcher(adapters []*Adapter) *Matcher {
	return &Matcher{adapters: adapters}
}

// Locate returns the best match of any configured adapter in the read, or
// nil when no candidate clears the overlap and error-rate thresholds.
func (m *Matcher) Locate(sequence string) (*Match, *Adapter) {
	var best *Match
	var bestAdapter *Adapter
	for _, a := range m.adapters {
		match := m.locate(sequence, a)
		if match == nil {
			continue
		}
		if best == nil || betterMatch(match, best) {
			best, bestAdapter = match, a
		}
	}
	return best, bestAdapter
}

// locate runs a banded semi-global alignment of one adapter against the
// read. Skipping a read prefix before the adapter is free, as is the part
// of the adapter that overhangs the read's 3' end. Unit cost for
// mismatches and indels, early cutoff once a row exceeds the allowed
// error budget.
func (m *Matcher) locate(sequence string, a *Adapter) *Match {
	alen, n := len(a.Sequence), len(sequence)
	if n == 0 {
		return nil
	}
	k := int(float64(alen) * a.MaxErrorRate)

	if cap(m.column) < alen+1 {
		m.column = make([]cell, alen+1)
	}
	column := m.column[:alen+1]
	column[0] = cell{}
	for i := 1; i <= alen; i++ {
		column[i] = cell{cost: i}
	}

	var best *Match
	consider := func(astop, j, cost, matches, origin int) {
		if cost > int(float64(astop)*a.MaxErrorRate) || astop < a.MinOverlap {
			return
		}
		c := &Match{
			AStop:   astop,
			RStart:  origin,
			RStop:   j,
			Matches: matches,
			Errors:  cost,
		}
		if best == nil || betterMatch(c, best) {
			best = c
		}
	}

	last := alen
	if k+1 < last {
		last = k + 1
	}
	for j := 1; j <= n; j++ {
		diag := column[0]
		column[0] = cell{origin: j}
		rb := upper(sequence[j-1])
		for i := 1; i <= last; i++ {
			up := column[i]
			c := diag
			if !baseMatch(a.Sequence[i-1], rb) {
				c.cost++
			} else {
				c.matches++
			}
			if up.cost+1 < c.cost { // extra read base, no adapter base
				c = up
				c.cost++
			}
			if column[i-1].cost+1 < c.cost { // extra adapter base, no read base
				c = column[i-1]
				c.cost++
			}
			diag = up
			column[i] = c
		}
		for last > 0 && column[last].cost > k {
			last--
		}
		if last < alen {
			last++
		} else if !a.Anchored {
			// Full adapter aligned ending at read position j.
			consider(alen, j, column[alen].cost, column[alen].matches, column[alen].origin)
		}
	}

	// Partial occurrences running off the 3' end are free; anchored
	// adapters are only ever accepted here.
	for i := a.MinOverlap; i <= last; i++ {
		consider(i, n, column[i].cost, column[i].matches, column[i].origin)
	}
	return best
}

// betterMatch ranks candidates: higher score (matches minus errors) wins,
// then the longer overlap, then the occurrence closest to the 3' end.
func betterMatch(a, b *Match) bool {
	as, bs := a.Matches-a.Errors, b.Matches-b.Errors
	if as != bs {
		return as > bs
	}
	if a.Length() != b.Length() {
		return a.Length() > b.Length()
	}
	return a.RStart > b.RStart
}

// ComparePrefixes does a gapless comparison of the prefixes of two
// sequences over the length of the shorter one.
func ComparePrefixes(s1, s2 string) (length, matches, errors int) {
	length = len(s1)
	if len(s2) < length {
		length = len(s2)
	}
	for i := 0; i < length; i++ {
		if baseMatch(s1[i], upper(s2[i])) {
			matches++
		} else {
			errors++
		}
	}
	return length, matches, errors
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// baseMatch compares an adapter base against an uppercased read base.
// N in the adapter is a wildcard; N in the read never matches.
func baseMatch(adapterBase, readBase byte) bool {
	ab := upper(adapterBase)
	if ab == 'N' {
		return readBase != 'N'
	}
	return ab == readBase && readBase != 'N'
}

// ParseAdapters builds an adapter list from comma-separated sequences. A
// trailing '$' anchors that adapter to the 3' end of the read.
func ParseAdapters(spec string, errorRate float64, minOverlap int) ([]*Adapter, error) {
	if spec == "" {
		return nil, nil
	}
	var adapters []*Adapter
	for i, s := range strings.Split(spec, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		a := &Adapter{
			Name:         fmt.Sprintf("adapter%d", i+1),
			MaxErrorRate: errorRate,
			MinOverlap:   minOverlap,
		}
		if strings.HasSuffix(s, "$") {
			a.Anchored = true
			s = strings.TrimSuffix(s, "$")
		}
		a.Sequence = strings.ToUpper(s)
		if a.MinOverlap > len(a.Sequence) {
			a.MinOverlap = len(a.Sequence)
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
