package trim

// Counter and histogram names reported by the trimmer.
const (
	StatReadsIn        = "reads_in"
	StatPairsIn        = "pairs_in"
	StatReadsOut       = "reads_out"
	StatInsertMatched  = "insert_matched"
	StatInsertFallback = "insert_fallback"
	StatAdapterTrimmed = "adapter_trimmed"
	StatQualityTrimmed = "quality_trimmed"
	StatBasesRemoved   = "bases_removed"
	StatCorrectedBases = "corrected_bases"
	StatDiscardPrefix  = "discarded_" // + reason

	HistOutputLength   = "output_length"
	HistAdapterRemoved = "adapter_removed"
)

// Stats is one worker's accumulator: plain counters plus integer-keyed
// histograms. Workers never share an instance; the per-worker values are
// combined once at shutdown with Merge, which is commutative and
// associative, so merge order never matters.
type Stats struct {
	Counts map[string]int64
	Hists  map[string]map[int]int64
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{
		Counts: make(map[string]int64),
		Hists:  make(map[string]map[int]int64),
	}
}

// Incr adds one to a counter.
func (s *Stats) Incr(name string) {
	s.Counts[name]++
}

// Add adds n to a counter.
func (s *Stats) Add(name string, n int64) {
	s.Counts[name] += n
}

// Count returns a counter's value.
func (s *Stats) Count(name string) int64 {
	return s.Counts[name]
}

// Observe records one value in a histogram.
func (s *Stats) Observe(hist string, value int) {
	h, ok := s.Hists[hist]
	if !ok {
		h = make(map[int]int64)
		s.Hists[hist] = h
	}
	h[value]++
}

// Merge folds another accumulator into this one.
func (s *Stats) Merge(o *Stats) {
	for name, n := range o.Counts {
		s.Counts[name] += n
	}
	for hist, oh := range o.Hists {
		h, ok := s.Hists[hist]
		if !ok {
			h = make(map[int]int64)
			s.Hists[hist] = h
		}
		for v, n := range oh {
			h[v] += n
		}
	}
}

// MergeAll combines per-worker accumulators into one summary.
func MergeAll(all []*Stats) *Stats {
	total := NewStats()
	for _, s := range all {
		total.Merge(s)
	}
	return total
}
