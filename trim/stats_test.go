package trim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleStats(reads, trimmed int64, lengths ...int) *Stats {
	s := NewStats()
	s.Add(StatReadsIn, reads)
	s.Add(StatAdapterTrimmed, trimmed)
	for _, l := range lengths {
		s.Observe(HistOutputLength, l)
	}
	return s
}

func TestStatsMerge(t *testing.T) {
	a := sampleStats(10, 3, 50, 50, 75)
	b := sampleStats(5, 1, 50)
	a.Merge(b)
	assert.Equal(t, int64(15), a.Count(StatReadsIn))
	assert.Equal(t, int64(4), a.Count(StatAdapterTrimmed))
	assert.Equal(t, int64(3), a.Hists[HistOutputLength][50])
	assert.Equal(t, int64(1), a.Hists[HistOutputLength][75])

	// b is unchanged by the merge
	assert.Equal(t, int64(5), b.Count(StatReadsIn))
}

// TestMergeAllOrderIndependent merges the same per-worker accumulators in
// every permutation of three and expects identical totals, the property
// the end-of-run merge relies on.
func TestMergeAllOrderIndependent(t *testing.T) {
	workers := []*Stats{
		sampleStats(10, 2, 50, 60),
		sampleStats(7, 0, 40),
		sampleStats(3, 3, 50, 50, 50),
	}
	perms := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	want := MergeAll(workers)
	for _, p := range perms {
		got := MergeAll([]*Stats{workers[p[0]], workers[p[1]], workers[p[2]]})
		assert.Equal(t, want.Counts, got.Counts)
		assert.Equal(t, want.Hists, got.Hists)
	}
}

func TestStatsObserve(t *testing.T) {
	s := NewStats()
	s.Observe(HistAdapterRemoved, 13)
	s.Observe(HistAdapterRemoved, 13)
	assert.Equal(t, int64(2), s.Hists[HistAdapterRemoved][13])
}
