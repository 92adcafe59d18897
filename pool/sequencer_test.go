package pool

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects batch indices in the order they are written.
type recordingSink struct {
	mu      sync.Mutex
	indices []int64
	err     error
}

func (s *recordingSink) Write(res *BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.indices = append(s.indices, res.Index)
	return nil
}

func (s *recordingSink) written() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.indices))
	copy(out, s.indices)
	return out
}

func TestSequencerInOrder(t *testing.T) {
	sink := &recordingSink{}
	seq := NewSequencer(sink, 0)
	for i := int64(0); i < 5; i++ {
		require.NoError(t, seq.Push(&BatchResult{Index: i}))
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, sink.written())
	assert.Equal(t, 0, seq.Pending())
	assert.NoError(t, seq.Close())
}

// TestSequencerRandomPermutation pushes every permutation seed's shuffle
// of 50 batches and expects the sink to always see 0..49 in order.
func TestSequencerRandomPermutation(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		order := rng.Perm(50)

		sink := &recordingSink{}
		seq := NewSequencer(sink, 0)
		for _, i := range order {
			require.NoError(t, seq.Push(&BatchResult{Index: int64(i)}))
		}
		require.NoError(t, seq.Close())

		written := sink.written()
		require.Len(t, written, 50)
		for i, idx := range written {
			assert.Equal(t, int64(i), idx)
		}
	}
}

func TestSequencerHoldsBack(t *testing.T) {
	sink := &recordingSink{}
	seq := NewSequencer(sink, 0)

	require.NoError(t, seq.Push(&BatchResult{Index: 2}))
	require.NoError(t, seq.Push(&BatchResult{Index: 1}))
	assert.Empty(t, sink.written())
	assert.Equal(t, 2, seq.Pending())

	require.NoError(t, seq.Push(&BatchResult{Index: 0}))
	assert.Equal(t, []int64{0, 1, 2}, sink.written())
	assert.Equal(t, 0, seq.Pending())
}

func TestSequencerRejectsDuplicate(t *testing.T) {
	seq := NewSequencer(&recordingSink{}, 0)
	require.NoError(t, seq.Push(&BatchResult{Index: 3}))
	assert.Error(t, seq.Push(&BatchResult{Index: 3}))
}

func TestSequencerRejectsEmitted(t *testing.T) {
	seq := NewSequencer(&recordingSink{}, 0)
	require.NoError(t, seq.Push(&BatchResult{Index: 0}))
	assert.Error(t, seq.Push(&BatchResult{Index: 0}))
}

func TestSequencerCloseWithGap(t *testing.T) {
	seq := NewSequencer(&recordingSink{}, 0)
	require.NoError(t, seq.Push(&BatchResult{Index: 1}))
	assert.Error(t, seq.Close())
}

func TestSequencerPropagatesSinkError(t *testing.T) {
	sink := &recordingSink{err: assert.AnError}
	seq := NewSequencer(sink, 0)
	assert.Error(t, seq.Push(&BatchResult{Index: 0}))
}
