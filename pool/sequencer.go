package pool

import (
	"fmt"

	"pairTrimmer/trim"
)

// BatchResult is one processed batch: the worker's per-pair outcomes in
// input order, keyed by the batch index assigned by the reader.
type BatchResult struct {
	Index   int64
	Results []*trim.PairResult
}

// Sink receives processed batches. Ordered mode guarantees Write is
// called with strictly increasing batch indices from a single goroutine;
// parallel-write mode gives each worker its own Sink.
type Sink interface {
	Write(*BatchResult) error
}

// Sequencer is the reordering buffer for ordered output: results arrive
// in completion order and are released in batch-index order. Not safe for
// concurrent use; the pool drives it from one goroutine.
type Sequencer struct {
	sink    Sink
	next    int64
	pending map[int64]*BatchResult
}

// NewSequencer builds a sequencer expecting batch indices to start at
// first.
func NewSequencer(sink Sink, first int64) *Sequencer {
	return &Sequencer{
		sink:    sink,
		next:    first,
		pending: make(map[int64]*BatchResult),
	}
}

// Push accepts one result, emitting it and any directly following held
// results once the cursor reaches them.
func (s *Sequencer) Push(res *BatchResult) error {
	if res.Index < s.next {
		return fmt.Errorf("batch %d already emitted (cursor at %d)", res.Index, s.next)
	}
	if _, dup := s.pending[res.Index]; dup {
		return fmt.Errorf("duplicate batch index %d", res.Index)
	}
	s.pending[res.Index] = res
	for {
		head, ok := s.pending[s.next]
		if !ok {
			return nil
		}
		delete(s.pending, s.next)
		if err := s.sink.Write(head); err != nil {
			return err
		}
		s.next++
	}
}

// Pending reports how many results are held back waiting for earlier
// batches.
func (s *Sequencer) Pending() int {
	return len(s.pending)
}

// Close verifies nothing is still held back; a non-empty buffer at
// end-of-stream means the reader skipped an index.
func (s *Sequencer) Close() error {
	if len(s.pending) > 0 {
		return fmt.Errorf("%d batches still buffered at end of stream (cursor at %d)",
			len(s.pending), s.next)
	}
	return nil
}
