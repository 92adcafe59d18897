// Package pool runs the trimming pipeline: a reader feeding a bounded
// batch queue, a fixed set of workers each owning its own trimmer, and an
// output path that is either a batch-index-ordered stream or independent
// per-worker shards.
package pool

import (
	"context"
	"fmt"
	"sync"

	"pairTrimmer/read"
	"pairTrimmer/trim"
)

// Source produces batches with strictly increasing, gap-free indices.
// Next returns nil at end of data. Sources are not restartable.
type Source interface {
	Next() (*read.Batch, error)
}

// Opts configures a pool run.
type Opts struct {
	Workers   int
	QueueSize int // bounded input queue capacity, in batches

	// NewTrimmer builds one worker's private trimmer instance.
	NewTrimmer func() *trim.Trimmer

	// Ordered selects the output mode. In ordered mode results pass
	// through a Sequencer into Sink. In parallel-write mode each worker
	// writes to its own sink from ShardSinks and Sink is unused.
	Ordered    bool
	Sink       Sink
	ShardSinks func(worker int) Sink

	// OnBatch, if set, is called after each batch completes (any
	// worker), with the number of pairs in the batch. Used for progress
	// reporting; must be safe for concurrent use.
	OnBatch func(pairs int)
}

// Run processes every batch from src and returns the merged statistics.
// Recoverable per-record conditions never surface here; any returned
// error is a fatal fault (reader failure, sink failure, worker fault) and
// cancels the whole pipeline.
func Run(ctx context.Context, src Source, opts Opts) (*trim.Stats, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = opts.Workers
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	queue := make(chan *read.Batch, opts.QueueSize)
	trimmers := make([]*trim.Trimmer, opts.Workers)

	// Reader: pulls batches, enforces the index invariant, blocks when
	// the queue is full.
	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		defer close(queue)
		next := int64(0)
		for {
			batch, err := src.Next()
			if err != nil {
				fail(fmt.Errorf("reading batch: %w", err))
				return
			}
			if batch == nil {
				return
			}
			if batch.Index != next {
				fail(fmt.Errorf("batch index %d out of order, expected %d", batch.Index, next))
				return
			}
			next++
			select {
			case queue <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		results   chan *BatchResult
		seqWG     sync.WaitGroup
		sequencer *Sequencer
	)
	if opts.Ordered {
		results = make(chan *BatchResult, opts.Workers)
		sequencer = NewSequencer(opts.Sink, 0)
		seqWG.Add(1)
		go func() {
			defer seqWG.Done()
			for res := range results {
				if err := sequencer.Push(res); err != nil {
					fail(fmt.Errorf("writing batch %d: %w", res.Index, err))
					return
				}
			}
		}()
	}

	var workerWG sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		workerWG.Add(1)
		go func(w int) {
			defer workerWG.Done()
			trimmer := opts.NewTrimmer()
			trimmers[w] = trimmer

			var shard Sink
			if !opts.Ordered {
				shard = opts.ShardSinks(w)
			}

			for {
				var batch *read.Batch
				select {
				case b, ok := <-queue:
					if !ok {
						return
					}
					batch = b
				case <-ctx.Done():
					return
				}

				res, err := processBatch(trimmer, batch)
				if err != nil {
					fail(fmt.Errorf("worker %d, batch %d: %w", w, batch.Index, err))
					return
				}
				if opts.Ordered {
					select {
					case results <- res:
					case <-ctx.Done():
						return
					}
				} else {
					if err := shard.Write(res); err != nil {
						fail(fmt.Errorf("worker %d, batch %d: %w", w, batch.Index, err))
						return
					}
				}
				if opts.OnBatch != nil {
					opts.OnBatch(len(batch.Pairs))
				}
			}
		}(w)
	}

	readerWG.Wait()
	workerWG.Wait()
	if opts.Ordered {
		close(results)
		seqWG.Wait()
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		// Canceled from outside: the output may be truncated mid-stream,
		// so the end-of-stream checks below do not apply.
		return nil, err
	}
	if opts.Ordered {
		if err := sequencer.Close(); err != nil {
			return nil, err
		}
	}

	all := make([]*trim.Stats, 0, len(trimmers))
	for _, t := range trimmers {
		if t != nil {
			all = append(all, t.Stats())
		}
	}
	return trim.MergeAll(all), nil
}

// processBatch runs one batch through a worker's trimmer. A panic while
// trimming is converted into a worker fault so the pool can cancel
// cleanly instead of crashing with a half-written stream.
func processBatch(trimmer *trim.Trimmer, batch *read.Batch) (res *BatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("internal fault: %v", r)
		}
	}()
	res = &BatchResult{
		Index:   batch.Index,
		Results: make([]*trim.PairResult, 0, len(batch.Pairs)),
	}
	for _, p := range batch.Pairs {
		res.Results = append(res.Results, trimmer.Process(p))
	}
	return res, nil
}
