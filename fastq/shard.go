package fastq

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"pairTrimmer/pool"
)

// ShardSet implements parallel-write mode: each worker owns one shard
// file and writes to it without cross-worker synchronization. A shared
// manifest records (batch index, shard, record count) per batch, so the
// shards can later be concatenated in batch order without loss.
type ShardSet struct {
	out1     string
	discard  string
	mu       sync.Mutex // guards the manifest only
	manifest *bufio.Writer
	mf       *os.File
	sinks    []*shardSink
}

// NewShardSet prepares shard naming and the manifest file. The manifest
// lives next to Out1 with a .manifest.tsv suffix.
func NewShardSet(opts WriterOpts) (*ShardSet, error) {
	manifestPath := stripCompressExt(opts.Out1) + ".manifest.tsv"
	mf, err := os.Create(manifestPath)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", manifestPath)
	}
	s := &ShardSet{
		out1:     opts.Out1,
		discard:  opts.DiscardOut,
		mf:       mf,
		manifest: bufio.NewWriter(mf),
	}
	fmt.Fprintln(s.manifest, "batch_index\tshard\trecords")
	return s, nil
}

// Sink returns worker w's private sink, creating its shard file on first
// use.
func (s *ShardSet) Sink(w int) pool.Sink {
	sink := &shardSink{set: s, worker: w}
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
	return sink
}

// Close flushes every shard and the manifest.
func (s *ShardSet) Close() error {
	var first error
	for _, sink := range s.sinks {
		if err := sink.close(); err != nil && first == nil {
			first = err
		}
	}
	if err := s.manifest.Flush(); err != nil && first == nil {
		first = err
	}
	if err := s.mf.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

type shardSink struct {
	set     *ShardSet
	worker  int
	path    string
	out     *writeCloser
	discard *writeCloser
}

func (k *shardSink) open() error {
	k.path = shardPath(k.set.out1, k.worker)
	out, err := newWriteCloser(k.path)
	if err != nil {
		return err
	}
	k.out = out
	if k.set.discard != "" {
		d, err := newWriteCloser(shardPath(k.set.discard, k.worker))
		if err != nil {
			out.Close()
			k.out = nil
			return err
		}
		k.discard = d
	}
	return nil
}

// Write appends one batch to the worker's shard. Interleaved output only:
// a shard is a single self-contained stream.
func (k *shardSink) Write(res *pool.BatchResult) error {
	if k.out == nil {
		if err := k.open(); err != nil {
			return err
		}
	}
	records := 0
	for _, pr := range res.Results {
		if !pr.Discarded {
			records++
			if pr.R2 != nil {
				records++
			}
		}
		writeResult(k.out, nil, k.discard, pr)
	}
	if err := k.out.bw.Flush(); err != nil {
		return err
	}

	k.set.mu.Lock()
	_, err := fmt.Fprintf(k.set.manifest, "%d\t%s\t%d\n", res.Index, k.path, records)
	k.set.mu.Unlock()
	return err
}

func (k *shardSink) close() error {
	var first error
	if k.out != nil {
		if err := k.out.Close(); err != nil {
			first = err
		}
	}
	if k.discard != nil {
		if err := k.discard.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// shardPath inserts a worker tag before the compression extension:
// out.fastq.gz -> out.shard3.fastq.gz.
func shardPath(path string, worker int) string {
	ext := ""
	base := path
	for _, c := range []string{".gz", ".zst"} {
		if strings.HasSuffix(base, c) {
			ext = c
			base = strings.TrimSuffix(base, c)
			break
		}
	}
	if strings.HasSuffix(base, ".fastq") {
		base = strings.TrimSuffix(base, ".fastq")
		return fmt.Sprintf("%s.shard%d.fastq%s", base, worker, ext)
	}
	return fmt.Sprintf("%s.shard%d%s", base, worker, ext)
}

func stripCompressExt(path string) string {
	for _, c := range []string{".gz", ".zst"} {
		path = strings.TrimSuffix(path, c)
	}
	return path
}
