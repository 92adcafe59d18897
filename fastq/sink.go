package fastq

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"pairTrimmer/pool"
	"pairTrimmer/read"
	"pairTrimmer/trim"
)

// writeCloser is a buffered output stream with its compression layers.
type writeCloser struct {
	bw      *bufio.Writer
	closers []io.Closer
}

// newWriteCloser opens path for writing, choosing the compressor by
// extension: .gz uses pgzip (parallel compression), .zst uses zstd,
// anything else (including "-" for stdout) goes through xopen.
func newWriteCloser(path string) (*writeCloser, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s", path)
		}
		gw := pgzip.NewWriter(f)
		return &writeCloser{bw: bufio.NewWriter(gw), closers: []io.Closer{gw, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s", path)
		}
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "creating zstd writer for %s", path)
		}
		return &writeCloser{bw: bufio.NewWriter(zw), closers: []io.Closer{zw, f}}, nil
	default:
		w, err := xopen.Wopen(path)
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s", path)
		}
		return &writeCloser{bw: bufio.NewWriter(w), closers: []io.Closer{w}}, nil
	}
}

func (w *writeCloser) Close() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeRead(w *bufio.Writer, r *read.Read) {
	w.WriteByte('@')
	w.WriteString(r.Name)
	w.WriteByte('\n')
	w.WriteString(r.Sequence)
	w.WriteByte('\n')
	w.WriteString("+\n")
	w.WriteString(r.Quality)
	w.WriteByte('\n')
}

// WriterOpts names the output destinations. Out2 empty means interleaved
// (or single-end) output into Out1. DiscardOut, when set, receives
// discarded records instead of dropping them.
type WriterOpts struct {
	Out1       string
	Out2       string
	DiscardOut string
}

// Writer is the ordered-mode sink: a single output stream (or R1/R2
// stream pair) written from one goroutine in batch order.
type Writer struct {
	out1    *writeCloser
	out2    *writeCloser
	discard *writeCloser
}

// NewWriter opens the output files.
func NewWriter(opts WriterOpts) (*Writer, error) {
	w := &Writer{}
	var err error
	if w.out1, err = newWriteCloser(opts.Out1); err != nil {
		return nil, err
	}
	if opts.Out2 != "" {
		if w.out2, err = newWriteCloser(opts.Out2); err != nil {
			w.out1.Close()
			return nil, err
		}
	}
	if opts.DiscardOut != "" {
		if w.discard, err = newWriteCloser(opts.DiscardOut); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

// Write emits one processed batch.
func (w *Writer) Write(res *pool.BatchResult) error {
	for _, pr := range res.Results {
		writeResult(w.out1, w.out2, w.discard, pr)
	}
	return w.out1.bw.Flush()
}

// writeResult routes one pair to the kept or discarded stream. A pair is
// written or withheld atomically; mates never split across outcomes.
func writeResult(out1, out2, discard *writeCloser, pr *trim.PairResult) {
	if pr.Discarded {
		if discard != nil {
			writeRead(discard.bw, pr.R1)
			if pr.R2 != nil {
				writeRead(discard.bw, pr.R2)
			}
		}
		return
	}
	writeRead(out1.bw, pr.R1)
	if pr.R2 != nil {
		if out2 != nil {
			writeRead(out2.bw, pr.R2)
		} else {
			writeRead(out1.bw, pr.R2)
		}
	}
}

// Close flushes and closes all streams.
func (w *Writer) Close() error {
	var first error
	for _, wc := range []*writeCloser{w.out1, w.out2, w.discard} {
		if wc == nil {
			continue
		}
		if err := wc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
