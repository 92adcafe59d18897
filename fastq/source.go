// Package fastq adapts FASTQ/FASTA files to the pipeline's batch model:
// a Source producing indexed batches of read pairs, and Sinks writing
// trimmed records back out with compression chosen by file extension.
package fastq

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"

	"pairTrimmer/read"
)

// BatchSource reads one or two FASTX files and produces gap-free,
// zero-based indexed batches. Not restartable and not safe for concurrent
// use; the pool reads from it in a single goroutine.
type BatchSource struct {
	reader1   *fastx.Reader
	reader2   *fastx.Reader // nil for single-end input
	batchSize int
	index     int64
	done      bool
}

// NewBatchSource opens the input file(s). path2 is empty for single-end
// data. "-" reads from stdin (single-end only).
func NewBatchSource(path1, path2 string, batchSize int) (*BatchSource, error) {
	r1, err := fastx.NewReader(seq.DNAredundant, path1, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path1)
	}
	s := &BatchSource{reader1: r1, batchSize: batchSize}
	if path2 != "" {
		r2, err := fastx.NewReader(seq.DNAredundant, path2, fastx.DefaultIDRegexp)
		if err != nil {
			r1.Close()
			return nil, errors.Wrapf(err, "opening %s", path2)
		}
		s.reader2 = r2
	}
	return s, nil
}

// Next returns the next batch, or nil at end of data.
func (s *BatchSource) Next() (*read.Batch, error) {
	if s.done {
		return nil, nil
	}
	batch := &read.Batch{
		Index: s.index,
		Pairs: make([]*read.Pair, 0, s.batchSize),
	}
	for len(batch.Pairs) < s.batchSize {
		pair, err := s.nextPair()
		if err != nil {
			return nil, err
		}
		if pair == nil {
			s.done = true
			break
		}
		batch.Pairs = append(batch.Pairs, pair)
	}
	if len(batch.Pairs) == 0 {
		return nil, nil
	}
	s.index++
	return batch, nil
}

func (s *BatchSource) nextPair() (*read.Pair, error) {
	r1, err := readRecord(s.reader1)
	if err != nil {
		return nil, err
	}
	if r1 == nil {
		if s.reader2 != nil {
			// A leftover R2 record means the files are out of step;
			// surface it as a malformed pair rather than dropping it.
			r2, err := readRecord(s.reader2)
			if err != nil {
				return nil, err
			}
			if r2 != nil {
				return &read.Pair{R1: r2, Malformed: true}, nil
			}
		}
		return nil, nil
	}
	pair := &read.Pair{R1: r1}
	if s.reader2 != nil {
		r2, err := readRecord(s.reader2)
		if err != nil {
			return nil, err
		}
		if r2 == nil {
			// Missing mate: classify, count, keep going.
			pair.Malformed = true
			return pair, nil
		}
		pair.R2 = r2
	}
	if pair.R1.Validate() != nil || (pair.R2 != nil && pair.R2.Validate() != nil) {
		pair.Malformed = true
	}
	return pair, nil
}

// readRecord copies one fastx record into the pipeline's Read model.
// fastx reuses its record buffers, so the bytes are copied out here.
// FASTA input gets constant qualities, matching the usual convention.
func readRecord(r *fastx.Reader) (*read.Read, error) {
	rec, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "parsing record")
	}
	out := &read.Read{
		Name:     string(rec.Name),
		Sequence: string(rec.Seq.Seq),
	}
	if len(rec.Seq.Qual) > 0 {
		out.Quality = string(rec.Seq.Qual)
	} else {
		out.Quality = strings.Repeat("I", len(out.Sequence))
	}
	return out, nil
}

// Close releases the underlying readers.
func (s *BatchSource) Close() error {
	s.reader1.Close()
	if s.reader2 != nil {
		s.reader2.Close()
	}
	return nil
}

// CountRecords scans a file once to count its records, for progress
// reporting. FASTQ records are four lines; FASTA records are counted by
// header lines.
func CountRecords(path string) (int64, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", path)
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	var lines, headers int64
	fasta := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if lines == 0 && line[0] == '>' {
			fasta = true
		}
		if fasta {
			if line[0] == '>' {
				headers++
			}
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrapf(err, "counting records in %s", path)
	}
	if fasta {
		return headers, nil
	}
	return lines / 4, nil
}
