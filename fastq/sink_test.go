package fastq

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/shenwei356/xopen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairTrimmer/pool"
	"pairTrimmer/read"
	"pairTrimmer/trim"
)

func keptResult(name, seq, qual string) *trim.PairResult {
	return &trim.PairResult{R1: &read.Read{Name: name, Sequence: seq, Quality: qual}}
}

func readAll(t *testing.T, path string) string {
	t.Helper()
	fh, err := xopen.Ropen(path)
	if err == xopen.ErrNoContent {
		// xopen refuses to open empty files; an empty file reads as "".
		return ""
	}
	require.NoError(t, err)
	defer fh.Close()
	data, err := io.ReadAll(fh)
	require.NoError(t, err)
	return string(data)
}

func TestWriterSingleEnd(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq")

	w, err := NewWriter(WriterOpts{Out1: out})
	require.NoError(t, err)
	err = w.Write(&pool.BatchResult{Results: []*trim.PairResult{
		keptResult("r1", "ACGT", "IIII"),
		keptResult("r2", "TTTT", "FFFF"),
	}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "@r1\nACGT\n+\nIIII\n@r2\nTTTT\n+\nFFFF\n", readAll(t, out))
}

func TestWriterPairedSplit(t *testing.T) {
	dir := t.TempDir()
	out1 := filepath.Join(dir, "out1.fastq")
	out2 := filepath.Join(dir, "out2.fastq")

	w, err := NewWriter(WriterOpts{Out1: out1, Out2: out2})
	require.NoError(t, err)
	pr := keptResult("a/1", "ACGT", "IIII")
	pr.R2 = &read.Read{Name: "a/2", Sequence: "TTTT", Quality: "IIII"}
	require.NoError(t, w.Write(&pool.BatchResult{Results: []*trim.PairResult{pr}}))
	require.NoError(t, w.Close())

	assert.Equal(t, "@a/1\nACGT\n+\nIIII\n", readAll(t, out1))
	assert.Equal(t, "@a/2\nTTTT\n+\nIIII\n", readAll(t, out2))
}

func TestWriterInterleaved(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq")

	w, err := NewWriter(WriterOpts{Out1: out})
	require.NoError(t, err)
	pr := keptResult("a/1", "ACGT", "IIII")
	pr.R2 = &read.Read{Name: "a/2", Sequence: "TTTT", Quality: "IIII"}
	require.NoError(t, w.Write(&pool.BatchResult{Results: []*trim.PairResult{pr}}))
	require.NoError(t, w.Close())

	assert.Equal(t, "@a/1\nACGT\n+\nIIII\n@a/2\nTTTT\n+\nIIII\n", readAll(t, out))
}

func TestWriterDiscardRouting(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq")
	disc := filepath.Join(dir, "discard.fastq")

	w, err := NewWriter(WriterOpts{Out1: out, DiscardOut: disc})
	require.NoError(t, err)
	kept := keptResult("keep", "ACGT", "IIII")
	dropped := keptResult("drop", "TT", "II")
	dropped.Discarded = true
	dropped.Reason = trim.ReasonTooShort
	require.NoError(t, w.Write(&pool.BatchResult{Results: []*trim.PairResult{kept, dropped}}))
	require.NoError(t, w.Close())

	assert.Equal(t, "@keep\nACGT\n+\nIIII\n", readAll(t, out))
	assert.Equal(t, "@drop\nTT\n+\nII\n", readAll(t, disc))
}

func TestWriterDroppedWithoutDiscardFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq")

	w, err := NewWriter(WriterOpts{Out1: out})
	require.NoError(t, err)
	dropped := keptResult("drop", "TT", "II")
	dropped.Discarded = true
	require.NoError(t, w.Write(&pool.BatchResult{Results: []*trim.PairResult{dropped}}))
	require.NoError(t, w.Close())

	assert.Empty(t, readAll(t, out))
}

func TestWriterGzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq.gz")

	w, err := NewWriter(WriterOpts{Out1: out})
	require.NoError(t, err)
	require.NoError(t, w.Write(&pool.BatchResult{Results: []*trim.PairResult{
		keptResult("r1", "ACGT", "IIII"),
	}}))
	require.NoError(t, w.Close())

	assert.Equal(t, "@r1\nACGT\n+\nIIII\n", readAll(t, out))
}

func TestWriterZstdRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq.zst")

	w, err := NewWriter(WriterOpts{Out1: out})
	require.NoError(t, err)
	require.NoError(t, w.Write(&pool.BatchResult{Results: []*trim.PairResult{
		keptResult("r1", "ACGT", "IIII"),
	}}))
	require.NoError(t, w.Close())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "@r1\nACGT\n+\nIIII\n", string(data))
}

func TestShardSet(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq")

	set, err := NewShardSet(WriterOpts{Out1: out})
	require.NoError(t, err)

	s0 := set.Sink(0)
	s1 := set.Sink(1)
	require.NoError(t, s0.Write(&pool.BatchResult{Index: 0, Results: []*trim.PairResult{
		keptResult("a", "ACGT", "IIII"),
	}}))
	require.NoError(t, s1.Write(&pool.BatchResult{Index: 1, Results: []*trim.PairResult{
		keptResult("b", "TTTT", "IIII"),
		keptResult("c", "GGGG", "IIII"),
	}}))
	require.NoError(t, set.Close())

	assert.Equal(t, "@a\nACGT\n+\nIIII\n", readAll(t, shardPath(out, 0)))
	assert.Equal(t, "@b\nTTTT\n+\nIIII\n@c\nGGGG\n+\nIIII\n", readAll(t, shardPath(out, 1)))

	manifest := readAll(t, filepath.Join(dir, "out.fastq.manifest.tsv"))
	lines := strings.Split(strings.TrimSpace(manifest), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "batch_index\tshard\trecords", lines[0])
	assert.Contains(t, lines[1], "0\t")
	assert.Contains(t, lines[1], "\t1")
	assert.Contains(t, lines[2], "1\t")
	assert.Contains(t, lines[2], "\t2")
}

func TestShardSetLazyOpen(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fastq")

	set, err := NewShardSet(WriterOpts{Out1: out})
	require.NoError(t, err)
	set.Sink(0) // never written to
	require.NoError(t, set.Close())

	_, err = os.Stat(shardPath(out, 0))
	assert.True(t, os.IsNotExist(err), "idle workers must not create shard files")
}

func TestShardPath(t *testing.T) {
	tests := []struct {
		in     string
		worker int
		want   string
	}{
		{"out.fastq.gz", 3, "out.shard3.fastq.gz"},
		{"out.fastq", 0, "out.shard0.fastq"},
		{"out.fastq.zst", 1, "out.shard1.fastq.zst"},
		{"reads.fq", 2, "reads.fq.shard2"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, shardPath(tc.in, tc.worker))
	}
}
