package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"pairTrimmer/trim"
)

func TestPrint(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	stats := trim.NewStats()
	stats.Add(trim.StatReadsIn, 2000)
	stats.Add(trim.StatPairsIn, 1000)
	stats.Add(trim.StatReadsOut, 1900)
	stats.Add(trim.StatInsertMatched, 700)
	stats.Add(trim.StatInsertFallback, 300)
	stats.Add(trim.StatAdapterTrimmed, 800)
	stats.Add(trim.StatBasesRemoved, 12345)
	stats.Add(trim.StatCorrectedBases, 42)
	stats.Add(trim.StatDiscardPrefix+trim.ReasonTooShort, 80)
	stats.Add(trim.StatDiscardPrefix+trim.ReasonLowQuality, 20)

	var buf bytes.Buffer
	Print(&buf, stats, true, 2*time.Second)
	out := buf.String()

	assert.Contains(t, out, "Total reads: 2,000")
	assert.Contains(t, out, "Read pairs: 1,000")
	assert.Contains(t, out, "Reads passing: 95.00%")
	assert.Contains(t, out, "Insert matches: 700")
	assert.Contains(t, out, "Bases removed: 12,345")
	assert.Contains(t, out, "Bases corrected: 42")
	assert.Contains(t, out, "Discarded (low_quality): 20")
	assert.Contains(t, out, "Discarded (too_short): 80")
	assert.Contains(t, out, "1,000 reads/sec")
}

func TestPrintSingleEnd(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	stats := trim.NewStats()
	stats.Add(trim.StatReadsIn, 10)
	stats.Add(trim.StatReadsOut, 10)

	var buf bytes.Buffer
	Print(&buf, stats, false, time.Second)
	out := buf.String()

	assert.NotContains(t, out, "Read pairs")
	assert.NotContains(t, out, "Insert matches")
	assert.NotContains(t, out, "Bases corrected")
	assert.NotContains(t, out, "Discarded")
}
