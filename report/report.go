// Package report prints the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"pairTrimmer/trim"
)

// Print writes the merged run summary. Colors mirror the tool's terminal
// output; when w is not a terminal the color library strips them.
func Print(w io.Writer, stats *trim.Stats, paired bool, elapsed time.Duration) {
	readsIn := stats.Count(trim.StatReadsIn)
	readsOut := stats.Count(trim.StatReadsOut)

	fmt.Fprintf(w, "\nTotal reads: %s\n", humanize.Comma(readsIn))
	if paired {
		fmt.Fprintf(w, "Read pairs: %s\n", humanize.Comma(stats.Count(trim.StatPairsIn)))
	}
	fmt.Fprintf(w, "Reads written: %s\n", humanize.Comma(readsOut))
	if readsIn > 0 {
		color.New(color.FgHiGreen).Fprintf(w, "Reads passing: %.2f%%\n",
			float64(readsOut)/float64(readsIn)*100)
	}

	if paired {
		fmt.Fprintf(w, "\nInsert matches: %s\n", humanize.Comma(stats.Count(trim.StatInsertMatched)))
		fmt.Fprintf(w, "Adapter fallbacks: %s\n", humanize.Comma(stats.Count(trim.StatInsertFallback)))
	}
	fmt.Fprintf(w, "Reads with adapter: %s\n", humanize.Comma(stats.Count(trim.StatAdapterTrimmed)))
	fmt.Fprintf(w, "Quality-trimmed reads: %s\n", humanize.Comma(stats.Count(trim.StatQualityTrimmed)))
	fmt.Fprintf(w, "Bases removed: %s\n", humanize.Comma(stats.Count(trim.StatBasesRemoved)))
	if n := stats.Count(trim.StatCorrectedBases); n > 0 {
		fmt.Fprintf(w, "Bases corrected: %s\n", humanize.Comma(n))
	}

	discards := discardLines(stats)
	if len(discards) > 0 {
		fmt.Fprintln(w)
		mag := color.New(color.FgHiMagenta)
		for _, line := range discards {
			mag.Fprintln(w, line)
		}
	}

	fmt.Fprintf(w, "\nElapsed: %s", elapsed.Round(time.Millisecond))
	if sec := elapsed.Seconds(); sec > 0 && readsIn > 0 {
		fmt.Fprintf(w, " (%s reads/sec)", humanize.Comma(int64(float64(readsIn)/sec)))
	}
	fmt.Fprintln(w)
}

func discardLines(stats *trim.Stats) []string {
	var names []string
	for name := range stats.Counts {
		if strings.HasPrefix(name, trim.StatDiscardPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		reason := strings.TrimPrefix(name, trim.StatDiscardPrefix)
		lines = append(lines, fmt.Sprintf("Discarded (%s): %s",
			reason, humanize.Comma(stats.Counts[name])))
	}
	return lines
}
