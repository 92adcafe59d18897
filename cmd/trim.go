package cmd

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pairTrimmer/align"
	"pairTrimmer/config"
	"pairTrimmer/fastq"
	"pairTrimmer/pool"
	"pairTrimmer/report"
	"pairTrimmer/trim"
)

func trimCommand() *cobra.Command {
	var settingsFile string
	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Trim adapters, quality tails and filtered reads",
		Long: `Trim FASTQ reads, single-end or paired-end.

For paired-end input the insert aligner is tried first: read1 is aligned
against the reverse complement of read2 and both mates are cut at the
shared insert boundary. When the mates do not overlap confidently, each
read falls back to semi-global matching against the configured adapters.

Output compression is chosen by extension (.gz, .zst, plain).`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if settingsFile == "" {
				return nil
			}
			viper.SetConfigFile(settingsFile)
			return errors.Wrapf(viper.ReadInConfig(), "reading %s", settingsFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTrim(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("input1", "1", "", "input FASTQ, R1 or single-end (required)")
	f.StringP("input2", "2", "", "input FASTQ R2 for paired-end")
	f.StringP("output1", "o", "", "output file, R1 or interleaved (required)")
	f.StringP("output2", "p", "", "output file for R2")
	f.String("discard-output", "", "write discarded reads here instead of dropping them")

	f.StringP("adapter1", "a", "", "3' adapter(s) for read1, comma separated, trailing $ anchors")
	f.StringP("adapter2", "A", "", "3' adapter(s) for read2")
	f.Float64P("error-rate", "e", 0.1, "allowed adapter error rate (errors / aligned length)")
	f.Int("min-overlap", 3, "minimum adapter overlap")

	f.Bool("no-insert-match", false, "disable paired insert alignment")
	f.Int("min-insert-overlap", 8, "minimum overlap between mates for an insert match")
	f.Float64("min-insert-identity", 0.8, "minimum identity in the mate overlap")
	f.Bool("correct", false, "correct mismatches inside the mate overlap")
	f.Int("correct-delta", 10, "minimum quality difference for a correction")

	f.IntP("quality-cutoff", "q", 0, "3' quality trim cutoff, 0 disables")
	f.Int("trim5", 0, "remove this many bases from the 5' end")
	f.Int("trim3", 0, "remove this many bases from the 3' end")
	f.IntP("min-length", "m", 18, "discard reads shorter than this")
	f.IntP("max-length", "M", 0, "discard reads longer than this, 0 disables")
	f.Float64("max-n", -1, "N filter: fraction if <1, count if >=1, negative disables")
	f.Float64("max-mean-error", 0, "discard reads with mean error above this, 0 disables")
	f.String("pair-filter", "any", "discard pair when 'any' or 'both' mates fail")

	f.IntP("workers", "t", 0, "worker count, 0 means all CPUs")
	f.Int("batch-size", 5000, "reads per batch")
	f.Int("queue-size", 0, "input queue capacity in batches, 0 means 4x workers")
	f.Bool("parallel-write", false, "write per-worker shards instead of one ordered stream")
	f.Bool("progress", false, "show a progress bar")
	f.StringVar(&settingsFile, "settings", "", "YAML settings file preloading any flag")

	cobra.CheckErr(viper.BindPFlags(f))
	cobra.CheckErr(cmd.MarkFlagRequired("input1"))
	cobra.CheckErr(cmd.MarkFlagRequired("output1"))
	return cmd
}

func runTrim(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	adapters1, err := align.ParseAdapters(cfg.Adapter1, cfg.ErrorRate, cfg.MinOverlap)
	if err != nil {
		return err
	}
	adapters2, err := align.ParseAdapters(cfg.Adapter2, cfg.ErrorRate, cfg.MinOverlap)
	if err != nil {
		return err
	}

	src, err := fastq.NewBatchSource(cfg.Input1, cfg.Input2, cfg.BatchSize)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := pool.Opts{
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		Ordered:    !cfg.ParallelWrite,
		NewTrimmer: trimmerFactory(cfg, adapters1, adapters2),
	}

	var closers []func() error
	if cfg.ParallelWrite {
		shards, err := fastq.NewShardSet(fastq.WriterOpts{
			Out1:       cfg.Output1,
			DiscardOut: cfg.DiscardOut,
		})
		if err != nil {
			return err
		}
		opts.ShardSinks = shards.Sink
		closers = append(closers, shards.Close)
		log.Printf("Output mode: parallel shards (%d workers)", cfg.Workers)
	} else {
		writer, err := fastq.NewWriter(fastq.WriterOpts{
			Out1:       cfg.Output1,
			Out2:       cfg.Output2,
			DiscardOut: cfg.DiscardOut,
		})
		if err != nil {
			return err
		}
		opts.Sink = writer
		closers = append(closers, writer.Close)
	}

	if cfg.Progress {
		if total, err := fastq.CountRecords(cfg.Input1); err == nil && total > 0 {
			bar := pb.Full.Start64(total)
			bar.Set(pb.Bytes, false)
			opts.OnBatch = func(pairs int) { bar.Add(pairs) }
			closers = append(closers, func() error { bar.Finish(); return nil })
		} else if err != nil {
			log.Printf("Warning: cannot count reads for progress: %v", err)
		}
	}

	stats, runErr := pool.Run(ctx, src, opts)
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	report.Print(os.Stderr, stats, cfg.Paired(), time.Since(start))
	return nil
}

// trimmerFactory builds per-worker trimmer instances. Each worker gets
// private matcher/aligner state; only the read-only adapter specs are
// shared.
func trimmerFactory(cfg *config.Config, adapters1, adapters2 []*align.Adapter) func() *trim.Trimmer {
	topts := trim.Opts{
		QualityCutoff: cfg.QualityCutoff,
		MinLength:     cfg.MinLength,
		MaxLength:     cfg.MaxLength,
		MaxN:          cfg.MaxN,
		MaxMeanError:  cfg.MaxMeanError,
		Trim5:         cfg.Trim5,
		Trim3:         cfg.Trim3,
	}
	if cfg.PairFilter == "both" {
		topts.PairFilter = trim.FilterBoth
	}

	return func() *trim.Trimmer {
		var m1, m2 *align.Matcher
		if len(adapters1) > 0 {
			m1 = align.NewMatcher(adapters1)
		}
		if len(adapters2) > 0 {
			m2 = align.NewMatcher(adapters2)
		}

		var ia *align.InsertAligner
		if cfg.Paired() && !cfg.NoInsertMatch {
			iopts := align.InsertOpts{
				MinOverlap:          cfg.MinInsertOverlap,
				MinIdentity:         cfg.MinInsertIdentity,
				Correct:             cfg.Correct,
				QualityDelta:        cfg.CorrectDelta,
				MinAdapterOverlap:   cfg.MinOverlap,
				AdapterMismatchFrac: cfg.ErrorRate,
			}
			if len(adapters1) > 0 {
				iopts.Adapter1 = adapters1[0]
			}
			if len(adapters2) > 0 {
				iopts.Adapter2 = adapters2[0]
			}
			ia = align.NewInsertAligner(iopts)
		}
		return trim.New(topts, m1, m2, ia)
	}
}
