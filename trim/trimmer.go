// Package trim turns alignment decisions into trimmed output records and
// per-record statistics. The order of operations is fixed: adapter/insert
// trim, fixed 5'/3' trim, quality trim, then the length, N-content and
// mean-error filters.
package trim

import (
	"pairTrimmer/align"
	"pairTrimmer/read"
)

// ActionType classifies what happened to one read.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionAdapterTrim
	ActionInsertTrim
	ActionQualityTrim
	ActionDiscard
)

// Discard reasons, reported through Statistics.
const (
	ReasonTooShort   = "too_short"
	ReasonTooLong    = "too_long"
	ReasonTooManyN   = "too_many_n"
	ReasonLowQuality = "low_quality"
	ReasonMalformed  = "malformed"
)

// Action records the decision applied to one read.
type Action struct {
	Type           ActionType
	TrimPos        int    // position of the first cut, for trim actions
	AdapterRemoved int    // bases removed by adapter or insert trimming
	QualityRemoved int    // bases removed by quality trimming
	Reason         string // set when Type == ActionDiscard
}

// PairResult is the trimmer's output for one input pair. Reads carry the
// trimmed records even when the pair is discarded, so discard routing can
// still write them.
type PairResult struct {
	R1, R2     *read.Read
	Action1    Action
	Action2    Action
	Discarded  bool
	Reason     string
	InsertSize int // estimated insert length, 0 when unknown
}

// PairFilter controls when a failing mate discards the whole pair.
type PairFilter int

const (
	// FilterAny discards the pair when either mate fails a filter.
	FilterAny PairFilter = iota
	// FilterBoth discards the pair only when both mates fail.
	FilterBoth
)

// Opts configures the trimmer. All fields are read-only after startup.
type Opts struct {
	QualityCutoff int     // 3' quality trim threshold, 0 disables
	MinLength     int     // minimum output length, 0 disables
	MaxLength     int     // maximum output length, 0 disables
	MaxN          float64 // N filter: <0 disables, <1 fraction, >=1 count
	MaxMeanError  float64 // mean error probability filter, <=0 disables
	Trim5, Trim3  int     // fixed-length trims applied after adapter removal
	PairFilter    PairFilter
}

// Trimmer applies trim decisions for one worker. It owns its aligners and
// statistics; instances must not be shared between goroutines.
type Trimmer struct {
	opts     Opts
	matcher1 *align.Matcher
	matcher2 *align.Matcher
	insert   *align.InsertAligner
	stats    *Stats
}

// New builds a worker-local trimmer. matcher2 and insert may be nil for
// single-end data; insert may also be nil to force per-mate matching.
func New(opts Opts, matcher1, matcher2 *align.Matcher, insert *align.InsertAligner) *Trimmer {
	if matcher2 == nil {
		matcher2 = matcher1
	}
	return &Trimmer{
		opts:     opts,
		matcher1: matcher1,
		matcher2: matcher2,
		insert:   insert,
		stats:    NewStats(),
	}
}

// Stats exposes the trimmer's accumulator for the end-of-run merge.
func (t *Trimmer) Stats() *Stats {
	return t.stats
}

// Process trims one pair (or single read, R2 nil) and classifies the
// outcome. Malformed records and filter failures are discards, never
// errors; the pipeline keeps running.
func (t *Trimmer) Process(p *read.Pair) *PairResult {
	res := &PairResult{R1: p.R1, R2: p.R2}
	t.stats.Incr(StatReadsIn)
	if p.IsPaired() {
		t.stats.Incr(StatReadsIn)
		t.stats.Incr(StatPairsIn)
	}

	if p.Malformed || p.R1.Validate() != nil || (p.IsPaired() && p.R2.Validate() != nil) {
		t.discard(res, ReasonMalformed)
		return res
	}

	if p.IsPaired() && t.insert != nil {
		if m := t.insert.Align(p.R1, p.R2); m != nil {
			t.stats.Incr(StatInsertMatched)
			res.InsertSize = m.InsertLength
			r1, r2, corrected := t.insert.CorrectMismatches(p.R1, p.R2, m)
			if corrected > 0 {
				t.stats.Add(StatCorrectedBases, int64(corrected))
			}
			res.R1, res.Action1 = t.cutAt(r1, m.InsertLength, ActionInsertTrim)
			res.R2, res.Action2 = t.cutAt(r2, m.InsertLength, ActionInsertTrim)
			t.finish(res, p.IsPaired())
			return res
		}
		t.stats.Incr(StatInsertFallback)
	}

	res.R1, res.Action1 = t.matchAdapter(p.R1, t.matcher1)
	if p.IsPaired() {
		res.R2, res.Action2 = t.matchAdapter(p.R2, t.matcher2)
	}
	t.finish(res, p.IsPaired())
	return res
}

func (t *Trimmer) matchAdapter(r *read.Read, matcher *align.Matcher) (*read.Read, Action) {
	if matcher == nil {
		return r, Action{}
	}
	m, _ := matcher.Locate(r.Sequence)
	if m == nil {
		return r, Action{}
	}
	return t.cutAt(r, m.RStart, ActionAdapterTrim)
}

// cutAt removes everything at and after pos. No-op when pos is at or past
// the read end.
func (t *Trimmer) cutAt(r *read.Read, pos int, action ActionType) (*read.Read, Action) {
	if pos >= r.Length() {
		return r, Action{}
	}
	removed := r.Length() - pos
	t.stats.Incr(StatAdapterTrimmed)
	t.stats.Add(StatBasesRemoved, int64(removed))
	t.stats.Observe(HistAdapterRemoved, removed)
	return r.Subsequence(0, pos), Action{Type: action, TrimPos: pos, AdapterRemoved: removed}
}

// finish runs the position-independent steps: fixed trims, quality trim,
// then the filters, and accounts for the outputs.
func (t *Trimmer) finish(res *PairResult, paired bool) {
	res.R1, res.Action1 = t.fixedAndQualityTrim(res.R1, res.Action1)
	if paired {
		res.R2, res.Action2 = t.fixedAndQualityTrim(res.R2, res.Action2)
	}

	reason1 := t.filterReason(res.R1)
	reason2 := ""
	if paired {
		reason2 = t.filterReason(res.R2)
	}

	failed := reason1 != "" || reason2 != ""
	if paired && t.opts.PairFilter == FilterBoth {
		failed = reason1 != "" && reason2 != ""
	}
	if failed {
		reason := reason1
		if reason == "" {
			reason = reason2
		}
		t.discard(res, reason)
		return
	}

	t.stats.Incr(StatReadsOut)
	t.stats.Observe(HistOutputLength, res.R1.Length())
	if paired {
		t.stats.Incr(StatReadsOut)
		t.stats.Observe(HistOutputLength, res.R2.Length())
	}
}

func (t *Trimmer) fixedAndQualityTrim(r *read.Read, a Action) (*read.Read, Action) {
	start, end := t.opts.Trim5, r.Length()-t.opts.Trim3
	if start > r.Length() {
		start = r.Length()
	}
	if end < start {
		end = start
	}
	if start > 0 || end < r.Length() {
		r = r.Subsequence(start, end)
	}

	if t.opts.QualityCutoff > 0 {
		cut := qualityTrimIndex(r.Quality, t.opts.QualityCutoff)
		if cut < r.Length() {
			removed := r.Length() - cut
			a.QualityRemoved = removed
			if a.Type == ActionNone {
				a.Type = ActionQualityTrim
				a.TrimPos = cut
			}
			t.stats.Incr(StatQualityTrimmed)
			t.stats.Add(StatBasesRemoved, int64(removed))
			r = r.Subsequence(0, cut)
		}
	}
	return r, a
}

// filterReason returns the first failing filter's discard reason, or "".
// Filter order follows the fixed pipeline order: length, N content, mean
// error.
func (t *Trimmer) filterReason(r *read.Read) string {
	if t.opts.MinLength > 0 && r.Length() < t.opts.MinLength {
		return ReasonTooShort
	}
	if t.opts.MaxLength > 0 && r.Length() > t.opts.MaxLength {
		return ReasonTooLong
	}
	if t.opts.MaxN >= 0 {
		n := float64(r.CountN())
		if t.opts.MaxN < 1 {
			if r.Length() > 0 && n/float64(r.Length()) > t.opts.MaxN {
				return ReasonTooManyN
			}
		} else if n > t.opts.MaxN {
			return ReasonTooManyN
		}
	}
	if t.opts.MaxMeanError > 0 && r.Length() > 0 &&
		read.MeanError(r.Quality) >= t.opts.MaxMeanError {
		return ReasonLowQuality
	}
	return ""
}

func (t *Trimmer) discard(res *PairResult, reason string) {
	res.Discarded = true
	res.Reason = reason
	res.Action1.Type = ActionDiscard
	res.Action1.Reason = reason
	if res.R2 != nil {
		res.Action2.Type = ActionDiscard
		res.Action2.Reason = reason
	}
	t.stats.Incr(StatDiscardPrefix + reason)
}

// qualityTrimIndex finds the 3' cut position using the partial-sum walk
// from the read end: the cut lands at the minimum of the running
// sum(cutoff - q), the same rule BWA and cutadapt apply.
func qualityTrimIndex(quality string, cutoff int) int {
	s, maxS := 0, 0
	cut := len(quality)
	for i := len(quality) - 1; i >= 0; i-- {
		q := int(quality[i]) - 33
		s += cutoff - q
		if s < 0 {
			break
		}
		if s > maxS {
			maxS = s
			cut = i
		}
	}
	return cut
}
