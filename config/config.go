// Package config is for app-wide settings unmarshalled from Viper
// (see: /cmd). Flags are bound into viper by the commands; an optional
// settings file can preload any of them.
package config

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the root-level settings struct, a mix of settings available
// in an optional settings file and those from the command line. Built
// once at startup and shared read-only by every worker.
type Config struct {
	// Inputs and outputs
	Input1     string `mapstructure:"input1"`
	Input2     string `mapstructure:"input2"`
	Output1    string `mapstructure:"output1"`
	Output2    string `mapstructure:"output2"`
	DiscardOut string `mapstructure:"discard-output"`

	// Adapter matching
	Adapter1   string  `mapstructure:"adapter1"`
	Adapter2   string  `mapstructure:"adapter2"`
	ErrorRate  float64 `mapstructure:"error-rate"`
	MinOverlap int     `mapstructure:"min-overlap"`

	// Insert alignment
	NoInsertMatch     bool    `mapstructure:"no-insert-match"`
	MinInsertOverlap  int     `mapstructure:"min-insert-overlap"`
	MinInsertIdentity float64 `mapstructure:"min-insert-identity"`
	Correct           bool    `mapstructure:"correct"`
	CorrectDelta      int     `mapstructure:"correct-delta"`

	// Trimming and filters
	QualityCutoff int     `mapstructure:"quality-cutoff"`
	Trim5         int     `mapstructure:"trim5"`
	Trim3         int     `mapstructure:"trim3"`
	MinLength     int     `mapstructure:"min-length"`
	MaxLength     int     `mapstructure:"max-length"`
	MaxN          float64 `mapstructure:"max-n"`
	MaxMeanError  float64 `mapstructure:"max-mean-error"`
	PairFilter    string  `mapstructure:"pair-filter"`

	// Pipeline
	Workers       int  `mapstructure:"workers"`
	BatchSize     int  `mapstructure:"batch-size"`
	QueueSize     int  `mapstructure:"queue-size"`
	ParallelWrite bool `mapstructure:"parallel-write"`
	Progress      bool `mapstructure:"progress"`
}

// New reads the assembled viper state into a Config.
func New() (*Config, error) {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "reading settings")
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	if c.QueueSize < 1 {
		c.QueueSize = 4 * c.Workers
	}
	return c, nil
}

// Paired reports whether the run is paired-end.
func (c *Config) Paired() bool {
	return c.Input2 != ""
}

// Validate rejects contradictory or unusable settings before any
// processing begins. These are the only fatal pre-run errors.
func (c *Config) Validate() error {
	if c.Input1 == "" {
		return errors.New("no input file given")
	}
	if c.Output1 == "" {
		return errors.New("no output file given")
	}
	if c.Output2 != "" && !c.Paired() {
		return errors.New("output2 given for single-end input")
	}
	if c.ErrorRate < 0 || c.ErrorRate >= 1 {
		return errors.Errorf("error-rate %v out of range [0,1)", c.ErrorRate)
	}
	if c.MinOverlap < 1 {
		return errors.Errorf("min-overlap must be at least 1, got %d", c.MinOverlap)
	}
	if c.MinInsertOverlap < 1 {
		return errors.Errorf("min-insert-overlap must be at least 1, got %d", c.MinInsertOverlap)
	}
	if c.MinInsertIdentity <= 0 || c.MinInsertIdentity > 1 {
		return errors.Errorf("min-insert-identity %v out of range (0,1]", c.MinInsertIdentity)
	}
	if c.CorrectDelta < 0 {
		return errors.Errorf("correct-delta must not be negative, got %d", c.CorrectDelta)
	}
	if c.QualityCutoff < 0 {
		return errors.Errorf("quality-cutoff must not be negative, got %d", c.QualityCutoff)
	}
	if c.Trim5 < 0 || c.Trim3 < 0 {
		return errors.New("trim5/trim3 must not be negative")
	}
	if c.MinLength < 0 {
		return errors.Errorf("min-length must not be negative, got %d", c.MinLength)
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return errors.Errorf("min-length %d exceeds max-length %d", c.MinLength, c.MaxLength)
	}
	switch c.PairFilter {
	case "", "any", "both":
	default:
		return errors.Errorf("pair-filter must be 'any' or 'both', got %q", c.PairFilter)
	}
	if c.BatchSize < 1 {
		return errors.Errorf("batch-size must be at least 1, got %d", c.BatchSize)
	}
	if c.ParallelWrite && c.Output2 != "" {
		return errors.New("parallel-write produces interleaved shards; output2 cannot be used")
	}
	return nil
}
