package experiment

import (
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/preprocessing"
)

// SamplePoint is one entry of the large-dataset sampling report: the score a
// cheap baseline reaches when fitted on the given fraction of the rows.
type SamplePoint struct {
	Fraction float64
	R2       float64
}

// SampleChooser picks a working sample fraction from the sampling report.
// The default keeps everything.
type SampleChooser func(report []SamplePoint) float64

// Config collects every Setup option. Zero values are filled with defaults
// before validation.
type Config struct {
	TrainSize       float64
	Fold            int
	Seed            int64
	SplitShuffle    bool
	FoldShuffle     bool
	NJobs           int
	RoundTo         int
	Normalize       bool
	Impute          preprocessing.ImputeStrategy
	TransformTarget bool

	LoggingEnabled bool
	ExperimentName string
	TrackingDir    string

	SampleThreshold int
	SampleChooser   SampleChooser
}

func defaultConfig() Config {
	return Config{
		TrainSize:       0.7,
		Fold:            10,
		Seed:            42,
		SplitShuffle:    true,
		FoldShuffle:     false,
		NJobs:           -1,
		RoundTo:         4,
		Normalize:       true,
		Impute:          preprocessing.ImputeMean,
		SampleThreshold: 25000,
	}
}

func (c *Config) validate() error {
	if c.TrainSize <= 0 || c.TrainSize >= 1 {
		return errors.NewValidationError("train_size", "must be strictly between 0 and 1", c.TrainSize)
	}
	if c.Fold < 2 {
		return errors.NewValidationError("fold", "must be at least 2", c.Fold)
	}
	if c.RoundTo < 0 {
		return errors.NewValidationError("round", "must not be negative", c.RoundTo)
	}
	switch c.Impute {
	case preprocessing.ImputeMean, preprocessing.ImputeMedian, preprocessing.ImputeZero:
	default:
		return errors.NewValidationError("impute", "must be one of mean, median, zero", string(c.Impute))
	}
	if c.LoggingEnabled && c.TrackingDir == "" {
		return errors.NewValidationError("tracking_dir", "required when logging is enabled", c.TrackingDir)
	}
	if c.SampleThreshold < 1 {
		return errors.NewValidationError("sample_threshold", "must be positive", c.SampleThreshold)
	}
	return nil
}

// Option configures Setup.
type Option func(*Config)

// WithTrainSize sets the train/test split ratio.
func WithTrainSize(ratio float64) Option {
	return func(c *Config) { c.TrainSize = ratio }
}

// WithFold sets the default cross-validation fold count.
func WithFold(k int) Option {
	return func(c *Config) { c.Fold = k }
}

// WithSeed fixes the session seed.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithSplitShuffle controls row shuffling before the train/test split.
func WithSplitShuffle(shuffle bool) Option {
	return func(c *Config) { c.SplitShuffle = shuffle }
}

// WithFoldShuffle controls row shuffling inside cross-validation splits.
func WithFoldShuffle(shuffle bool) Option {
	return func(c *Config) { c.FoldShuffle = shuffle }
}

// WithNJobs sets the parallelism hint forwarded to estimators. Negative
// means all cores.
func WithNJobs(n int) Option {
	return func(c *Config) { c.NJobs = n }
}

// WithRounding sets the decimal precision of reported metrics.
func WithRounding(digits int) Option {
	return func(c *Config) { c.RoundTo = digits }
}

// WithNormalize toggles the standard-scaling pipeline step.
func WithNormalize(on bool) Option {
	return func(c *Config) { c.Normalize = on }
}

// WithImputation selects the missing-value strategy.
func WithImputation(strategy preprocessing.ImputeStrategy) Option {
	return func(c *Config) { c.Impute = strategy }
}

// WithTargetTransform standardizes the target before training. Metrics are
// always reported on the original scale.
func WithTargetTransform(on bool) Option {
	return func(c *Config) { c.TransformTarget = on }
}

// WithTracking enables the experiment tracker, writing runs under dir.
func WithTracking(experimentName, dir string) Option {
	return func(c *Config) {
		c.LoggingEnabled = true
		c.ExperimentName = experimentName
		c.TrackingDir = dir
	}
}

// WithSampling installs a chooser consulted when the dataset exceeds the
// row threshold.
func WithSampling(chooser SampleChooser) Option {
	return func(c *Config) { c.SampleChooser = chooser }
}

// WithSampleThreshold overrides the row count above which the sampling aid
// kicks in.
func WithSampleThreshold(rows int) Option {
	return func(c *Config) { c.SampleThreshold = rows }
}
