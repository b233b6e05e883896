package experiment

import (
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/metrics"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
	"github.com/YuminosukeSato/regress/preprocessing"
)

// Dataset is a labeled table: named columns over a dense matrix. The target
// column is identified by name at Setup time.
type Dataset struct {
	Columns []string
	Data    *mat.Dense
}

// NewDataset pairs column names with a data matrix.
func NewDataset(columns []string, data *mat.Dense) *Dataset {
	return &Dataset{Columns: columns, Data: data}
}

func (d *Dataset) columnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Setup validates the configuration, fits the preprocessing pipeline over
// the full data, splits train/test, and publishes a fresh Session with empty
// result containers. Any previous session is simply abandoned; nothing is
// merged.
func Setup(data *Dataset, target string, opts ...Option) (*Session, error) {
	const op = "experiment.Setup"

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if data == nil || data.Data == nil {
		return nil, errors.NewValueError(op, "dataset is nil")
	}
	rows, cols := data.Data.Dims()
	if rows == 0 {
		return nil, errors.NewModelError(op, "empty dataset", errors.ErrEmptyData)
	}
	if rows < 2 {
		return nil, errors.NewValidationError("data", "need at least two rows to split train and holdout", rows)
	}
	if len(data.Columns) != cols {
		return nil, errors.NewDimensionError(op, cols, len(data.Columns), 1)
	}
	targetIdx := data.columnIndex(target)
	if targetIdx < 0 {
		return nil, errors.NewValidationError("target", "column not found in dataset", target)
	}
	if cols < 2 {
		return nil, errors.NewValueError(op, "dataset needs at least one feature column besides the target")
	}

	rawX, rawY := splitTarget(data.Data, targetIdx)

	// Large-dataset aid: report baseline accuracy at growing fractions and
	// let the chooser decide how much data to keep.
	if rows > cfg.SampleThreshold && cfg.SampleChooser != nil {
		fraction := cfg.SampleChooser(samplingReport(rawX, rawY, cfg.Seed))
		if fraction <= 0 || fraction > 1 {
			return nil, errors.NewValidationError("sample_fraction", "chooser must return a fraction in (0, 1]", fraction)
		}
		if fraction < 1 {
			keep := int(math.Round(fraction * float64(rows)))
			if keep < 2 {
				keep = 2
			}
			rawX, rawY = sampleRows(rawX, rawY, keep, cfg.Seed)
			rows = keep
		}
	}

	steps := []preprocessing.Step{
		{Name: "imputer", Transformer: preprocessing.NewSimpleImputer(cfg.Impute)},
	}
	if cfg.Normalize {
		steps = append(steps, preprocessing.Step{Name: "scaler", Transformer: preprocessing.NewStandardScalerDefault()})
	}
	pipeline := preprocessing.NewPipeline(steps...)

	transformed, err := pipeline.FitTransform(rawX)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fitting preprocessing pipeline", op)
	}
	X := mat.DenseCopyOf(transformed)

	y := mat.VecDenseCopyOf(rawY)
	s := &Session{
		ID:          uuid.New(),
		Seed:        cfg.Seed,
		FoldShuffle: cfg.FoldShuffle,
		NJobs:       cfg.NJobs,
		TargetName:  target,
		Pipeline:    pipeline,
		cfg:         cfg,
	}

	if cfg.TransformTarget {
		tt := preprocessing.NewStandardTarget()
		if err := tt.FitVec(y); err != nil {
			return nil, errors.Wrapf(err, "%s: fitting target transform", op)
		}
		y, err = tt.TransformVec(y)
		if err != nil {
			return nil, err
		}
		s.TargetTransform = tt
	}

	s.X = X
	s.Y = y
	s.XTrain, s.YTrain, s.XTest, s.YTest = splitTrainTest(X, y, cfg.TrainSize, cfg.SplitShuffle, cfg.Seed)

	if cfg.LoggingEnabled {
		s.tracker = NewTracker(cfg.TrackingDir, cfg.ExperimentName)
	}
	s.logger = log.WithSession(s.ID.String())

	trainRows, _ := s.XTrain.Dims()
	testRows, _ := s.XTest.Dims()
	s.logger.Info().
		Str(log.KeyOperation, "setup").
		Int(log.KeyRows, rows).
		Int(log.KeyCols, cols-1).
		Int("train_rows", trainRows).
		Int("test_rows", testRows).
		Str("target", target).
		Msg("session created")

	s.trackSetup()
	return s, nil
}

// splitTarget separates the target column from the feature columns.
func splitTarget(data *mat.Dense, targetIdx int) (*mat.Dense, *mat.VecDense) {
	rows, cols := data.Dims()
	X := mat.NewDense(rows, cols-1, nil)
	y := mat.NewVecDense(rows, nil)

	for i := 0; i < rows; i++ {
		out := 0
		for j := 0; j < cols; j++ {
			if j == targetIdx {
				y.SetVec(i, data.At(i, j))
				continue
			}
			X.Set(i, out, data.At(i, j))
			out++
		}
	}
	return X, y
}

func splitTrainTest(X *mat.Dense, y *mat.VecDense, trainSize float64, shuffle bool, seed int64) (*mat.Dense, *mat.VecDense, *mat.Dense, *mat.VecDense) {
	rows, cols := X.Dims()
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0xda3e39cb94b95bdb))
		rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	nTrain := int(math.Round(trainSize * float64(rows)))
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain >= rows {
		nTrain = rows - 1
	}

	take := func(idx []int) (*mat.Dense, *mat.VecDense) {
		outX := mat.NewDense(len(idx), cols, nil)
		outY := mat.NewVecDense(len(idx), nil)
		for i, src := range idx {
			for j := 0; j < cols; j++ {
				outX.Set(i, j, X.At(src, j))
			}
			outY.SetVec(i, y.AtVec(src))
		}
		return outX, outY
	}

	XTrain, yTrain := take(order[:nTrain])
	XTest, yTest := take(order[nTrain:])
	return XTrain, yTrain, XTest, yTest
}

// samplingReport fits a linear baseline at growing row fractions and scores
// each on the remaining rows.
func samplingReport(X *mat.Dense, y *mat.VecDense, seed int64) []SamplePoint {
	rows, cols := X.Dims()
	fractions := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

	report := make([]SamplePoint, 0, len(fractions))
	for _, f := range fractions {
		n := int(f * float64(rows))
		if n < cols+1 || n >= rows {
			continue
		}

		trainX, trainY := sampleRows(X, y, n, seed)
		lr := linear.NewRegression()
		if err := lr.Fit(trainX, trainY); err != nil {
			continue
		}

		holdX, holdY := sampleRows(X, y, minInt(rows-n, 5000), seed+1)
		pred, err := lr.Predict(holdX)
		if err != nil {
			continue
		}
		r2, err := metrics.R2Score(holdY, matToVec(pred))
		if err != nil {
			continue
		}
		report = append(report, SamplePoint{Fraction: f, R2: r2})
	}
	return report
}

// sampleRows draws n distinct rows with a seeded permutation.
func sampleRows(X *mat.Dense, y *mat.VecDense, n int, seed int64) (*mat.Dense, *mat.VecDense) {
	rows, cols := X.Dims()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+0x1f83d9abfb41bd6b))
	perm := rng.Perm(rows)[:n]

	outX := mat.NewDense(n, cols, nil)
	outY := mat.NewVecDense(n, nil)
	for i, src := range perm {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(src, j))
		}
		outY.SetVec(i, y.AtVec(src))
	}
	return outX, outY
}

func matToVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
