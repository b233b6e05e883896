package ensemble

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/core/parallel"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/tree"
)

// Forest averages a collection of CART trees. With bootstrap sampling and
// best-split trees it is a random forest; with full samples and random-split
// trees it is the extremely-randomized variant.
type Forest struct {
	model.BaseEstimator

	NEstimators int
	MaxDepth    int
	MaxFeatures int
	Bootstrap   bool
	Splitter    string
	Seed        int64
	NJobs       int

	Trees     []*tree.Regressor
	NFeatures int
}

// NewRandomForest builds the bagged best-split configuration.
func NewRandomForest(nEstimators int, seed int64) *Forest {
	return &Forest{
		NEstimators: nEstimators,
		Bootstrap:   true,
		Splitter:    tree.SplitterBest,
		Seed:        seed,
	}
}

// NewExtraTrees builds the full-sample random-split configuration.
func NewExtraTrees(nEstimators int, seed int64) *Forest {
	return &Forest{
		NEstimators: nEstimators,
		Bootstrap:   false,
		Splitter:    tree.SplitterRandom,
		Seed:        seed,
	}
}

// Fit grows the member trees, each on its own sample, across NJobs workers.
func (f *Forest) Fit(X, y mat.Matrix) error {
	const op = "ensemble.Forest.Fit"

	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}
	rows, cols, yv, err := checkTrainingData(op, X, y)
	if err != nil {
		return err
	}

	f.NFeatures = cols
	f.Trees = make([]*tree.Regressor, f.NEstimators)
	errs := make([]error, f.NEstimators)

	parallel.ParallelizeWithWorkers(f.NEstimators, f.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			t := tree.NewRegressor(f.MaxDepth, f.Seed+int64(i))
			t.MaxFeatures = f.MaxFeatures
			t.Splitter = f.Splitter

			Xi, yi := X, mat.Matrix(yv)
			if f.Bootstrap {
				Xi, yi = bootstrapSample(X, yv, rows, f.Seed+int64(i))
			}
			if err := t.Fit(Xi, yi); err != nil {
				errs[i] = err
				return
			}
			f.Trees[i] = t
		}
	})

	for _, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "%s: growing tree failed", op)
		}
	}

	f.SetFitted()
	return nil
}

func bootstrapSample(X mat.Matrix, y *mat.VecDense, rows int, seed int64) (mat.Matrix, mat.Matrix) {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+0x632be59bd9b4e019))

	_, cols := X.Dims()
	outX := mat.NewDense(rows, cols, nil)
	outY := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		src := rng.IntN(rows)
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(src, j))
		}
		outY.SetVec(i, y.AtVec(src))
	}
	return outX, outY
}

// Predict averages the member trees.
func (f *Forest) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("ensemble.Forest", "Predict")
	}
	r, c := X.Dims()
	if c != f.NFeatures {
		return nil, errors.NewDimensionError("ensemble.Forest.Predict", f.NFeatures, c, 1)
	}

	sum := make([]float64, r)
	var mu sync.Mutex
	errs := make([]error, len(f.Trees))

	parallel.ParallelizeWithWorkers(len(f.Trees), f.NJobs, func(start, end int) {
		local := make([]float64, r)
		for i := start; i < end; i++ {
			pred, err := f.Trees[i].Predict(X)
			if err != nil {
				errs[i] = err
				return
			}
			for k := 0; k < r; k++ {
				local[k] += pred.At(k, 0)
			}
		}
		mu.Lock()
		for k := 0; k < r; k++ {
			sum[k] += local[k]
		}
		mu.Unlock()
	})

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}

	out := mat.NewDense(r, 1, nil)
	inv := 1.0 / float64(len(f.Trees))
	for k := 0; k < r; k++ {
		out.Set(k, 0, sum[k]*inv)
	}
	return out, nil
}

// FeatureImportances averages per-tree impurity importances.
func (f *Forest) FeatureImportances() []float64 {
	if !f.IsFitted() {
		return nil
	}
	out := make([]float64, f.NFeatures)
	for _, t := range f.Trees {
		for j, v := range t.FeatureImportances() {
			out[j] += v
		}
	}
	inv := 1.0 / float64(len(f.Trees))
	for j := range out {
		out[j] *= inv
	}
	return out
}

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (f *Forest) Clone() model.Regressor {
	return &Forest{
		NEstimators: f.NEstimators,
		MaxDepth:    f.MaxDepth,
		MaxFeatures: f.MaxFeatures,
		Bootstrap:   f.Bootstrap,
		Splitter:    f.Splitter,
		Seed:        f.Seed,
		NJobs:       f.NJobs,
	}
}

// GetParams returns the model's hyperparameters.
func (f *Forest) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators": f.NEstimators,
		"max_depth":    f.MaxDepth,
		"max_features": f.MaxFeatures,
		"bootstrap":    f.Bootstrap,
		"splitter":     f.Splitter,
	}
}
