package ensemble

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/core/parallel"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Bagging averages clones of an arbitrary base model, each fitted on a
// bootstrap sample of the training data.
type Bagging struct {
	model.BaseEstimator

	Base        model.Regressor
	NEstimators int
	Seed        int64

	Members   []model.Regressor
	NFeatures int
}

// NewBagging wraps base in a bootstrap-aggregating ensemble.
func NewBagging(base model.Regressor, nEstimators int, seed int64) *Bagging {
	return &Bagging{Base: base, NEstimators: nEstimators, Seed: seed}
}

// Fit trains one clone of the base model per bootstrap sample.
func (b *Bagging) Fit(X, y mat.Matrix) error {
	const op = "ensemble.Bagging.Fit"

	if b.Base == nil {
		return errors.NewValueError(op, "base model is nil")
	}
	if b.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", b.NEstimators)
	}
	rows, cols, yv, err := checkTrainingData(op, X, y)
	if err != nil {
		return err
	}

	b.NFeatures = cols
	b.Members = make([]model.Regressor, b.NEstimators)
	for i := 0; i < b.NEstimators; i++ {
		m, err := cloneOf(b.Base, op)
		if err != nil {
			return err
		}
		Xi, yi := bootstrapSample(X, yv, rows, b.Seed+int64(i))
		if err := m.Fit(Xi, yi); err != nil {
			return errors.Wrapf(err, "%s: fitting member %d failed", op, i)
		}
		b.Members[i] = m
	}

	b.SetFitted()
	return nil
}

// Predict averages the member predictions.
func (b *Bagging) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("ensemble.Bagging", "Predict")
	}
	r, c := X.Dims()
	if c != b.NFeatures {
		return nil, errors.NewDimensionError("ensemble.Bagging.Predict", b.NFeatures, c, 1)
	}

	sum := make([]float64, r)
	var mu sync.Mutex
	errs := make([]error, len(b.Members))

	parallel.Parallelize(len(b.Members), func(start, end int) {
		local := make([]float64, r)
		for i := start; i < end; i++ {
			pred, err := b.Members[i].Predict(X)
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
	inv := 1.0 / float64(len(b.Members))
	for k := 0; k < r; k++ {
		out.Set(k, 0, sum[k]*inv)
	}
	return out, nil
}

// Clone returns a fresh unfitted copy. The base model is cloned too when it
// supports cloning, so members never share state.
func (b *Bagging) Clone() model.Regressor {
	base := b.Base
	if c, ok := base.(model.Cloneable); ok {
		base = c.Clone()
	}
	return NewBagging(base, b.NEstimators, b.Seed)
}

// GetParams returns the model's hyperparameters.
func (b *Bagging) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators": b.NEstimators,
	}
}
