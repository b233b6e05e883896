package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/tree"
)

// GradientBoosting fits shallow CART trees to the running residuals of a
// squared-error objective, shrunk by LearningRate.
type GradientBoosting struct {
	model.BaseEstimator

	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Seed         int64

	Init      float64
	Trees     []*tree.Regressor
	NFeatures int
}

// NewGradientBoosting builds the usual shallow-tree configuration.
func NewGradientBoosting(nEstimators int, seed int64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:  nEstimators,
		LearningRate: 0.1,
		MaxDepth:     3,
		Seed:         seed,
	}
}

// Fit runs the boosting stages sequentially; each stage depends on the
// residuals left by the previous ones.
func (g *GradientBoosting) Fit(X, y mat.Matrix) error {
	const op = "ensemble.GradientBoosting.Fit"

	if g.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", g.NEstimators)
	}
	if g.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", g.LearningRate)
	}
	rows, cols, yv, err := checkTrainingData(op, X, y)
	if err != nil {
		return err
	}

	g.NFeatures = cols
	g.Trees = make([]*tree.Regressor, 0, g.NEstimators)

	var sum float64
	for i := 0; i < rows; i++ {
		sum += yv.AtVec(i)
	}
	g.Init = sum / float64(rows)

	current := make([]float64, rows)
	for i := range current {
		current[i] = g.Init
	}

	residual := mat.NewVecDense(rows, nil)
	for stage := 0; stage < g.NEstimators; stage++ {
		for i := 0; i < rows; i++ {
			residual.SetVec(i, yv.AtVec(i)-current[i])
		}

		t := tree.NewRegressor(g.MaxDepth, g.Seed+int64(stage))
		if err := t.Fit(X, residual); err != nil {
			return errors.Wrapf(err, "%s: fitting stage %d failed", op, stage)
		}
		g.Trees = append(g.Trees, t)

		pred, err := t.Predict(X)
		if err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			current[i] += g.LearningRate * pred.At(i, 0)
		}
	}

	g.SetFitted()
	return nil
}

// Predict sums the shrunk stage outputs on top of the initial mean.
func (g *GradientBoosting) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("ensemble.GradientBoosting", "Predict")
	}
	r, c := X.Dims()
	if c != g.NFeatures {
		return nil, errors.NewDimensionError("ensemble.GradientBoosting.Predict", g.NFeatures, c, 1)
	}

	out := make([]float64, r)
	for i := range out {
		out[i] = g.Init
	}
	for _, t := range g.Trees {
		pred, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			out[i] += g.LearningRate * pred.At(i, 0)
		}
	}
	return mat.NewDense(r, 1, out), nil
}

// FeatureImportances averages per-stage impurity importances.
func (g *GradientBoosting) FeatureImportances() []float64 {
	if !g.IsFitted() {
		return nil
	}
	out := make([]float64, g.NFeatures)
	for _, t := range g.Trees {
		for j, v := range t.FeatureImportances() {
			out[j] += v
		}
	}
	inv := 1.0 / float64(len(g.Trees))
	for j := range out {
		out[j] *= inv
	}
	return out
}

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (g *GradientBoosting) Clone() model.Regressor {
	clone := NewGradientBoosting(g.NEstimators, g.Seed)
	clone.LearningRate = g.LearningRate
	clone.MaxDepth = g.MaxDepth
	return clone
}

// GetParams returns the model's hyperparameters.
func (g *GradientBoosting) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  g.NEstimators,
		"learning_rate": g.LearningRate,
		"max_depth":     g.MaxDepth,
	}
}
