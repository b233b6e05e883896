package linear

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// PassiveAggressive is the PA-I online regressor run for a fixed number of
// epochs: samples whose epsilon-insensitive loss is zero leave the weights
// untouched, everything else triggers an aggressive corrective step capped
// by C.
type PassiveAggressive struct {
	model.BaseEstimator

	C       float64
	Epsilon float64
	MaxIter int
	Tol     float64
	Shuffle bool
	Seed    int64

	Coef       []float64
	InterceptV float64
	NFeatures  int
	NIter      int
}

// NewPassiveAggressive creates a PA-I regressor.
func NewPassiveAggressive(c float64, seed int64) *PassiveAggressive {
	return &PassiveAggressive{
		C:       c,
		Epsilon: 0.1,
		MaxIter: 1000,
		Tol:     1e-3,
		Shuffle: true,
		Seed:    seed,
	}
}

// Fit runs epochs of PA-I updates until the epoch's largest step falls
// below Tol or MaxIter is reached.
func (pa *PassiveAggressive) Fit(X, y mat.Matrix) error {
	r, c, yv, err := checkFitInputs("PassiveAggressive.Fit", X, y)
	if err != nil {
		return err
	}
	if pa.C <= 0 {
		return errors.NewValidationError("C", "must be positive", pa.C)
	}
	pa.NFeatures = c

	coef := make([]float64, c)
	intercept := 0.0

	order := make([]int, r)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(uint64(pa.Seed), uint64(pa.Seed)))

	for epoch := 0; epoch < pa.MaxIter; epoch++ {
		if pa.Shuffle {
			rng.Shuffle(r, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var maxStep float64
		for _, i := range order {
			pred := intercept
			var norm float64
			for j := 0; j < c; j++ {
				v := X.At(i, j)
				pred += v * coef[j]
				norm += v * v
			}
			norm++ // intercept term

			diff := yv.AtVec(i) - pred
			loss := math.Abs(diff) - pa.Epsilon
			if loss <= 0 {
				continue
			}

			tau := loss / norm
			if tau > pa.C {
				tau = pa.C
			}
			step := tau * sign(diff)
			for j := 0; j < c; j++ {
				coef[j] += step * X.At(i, j)
			}
			intercept += step

			if a := math.Abs(step); a > maxStep {
				maxStep = a
			}
		}

		pa.NIter = epoch + 1
		if err := errors.CheckNumericalStability("PassiveAggressive.Fit", coef, epoch); err != nil {
			return err
		}
		if maxStep < pa.Tol {
			break
		}
	}

	pa.Coef = coef
	pa.InterceptV = intercept

	pa.SetFitted()
	return nil
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Predict returns Xw + b as an n×1 matrix.
func (pa *PassiveAggressive) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !pa.IsFitted() {
		return nil, errors.NewNotFittedError("PassiveAggressive", "Predict")
	}
	if _, err := checkPredictInputs("PassiveAggressive.Predict", X, pa.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, pa.Coef, pa.InterceptV), nil
}

// Coefficients returns the learned weights.
func (pa *PassiveAggressive) Coefficients() []float64 { return pa.Coef }

// Intercept returns the learned intercept.
func (pa *PassiveAggressive) Intercept() float64 { return pa.InterceptV }

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (pa *PassiveAggressive) Clone() model.Regressor {
	clone := NewPassiveAggressive(pa.C, pa.Seed)
	clone.Epsilon = pa.Epsilon
	clone.MaxIter = pa.MaxIter
	clone.Tol = pa.Tol
	clone.Shuffle = pa.Shuffle
	return clone
}

// GetParams returns the model's hyperparameters.
func (pa *PassiveAggressive) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":        pa.C,
		"epsilon":  pa.Epsilon,
		"max_iter": pa.MaxIter,
		"tol":      pa.Tol,
	}
}
