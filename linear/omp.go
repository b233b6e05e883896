package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// OMP is orthogonal matching pursuit: it greedily picks the feature most
// correlated with the current residual and refits least squares on the
// active set until NNonzero coefficients are selected.
type OMP struct {
	model.BaseEstimator

	// NNonzero caps the number of selected features. Zero means
	// max(1, n_features/10), mirroring the usual default.
	NNonzero int

	Coef       []float64
	InterceptV float64
	NFeatures  int
}

// NewOMP creates an orthogonal matching pursuit regressor.
func NewOMP(nNonzero int) *OMP {
	return &OMP{NNonzero: nNonzero}
}

// Fit runs the greedy selection on centered data.
func (o *OMP) Fit(X, y mat.Matrix) error {
	r, c, yv, err := checkFitInputs("OMP.Fit", X, y)
	if err != nil {
		return err
	}
	if o.NNonzero < 0 {
		return errors.NewValidationError("n_nonzero", "must be non-negative", o.NNonzero)
	}
	o.NFeatures = c

	target := o.NNonzero
	if target == 0 {
		target = c / 10
		if target < 1 {
			target = 1
		}
	}
	if target > c {
		target = c
	}

	Xc, yc, xMeans, yMean := centerData(X, yv)

	residual := make([]float64, r)
	for i := 0; i < r; i++ {
		residual[i] = yc.AtVec(i)
	}

	active := make([]int, 0, target)
	inActive := make([]bool, c)
	coef := make([]float64, c)

	for len(active) < target {
		// Most correlated inactive feature.
		best, bestCorr := -1, 0.0
		for j := 0; j < c; j++ {
			if inActive[j] {
				continue
			}
			var corr float64
			for i := 0; i < r; i++ {
				corr += Xc.At(i, j) * residual[i]
			}
			if a := math.Abs(corr); a > bestCorr {
				bestCorr = a
				best = j
			}
		}
		if best < 0 || bestCorr == 0 {
			break
		}
		active = append(active, best)
		inActive[best] = true

		// Least squares on the active columns.
		sub := mat.NewDense(r, len(active), nil)
		for i := 0; i < r; i++ {
			for k, j := range active {
				sub.Set(i, k, Xc.At(i, j))
			}
		}

		var qr mat.QR
		qr.Factorize(sub)
		var sol mat.Dense
		if err := qr.SolveTo(&sol, false, yc); err != nil {
			return errors.NewModelError("OMP.Fit", "singular active set", errors.ErrSingularMatrix)
		}

		for j := range coef {
			coef[j] = 0
		}
		for k, j := range active {
			coef[j] = sol.At(k, 0)
		}

		for i := 0; i < r; i++ {
			pred := 0.0
			for k, j := range active {
				pred += Xc.At(i, j) * sol.At(k, 0)
			}
			residual[i] = yc.AtVec(i) - pred
		}
	}

	o.Coef = coef
	o.InterceptV = interceptFromMeans(coef, xMeans, yMean)

	o.SetFitted()
	return nil
}

// Predict returns Xw + b as an n×1 matrix.
func (o *OMP) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OMP", "Predict")
	}
	if _, err := checkPredictInputs("OMP.Predict", X, o.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, o.Coef, o.InterceptV), nil
}

// Coefficients returns the learned weights.
func (o *OMP) Coefficients() []float64 { return o.Coef }

// Intercept returns the learned intercept.
func (o *OMP) Intercept() float64 { return o.InterceptV }

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (o *OMP) Clone() model.Regressor {
	return NewOMP(o.NNonzero)
}

// GetParams returns the model's hyperparameters.
func (o *OMP) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_nonzero": o.NNonzero}
}
