package linear

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Huber fits a linear model under the Huber loss via iteratively reweighted
// least squares: residuals beyond Epsilon get down-weighted so outliers
// stop dominating the fit.
type Huber struct {
	model.BaseEstimator

	Epsilon float64
	Alpha   float64
	MaxIter int
	Tol     float64

	Coef       []float64
	InterceptV float64
	NFeatures  int
}

// NewHuber creates a Huber regressor. epsilon controls where quadratic loss
// turns linear; alpha is a small L2 regularizer keeping the reweighted
// system well conditioned.
func NewHuber(epsilon, alpha float64) *Huber {
	return &Huber{
		Epsilon: epsilon,
		Alpha:   alpha,
		MaxIter: 100,
		Tol:     1e-5,
	}
}

// Fit runs IRLS starting from the ridge solution.
func (h *Huber) Fit(X, y mat.Matrix) error {
	r, c, yv, err := checkFitInputs("Huber.Fit", X, y)
	if err != nil {
		return err
	}
	if h.Epsilon < 1.0 {
		return errors.NewValidationError("epsilon", "must be >= 1.0", h.Epsilon)
	}
	if h.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", h.Alpha)
	}
	h.NFeatures = c

	Xc, yc, xMeans, yMean := centerData(X, yv)

	coef := make([]float64, c)
	weights := make([]float64, r)
	for i := range weights {
		weights[i] = 1
	}

	for iter := 0; iter < h.MaxIter; iter++ {
		next, solveErr := solveWeighted(Xc, yc, weights, h.Alpha)
		if solveErr != nil {
			return solveErr
		}
		if err := errors.CheckNumericalStability("Huber.Fit", next, iter); err != nil {
			return err
		}

		var maxDelta float64
		for j := 0; j < c; j++ {
			if d := math.Abs(next[j] - coef[j]); d > maxDelta {
				maxDelta = d
			}
		}
		coef = next

		// Re-weight residuals: quadratic inside epsilon·scale, linear outside.
		residuals := make([]float64, r)
		for i := 0; i < r; i++ {
			pred := 0.0
			for j := 0; j < c; j++ {
				pred += Xc.At(i, j) * coef[j]
			}
			residuals[i] = yc.AtVec(i) - pred
		}
		scale := madScale(residuals)
		if scale == 0 {
			break
		}
		for i := 0; i < r; i++ {
			ar := math.Abs(residuals[i])
			cutoff := h.Epsilon * scale
			if ar <= cutoff || ar == 0 {
				weights[i] = 1
			} else {
				weights[i] = cutoff / ar
			}
		}

		if maxDelta < h.Tol {
			break
		}
	}

	h.Coef = coef
	h.InterceptV = interceptFromMeans(coef, xMeans, yMean)

	h.SetFitted()
	return nil
}

// solveWeighted solves (XᵀWX + αI)w = XᵀWy.
func solveWeighted(Xc *mat.Dense, yc *mat.VecDense, weights []float64, alpha float64) ([]float64, error) {
	r, c := Xc.Dims()

	Xw := mat.NewDense(r, c, nil)
	yw := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			Xw.Set(i, j, Xc.At(i, j)*weights[i])
		}
		yw.SetVec(i, yc.AtVec(i)*weights[i])
	}

	var A mat.Dense
	A.Mul(Xc.T(), Xw)
	for j := 0; j < c; j++ {
		A.Set(j, j, A.At(j, j)+alpha)
	}

	var xty mat.VecDense
	xty.MulVec(Xc.T(), yw)

	var w mat.VecDense
	if err := w.SolveVec(&A, &xty); err != nil {
		return nil, errors.NewModelError("Huber.Fit", "singular weighted system", errors.ErrSingularMatrix)
	}

	out := make([]float64, c)
	for j := 0; j < c; j++ {
		out[j] = w.AtVec(j)
	}
	return out, nil
}

// madScale is the median absolute deviation, a robust residual scale.
func madScale(residuals []float64) float64 {
	abs := make([]float64, len(residuals))
	for i, v := range residuals {
		abs[i] = math.Abs(v)
	}
	return medianOf(abs) / 0.6745
}

func medianOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Predict returns Xw + b as an n×1 matrix.
func (h *Huber) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !h.IsFitted() {
		return nil, errors.NewNotFittedError("Huber", "Predict")
	}
	if _, err := checkPredictInputs("Huber.Predict", X, h.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, h.Coef, h.InterceptV), nil
}

// Coefficients returns the learned weights.
func (h *Huber) Coefficients() []float64 { return h.Coef }

// Intercept returns the learned intercept.
func (h *Huber) Intercept() float64 { return h.InterceptV }

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (h *Huber) Clone() model.Regressor {
	clone := NewHuber(h.Epsilon, h.Alpha)
	clone.MaxIter = h.MaxIter
	clone.Tol = h.Tol
	return clone
}

// GetParams returns the model's hyperparameters.
func (h *Huber) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"epsilon":  h.Epsilon,
		"alpha":    h.Alpha,
		"max_iter": h.MaxIter,
		"tol":      h.Tol,
	}
}
