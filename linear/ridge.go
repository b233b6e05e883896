package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Ridge is L2-regularized least squares, solved in closed form on centered
// data so the intercept stays unpenalized.
type Ridge struct {
	model.BaseEstimator

	Alpha float64

	Coef       []float64
	InterceptV float64
	NFeatures  int
}

// NewRidge creates a ridge regressor with the given regularization strength.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// Fit solves (XᵀX + αI)w = Xᵀy on centered data.
func (rg *Ridge) Fit(X, y mat.Matrix) error {
	_, c, yv, err := checkFitInputs("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	if rg.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", rg.Alpha)
	}
	rg.NFeatures = c

	Xc, yc, xMeans, yMean := centerData(X, yv)

	var A mat.Dense
	A.Mul(Xc.T(), Xc)
	for j := 0; j < c; j++ {
		A.Set(j, j, A.At(j, j)+rg.Alpha)
	}

	var xty mat.VecDense
	xty.MulVec(Xc.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&A, &xty); err != nil {
		return errors.NewModelError("Ridge.Fit", "singular system", errors.ErrSingularMatrix)
	}

	rg.Coef = make([]float64, c)
	for j := 0; j < c; j++ {
		rg.Coef[j] = w.AtVec(j)
	}
	rg.InterceptV = interceptFromMeans(rg.Coef, xMeans, yMean)

	rg.SetFitted()
	return nil
}

// Predict returns Xw + b as an n×1 matrix.
func (rg *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rg.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}
	if _, err := checkPredictInputs("Ridge.Predict", X, rg.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, rg.Coef, rg.InterceptV), nil
}

// Coefficients returns the learned weights.
func (rg *Ridge) Coefficients() []float64 { return rg.Coef }

// Intercept returns the learned intercept.
func (rg *Ridge) Intercept() float64 { return rg.InterceptV }

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (rg *Ridge) Clone() model.Regressor {
	return NewRidge(rg.Alpha)
}

// GetParams returns the model's hyperparameters.
func (rg *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": rg.Alpha}
}
