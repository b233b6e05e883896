package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Lasso is L1-regularized least squares fitted by coordinate descent.
type Lasso struct {
	model.BaseEstimator

	Alpha   float64
	MaxIter int
	Tol     float64

	Coef       []float64
	InterceptV float64
	NFeatures  int
}

// NewLasso creates a lasso regressor with the given regularization strength.
func NewLasso(alpha float64) *Lasso {
	return &Lasso{
		Alpha:   alpha,
		MaxIter: 1000,
		Tol:     1e-4,
	}
}

// Fit runs coordinate descent on centered data.
func (ls *Lasso) Fit(X, y mat.Matrix) error {
	_, c, yv, err := checkFitInputs("Lasso.Fit", X, y)
	if err != nil {
		return err
	}
	if ls.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", ls.Alpha)
	}
	ls.NFeatures = c

	Xc, yc, xMeans, yMean := centerData(X, yv)

	w, err := coordinateDescent("Lasso.Fit", Xc, yc, ls.Alpha, 1.0, ls.MaxIter, ls.Tol)
	if err != nil {
		return err
	}

	ls.Coef = w
	ls.InterceptV = interceptFromMeans(w, xMeans, yMean)

	ls.SetFitted()
	return nil
}

// Predict returns Xw + b as an n×1 matrix.
func (ls *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !ls.IsFitted() {
		return nil, errors.NewNotFittedError("Lasso", "Predict")
	}
	if _, err := checkPredictInputs("Lasso.Predict", X, ls.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, ls.Coef, ls.InterceptV), nil
}

// Coefficients returns the learned weights.
func (ls *Lasso) Coefficients() []float64 { return ls.Coef }

// Intercept returns the learned intercept.
func (ls *Lasso) Intercept() float64 { return ls.InterceptV }

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (ls *Lasso) Clone() model.Regressor {
	clone := NewLasso(ls.Alpha)
	clone.MaxIter = ls.MaxIter
	clone.Tol = ls.Tol
	return clone
}

// GetParams returns the model's hyperparameters.
func (ls *Lasso) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":    ls.Alpha,
		"max_iter": ls.MaxIter,
		"tol":      ls.Tol,
	}
}
