package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// ElasticNet combines L1 and L2 regularization, fitted by coordinate
// descent. L1Ratio=1 reduces to Lasso, L1Ratio=0 to (scaled) Ridge.
type ElasticNet struct {
	model.BaseEstimator

	Alpha   float64
	L1Ratio float64
	MaxIter int
	Tol     float64

	Coef       []float64
	InterceptV float64
	NFeatures  int
}

// NewElasticNet creates an elastic-net regressor.
func NewElasticNet(alpha, l1Ratio float64) *ElasticNet {
	return &ElasticNet{
		Alpha:   alpha,
		L1Ratio: l1Ratio,
		MaxIter: 1000,
		Tol:     1e-4,
	}
}

// Fit runs coordinate descent on centered data.
func (en *ElasticNet) Fit(X, y mat.Matrix) error {
	_, c, yv, err := checkFitInputs("ElasticNet.Fit", X, y)
	if err != nil {
		return err
	}
	if en.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", en.Alpha)
	}
	if en.L1Ratio < 0 || en.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", en.L1Ratio)
	}
	en.NFeatures = c

	Xc, yc, xMeans, yMean := centerData(X, yv)

	w, err := coordinateDescent("ElasticNet.Fit", Xc, yc, en.Alpha, en.L1Ratio, en.MaxIter, en.Tol)
	if err != nil {
		return err
	}

	en.Coef = w
	en.InterceptV = interceptFromMeans(w, xMeans, yMean)

	en.SetFitted()
	return nil
}

// Predict returns Xw + b as an n×1 matrix.
func (en *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !en.IsFitted() {
		return nil, errors.NewNotFittedError("ElasticNet", "Predict")
	}
	if _, err := checkPredictInputs("ElasticNet.Predict", X, en.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, en.Coef, en.InterceptV), nil
}

// Coefficients returns the learned weights.
func (en *ElasticNet) Coefficients() []float64 { return en.Coef }

// Intercept returns the learned intercept.
func (en *ElasticNet) Intercept() float64 { return en.InterceptV }

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (en *ElasticNet) Clone() model.Regressor {
	clone := NewElasticNet(en.Alpha, en.L1Ratio)
	clone.MaxIter = en.MaxIter
	clone.Tol = en.Tol
	return clone
}

// GetParams returns the model's hyperparameters.
func (en *ElasticNet) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":    en.Alpha,
		"l1_ratio": en.L1Ratio,
		"max_iter": en.MaxIter,
		"tol":      en.Tol,
	}
}
