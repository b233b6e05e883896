package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Regression is ordinary least squares, solved through a QR factorization
// of the intercept-augmented design matrix.
type Regression struct {
	model.BaseEstimator

	Coef       []float64
	InterceptV float64
	NFeatures  int
}

// NewRegression creates an ordinary least squares regressor.
func NewRegression() *Regression {
	return &Regression{}
}

// Fit solves min ||Xw + b - y||² for w and b.
func (lr *Regression) Fit(X, y mat.Matrix) error {
	r, c, yv, err := checkFitInputs("Regression.Fit", X, y)
	if err != nil {
		return err
	}
	lr.NFeatures = c

	// Augment with a ones column for the intercept.
	Xb := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		Xb.Set(i, 0, 1.0)
		for j := 0; j < c; j++ {
			Xb.Set(i, j+1, X.At(i, j))
		}
	}

	var qr mat.QR
	qr.Factorize(Xb)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, yv); err != nil {
		return errors.NewModelError("Regression.Fit", "singular design matrix", errors.ErrSingularMatrix)
	}

	lr.InterceptV = sol.At(0, 0)
	lr.Coef = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.Coef[j] = sol.At(j+1, 0)
	}

	lr.SetFitted()
	return nil
}

// Predict returns Xw + b as an n×1 matrix.
func (lr *Regression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("Regression", "Predict")
	}
	if _, err := checkPredictInputs("Regression.Predict", X, lr.NFeatures); err != nil {
		return nil, err
	}
	return predictLinear(X, lr.Coef, lr.InterceptV), nil
}

// Coefficients returns the learned weights.
func (lr *Regression) Coefficients() []float64 {
	return lr.Coef
}

// Intercept returns the learned intercept.
func (lr *Regression) Intercept() float64 {
	return lr.InterceptV
}

// Clone returns a fresh unfitted copy.
func (lr *Regression) Clone() model.Regressor {
	return NewRegression()
}

// GetParams returns the model's hyperparameters.
func (lr *Regression) GetParams() map[string]interface{} {
	return map[string]interface{}{}
}
