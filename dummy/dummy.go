// Package dummy provides the mean-predicting baseline regressor. It anchors
// leaderboards: anything that cannot beat it has learned nothing.
package dummy

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Regressor always predicts the training-target mean.
type Regressor struct {
	model.BaseEstimator

	Mean      float64
	NFeatures int
}

// NewRegressor creates an unfitted baseline.
func NewRegressor() *Regressor {
	return &Regressor{}
}

// Fit records the target mean and the feature count.
func (d *Regressor) Fit(X, y mat.Matrix) error {
	const op = "dummy.Regressor.Fit"

	rows, cols := X.Dims()
	ry, cy := y.Dims()

	if rows == 0 || cols == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != rows {
		return errors.NewDimensionError(op, rows, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}

	var sum float64
	for i := 0; i < rows; i++ {
		sum += y.At(i, 0)
	}
	d.Mean = sum / float64(rows)
	d.NFeatures = cols

	d.SetFitted()
	return nil
}

// Predict returns the stored mean for every row.
func (d *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !d.IsFitted() {
		return nil, errors.NewNotFittedError("dummy.Regressor", "Predict")
	}
	r, c := X.Dims()
	if c != d.NFeatures {
		return nil, errors.NewDimensionError("dummy.Regressor.Predict", d.NFeatures, c, 1)
	}

	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, d.Mean)
	}
	return out, nil
}

// Clone returns a fresh unfitted copy.
func (d *Regressor) Clone() model.Regressor {
	return NewRegressor()
}

// GetParams returns the model's hyperparameters.
func (d *Regressor) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": "mean"}
}
