// Package ensemble provides the composite regressors of the catalog: bagged
// forests, extremely randomized trees, AdaBoost.R2, gradient boosting, and
// the voting and stacking combiners built from arbitrary member models.
//
// Composite models own their members exclusively: every wrapper clones the
// models handed to it and fits the clones, so a member passed in stays
// untouched.
package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// cloneOf copies a member model for exclusive ownership.
func cloneOf(m model.Regressor, op string) (model.Regressor, error) {
	c, ok := m.(model.Cloneable)
	if !ok {
		return nil, errors.NewValueError(op, "member model does not support cloning")
	}
	return c.Clone(), nil
}

// column extracts the single prediction column as a slice.
func column(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}

func checkTrainingData(op string, X, y mat.Matrix) (rows, cols int, yv *mat.VecDense, err error) {
	rows, cols = X.Dims()
	ry, cy := y.Dims()

	if rows == 0 || cols == 0 {
		return 0, 0, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != rows {
		return 0, 0, nil, errors.NewDimensionError(op, rows, ry, 0)
	}
	if cy != 1 {
		return 0, 0, nil, errors.NewValueError(op, "y must be a column vector")
	}

	yv = mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yv.SetVec(i, y.At(i, 0))
	}
	return rows, cols, yv, nil
}
