package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// StandardTarget standardizes the regression target to zero mean and unit
// variance. Models train in the transformed space; every metric is computed
// after inverting the transform, so scores stay on the original scale.
type StandardTarget struct {
	model.BaseEstimator

	Mean float64
	Std  float64
}

// NewStandardTarget creates an unfitted StandardTarget.
func NewStandardTarget() *StandardTarget {
	return &StandardTarget{}
}

// FitVec learns mean and deviation from y.
func (t *StandardTarget) FitVec(y *mat.VecDense) error {
	n := y.Len()
	if n == 0 {
		return errors.NewModelError("StandardTarget.FitVec", "empty data", errors.ErrEmptyData)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += y.AtVec(i)
	}
	t.Mean = sum / float64(n)

	var sumSq float64
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - t.Mean
		sumSq += d * d
	}
	t.Std = math.Sqrt(sumSq / float64(n))
	if t.Std == 0 {
		t.Std = 1
	}

	t.SetFitted()
	return nil
}

// TransformVec maps y into the standardized space.
func (t *StandardTarget) TransformVec(y *mat.VecDense) (*mat.VecDense, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("StandardTarget", "TransformVec")
	}

	n := y.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, (y.AtVec(i)-t.Mean)/t.Std)
	}
	return out, nil
}

// InverseTransformVec maps standardized values back to the original scale.
func (t *StandardTarget) InverseTransformVec(y *mat.VecDense) (*mat.VecDense, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("StandardTarget", "InverseTransformVec")
	}

	n := y.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, y.AtVec(i)*t.Std+t.Mean)
	}
	return out, nil
}
