package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// ImputeStrategy selects how missing (NaN) values are replaced.
type ImputeStrategy string

const (
	// ImputeMean replaces missing values with the feature mean.
	ImputeMean ImputeStrategy = "mean"
	// ImputeMedian replaces missing values with the feature median.
	ImputeMedian ImputeStrategy = "median"
	// ImputeZero replaces missing values with zero.
	ImputeZero ImputeStrategy = "zero"
)

// SimpleImputer fills NaN cells with a per-feature statistic.
type SimpleImputer struct {
	model.BaseEstimator

	Strategy  ImputeStrategy
	Fill      []float64
	NFeatures int
}

// NewSimpleImputer creates a SimpleImputer with the given strategy.
func NewSimpleImputer(strategy ImputeStrategy) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit learns the per-feature fill value from the non-missing cells of X.
func (im *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	switch im.Strategy {
	case ImputeMean, ImputeMedian, ImputeZero:
	default:
		return errors.NewValidationError("strategy", "must be one of mean, median, zero", string(im.Strategy))
	}

	im.NFeatures = c
	im.Fill = make([]float64, c)

	for j := 0; j < c; j++ {
		switch im.Strategy {
		case ImputeZero:
			im.Fill[j] = 0
		case ImputeMean:
			var sum float64
			count := 0
			for i := 0; i < r; i++ {
				v := X.At(i, j)
				if !math.IsNaN(v) {
					sum += v
					count++
				}
			}
			if count > 0 {
				im.Fill[j] = sum / float64(count)
			}
		case ImputeMedian:
			var vals []float64
			for i := 0; i < r; i++ {
				v := X.At(i, j)
				if !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
			im.Fill[j] = median(vals)
		}
	}

	im.SetFitted()
	return nil
}

// Transform replaces NaN cells with the learned fill values.
func (im *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !im.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}

	r, c := X.Dims()
	if c != im.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", im.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = im.Fill[j]
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// FitTransform runs Fit followed by Transform.
func (im *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := im.Fit(X); err != nil {
		return nil, err
	}
	return im.Transform(X)
}

func median(vals []float64) float64 {
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
