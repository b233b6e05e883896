// Package preprocessing implements the feature pipeline fitted at setup
// time: mean imputation, standard scaling and the optional target
// transform. The fitted pipeline travels with every saved model so
// predictions on raw data reproduce the training-time transformations.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/core/parallel"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// scaleParallelThreshold is the row count below which Transform stays
// sequential; goroutine overhead dominates on small matrices.
const scaleParallelThreshold = 2048

// StandardScaler standardizes features to zero mean and unit variance.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-feature means learned by Fit.
	Mean []float64

	// Scale holds the per-feature standard deviations learned by Fit.
	Scale []float64

	// NFeatures is the number of features seen during Fit.
	NFeatures int

	// WithMean controls whether the mean is subtracted.
	WithMean bool

	// WithStd controls whether values are divided by the deviation.
	WithStd bool
}

// NewStandardScaler creates a StandardScaler.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a StandardScaler with both centering and
// scaling enabled.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit learns per-feature mean and standard deviation from X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.Mean[j] = sum / float64(r)
	}

	for j := 0; j < c; j++ {
		var sumSq float64
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - s.Mean[j]
			sumSq += diff * diff
		}
		sd := math.Sqrt(sumSq / float64(r))
		if sd == 0 {
			// Constant feature: leave it untouched instead of dividing by zero.
			sd = 1
		}
		s.Scale[j] = sd
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X using the learned statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	parallel.ParallelizeWithThreshold(r, scaleParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				v := X.At(i, j)
				if s.WithMean {
					v -= s.Mean[j]
				}
				if s.WithStd {
					v /= s.Scale[j]
				}
				out.Set(i, j, v)
			}
		}
	})
	return out, nil
}

// FitTransform runs Fit followed by Transform.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
