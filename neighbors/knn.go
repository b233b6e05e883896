// Package neighbors implements the k-nearest-neighbors recipe.
package neighbors

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/core/parallel"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// KNN predicts the mean target of the k training rows closest in Euclidean
// distance. Queries are brute force; prediction rows are spread across
// workers per the NJobs hint.
type KNN struct {
	model.BaseEstimator

	K     int
	NJobs int

	// Training data is kept as plain slices so fitted models survive gob
	// serialization.
	TrainX    [][]float64
	TrainY    []float64
	NFeatures int
}

// NewKNN creates a k-nearest-neighbors regressor.
func NewKNN(k, nJobs int) *KNN {
	return &KNN{K: k, NJobs: nJobs}
}

// Fit stores the training data.
func (knn *KNN) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("KNN.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("KNN.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("KNN.Fit", "y must be a column vector")
	}
	if knn.K < 1 {
		return errors.NewValidationError("k", "must be at least 1", knn.K)
	}
	if knn.K > r {
		return errors.NewValidationError("k", "must not exceed the number of training rows", knn.K)
	}

	knn.NFeatures = c
	knn.TrainX = make([][]float64, r)
	knn.TrainY = make([]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		knn.TrainX[i] = row
		knn.TrainY[i] = y.At(i, 0)
	}

	knn.SetFitted()
	return nil
}

// Predict returns the neighbor-mean for every query row.
func (knn *KNN) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !knn.IsFitted() {
		return nil, errors.NewNotFittedError("KNN", "Predict")
	}

	r, c := X.Dims()
	if c != knn.NFeatures {
		return nil, errors.NewDimensionError("KNN.Predict", knn.NFeatures, c, 1)
	}

	nTrain := len(knn.TrainX)
	out := mat.NewDense(r, 1, nil)

	parallel.ParallelizeWithWorkers(r, knn.NJobs, func(start, end int) {
		dists := make([]float64, nTrain)
		order := make([]int, nTrain)

		for i := start; i < end; i++ {
			for t := 0; t < nTrain; t++ {
				var d float64
				for j := 0; j < c; j++ {
					diff := X.At(i, j) - knn.TrainX[t][j]
					d += diff * diff
				}
				dists[t] = d
				order[t] = t
			}
			sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })

			var sum float64
			for _, t := range order[:knn.K] {
				sum += knn.TrainY[t]
			}
			out.Set(i, 0, sum/float64(knn.K))
		}
	})

	return out, nil
}

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (knn *KNN) Clone() model.Regressor {
	return NewKNN(knn.K, knn.NJobs)
}

// GetParams returns the model's hyperparameters.
func (knn *KNN) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"k":      knn.K,
		"n_jobs": knn.NJobs,
	}
}
