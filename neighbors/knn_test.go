package neighbors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKNNPredictsNeighborMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	y := mat.NewDense(4, 1, []float64{0, 2, 20, 22})

	knn := NewKNN(2, 1)
	require.NoError(t, knn.Fit(X, y))

	preds, err := knn.Predict(mat.NewDense(2, 1, []float64{0.5, 10.5}))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, preds.At(0, 0), 1e-10)  // mean of {0, 2}
	assert.InDelta(t, 21.0, preds.At(1, 0), 1e-10) // mean of {20, 22}
}

func TestKNNValidation(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	assert.Error(t, NewKNN(0, 1).Fit(X, y), "k below 1")
	assert.Error(t, NewKNN(4, 1).Fit(X, y), "k above row count")

	knn := NewKNN(2, 1)
	require.NoError(t, knn.Fit(X, y))
	_, err := knn.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Error(t, err, "feature mismatch")
}

func TestKNNParallelMatchesSequential(t *testing.T) {
	n := 500
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%17))
		y.Set(i, 0, float64(i)*0.5)
	}

	seq := NewKNN(5, 1)
	par := NewKNN(5, -1)
	require.NoError(t, seq.Fit(X, y))
	require.NoError(t, par.Fit(X, y))

	ps, err := seq.Predict(X)
	require.NoError(t, err)
	pp, err := par.Predict(X)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		assert.Equal(t, ps.At(i, 0), pp.At(i, 0), "row %d", i)
	}
}
