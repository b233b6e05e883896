package tree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/pkg/errors"
)

// stepData builds a step function y = 10 when x0 > 0.5, else 2, with a
// second noise feature that carries no signal.
func stepData(n int, seed uint64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64()
		X.Set(i, 0, x0)
		X.Set(i, 1, rng.Float64())
		if x0 > 0.5 {
			y.SetVec(i, 10)
		} else {
			y.SetVec(i, 2)
		}
	}
	return X, y
}

func TestRegressorLearnsStepFunction(t *testing.T) {
	X, y := stepData(200, 7)

	tr := NewRegressor(3, 42)
	require.NoError(t, tr.Fit(X, y))

	probe := mat.NewDense(2, 2, []float64{0.9, 0.5, 0.1, 0.5})
	pred, err := tr.Predict(probe)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, pred.At(0, 0), 0.5)
	assert.InDelta(t, 2.0, pred.At(1, 0), 0.5)
}

func TestRegressorImportanceFavorsSignalFeature(t *testing.T) {
	X, y := stepData(300, 11)

	tr := NewRegressor(4, 1)
	require.NoError(t, tr.Fit(X, y))

	imp := tr.FeatureImportances()
	require.Len(t, imp, 2)
	assert.Greater(t, imp[0], imp[1])
	assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-9)
}

func TestRegressorMaxDepthOneIsStump(t *testing.T) {
	X, y := stepData(100, 3)

	tr := NewRegressor(1, 0)
	require.NoError(t, tr.Fit(X, y))

	require.False(t, tr.Root.IsLeaf)
	assert.True(t, tr.Root.Left.IsLeaf)
	assert.True(t, tr.Root.Right.IsLeaf)
}

func TestRegressorRandomSplitterDeterministicPerSeed(t *testing.T) {
	X, y := stepData(150, 5)

	fit := func(seed int64) mat.Matrix {
		tr := NewRegressor(5, seed)
		tr.Splitter = SplitterRandom
		require.NoError(t, tr.Fit(X, y))
		pred, err := tr.Predict(X)
		require.NoError(t, err)
		return pred
	}

	a, b := fit(9), fit(9)
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		assert.Equal(t, a.At(i, 0), b.At(i, 0))
	}
}

func TestRegressorValidation(t *testing.T) {
	tr := NewRegressor(3, 0)

	_, err := tr.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	err = tr.Fit(X, mat.NewVecDense(2, []float64{1, 2}))
	assert.Error(t, err)

	bad := NewRegressor(3, 0)
	bad.Splitter = "sideways"
	err = bad.Fit(X, mat.NewVecDense(3, []float64{1, 2, 3}))
	assert.Error(t, err)
}

func TestRegressorConstantTargetIsLeaf(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{5, 5, 5, 5})

	tr := NewRegressor(0, 0)
	require.NoError(t, tr.Fit(X, y))
	assert.True(t, tr.Root.IsLeaf)
	assert.Equal(t, 5.0, tr.Root.Value)
}
