package modelselection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestKFold(t *testing.T) {
	t.Run("basic split", func(t *testing.T) {
		n := 100
		X := mat.NewDense(n, 2, nil)
		for i := 0; i < n; i++ {
			X.Set(i, 0, float64(i))
			X.Set(i, 1, float64(i)*2)
		}

		kf := NewKFold(5, false, 42)
		folds := kf.Split(X)
		assert.Equal(t, 5, len(folds))

		for i, fold := range folds {
			assert.Equal(t, 80, len(fold.TrainIndices), "fold %d train size", i)
			assert.Equal(t, 20, len(fold.TestIndices), "fold %d test size", i)

			testSet := make(map[int]bool)
			for _, idx := range fold.TestIndices {
				testSet[idx] = true
			}
			for _, idx := range fold.TrainIndices {
				assert.False(t, testSet[idx], "train index %d in test set", idx)
			}
		}

		// Every row appears exactly once as a test row.
		seen := make(map[int]int)
		for _, fold := range folds {
			for _, idx := range fold.TestIndices {
				seen[idx]++
			}
		}
		for i := 0; i < n; i++ {
			assert.Equal(t, 1, seen[i], "index %d coverage", i)
		}
	})

	t.Run("uneven split", func(t *testing.T) {
		kf := NewKFold(3, false, 0)
		folds := kf.SplitN(10)

		sizes := []int{len(folds[0].TestIndices), len(folds[1].TestIndices), len(folds[2].TestIndices)}
		assert.Equal(t, []int{4, 3, 3}, sizes)
	})

	t.Run("shuffle is deterministic for a seed", func(t *testing.T) {
		a := NewKFold(4, true, 7).SplitN(40)
		b := NewKFold(4, true, 7).SplitN(40)
		assert.Equal(t, a, b)

		c := NewKFold(4, true, 8).SplitN(40)
		assert.NotEqual(t, a, c)
	})

	t.Run("fold count below two falls back to five", func(t *testing.T) {
		kf := NewKFold(1, false, 0)
		assert.Equal(t, 5, kf.NSplits)
	})
}

func TestSubset(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
	})
	y := mat.NewVecDense(4, []float64{10, 20, 30, 40})

	subX, subY := Subset(X, y, []int{2, 0})

	r, c := subX.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 5.0, subX.At(0, 0))
	assert.Equal(t, 1.0, subX.At(1, 0))
	assert.Equal(t, 30.0, subY.AtVec(0))
	assert.Equal(t, 10.0, subY.AtVec(1))
}
