package ensemble

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/metrics"
	"github.com/YuminosukeSato/regress/tree"
)

// friedmanLike generates y = 5*x0 + sin-free nonlinearity via a step on x1,
// enough structure for trees to beat a constant but cheap to fit.
func friedmanLike(n int, seed uint64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed^0xa5a5))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x0, x1, x2 := rng.Float64(), rng.Float64(), rng.Float64()
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, x2)
		v := 5*x0 + 1
		if x1 > 0.5 {
			v += 3
		}
		y.SetVec(i, v+0.05*rng.NormFloat64())
	}
	return X, y
}

func holdoutMAE(t *testing.T, m model.Regressor, seed uint64) float64 {
	t.Helper()
	Xtr, ytr := friedmanLike(200, seed)
	Xte, yte := friedmanLike(80, seed+100)

	require.NoError(t, m.Fit(Xtr, ytr))
	pred, err := m.Predict(Xte)
	require.NoError(t, err)

	got := mat.NewVecDense(80, nil)
	for i := 0; i < 80; i++ {
		got.SetVec(i, pred.At(i, 0))
	}
	mae, err := metrics.MAE(yte, got)
	require.NoError(t, err)
	return mae
}

func predVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

func TestRandomForestBeatsSingleStump(t *testing.T) {
	forest := NewRandomForest(30, 1)
	forest.MaxDepth = 6
	forestMAE := holdoutMAE(t, forest, 21)

	stump := tree.NewRegressor(1, 1)
	stumpMAE := holdoutMAE(t, stump, 21)

	assert.Less(t, forestMAE, stumpMAE)
}

func TestExtraTreesFitsSignal(t *testing.T) {
	et := NewExtraTrees(30, 2)
	et.MaxDepth = 8
	assert.Less(t, holdoutMAE(t, et, 5), 1.0)
}

func TestForestImportancesSumToOne(t *testing.T) {
	X, y := friedmanLike(150, 9)
	forest := NewRandomForest(10, 3)
	forest.MaxDepth = 5
	require.NoError(t, forest.Fit(X, y))

	imp := forest.FeatureImportances()
	require.Len(t, imp, 3)
	var sum float64
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, imp[0], imp[2])
}

func TestBaggingAveragesClones(t *testing.T) {
	bag := NewBagging(tree.NewRegressor(4, 7), 15, 7)
	assert.Less(t, holdoutMAE(t, bag, 13), 1.0)
	assert.Len(t, bag.Members, 15)
}

func TestBaggingDoesNotFitTheOriginalBase(t *testing.T) {
	base := tree.NewRegressor(3, 0)
	bag := NewBagging(base, 5, 1)
	X, y := friedmanLike(100, 2)
	require.NoError(t, bag.Fit(X, y))
	assert.False(t, base.IsFitted())
}

func TestAdaBoostImprovesOnStumps(t *testing.T) {
	boost := NewAdaBoostR2(tree.NewRegressor(2, 0), 25, 4)
	boostMAE := holdoutMAE(t, boost, 17)

	stump := tree.NewRegressor(2, 0)
	stumpMAE := holdoutMAE(t, stump, 17)

	assert.Less(t, boostMAE, stumpMAE)
}

func TestGradientBoostingReducesTrainError(t *testing.T) {
	X, y := friedmanLike(150, 31)

	shallow := NewGradientBoosting(5, 0)
	deep := NewGradientBoosting(100, 0)
	require.NoError(t, shallow.Fit(X, y))
	require.NoError(t, deep.Fit(X, y))

	shallowPred, err := shallow.Predict(X)
	require.NoError(t, err)
	deepPred, err := deep.Predict(X)
	require.NoError(t, err)

	shallowMAE, _ := metrics.MAE(y, predVec(shallowPred))
	deepMAE, _ := metrics.MAE(y, predVec(deepPred))
	assert.Less(t, deepMAE, shallowMAE)
}

func TestVotingIsMeanOfMembers(t *testing.T) {
	X, y := friedmanLike(120, 41)

	members := []model.Regressor{linear.NewRegression(), tree.NewRegressor(4, 1)}
	vote := NewVoting(members)
	require.NoError(t, vote.Fit(X, y))

	votePred, err := vote.Predict(X)
	require.NoError(t, err)

	var sum *mat.Dense
	for _, m := range vote.Fitted {
		p, err := m.Predict(X)
		require.NoError(t, err)
		if sum == nil {
			sum = mat.DenseCopyOf(p)
		} else {
			sum.Add(sum, p)
		}
	}

	for i := 0; i < 120; i++ {
		assert.InDelta(t, sum.At(i, 0)/2, votePred.At(i, 0), 1e-12)
	}
}

func TestVotingNeedsTwoMembers(t *testing.T) {
	X, y := friedmanLike(20, 1)
	err := NewVoting([]model.Regressor{linear.NewRegression()}).Fit(X, y)
	assert.Error(t, err)
}

func TestStackingFitsSignal(t *testing.T) {
	members := []model.Regressor{linear.NewRegression(), tree.NewRegressor(5, 2)}
	stack := NewStacking(members, nil, 3)
	assert.Less(t, holdoutMAE(t, stack, 23), 1.0)
}

func TestStackingRestackWidensMetaInput(t *testing.T) {
	X, y := friedmanLike(100, 51)

	members := []model.Regressor{linear.NewRegression(), tree.NewRegressor(4, 2)}
	stack := NewStacking(members, linear.NewRegression(), 3)
	stack.Restack = true
	require.NoError(t, stack.Fit(X, y))

	meta := stack.FittedMeta.(*linear.Regression)
	// two member columns plus the three original features
	assert.Len(t, meta.Coefficients(), 5)
}

func TestEnsembleClonesAreUnfitted(t *testing.T) {
	members := []model.Regressor{linear.NewRegression(), tree.NewRegressor(3, 0)}
	composites := []model.Cloneable{
		NewRandomForest(5, 0),
		NewBagging(tree.NewRegressor(3, 0), 5, 0),
		NewAdaBoostR2(tree.NewRegressor(2, 0), 5, 0),
		NewGradientBoosting(5, 0),
		NewVoting(members),
		NewStacking(members, nil, 0),
	}
	X, y := friedmanLike(60, 3)
	for _, c := range composites {
		fitter := c.(model.Regressor)
		require.NoError(t, fitter.Fit(X, y))
		clone := c.Clone()
		_, err := clone.Predict(X)
		assert.Error(t, err)
	}
}
