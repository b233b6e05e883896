package experiment

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/pkg/errors"
)

// demoData builds a clean linear dataset: y = 3a - 2b + 1 plus tiny noise.
func demoData(n int, seed uint64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed+7))
	data := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*4, rng.Float64()*4
		data.Set(i, 0, a)
		data.Set(i, 1, b)
		data.Set(i, 2, 3*a-2*b+1+0.01*rng.NormFloat64())
	}
	return NewDataset([]string{"a", "b", "y"}, data)
}

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := Setup(demoData(120, 3), "y", append([]Option{WithSeed(7), WithFold(5)}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestSetupValidatesEagerly(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"train size too large", []Option{WithTrainSize(1.5)}},
		{"train size zero", []Option{WithTrainSize(0)}},
		{"fold below two", []Option{WithFold(1)}},
		{"negative rounding", []Option{WithRounding(-1)}},
		{"bad imputation", []Option{WithImputation("mode")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Setup(demoData(50, 1), "y", tt.opts...)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestSetupRejectsSingleRow(t *testing.T) {
	data := NewDataset([]string{"a", "b", "y"}, mat.NewDense(1, 3, []float64{1, 2, 3}))

	_, err := Setup(data, "y")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSetupUnknownTarget(t *testing.T) {
	_, err := Setup(demoData(50, 1), "price")
	assert.Error(t, err)
}

func TestSetupSplitsByRatio(t *testing.T) {
	s := newSession(t, WithTrainSize(0.75))

	trainRows, _ := s.XTrain.Dims()
	testRows, _ := s.XTest.Dims()
	assert.Equal(t, 90, trainRows)
	assert.Equal(t, 30, testRows)
	assert.Empty(t, s.Models())
	assert.Nil(t, s.Pull())
}

func TestSetupSamplingAid(t *testing.T) {
	var report []SamplePoint
	chooser := func(r []SamplePoint) float64 {
		report = r
		return 0.5
	}

	s, err := Setup(demoData(200, 5), "y",
		WithSeed(7),
		WithSampleThreshold(100),
		WithSampling(chooser))
	require.NoError(t, err)

	trainRows, _ := s.XTrain.Dims()
	testRows, _ := s.XTest.Dims()
	assert.Equal(t, 100, trainRows+testRows)
	assert.NotEmpty(t, report)
	for _, p := range report {
		assert.Greater(t, p.R2, 0.9, "linear baseline should fit a linear dataset at any fraction")
	}
}

func TestCreateModelGridShape(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("lr", WithFolds(5))
	require.NoError(t, err)

	grids := s.Results()
	require.Len(t, grids, 1)
	grid := grids[0]

	assert.Equal(t, 7, grid.NRows())
	require.Len(t, grid.Folds, 5)

	var sum float64
	for _, f := range grid.Folds {
		sum += f.MAE
	}
	assert.InDelta(t, sum/5, grid.Mean.MAE, 1e-3)
}

func TestRMSEAlwaysSqrtOfMSE(t *testing.T) {
	s := newSession(t)

	// High rounding precision so the sqrt relation is visible on tiny MSEs.
	_, err := s.CreateModel("ridge", WithFolds(4), WithRound(10))
	require.NoError(t, err)

	grid := s.Results()[0]
	for _, f := range grid.Folds {
		assert.InDelta(t, math.Sqrt(f.MSE), f.RMSE, 1e-6)
	}
	assert.InDelta(t, math.Sqrt(grid.Mean.MSE), grid.Mean.RMSE, 1e-6)
}

func TestGridStdIsPopulationDeviation(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("lr", WithFolds(5), WithRound(10))
	require.NoError(t, err)

	grid := s.Results()[0]
	var mean float64
	for _, f := range grid.Folds {
		mean += f.MAE
	}
	mean /= float64(len(grid.Folds))

	var variance float64
	for _, f := range grid.Folds {
		variance += (f.MAE - mean) * (f.MAE - mean)
	}
	variance /= float64(len(grid.Folds))

	assert.InDelta(t, math.Sqrt(variance), grid.Std.MAE, 1e-6)
}

func TestCreateModelUnknownTag(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("xgboost")
	var unknown *errors.UnknownRecipeError
	require.True(t, errors.As(err, &unknown))

	// Failed before any computation: containers untouched.
	assert.Empty(t, s.Models())
	assert.Empty(t, s.Results())
}

func TestCreateModelRejectsBadOverride(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("ridge", WithOverrides(map[string]interface{}{"gamma": 1.0}))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Empty(t, s.Models())
}

func TestCreateModelAppendsAllContainers(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Len(t, s.Models(), 1)
	assert.Len(t, s.Results(), 1)
	require.NotNil(t, s.Pull())
	assert.Equal(t, "Linear Regression", s.Pull().Title)
}

func TestCreateModelWithoutCV(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("lr", WithoutCV())
	require.NoError(t, err)

	grid := s.Results()[0]
	require.Len(t, grid.Folds, 1)
	assert.Equal(t, grid.Folds[0].MAE, grid.Mean.MAE)
	assert.Equal(t, 0.0, grid.Std.MAE)
}

func TestCreateModelFoldBelowTwo(t *testing.T) {
	s := newSession(t)
	_, err := s.CreateModel("lr", WithFolds(1))
	assert.Error(t, err)
}

func TestCreateModelFoldsExceedTrainingRows(t *testing.T) {
	s := newSession(t) // 84 training rows at the default 0.7 split

	_, err := s.CreateModel("lr", WithFolds(100))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Empty(t, s.Results())
}

func TestCreateModelReturnsRefitModel(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr", WithFolds(5))
	require.NoError(t, err)

	// The returned model predicts the holdout well, which a single-fold
	// model would too, but an unfitted one would not at all.
	res, err := s.predictHoldout(m)
	require.NoError(t, err)
	assert.Greater(t, res.Metrics.R2, 0.99)
}

func TestTargetTransformScoresOnOriginalScale(t *testing.T) {
	s := newSession(t, WithTargetTransform(true))

	_, err := s.CreateModel("lr", WithFolds(5))
	require.NoError(t, err)

	grid := s.Results()[0]
	assert.Greater(t, grid.Mean.R2, 0.99)
	// MAE in standardized space would be tiny; on the original scale the
	// noise floor keeps it near the noise magnitude.
	assert.Less(t, grid.Mean.MAE, 0.1)
}

func TestGetSetConfig(t *testing.T) {
	s := newSession(t)

	seed, err := s.GetConfig("seed")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seed)

	require.NoError(t, s.SetConfig("fold", 3))
	fold, err := s.GetConfig("fold")
	require.NoError(t, err)
	assert.Equal(t, 3, fold)

	_, err = s.GetConfig("gpu")
	assert.Error(t, err)
	assert.Error(t, s.SetConfig("fold", 1))
	assert.Error(t, s.SetConfig("target", "other"))
}

func TestPullReturnsLastTable(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("lr")
	require.NoError(t, err)
	first := s.Pull()

	_, err = s.CreateModel("ridge")
	require.NoError(t, err)
	second := s.Pull()

	assert.NotEqual(t, first.Title, second.Title)
	assert.NotEmpty(t, second.Render())
}
