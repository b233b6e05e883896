package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/tree"
)

func TestCompareModelsIncludeExcludeExclusive(t *testing.T) {
	s := newSession(t)

	_, err := s.CompareModels(WithInclude("lr"), WithExclude("knn"))
	var usage *errors.UsageError
	assert.True(t, errors.As(err, &usage))
}

func TestCompareModelsLeaderboard(t *testing.T) {
	s := newSession(t)

	best, err := s.CompareModels(WithInclude("lr", "ridge", "dummy"), WithCompareFolds(3))
	require.NoError(t, err)
	require.NotNil(t, best)

	// The leaderboard stays the user-facing table even though the winner
	// was retrained afterwards.
	board := s.Pull()
	require.NotNil(t, board)
	require.Len(t, board.Rows, 3)

	// Sorted by R2 descending: the linear fit wins on linear data, the
	// baseline comes last.
	assert.Equal(t, "Linear Regression", board.Rows[0][0])
	assert.Equal(t, "Dummy Regressor", board.Rows[2][0])

	// The winner was retrained through the trainer, so the containers hold
	// exactly one entry.
	assert.Len(t, s.Models(), 1)
	assert.Len(t, s.Results(), 1)
	assert.Equal(t, "lr", s.Results()[0].Tag)
}

func TestCompareModelsErrorMetricSortsAscending(t *testing.T) {
	s := newSession(t)

	_, err := s.CompareModels(WithInclude("lr", "dummy"), WithSort("MAE"), WithCompareFolds(3))
	require.NoError(t, err)

	board := s.Pull()
	require.Len(t, board.Rows, 2)
	assert.Equal(t, "Linear Regression", board.Rows[0][0])
}

func TestCompareModelsNSelectsSeveral(t *testing.T) {
	s := newSession(t)

	models, err := s.CompareModelsN(WithInclude("lr", "ridge", "dummy"), WithSelectN(2), WithCompareFolds(3))
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Len(t, s.Models(), 2)
}

func TestCompareModelsUnknownInclude(t *testing.T) {
	s := newSession(t)
	_, err := s.CompareModels(WithInclude("catboost"))
	var unknown *errors.UnknownRecipeError
	assert.True(t, errors.As(err, &unknown))
}

func TestTuneModelRejectsTag(t *testing.T) {
	s := newSession(t)

	_, err := s.TuneModel("ridge")
	var usage *errors.UsageError
	assert.True(t, errors.As(err, &usage))
}

func TestTuneModelChooseBetter(t *testing.T) {
	s := newSession(t)

	base := linear.NewRidge(100) // heavily over-regularized on purpose
	baseScore, err := s.scoreCandidate(base, 5)
	require.NoError(t, err)

	tuned, err := s.TuneModel(base, WithTuneFolds(5), WithIterations(8))
	require.NoError(t, err)
	require.NotNil(t, tuned)

	winner := s.Results()[len(s.Results())-1]
	winnerR2, err := winner.MeanMetric("R2")
	require.NoError(t, err)
	baseR2, err := baseScore.grid.MeanMetric("R2")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, winnerR2, baseR2)
}

func TestTuneModelParameterFreeFamily(t *testing.T) {
	s := newSession(t)

	m, err := s.TuneModel(linear.NewRegression(), WithTuneFolds(3))
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Len(t, s.Results(), 1)
}

func TestEnsembleModelChooseBetterInvariant(t *testing.T) {
	s := newSession(t)

	base := tree.NewRegressor(4, 7)
	baseScore, err := s.scoreCandidate(base, 5)
	require.NoError(t, err)

	m, err := s.EnsembleModel(base, WithEnsembleFolds(5), WithNEstimators(8))
	require.NoError(t, err)
	require.NotNil(t, m)

	winner := s.Results()[len(s.Results())-1]
	winnerR2, _ := winner.MeanMetric("R2")
	baseR2, _ := baseScore.grid.MeanMetric("R2")
	assert.GreaterOrEqual(t, winnerR2, baseR2)
}

func TestEnsembleModelBoosting(t *testing.T) {
	s := newSession(t)

	m, err := s.EnsembleModel(tree.NewRegressor(3, 1),
		WithMethod(MethodBoosting),
		WithEnsembleFolds(3),
		WithNEstimators(5),
		WithChooseBetter(false))
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestBlendModelsExplicitMembers(t *testing.T) {
	s := newSession(t)

	members := []model.Regressor{linear.NewRegression(), linear.NewRidge(1)}
	m, err := s.BlendModels(members, WithEnsembleFolds(3))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Len(t, s.Results(), 1)

	// Choose-better over an explicit list: the winner never scores worse
	// than any individual member.
	winnerR2, _ := s.Results()[0].MeanMetric("R2")
	for _, member := range members {
		ms, err := s.scoreCandidate(member, 3)
		require.NoError(t, err)
		memberR2, _ := ms.grid.MeanMetric("R2")
		assert.GreaterOrEqual(t, winnerR2, memberR2)
	}
}

func TestStackModels(t *testing.T) {
	s := newSession(t)

	members := []model.Regressor{linear.NewRegression(), tree.NewRegressor(4, 1)}
	m, err := s.StackModels(members, WithEnsembleFolds(3), WithRestack(true))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Len(t, s.Models(), 1)
}

func TestPredictModelIdempotent(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr", WithFolds(3))
	require.NoError(t, err)

	first, err := s.PredictModel(m, nil)
	require.NoError(t, err)
	second, err := s.PredictModel(m, nil)
	require.NoError(t, err)

	assert.Equal(t, *first.Metrics, *second.Metrics)
}

func TestPredictModelNewDataSkipsMetrics(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr", WithFolds(3))
	require.NoError(t, err)
	displayDepth := len(s.display)

	newData := mat.NewDense(2, 2, []float64{1, 2, 3, 1})
	res, err := s.PredictModel(m, newData)
	require.NoError(t, err)

	assert.Nil(t, res.Metrics)
	assert.Equal(t, 2, res.Predictions.Len())
	assert.Len(t, s.display, displayDepth, "new-data prediction must not append a display entry")

	// y = 3a - 2b + 1
	assert.InDelta(t, 0.0, res.Predictions.AtVec(0), 0.2)
	assert.InDelta(t, 8.0, res.Predictions.AtVec(1), 0.2)
}

func TestPredictHoldoutPopsDisplay(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr", WithFolds(3))
	require.NoError(t, err)
	depth := len(s.display)

	_, err = s.predictHoldout(m)
	require.NoError(t, err)
	assert.Len(t, s.display, depth)
}

func TestScenarioLinearRegressionWorkflow(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr", WithFolds(5))
	require.NoError(t, err)

	grid := s.Results()[0]
	assert.Equal(t, 7, grid.NRows())

	res, err := s.PredictModel(m, nil)
	require.NoError(t, err)

	raw, err := m.Predict(s.XTest)
	require.NoError(t, err)
	for i := 0; i < res.Predictions.Len(); i++ {
		assert.InDelta(t, raw.At(i, 0), res.Predictions.AtVec(i), 1e-12)
	}
}

func TestAutoMLMatchesManualArgmax(t *testing.T) {
	s := newSession(t)

	for _, tag := range []string{"dummy", "ridge", "lr"} {
		_, err := s.CreateModel(tag, WithFolds(3))
		require.NoError(t, err)
	}

	bestIdx, bestR2 := -1, -1e18
	for i, grid := range s.Results() {
		r2, err := grid.MeanMetric("R2")
		require.NoError(t, err)
		if r2 > bestR2 {
			bestR2, bestIdx = r2, i
		}
	}

	auto, err := s.AutoML("R2", false)
	require.NoError(t, err)

	manual, err := s.FinalizeModel(s.Models()[bestIdx])
	require.NoError(t, err)

	autoPred, err := auto.Predict(s.XTest)
	require.NoError(t, err)
	manualPred, err := manual.Predict(s.XTest)
	require.NoError(t, err)

	rows, _ := autoPred.Dims()
	for i := 0; i < rows; i++ {
		assert.InDelta(t, manualPred.At(i, 0), autoPred.At(i, 0), 1e-12)
	}
}

func TestAutoMLHoldoutMode(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateModel("dummy", WithFolds(3))
	require.NoError(t, err)
	_, err = s.CreateModel("lr", WithFolds(3))
	require.NoError(t, err)
	depth := len(s.display)

	m, err := s.AutoML("MAE", true)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Holdout re-evaluations are internal: no display entries leak.
	assert.Len(t, s.display, depth)
}

func TestAutoMLEmptyHistory(t *testing.T) {
	s := newSession(t)
	_, err := s.AutoML("R2", false)
	var usage *errors.UsageError
	assert.True(t, errors.As(err, &usage))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("ridge", WithFolds(3))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ridge.bundle")
	require.NoError(t, s.SaveModel(m, path))

	bundle, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "y", bundle.TargetName)

	// Raw feature rows: the bundle applies preprocessing itself.
	raw := mat.NewDense(3, 2, []float64{0.5, 1.5, 2, 2, 3.5, 0.5})
	fromBundle, err := bundle.Predict(raw)
	require.NoError(t, err)

	direct, err := s.PredictModel(m, raw)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.InDelta(t, direct.Predictions.AtVec(i), fromBundle.AtVec(i), 1e-12)
	}
}

func TestDeployModelWritesBundle(t *testing.T) {
	s := newSession(t)

	m, err := s.CreateModel("lr", WithFolds(3))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "bucket")
	require.NoError(t, s.DeployModel(m, "best", dir))

	_, err = os.Stat(filepath.Join(dir, "best.bundle"))
	assert.NoError(t, err)
}

func TestTrackingWritesRuns(t *testing.T) {
	dir := t.TempDir()

	s, err := Setup(demoData(120, 3), "y",
		WithSeed(7), WithFold(5),
		WithTracking("demo", dir))
	require.NoError(t, err)

	_, err = s.CreateModel("lr", WithFolds(3))
	require.NoError(t, err)

	runs, err := os.ReadDir(filepath.Join(dir, "demo"))
	require.NoError(t, err)
	require.Len(t, runs, 2) // setup run + training run

	var foundScores bool
	for _, run := range runs {
		runDir := filepath.Join(dir, "demo", run.Name())
		_, err := os.Stat(filepath.Join(runDir, "params.yaml"))
		assert.NoError(t, err)
		if _, err := os.Stat(filepath.Join(runDir, "artifacts", "scores.txt")); err == nil {
			foundScores = true
		}
	}
	assert.True(t, foundScores)
}
