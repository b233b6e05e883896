package experiment

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/metrics"
	"github.com/YuminosukeSato/regress/modelselection"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// TrainOptions configures a single training call. Zero values fall back to
// the session defaults.
type TrainOptions struct {
	Folds         int
	RoundTo       int
	CrossValidate bool
	Overrides     map[string]interface{}
}

// TrainOption mutates TrainOptions.
type TrainOption func(*TrainOptions)

// WithFolds overrides the session fold count for one call.
func WithFolds(k int) TrainOption {
	return func(o *TrainOptions) { o.Folds = k }
}

// WithRound overrides the metric rounding for one call.
func WithRound(digits int) TrainOption {
	return func(o *TrainOptions) { o.RoundTo = digits }
}

// WithoutCV scores with a single fit on the holdout instead of
// cross-validation.
func WithoutCV() TrainOption {
	return func(o *TrainOptions) { o.CrossValidate = false }
}

// WithOverrides forwards keyword overrides to the recipe factory. Only
// valid when the recipe is given by tag.
func WithOverrides(overrides map[string]interface{}) TrainOption {
	return func(o *TrainOptions) { o.Overrides = overrides }
}

func (s *Session) trainOptions(opts []TrainOption) TrainOptions {
	o := TrainOptions{Folds: s.cfg.Fold, RoundTo: s.cfg.RoundTo, CrossValidate: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resolved is a recipe ready to train: a tag and name for reporting plus a
// factory producing fresh unfitted instances.
type resolved struct {
	tag   string
	name  string
	build func() (model.Regressor, error)
}

// resolveRecipe accepts a catalog tag or an estimator instance.
func (s *Session) resolveRecipe(recipe interface{}, overrides map[string]interface{}) (resolved, error) {
	const op = "experiment.resolveRecipe"

	switch r := recipe.(type) {
	case string:
		rec, err := lookupRecipe(r)
		if err != nil {
			return resolved{}, err
		}
		fc := FactoryConfig{Seed: s.Seed, NJobs: s.NJobs, Overrides: overrides}
		// Surface bad overrides before any computation.
		if _, err := rec.Build(fc); err != nil {
			return resolved{}, err
		}
		return resolved{
			tag:   rec.Tag,
			name:  rec.Name,
			build: func() (model.Regressor, error) { return rec.Build(fc) },
		}, nil

	case model.Regressor:
		if len(overrides) > 0 {
			return resolved{}, errors.NewUsageError(op, "keyword overrides require a recipe tag, not an instance")
		}
		tag, name := "custom", "Custom Model"
		if rec, ok := familyOf(r); ok {
			tag, name = rec.Tag, rec.Name
		}
		c, ok := r.(model.Cloneable)
		if !ok {
			return resolved{}, errors.NewValueError(op, "estimator instance does not support cloning")
		}
		return resolved{
			tag:   tag,
			name:  name,
			build: func() (model.Regressor, error) { return c.Clone(), nil },
		}, nil
	}
	return resolved{}, errors.NewUsageError(op, "recipe must be a catalog tag or an estimator instance")
}

// CreateModel trains a recipe with cross-validation, appends the score grid,
// the refit model, and the display table to the session history, and returns
// the model refit on the full training partition.
func (s *Session) CreateModel(recipe interface{}, opts ...TrainOption) (model.Regressor, error) {
	o := s.trainOptions(opts)

	r, err := s.resolveRecipe(recipe, o.Overrides)
	if err != nil {
		return nil, err
	}

	m, grid, err := s.trainResolved(r, o)
	if err != nil {
		return nil, err
	}

	s.appendResult(grid, m)
	s.trackTraining("create_model", grid, m)
	return m, nil
}

// trainResolved runs the scoring loop and the final full-partition refit
// without touching the containers, so internal callers can score candidates
// silently.
func (s *Session) trainResolved(r resolved, o TrainOptions) (model.Regressor, *ScoreGrid, error) {
	const op = "experiment.trainResolved"

	if o.Folds < 2 {
		return nil, nil, errors.NewValidationError("fold", "must be at least 2", o.Folds)
	}
	if o.CrossValidate && o.Folds > s.trainRows() {
		return nil, nil, errors.NewValidationError("fold", "must not exceed the training partition's row count", o.Folds)
	}

	logger := s.opLogger("train")
	logger.Info().Str(log.KeyTag, r.tag).Int(log.KeyFold, o.Folds).Bool("cross_validate", o.CrossValidate).Msg("training started")
	started := time.Now()

	var folds []FoldMetrics
	var err error
	if o.CrossValidate {
		folds, err = s.crossValidate(r, o.Folds)
	} else {
		folds, err = s.singleFitScore(r)
	}
	if err != nil {
		return nil, nil, err
	}

	grid, err := newScoreGrid(r.tag, r.name, folds, o.RoundTo)
	if err != nil {
		return nil, nil, err
	}

	// The returned model is always refit on the whole training partition,
	// never one fold's model.
	final, err := r.build()
	if err != nil {
		return nil, nil, err
	}
	if err := final.Fit(s.XTrain, s.YTrain); err != nil {
		return nil, nil, errors.Wrapf(err, "%s: final refit of %s", op, r.tag)
	}

	logger.Info().
		Str(log.KeyTag, r.tag).
		Dur(log.KeyDuration, time.Since(started)).
		Float64("mean_r2", grid.Mean.R2).
		Msg("training finished")
	return final, grid, nil
}

// crossValidate fits and scores one fresh instance per fold. Fold
// partitions depend only on the session seed and shuffle flag, so every
// recipe trained in one comparison sees identical partitions.
func (s *Session) crossValidate(r resolved, folds int) ([]FoldMetrics, error) {
	kf := modelselection.NewKFold(folds, s.FoldShuffle, s.Seed)

	out := make([]FoldMetrics, 0, folds)
	for i, fold := range kf.SplitN(s.trainRows()) {
		Xtr, ytr := modelselection.Subset(s.XTrain, s.YTrain, fold.TrainIndices)
		Xva, yva := modelselection.Subset(s.XTrain, s.YTrain, fold.TestIndices)

		m, err := r.build()
		if err != nil {
			return nil, err
		}

		started := time.Now()
		if err := m.Fit(Xtr, ytr); err != nil {
			return nil, errors.Wrapf(err, "fitting %s on fold %d", r.tag, i)
		}
		fitTime := time.Since(started)

		fm, err := s.scoreOn(m, Xva, yva)
		if err != nil {
			return nil, errors.Wrapf(err, "scoring %s on fold %d", r.tag, i)
		}
		fm.FitTime = fitTime
		out = append(out, fm)
	}
	return out, nil
}

// singleFitScore is the no-CV path: one fit on the training partition scored
// on the holdout. The grid then has one row whose Mean equals it and a zero
// Std row.
func (s *Session) singleFitScore(r resolved) ([]FoldMetrics, error) {
	m, err := r.build()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	if err := m.Fit(s.XTrain, s.YTrain); err != nil {
		return nil, errors.Wrapf(err, "fitting %s", r.tag)
	}

	fm, err := s.scoreOn(m, s.XTest, s.YTest)
	if err != nil {
		return nil, err
	}
	fm.FitTime = time.Since(started)
	return []FoldMetrics{fm}, nil
}

// scoreOn predicts rows and computes the six metrics, inverting the target
// transform first so every score lives on the original scale.
func (s *Session) scoreOn(m model.Regressor, X *mat.Dense, y *mat.VecDense) (FoldMetrics, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return FoldMetrics{}, err
	}

	yTrue, yPred, err := s.originalScale(y, matToVec(pred))
	if err != nil {
		return FoldMetrics{}, err
	}
	return computeMetrics(yTrue, yPred)
}

// originalScale inverts the target transform on labels and predictions when
// one is present. The transformer is an explicit optional; absence is the
// normal case, not a swallowed failure.
func (s *Session) originalScale(yTrue, yPred *mat.VecDense) (*mat.VecDense, *mat.VecDense, error) {
	if s.TargetTransform == nil {
		return yTrue, yPred, nil
	}

	origTrue, err := s.TargetTransform.InverseTransformVec(yTrue)
	if err != nil {
		return nil, nil, err
	}
	origPred, err := s.TargetTransform.InverseTransformVec(yPred)
	if err != nil {
		return nil, nil, err
	}
	return origTrue, origPred, nil
}

func computeMetrics(yTrue, yPred *mat.VecDense) (FoldMetrics, error) {
	var fm FoldMetrics
	var err error

	if fm.MAE, err = metrics.MAE(yTrue, yPred); err != nil {
		return fm, err
	}
	if fm.MSE, err = metrics.MSE(yTrue, yPred); err != nil {
		return fm, err
	}
	if fm.RMSE, err = metrics.RMSE(yTrue, yPred); err != nil {
		return fm, err
	}
	if fm.RMSLE, err = metrics.RMSLE(yTrue, yPred); err != nil {
		return fm, err
	}
	if fm.R2, err = metrics.R2Score(yTrue, yPred); err != nil {
		return fm, err
	}
	if fm.MAPE, err = metrics.MAPE(yTrue, yPred); err != nil {
		return fm, err
	}
	return fm, nil
}
