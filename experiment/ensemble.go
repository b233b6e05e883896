package experiment

import (
	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/ensemble"
	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// EnsembleMethod selects the wrapping strategy of EnsembleModel.
type EnsembleMethod string

const (
	// MethodBagging wraps the base in bootstrap aggregation.
	MethodBagging EnsembleMethod = "Bagging"
	// MethodBoosting wraps the base in AdaBoost.R2.
	MethodBoosting EnsembleMethod = "Boosting"
)

// EnsembleOptions configures the ensemble-building operations.
type EnsembleOptions struct {
	Method       EnsembleMethod
	NEstimators  int
	Folds        int
	Metric       string
	ChooseBetter bool
	Restack      bool
	Meta         model.Regressor
}

// EnsembleOption mutates EnsembleOptions.
type EnsembleOption func(*EnsembleOptions)

// WithMethod selects bagging or boosting for EnsembleModel.
func WithMethod(m EnsembleMethod) EnsembleOption {
	return func(o *EnsembleOptions) { o.Method = m }
}

// WithNEstimators sets the member count of the wrapping ensemble.
func WithNEstimators(n int) EnsembleOption {
	return func(o *EnsembleOptions) { o.NEstimators = n }
}

// WithEnsembleFolds overrides the fold count for ensemble scoring.
func WithEnsembleFolds(k int) EnsembleOption {
	return func(o *EnsembleOptions) { o.Folds = k }
}

// WithOptimize sets the metric choose-better compares on.
func WithOptimize(metric string) EnsembleOption {
	return func(o *EnsembleOptions) { o.Metric = metric }
}

// WithChooseBetter toggles keeping the baseline when the new ensemble does
// not strictly beat it.
func WithChooseBetter(on bool) EnsembleOption {
	return func(o *EnsembleOptions) { o.ChooseBetter = on }
}

// WithRestack passes the raw features through to the stacking meta-model.
func WithRestack(on bool) EnsembleOption {
	return func(o *EnsembleOptions) { o.Restack = on }
}

// WithMeta sets the stacking meta-model.
func WithMeta(meta model.Regressor) EnsembleOption {
	return func(o *EnsembleOptions) { o.Meta = meta }
}

func (s *Session) ensembleOptions(opts []EnsembleOption) EnsembleOptions {
	o := EnsembleOptions{
		Method:       MethodBagging,
		NEstimators:  10,
		Folds:        s.cfg.Fold,
		Metric:       "R2",
		ChooseBetter: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// chooseBetter reports whether the candidate's mean score strictly beats the
// baseline's on the given metric. Ties keep the baseline.
func chooseBetter(candidate, baseline *ScoreGrid, metric string) (bool, error) {
	c, err := candidate.MeanMetric(metric)
	if err != nil {
		return false, err
	}
	b, err := baseline.MeanMetric(metric)
	if err != nil {
		return false, err
	}
	if HigherIsBetter(metric) {
		return c > b, nil
	}
	return c < b, nil
}

// scored pairs a trained model with its grid for candidate selection.
type scored struct {
	model model.Regressor
	grid  *ScoreGrid
}

// scoreCandidate trains and cross-validates without touching the containers.
func (s *Session) scoreCandidate(candidate model.Regressor, folds int) (scored, error) {
	r, err := s.resolveRecipe(candidate, nil)
	if err != nil {
		return scored{}, err
	}
	m, grid, err := s.trainResolved(r, TrainOptions{Folds: folds, RoundTo: s.cfg.RoundTo, CrossValidate: true})
	if err != nil {
		return scored{}, err
	}
	return scored{model: m, grid: grid}, nil
}

// pickBest returns the candidate with the best mean metric. The first entry
// is the incumbent: later entries displace it only on strict improvement.
func pickBest(candidates []scored, metric string) (scored, error) {
	best := candidates[0]
	for _, c := range candidates[1:] {
		better, err := chooseBetter(c.grid, best.grid, metric)
		if err != nil {
			return scored{}, err
		}
		if better {
			best = c
		}
	}
	return best, nil
}

// EnsembleModel wraps a trained model in bagging or boosting, scores the
// wrap, and keeps whichever of {wrapped, base} scores better.
func (s *Session) EnsembleModel(base model.Regressor, opts ...EnsembleOption) (model.Regressor, error) {
	const op = "experiment.EnsembleModel"

	o := s.ensembleOptions(opts)
	if base == nil {
		return nil, errors.NewValueError(op, "base model is nil")
	}
	if o.NEstimators < 1 {
		return nil, errors.NewValidationError("n_estimators", "must be at least 1", o.NEstimators)
	}

	cloneable, ok := base.(model.Cloneable)
	if !ok {
		return nil, errors.NewValueError(op, "base model does not support cloning")
	}

	var wrapped model.Regressor
	switch o.Method {
	case MethodBagging:
		wrapped = ensemble.NewBagging(cloneable.Clone(), o.NEstimators, s.Seed)
	case MethodBoosting:
		wrapped = ensemble.NewAdaBoostR2(cloneable.Clone(), o.NEstimators, s.Seed)
	default:
		return nil, errors.NewValidationError("method", "must be Bagging or Boosting", string(o.Method))
	}

	logger := s.opLogger("ensemble_model")
	logger.Info().Str("method", string(o.Method)).Int("n_estimators", o.NEstimators).Msg("ensembling started")

	wrapScore, err := s.scoreCandidate(wrapped, o.Folds)
	if err != nil {
		return nil, err
	}

	winner := wrapScore
	if o.ChooseBetter {
		baseScore, err := s.scoreCandidate(base, o.Folds)
		if err != nil {
			return nil, err
		}
		winner, err = pickBest([]scored{baseScore, wrapScore}, o.Metric)
		if err != nil {
			return nil, err
		}
	}

	s.appendResult(winner.grid, winner.model)
	s.trackTraining("ensemble_model", winner.grid, winner.model)
	logger.Info().Str(log.KeyTag, winner.grid.Tag).Msg("ensembling finished")
	return winner.model, nil
}

// BlendModels combines members into a uniform-average voting ensemble. A nil
// member list uses the turbo catalog. With choose-better over an explicit
// list, every member competes individually against the blend.
func (s *Session) BlendModels(members []model.Regressor, opts ...EnsembleOption) (model.Regressor, error) {
	const op = "experiment.BlendModels"

	o := s.ensembleOptions(opts)

	explicit := len(members) > 0
	if !explicit {
		for _, tag := range CatalogTags(true) {
			r, err := s.resolveRecipe(tag, nil)
			if err != nil {
				return nil, err
			}
			m, err := r.build()
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
	}
	if len(members) < 2 {
		return nil, errors.NewValueError(op, "need at least two member models")
	}

	logger := s.opLogger("blend_models")
	logger.Info().Int("members", len(members)).Msg("blending started")

	blendScore, err := s.scoreCandidate(ensemble.NewVoting(members), o.Folds)
	if err != nil {
		return nil, err
	}

	winner := blendScore
	if o.ChooseBetter && explicit {
		// Members are the baselines; the blend, listed last, must strictly
		// beat the best of them.
		var candidates []scored
		for _, m := range members {
			ms, err := s.scoreCandidate(m, o.Folds)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, ms)
		}
		candidates = append(candidates, blendScore)
		winner, err = pickBest(candidates, o.Metric)
		if err != nil {
			return nil, err
		}
	}

	s.appendResult(winner.grid, winner.model)
	s.trackTraining("blend_models", winner.grid, winner.model)
	logger.Info().Str(log.KeyTag, winner.grid.Tag).Msg("blending finished")
	return winner.model, nil
}

// StackModels builds a stacked generalizer over the members. Choose-better
// compares the stack against every member and the meta-model trained alone.
func (s *Session) StackModels(members []model.Regressor, opts ...EnsembleOption) (model.Regressor, error) {
	const op = "experiment.StackModels"

	o := s.ensembleOptions(opts)
	if len(members) < 2 {
		return nil, errors.NewValueError(op, "need at least two member models")
	}

	meta := o.Meta
	if meta == nil {
		meta = linear.NewRegression()
	}

	stack := ensemble.NewStacking(members, meta, s.Seed)
	stack.Restack = o.Restack

	logger := s.opLogger("stack_models")
	logger.Info().Int("members", len(members)).Bool("restack", o.Restack).Msg("stacking started")

	stackScore, err := s.scoreCandidate(stack, o.Folds)
	if err != nil {
		return nil, err
	}

	winner := stackScore
	if o.ChooseBetter {
		// Baselines first: every member and the meta-model alone. The stack
		// wins only on strict improvement.
		var candidates []scored
		for _, m := range members {
			ms, err := s.scoreCandidate(m, o.Folds)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, ms)
		}
		metaScore, err := s.scoreCandidate(meta, o.Folds)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, metaScore, stackScore)

		winner, err = pickBest(candidates, o.Metric)
		if err != nil {
			return nil, err
		}
	}

	s.appendResult(winner.grid, winner.model)
	s.trackTraining("stack_models", winner.grid, winner.model)
	logger.Info().Str(log.KeyTag, winner.grid.Tag).Msg("stacking finished")
	return winner.model, nil
}
