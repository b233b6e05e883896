package experiment

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// ParamDraw produces one random parameter candidate for a recipe family.
type ParamDraw func(rng *rand.Rand) map[string]interface{}

// TuneOptions configures TuneModel.
type TuneOptions struct {
	Folds        int
	NIter        int
	Metric       string
	ChooseBetter bool
	Space        ParamDraw
}

// TuneOption mutates TuneOptions.
type TuneOption func(*TuneOptions)

// WithTuneFolds sets the outer fold count of the final re-score.
func WithTuneFolds(k int) TuneOption {
	return func(o *TuneOptions) { o.Folds = k }
}

// WithIterations sets the randomized-search budget.
func WithIterations(n int) TuneOption {
	return func(o *TuneOptions) { o.NIter = n }
}

// WithTuneMetric sets the optimization metric.
func WithTuneMetric(metric string) TuneOption {
	return func(o *TuneOptions) { o.Metric = metric }
}

// WithTuneChooseBetter toggles keeping the untuned model on ties or losses.
func WithTuneChooseBetter(on bool) TuneOption {
	return func(o *TuneOptions) { o.ChooseBetter = on }
}

// WithParamSpace overrides the family's default parameter distribution.
func WithParamSpace(draw ParamDraw) TuneOption {
	return func(o *TuneOptions) { o.Space = draw }
}

// paramSpaces holds the default randomized-search distribution per family.
// Families absent here (lr, dummy) have nothing to tune.
var paramSpaces = map[string]ParamDraw{
	"ridge": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{"alpha": logUniform(rng, 1e-3, 10)}
	},
	"lasso": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{"alpha": logUniform(rng, 1e-3, 10)}
	},
	"en": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"alpha":    logUniform(rng, 1e-3, 10),
			"l1_ratio": rng.Float64(),
		}
	},
	"huber": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"epsilon": 1.1 + rng.Float64()*0.9,
			"alpha":   logUniform(rng, 1e-5, 1e-1),
		}
	},
	"omp": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{"n_nonzero": 1 + rng.IntN(10)}
	},
	"par": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"C":       logUniform(rng, 1e-2, 10),
			"epsilon": 0.05 + rng.Float64()*0.45,
		}
	},
	"knn": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{"k": 3 + rng.IntN(23)}
	},
	"dt": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"max_depth":        2 + rng.IntN(15),
			"min_samples_leaf": 1 + rng.IntN(5),
		}
	},
	"rf": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"n_estimators": 50 + rng.IntN(251),
			"max_depth":    3 + rng.IntN(12),
		}
	},
	"et": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"n_estimators": 50 + rng.IntN(251),
			"max_depth":    3 + rng.IntN(12),
		}
	},
	"ada": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"n_estimators":  20 + rng.IntN(81),
			"learning_rate": logUniform(rng, 1e-2, 2),
		}
	},
	"gbr": func(rng *rand.Rand) map[string]interface{} {
		return map[string]interface{}{
			"n_estimators":  50 + rng.IntN(151),
			"learning_rate": logUniform(rng, 1e-2, 0.5),
			"max_depth":     2 + rng.IntN(5),
		}
	},
}

func logUniform(rng *rand.Rand, lo, hi float64) float64 {
	return math.Exp(math.Log(lo) + rng.Float64()*(math.Log(hi)-math.Log(lo)))
}

// TuneModel runs a randomized hyperparameter search over the model's family
// space, re-scores the best candidate with full cross-validation, and keeps
// whichever of {tuned, original} scores better. Tags are rejected: tuning
// needs an instance so the family and current parameters are unambiguous.
func (s *Session) TuneModel(m interface{}, opts ...TuneOption) (model.Regressor, error) {
	const op = "experiment.TuneModel"

	if _, isTag := m.(string); isTag {
		return nil, errors.NewUsageError(op, "tune an estimator instance, not a tag; call CreateModel first")
	}
	instance, ok := m.(model.Regressor)
	if !ok {
		return nil, errors.NewUsageError(op, "argument must be an estimator instance")
	}

	o := TuneOptions{Folds: s.cfg.Fold, NIter: 10, Metric: "R2", ChooseBetter: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.NIter < 1 {
		return nil, errors.NewValidationError("n_iter", "must be at least 1", o.NIter)
	}
	if _, err := (FoldMetrics{}).Metric(o.Metric); err != nil {
		return nil, err
	}

	rec, known := familyOf(instance)
	if !known {
		return nil, errors.NewUsageError(op, "model does not belong to a catalog family")
	}
	draw := o.Space
	if draw == nil {
		draw = paramSpaces[rec.Tag]
	}

	logger := s.opLogger("tune_model")

	// Nothing to search for parameter-free families: re-score as-is.
	if draw == nil {
		logger.Info().Str(log.KeyTag, rec.Tag).Msg("family has no tunable parameters")
		sc, err := s.scoreCandidate(instance, o.Folds)
		if err != nil {
			return nil, err
		}
		s.appendResult(sc.grid, sc.model)
		s.trackTraining("tune_model", sc.grid, sc.model)
		return sc.model, nil
	}

	logger.Info().Str(log.KeyTag, rec.Tag).Int("budget", o.NIter).Str(log.KeyMetric, o.Metric).Msg("search started")

	rng := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)^0xbb67ae8584caa73b))
	higher := HigherIsBetter(o.Metric)

	var bestParams map[string]interface{}
	bestScore := math.Inf(1)
	if higher {
		bestScore = math.Inf(-1)
	}

	for i := 0; i < o.NIter; i++ {
		params := draw(rng)
		candidate, err := s.buildFamily(rec, params)
		if err != nil {
			return nil, err
		}

		// Cheap inner 3-fold score; the winner gets the full treatment below.
		score, err := s.innerScore(candidate, o.Metric)
		if err != nil {
			return nil, err
		}
		if (higher && score > bestScore) || (!higher && score < bestScore) {
			bestScore = score
			bestParams = params
		}
	}

	tuned, err := s.buildFamily(rec, bestParams)
	if err != nil {
		return nil, err
	}

	tunedScore, err := s.scoreCandidate(tuned, o.Folds)
	if err != nil {
		return nil, err
	}

	winner := tunedScore
	if o.ChooseBetter {
		baseScore, err := s.scoreCandidate(instance, o.Folds)
		if err != nil {
			return nil, err
		}
		winner, err = pickBest([]scored{baseScore, tunedScore}, o.Metric)
		if err != nil {
			return nil, err
		}
	}

	s.appendResult(winner.grid, winner.model)
	s.trackTraining("tune_model", winner.grid, winner.model)
	logger.Info().Str(log.KeyTag, rec.Tag).Msg("search finished")
	return winner.model, nil
}

// buildFamily constructs a fresh family member with the given parameters.
func (s *Session) buildFamily(rec Recipe, params map[string]interface{}) (model.Regressor, error) {
	return rec.Build(FactoryConfig{Seed: s.Seed, NJobs: s.NJobs, Overrides: params})
}

// innerScore is the search loop's 3-fold mean metric.
func (s *Session) innerScore(candidate model.Regressor, metric string) (float64, error) {
	r, err := s.resolveRecipe(candidate, nil)
	if err != nil {
		return 0, err
	}
	folds, err := s.crossValidate(r, 3)
	if err != nil {
		return 0, err
	}
	grid, err := newScoreGrid(r.tag, r.name, folds, s.cfg.RoundTo)
	if err != nil {
		return 0, err
	}
	return grid.MeanMetric(metric)
}
