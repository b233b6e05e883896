package experiment

import (
	"math"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// AutoML scans the session history for the best-scoring trained model and
// returns it refit on the entire dataset. It is a pure selection over
// already-computed results; no new cross-validation happens. With useHoldout
// each stored model is re-evaluated on the holdout; otherwise the stored
// cross-validation Mean row decides.
func (s *Session) AutoML(metric string, useHoldout bool) (model.Regressor, error) {
	const op = "experiment.AutoML"

	if len(s.models) == 0 {
		return nil, errors.NewUsageError(op, "no trained models in the session history")
	}
	if _, err := (FoldMetrics{}).Metric(metric); err != nil {
		return nil, err
	}

	higher := HigherIsBetter(metric)
	bestIdx := -1
	bestScore := math.Inf(1)
	if higher {
		bestScore = math.Inf(-1)
	}

	for i, m := range s.models {
		var score float64
		if useHoldout {
			res, err := s.predictHoldout(m)
			if err != nil {
				return nil, err
			}
			score, err = res.Metrics.Metric(metric)
			if err != nil {
				return nil, err
			}
		} else {
			var err error
			score, err = s.grids[i].MeanMetric(metric)
			if err != nil {
				return nil, err
			}
		}

		if (higher && score > bestScore) || (!higher && score < bestScore) {
			bestScore = score
			bestIdx = i
		}
	}

	logger := s.opLogger("automl")
	logger.Info().
		Str(log.KeyMetric, metric).
		Str(log.KeyTag, s.grids[bestIdx].Tag).
		Float64("score", bestScore).
		Bool("holdout", useHoldout).
		Msg("best model selected")

	return s.FinalizeModel(s.models[bestIdx])
}

// FinalizeModel refits a model on the entire dataset, train and holdout
// combined, for deployment.
func (s *Session) FinalizeModel(m model.Regressor) (model.Regressor, error) {
	const op = "experiment.FinalizeModel"

	if m == nil {
		return nil, errors.NewValueError(op, "model is nil")
	}
	c, ok := m.(model.Cloneable)
	if !ok {
		return nil, errors.NewValueError(op, "model does not support cloning")
	}

	final := c.Clone()
	if err := final.Fit(s.X, s.Y); err != nil {
		return nil, errors.Wrapf(err, "%s: refit on full data", op)
	}

	logger := s.opLogger("finalize_model")
	logger.Info().Str(log.KeyTag, modelLabel(m)).Msg("model finalized")
	return final, nil
}
