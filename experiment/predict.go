package experiment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
)

// PredictionResult carries the output of PredictModel: predictions on the
// original target scale, and holdout metrics when labels were available.
type PredictionResult struct {
	Predictions *mat.VecDense
	Metrics     *FoldMetrics
}

// PredictModel evaluates a trained model. With nil data it predicts the
// stored holdout partition, computes all six metrics against the known
// labels, and appends a display row. With new data it only returns
// predictions: labels are unknown, so no metrics and no display entry.
func (s *Session) PredictModel(m model.Regressor, data *mat.Dense) (*PredictionResult, error) {
	const op = "experiment.PredictModel"

	if m == nil {
		return nil, errors.NewValueError(op, "model is nil")
	}

	if data != nil {
		transformed, err := s.Pipeline.Transform(data)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: transforming new data", op)
		}
		raw, err := m.Predict(transformed)
		if err != nil {
			return nil, err
		}
		pred := matToVec(raw)
		if s.TargetTransform != nil {
			pred, err = s.TargetTransform.InverseTransformVec(pred)
			if err != nil {
				return nil, err
			}
		}
		return &PredictionResult{Predictions: pred}, nil
	}

	raw, err := m.Predict(s.XTest)
	if err != nil {
		return nil, err
	}

	yTrue, yPred, err := s.originalScale(s.YTest, matToVec(raw))
	if err != nil {
		return nil, err
	}

	fm, err := computeMetrics(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	fm = roundMetrics(fm, s.cfg.RoundTo)

	s.pushDisplay(&DisplayTable{
		Title:   "Holdout",
		Headers: append([]string{"Model"}, MetricNames...),
		Rows:    [][]string{append([]string{modelLabel(m)}, metricRow("", fm)[1:]...)},
	})

	logger := s.opLogger("predict_model")
	logger.Info().
		Str(log.KeyMetric, "R2").
		Float64("value", fm.R2).
		Msg("holdout evaluated")

	return &PredictionResult{Predictions: yPred, Metrics: &fm}, nil
}

// predictHoldout evaluates on the holdout for internal use and pops the
// display entry PredictModel appended. Internal metric harvesting must not
// pollute the user-facing history.
func (s *Session) predictHoldout(m model.Regressor) (*PredictionResult, error) {
	res, err := s.PredictModel(m, nil)
	if err != nil {
		return nil, err
	}
	s.popDisplay()
	return res, nil
}

func modelLabel(m model.Regressor) string {
	if rec, ok := familyOf(m); ok {
		return rec.Name
	}
	return "Custom Model"
}
