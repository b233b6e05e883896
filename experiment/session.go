// Package experiment orchestrates the regression workflow: a Session created
// by Setup owns the split data, the fitted preprocessing pipeline, and three
// append-only result containers that let later operations (tuning,
// ensembling, automl) inspect the outcome of earlier ones without
// re-computation.
//
// The Session is single-caller state: operations are meant to be issued
// strictly sequentially, and no container is locked. Estimator-internal
// parallelism is steered separately through the NJobs hint.
package experiment

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
	"github.com/YuminosukeSato/regress/pkg/log"
	"github.com/YuminosukeSato/regress/preprocessing"
)

// Session is the experiment state published by Setup and consumed by every
// other operation. Column layout is immutable after Setup; the result
// containers only grow, except for the display pops internal callers do.
type Session struct {
	ID          uuid.UUID
	Seed        int64
	FoldShuffle bool
	NJobs       int
	TargetName  string

	// Feature matrices are already pipeline-transformed; the target vectors
	// live in the transformed space when TargetTransform is set.
	X      *mat.Dense
	Y      *mat.VecDense
	XTrain *mat.Dense
	YTrain *mat.VecDense
	XTest  *mat.Dense
	YTest  *mat.VecDense

	Pipeline        *preprocessing.Pipeline
	TargetTransform model.TargetTransformer

	cfg     Config
	grids   []*ScoreGrid
	models  []model.Regressor
	display []*DisplayTable
	tracker *Tracker
	logger  zerolog.Logger
}

// Models returns a read-only view of the trained-model container. Indexing
// matches Results.
func (s *Session) Models() []model.Regressor {
	out := make([]model.Regressor, len(s.models))
	copy(out, s.models)
	return out
}

// Results returns a read-only view of the score-grid container.
func (s *Session) Results() []*ScoreGrid {
	out := make([]*ScoreGrid, len(s.grids))
	copy(out, s.grids)
	return out
}

// Pull returns the most recently shown display table, or nil when nothing
// has been shown yet.
func (s *Session) Pull() *DisplayTable {
	if len(s.display) == 0 {
		return nil
	}
	return s.display[len(s.display)-1]
}

func (s *Session) pushDisplay(d *DisplayTable) {
	s.display = append(s.display, d)
}

// popDisplay removes the most recent display entry. Internal callers that
// run an evaluation only to harvest a metric must pop the entry they caused,
// keeping the user-facing history clean.
func (s *Session) popDisplay() {
	if len(s.display) > 0 {
		s.display = s.display[:len(s.display)-1]
	}
}

// appendResult records one training outcome in all three containers. Every
// training operation calls this as its last step, after which the history is
// safe to read.
func (s *Session) appendResult(grid *ScoreGrid, m model.Regressor) {
	s.grids = append(s.grids, grid)
	s.models = append(s.models, m)
	s.pushDisplay(grid.DisplayTable())
}

// GetConfig returns a named piece of session state.
func (s *Session) GetConfig(name string) (interface{}, error) {
	switch name {
	case "seed":
		return s.Seed, nil
	case "fold_shuffle":
		return s.FoldShuffle, nil
	case "n_jobs":
		return s.NJobs, nil
	case "fold":
		return s.cfg.Fold, nil
	case "round":
		return s.cfg.RoundTo, nil
	case "train_size":
		return s.cfg.TrainSize, nil
	case "target":
		return s.TargetName, nil
	case "session_id":
		return s.ID, nil
	case "logging_enabled":
		return s.cfg.LoggingEnabled, nil
	case "X":
		return s.X, nil
	case "y":
		return s.Y, nil
	case "X_train":
		return s.XTrain, nil
	case "y_train":
		return s.YTrain, nil
	case "X_test":
		return s.XTest, nil
	case "y_test":
		return s.YTest, nil
	case "pipeline":
		return s.Pipeline, nil
	case "target_transform":
		return s.TargetTransform, nil
	}
	return nil, errors.NewValidationError("name", "unknown config name", name)
}

// SetConfig mutates one of the writable session settings.
func (s *Session) SetConfig(name string, value interface{}) error {
	switch name {
	case "seed":
		v, ok := value.(int64)
		if !ok {
			return errors.NewValidationError(name, "must be an int64", value)
		}
		s.Seed = v
	case "fold_shuffle":
		v, ok := value.(bool)
		if !ok {
			return errors.NewValidationError(name, "must be a bool", value)
		}
		s.FoldShuffle = v
	case "n_jobs":
		v, ok := value.(int)
		if !ok {
			return errors.NewValidationError(name, "must be an int", value)
		}
		s.NJobs = v
	case "fold":
		v, ok := value.(int)
		if !ok || v < 2 {
			return errors.NewValidationError(name, "must be an int of at least 2", value)
		}
		s.cfg.Fold = v
	case "round":
		v, ok := value.(int)
		if !ok || v < 0 {
			return errors.NewValidationError(name, "must be a non-negative int", value)
		}
		s.cfg.RoundTo = v
	default:
		return errors.NewValidationError("name", "unknown or read-only config name", name)
	}
	return nil
}

// trainRows returns the training-partition row count.
func (s *Session) trainRows() int {
	r, _ := s.XTrain.Dims()
	return r
}

func (s *Session) opLogger(op string) zerolog.Logger {
	return log.WithSession(s.ID.String()).With().Str(log.KeyOperation, op).Logger()
}
