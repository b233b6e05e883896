package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/linear"
	"github.com/YuminosukeSato/regress/modelselection"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Stacking feeds out-of-fold member predictions into a meta model. With
// Restack the meta model also sees the original features next to the member
// columns.
type Stacking struct {
	model.BaseEstimator

	Members []model.Regressor
	Meta    model.Regressor
	Folds   int
	Restack bool
	Seed    int64

	Fitted     []model.Regressor
	FittedMeta model.Regressor
	NFeatures  int
}

// NewStacking builds a stacking ensemble. A nil meta defaults to ordinary
// least squares; folds below two default to five.
func NewStacking(members []model.Regressor, meta model.Regressor, seed int64) *Stacking {
	if meta == nil {
		meta = linear.NewRegression()
	}
	return &Stacking{Members: members, Meta: meta, Folds: 5, Seed: seed}
}

// Fit builds the out-of-fold meta features, fits the meta model on them,
// then refits every member on the full training data for predict time.
func (s *Stacking) Fit(X, y mat.Matrix) error {
	const op = "ensemble.Stacking.Fit"

	if len(s.Members) < 2 {
		return errors.NewValueError(op, "need at least two member models")
	}
	rows, cols, yv, err := checkTrainingData(op, X, y)
	if err != nil {
		return err
	}

	folds := s.Folds
	if folds < 2 {
		folds = 5
	}
	if folds > rows {
		folds = rows
	}

	s.NFeatures = cols
	oof := mat.NewDense(rows, len(s.Members), nil)

	kf := modelselection.NewKFold(folds, true, s.Seed)
	for _, fold := range kf.SplitN(rows) {
		Xtr, ytr := modelselection.Subset(X, yv, fold.TrainIndices)
		Xte, _ := modelselection.Subset(X, yv, fold.TestIndices)

		for m, member := range s.Members {
			clone, err := cloneOf(member, op)
			if err != nil {
				return err
			}
			if err := clone.Fit(Xtr, ytr); err != nil {
				return errors.Wrapf(err, "%s: fitting member %d on fold failed", op, m)
			}
			pred, err := clone.Predict(Xte)
			if err != nil {
				return err
			}
			for i, idx := range fold.TestIndices {
				oof.Set(idx, m, pred.At(i, 0))
			}
		}
	}

	metaX := mat.Matrix(oof)
	if s.Restack {
		metaX = appendFeatures(oof, X)
	}

	meta, err := cloneOf(s.Meta, op)
	if err != nil {
		return err
	}
	if err := meta.Fit(metaX, yv); err != nil {
		return errors.Wrapf(err, "%s: fitting meta model failed", op)
	}
	s.FittedMeta = meta

	s.Fitted = make([]model.Regressor, len(s.Members))
	for m, member := range s.Members {
		clone, err := cloneOf(member, op)
		if err != nil {
			return err
		}
		if err := clone.Fit(X, yv); err != nil {
			return errors.Wrapf(err, "%s: refitting member %d failed", op, m)
		}
		s.Fitted[m] = clone
	}

	s.SetFitted()
	return nil
}

// appendFeatures concatenates the member columns with the original features.
func appendFeatures(oof *mat.Dense, X mat.Matrix) *mat.Dense {
	rows, mcols := oof.Dims()
	_, xcols := X.Dims()
	out := mat.NewDense(rows, mcols+xcols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < mcols; j++ {
			out.Set(i, j, oof.At(i, j))
		}
		for j := 0; j < xcols; j++ {
			out.Set(i, mcols+j, X.At(i, j))
		}
	}
	return out
}

// Predict runs the members, assembles the meta features, and applies the
// meta model.
func (s *Stacking) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("ensemble.Stacking", "Predict")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("ensemble.Stacking.Predict", s.NFeatures, c, 1)
	}

	metaX := mat.NewDense(r, len(s.Fitted), nil)
	for m, member := range s.Fitted {
		pred, err := member.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			metaX.Set(i, m, pred.At(i, 0))
		}
	}

	in := mat.Matrix(metaX)
	if s.Restack {
		in = appendFeatures(metaX, X)
	}
	return s.FittedMeta.Predict(in)
}

// Clone returns a fresh unfitted copy carrying clones of members and meta.
func (s *Stacking) Clone() model.Regressor {
	members := make([]model.Regressor, len(s.Members))
	for i, m := range s.Members {
		if c, ok := m.(model.Cloneable); ok {
			members[i] = c.Clone()
		} else {
			members[i] = m
		}
	}
	meta := s.Meta
	if c, ok := meta.(model.Cloneable); ok {
		meta = c.Clone()
	}
	clone := NewStacking(members, meta, s.Seed)
	clone.Folds = s.Folds
	clone.Restack = s.Restack
	return clone
}

// GetParams returns the model's hyperparameters.
func (s *Stacking) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_members": len(s.Members),
		"folds":     s.Folds,
		"restack":   s.Restack,
	}
}
