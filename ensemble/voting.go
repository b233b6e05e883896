package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Voting averages the predictions of its member models with uniform weights.
type Voting struct {
	model.BaseEstimator

	Members []model.Regressor

	Fitted    []model.Regressor
	NFeatures int
}

// NewVoting builds a uniform-average ensemble over members.
func NewVoting(members []model.Regressor) *Voting {
	return &Voting{Members: members}
}

// Fit trains a clone of every member on the full training data.
func (v *Voting) Fit(X, y mat.Matrix) error {
	const op = "ensemble.Voting.Fit"

	if len(v.Members) < 2 {
		return errors.NewValueError(op, "need at least two member models")
	}
	_, cols, _, err := checkTrainingData(op, X, y)
	if err != nil {
		return err
	}

	v.NFeatures = cols
	v.Fitted = make([]model.Regressor, len(v.Members))
	for i, m := range v.Members {
		clone, err := cloneOf(m, op)
		if err != nil {
			return err
		}
		if err := clone.Fit(X, y); err != nil {
			return errors.Wrapf(err, "%s: fitting member %d failed", op, i)
		}
		v.Fitted[i] = clone
	}

	v.SetFitted()
	return nil
}

// Predict returns the uniform average of member predictions.
func (v *Voting) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("ensemble.Voting", "Predict")
	}
	r, c := X.Dims()
	if c != v.NFeatures {
		return nil, errors.NewDimensionError("ensemble.Voting.Predict", v.NFeatures, c, 1)
	}

	sum := make([]float64, r)
	for _, m := range v.Fitted {
		pred, err := m.Predict(X)
		if err != nil {
			return nil, err
		}
		for k := 0; k < r; k++ {
			sum[k] += pred.At(k, 0)
		}
	}

	out := mat.NewDense(r, 1, nil)
	inv := 1.0 / float64(len(v.Fitted))
	for k := 0; k < r; k++ {
		out.Set(k, 0, sum[k]*inv)
	}
	return out, nil
}

// Clone returns a fresh unfitted copy carrying clones of the members.
func (v *Voting) Clone() model.Regressor {
	members := make([]model.Regressor, len(v.Members))
	for i, m := range v.Members {
		if c, ok := m.(model.Cloneable); ok {
			members[i] = c.Clone()
		} else {
			members[i] = m
		}
	}
	return NewVoting(members)
}

// GetParams returns the model's hyperparameters.
func (v *Voting) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_members": len(v.Members),
	}
}
