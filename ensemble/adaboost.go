package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// AdaBoostR2 implements the AdaBoost.R2 algorithm with a linear loss. Each
// round fits a clone of the base model on a weighted bootstrap sample, then
// reweights rows toward the ones the round predicted badly. Prediction is
// the weighted median over rounds.
type AdaBoostR2 struct {
	model.BaseEstimator

	Base         model.Regressor
	NEstimators  int
	LearningRate float64
	Seed         int64

	Members   []model.Regressor
	Weights   []float64
	NFeatures int
}

// NewAdaBoostR2 wraps base in a boosting ensemble with the usual defaults.
func NewAdaBoostR2(base model.Regressor, nEstimators int, seed int64) *AdaBoostR2 {
	return &AdaBoostR2{
		Base:         base,
		NEstimators:  nEstimators,
		LearningRate: 1.0,
		Seed:         seed,
	}
}

// Fit runs the boosting rounds. Boosting stops early when a round fits the
// sample perfectly or its weighted loss reaches one half.
func (a *AdaBoostR2) Fit(X, y mat.Matrix) error {
	const op = "ensemble.AdaBoostR2.Fit"

	if a.Base == nil {
		return errors.NewValueError(op, "base model is nil")
	}
	if a.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", a.NEstimators)
	}
	if a.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", a.LearningRate)
	}
	rows, cols, yv, err := checkTrainingData(op, X, y)
	if err != nil {
		return err
	}

	a.NFeatures = cols
	a.Members = a.Members[:0]
	a.Weights = a.Weights[:0]

	rng := rand.New(rand.NewPCG(uint64(a.Seed), uint64(a.Seed)+0x2545f4914f6cdd1d))

	w := make([]float64, rows)
	for i := range w {
		w[i] = 1.0 / float64(rows)
	}

	for round := 0; round < a.NEstimators; round++ {
		m, err := cloneOf(a.Base, op)
		if err != nil {
			return err
		}

		Xi, yi := weightedSample(X, yv, w, rng)
		if err := m.Fit(Xi, yi); err != nil {
			return errors.Wrapf(err, "%s: fitting round %d failed", op, round)
		}

		pred, err := m.Predict(X)
		if err != nil {
			return err
		}

		// Linear loss relative to the worst absolute error this round.
		absErr := make([]float64, rows)
		var maxErr float64
		for i := 0; i < rows; i++ {
			absErr[i] = math.Abs(yv.AtVec(i) - pred.At(i, 0))
			if absErr[i] > maxErr {
				maxErr = absErr[i]
			}
		}
		if maxErr == 0 {
			a.Members = append(a.Members, m)
			a.Weights = append(a.Weights, 1.0)
			break
		}

		var loss float64
		for i := 0; i < rows; i++ {
			loss += w[i] * absErr[i] / maxErr
		}
		if loss >= 0.5 {
			if len(a.Members) == 0 {
				a.Members = append(a.Members, m)
				a.Weights = append(a.Weights, 1.0)
			}
			break
		}

		beta := loss / (1 - loss)
		a.Members = append(a.Members, m)
		a.Weights = append(a.Weights, a.LearningRate*math.Log(1/beta))

		var total float64
		for i := 0; i < rows; i++ {
			w[i] *= math.Pow(beta, a.LearningRate*(1-absErr[i]/maxErr))
			total += w[i]
		}
		for i := range w {
			w[i] /= total
		}
	}

	a.SetFitted()
	return nil
}

// weightedSample draws rows with replacement proportionally to w.
func weightedSample(X mat.Matrix, y *mat.VecDense, w []float64, rng *rand.Rand) (mat.Matrix, mat.Matrix) {
	rows := len(w)
	_, cols := X.Dims()

	cum := make([]float64, rows)
	var acc float64
	for i, wi := range w {
		acc += wi
		cum[i] = acc
	}

	outX := mat.NewDense(rows, cols, nil)
	outY := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		src := sort.SearchFloat64s(cum, rng.Float64()*acc)
		if src >= rows {
			src = rows - 1
		}
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(src, j))
		}
		outY.SetVec(i, y.AtVec(src))
	}
	return outX, outY
}

// Predict returns the weighted median of member predictions per row.
func (a *AdaBoostR2) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !a.IsFitted() {
		return nil, errors.NewNotFittedError("ensemble.AdaBoostR2", "Predict")
	}
	r, c := X.Dims()
	if c != a.NFeatures {
		return nil, errors.NewDimensionError("ensemble.AdaBoostR2.Predict", a.NFeatures, c, 1)
	}

	preds := make([][]float64, len(a.Members))
	for i, m := range a.Members {
		p, err := m.Predict(X)
		if err != nil {
			return nil, err
		}
		preds[i] = column(p)
	}

	out := mat.NewDense(r, 1, nil)
	for k := 0; k < r; k++ {
		out.Set(k, 0, weightedMedian(preds, a.Weights, k))
	}
	return out, nil
}

func weightedMedian(preds [][]float64, weights []float64, row int) float64 {
	type pw struct {
		value  float64
		weight float64
	}
	items := make([]pw, len(preds))
	var total float64
	for i := range preds {
		items[i] = pw{preds[i][row], weights[i]}
		total += weights[i]
	}
	sort.Slice(items, func(a, b int) bool { return items[a].value < items[b].value })

	var acc float64
	for _, it := range items {
		acc += it.weight
		if acc >= total/2 {
			return it.value
		}
	}
	return items[len(items)-1].value
}

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (a *AdaBoostR2) Clone() model.Regressor {
	base := a.Base
	if c, ok := base.(model.Cloneable); ok {
		base = c.Clone()
	}
	clone := NewAdaBoostR2(base, a.NEstimators, a.Seed)
	clone.LearningRate = a.LearningRate
	return clone
}

// GetParams returns the model's hyperparameters.
func (a *AdaBoostR2) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  a.NEstimators,
		"learning_rate": a.LearningRate,
	}
}
