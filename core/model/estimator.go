package model

import "gonum.org/v1/gonum/mat"

// Fitter is the interface for trainable models.
type Fitter interface {
	// Fit trains the model. y must be a column vector (n×1 matrix).
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that can predict.
type Predictor interface {
	// Predict returns predictions as an n×1 matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the capability set every recipe in the catalog provides.
type Regressor interface {
	Fitter
	Predictor
}

// Cloneable produces a fresh, unfitted copy of a model carrying the same
// hyperparameters. Ensemble wrappers use it to own their member copies
// exclusively.
type Cloneable interface {
	Clone() Regressor
}

// ParameterGetter exposes a model's hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// CoefficientGetter is implemented by linear-family models.
type CoefficientGetter interface {
	// Coefficients returns the learned weights, excluding the intercept.
	Coefficients() []float64
	// Intercept returns the learned intercept.
	Intercept() float64
}

// ImportanceGetter is implemented by tree-family models.
type ImportanceGetter interface {
	// FeatureImportances returns per-feature importance scores summing to one.
	FeatureImportances() []float64
}

// LinearModel groups the interfaces shared by linear regressors.
type LinearModel interface {
	Regressor
	CoefficientGetter
}
