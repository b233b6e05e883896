package model

import "gonum.org/v1/gonum/mat"

// Transformer is the interface for feature transformations.
type Transformer interface {
	// Fit learns the parameters needed for the transformation.
	Fit(X mat.Matrix) error

	// Transform applies the transformation.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform runs Fit followed by Transform.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// TargetTransformer transforms the regression target and can invert the
// transformation so metrics are always computed on the original scale.
type TargetTransformer interface {
	// FitVec learns the transformation parameters from the target vector.
	FitVec(y *mat.VecDense) error

	// TransformVec maps the target into the transformed space.
	TransformVec(y *mat.VecDense) (*mat.VecDense, error)

	// InverseTransformVec maps values back to the original target scale.
	InverseTransformVec(y *mat.VecDense) (*mat.VecDense, error)
}
