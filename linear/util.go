// Package linear implements the linear-family recipes of the catalog:
// ordinary least squares, ridge, lasso, elastic net, Huber, orthogonal
// matching pursuit and the passive-aggressive regressor.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/pkg/errors"
)

// checkFitInputs validates the common Fit contract: non-empty X, matching
// row counts and a single-column y. It returns y copied into a vector.
func checkFitInputs(op string, X, y mat.Matrix) (rows, cols int, yv *mat.VecDense, err error) {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return 0, 0, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return 0, 0, nil, errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return 0, 0, nil, errors.NewValueError(op, "y must be a column vector")
	}

	yv = mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yv.SetVec(i, y.At(i, 0))
	}
	return r, c, yv, nil
}

// checkPredictInputs validates the common Predict contract against the
// trained feature count.
func checkPredictInputs(op string, X mat.Matrix, nFeatures int) (rows int, err error) {
	r, c := X.Dims()
	if r == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if c != nFeatures {
		return 0, errors.NewDimensionError(op, nFeatures, c, 1)
	}
	return r, nil
}

// predictLinear evaluates Xw + b row by row into an n×1 matrix.
func predictLinear(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		v := intercept
		for j := 0; j < c; j++ {
			v += X.At(i, j) * coef[j]
		}
		out.Set(i, 0, v)
	}
	return out
}

// centerData returns column-centered copies of X and y together with the
// column means and the target mean, so solvers can fit without an explicit
// intercept column and recover the intercept afterwards.
func centerData(X mat.Matrix, y *mat.VecDense) (Xc *mat.Dense, yc *mat.VecDense, xMeans []float64, yMean float64) {
	r, c := X.Dims()

	xMeans = make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		xMeans[j] = sum / float64(r)
	}

	var ySum float64
	for i := 0; i < r; i++ {
		ySum += y.AtVec(i)
	}
	yMean = ySum / float64(r)

	Xc = mat.NewDense(r, c, nil)
	yc = mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			Xc.Set(i, j, X.At(i, j)-xMeans[j])
		}
		yc.SetVec(i, y.AtVec(i)-yMean)
	}
	return Xc, yc, xMeans, yMean
}

// interceptFromMeans recovers the intercept for a model fitted on centered
// data: b = mean(y) - mean(x)·w.
func interceptFromMeans(coef, xMeans []float64, yMean float64) float64 {
	b := yMean
	for j := range coef {
		b -= xMeans[j] * coef[j]
	}
	return b
}
