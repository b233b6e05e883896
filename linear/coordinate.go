package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/pkg/errors"
)

// coordinateDescent minimizes
//
//	(1/2n)||y - Xw||² + α·l1ratio·||w||₁ + (α/2)·(1-l1ratio)·||w||²
//
// by cyclic coordinate descent on centered data. Shared by Lasso
// (l1ratio=1) and ElasticNet.
func coordinateDescent(op string, Xc *mat.Dense, yc *mat.VecDense, alpha, l1Ratio float64, maxIter int, tol float64) ([]float64, error) {
	r, c := Xc.Dims()
	n := float64(r)

	l1 := alpha * l1Ratio * n
	l2 := alpha * (1 - l1Ratio) * n

	colSq := make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			v := Xc.At(i, j)
			sum += v * v
		}
		colSq[j] = sum
	}

	w := make([]float64, c)
	residual := make([]float64, r)
	for i := 0; i < r; i++ {
		residual[i] = yc.AtVec(i)
	}

	for iter := 0; iter < maxIter; iter++ {
		var maxDelta float64
		for j := 0; j < c; j++ {
			if colSq[j] == 0 {
				continue
			}

			old := w[j]
			// Partial residual correlation with coordinate j.
			var rho float64
			for i := 0; i < r; i++ {
				rho += Xc.At(i, j) * residual[i]
			}
			rho += old * colSq[j]

			next := softThreshold(rho, l1) / (colSq[j] + l2)
			if next != old {
				diff := next - old
				for i := 0; i < r; i++ {
					residual[i] -= diff * Xc.At(i, j)
				}
				w[j] = next
				if d := math.Abs(diff); d > maxDelta {
					maxDelta = d
				}
			}
		}

		if err := errors.CheckNumericalStability(op, w, iter); err != nil {
			return nil, err
		}
		if maxDelta < tol {
			return w, nil
		}
	}

	errors.Warn(errors.Newf("%s did not converge in %d iterations; consider increasing max_iter", op, maxIter))
	return w, nil
}

func softThreshold(v, threshold float64) float64 {
	switch {
	case v > threshold:
		return v - threshold
	case v < -threshold:
		return v + threshold
	default:
		return 0
	}
}
