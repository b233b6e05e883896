package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := out.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("Transform() dims = (%d, %d), want (4, 2)", r, c)
	}

	// Each column must have zero mean and unit variance afterwards.
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += out.At(i, j)
		}
		mean := sum / float64(r)
		if math.Abs(mean) > 1e-10 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}

		var sumSq float64
		for i := 0; i < r; i++ {
			d := out.At(i, j) - mean
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(r))
		if math.Abs(sd-1) > 1e-10 {
			t.Errorf("column %d std = %v, want 1", j, sd)
		}
	}
}

func TestStandardScalerLargeMatrix(t *testing.T) {
	// Enough rows to cross the parallel threshold; results must match the
	// per-element formula regardless of chunking.
	rows := scaleParallelThreshold + 100
	X := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
	}

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	for _, i := range []int{0, 1, rows / 2, rows - 1} {
		for j := 0; j < 2; j++ {
			want := (X.At(i, j) - scaler.Mean[j]) / scaler.Scale[j]
			if math.Abs(out.At(i, j)-want) > 1e-12 {
				t.Errorf("Transform()[%d,%d] = %v, want %v", i, j, out.At(i, j), want)
			}
		}
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScalerDefault()
	if _, err := scaler.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Transform() on unfitted scaler should fail")
	}
}

func TestSimpleImputerMean(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, math.NaN(),
		2, 4,
		3, 8,
	})

	im := NewSimpleImputer(ImputeMean)
	out, err := im.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	if got := out.At(0, 1); math.Abs(got-6) > 1e-10 {
		t.Errorf("imputed value = %v, want 6", got)
	}
	if got := out.At(1, 1); got != 4 {
		t.Errorf("non-missing value changed: got %v, want 4", got)
	}
}

func TestSimpleImputerInvalidStrategy(t *testing.T) {
	im := NewSimpleImputer(ImputeStrategy("mode"))
	if err := im.Fit(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Fit() with invalid strategy should fail")
	}
}

func TestStandardTargetRoundTrip(t *testing.T) {
	y := mat.NewVecDense(5, []float64{3, 7, 11, 2, 9})

	tr := NewStandardTarget()
	if err := tr.FitVec(y); err != nil {
		t.Fatalf("FitVec() error = %v", err)
	}

	transformed, err := tr.TransformVec(y)
	if err != nil {
		t.Fatalf("TransformVec() error = %v", err)
	}
	restored, err := tr.InverseTransformVec(transformed)
	if err != nil {
		t.Fatalf("InverseTransformVec() error = %v", err)
	}

	for i := 0; i < y.Len(); i++ {
		if math.Abs(restored.AtVec(i)-y.AtVec(i)) > 1e-10 {
			t.Errorf("round trip mismatch at %d: got %v, want %v", i, restored.AtVec(i), y.AtVec(i))
		}
	}
}

func TestPipelineNamedLookup(t *testing.T) {
	p := NewPipeline(
		Step{Name: "impute", Transformer: NewSimpleImputer(ImputeMean)},
		Step{Name: "scale", Transformer: NewStandardScalerDefault()},
	)

	X := mat.NewDense(3, 2, []float64{
		1, math.NaN(),
		2, 4,
		3, 8,
	})

	out, err := p.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	r, c := out.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("dims = (%d, %d), want (3, 2)", r, c)
	}

	if p.StepByName("scale") == nil {
		t.Error("StepByName(scale) = nil, want transformer")
	}
	if p.StepByName("encode") != nil {
		t.Error("StepByName(encode) should be nil")
	}
}
