package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			yPred:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "simple case",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.25, // ((0.5)^2 + (0.5)^2 + (-0.5)^2 + (-0.5)^2) / 4
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "dimension mismatch",
			yTrue:     mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			yPred:     mat.NewVecDense(2, []float64{1.0, 2.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   true,
		},
		{
			name:      "empty vectors",
			yTrue:     &mat.VecDense{},
			yPred:     &mat.VecDense{},
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("MSE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if math.Abs(got-tt.want) > tt.tolerance {
					t.Errorf("MSE() = %v, want %v (tolerance: %v)", got, tt.want, tt.tolerance)
				}
			}
		})
	}
}

func TestRMSEEqualsSqrtMSE(t *testing.T) {
	yTrue := mat.NewVecDense(5, []float64{3.0, -0.5, 2.0, 7.0, 4.2})
	yPred := mat.NewVecDense(5, []float64{2.5, 0.0, 2.1, 7.8, 3.9})

	mse, err := MSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MSE() error = %v", err)
	}
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("RMSE() error = %v", err)
	}

	if math.Abs(rmse-math.Sqrt(mse)) > 1e-12 {
		t.Errorf("RMSE() = %v, want sqrt(MSE) = %v", rmse, math.Sqrt(mse))
	}
}

func TestMAE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "simple case",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.5,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "dimension mismatch",
			yTrue:     mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			yPred:     mat.NewVecDense(2, []float64{1.0, 2.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MAE(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("MAE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if math.Abs(got-tt.want) > tt.tolerance {
					t.Errorf("MAE() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRMSLENegativeValues(t *testing.T) {
	// Negative magnitudes are absolute-valued before the log, so the result
	// must be finite.
	yTrue := mat.NewVecDense(3, []float64{-1.0, 2.0, 3.0})
	yPred := mat.NewVecDense(3, []float64{1.0, -2.0, 3.0})

	got, err := RMSLE(yTrue, yPred)
	if err != nil {
		t.Fatalf("RMSLE() error = %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("RMSLE() = %v, want finite value", got)
	}
}

func TestRMSLEPerfectPrediction(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0})
	got, err := RMSLE(yTrue, yTrue)
	if err != nil {
		t.Fatalf("RMSLE() error = %v", err)
	}
	if math.Abs(got) > 1e-12 {
		t.Errorf("RMSLE() = %v, want 0", got)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			want:      1.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "mean prediction gives zero",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{2.5, 2.5, 2.5, 2.5}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "constant yTrue scores zero",
			yTrue:     mat.NewVecDense(3, []float64{2.0, 2.0, 2.0}),
			yPred:     mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "constant yTrue matched exactly scores one",
			yTrue:     mat.NewVecDense(3, []float64{2.0, 2.0, 2.0}),
			yPred:     mat.NewVecDense(3, []float64{2.0, 2.0, 2.0}),
			want:      1.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if math.Abs(got-tt.want) > tt.tolerance {
					t.Errorf("R2Score() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMAPEExcludesZeroTrueValues(t *testing.T) {
	// The zero row must not contribute: MAPE over the remaining rows only.
	yTrue := mat.NewVecDense(3, []float64{0.0, 2.0, 4.0})
	yPred := mat.NewVecDense(3, []float64{100.0, 1.0, 2.0})

	got, err := MAPE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MAPE() error = %v", err)
	}

	want := 0.5 // (|2-1|/2 + |4-2|/4) / 2
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("MAPE() = %v, want %v", got, want)
	}
}

func TestMAPEAllZeros(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{0.0, 0.0})
	yPred := mat.NewVecDense(2, []float64{1.0, 1.0})

	got, err := MAPE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MAPE() error = %v", err)
	}
	if got != 0 {
		t.Errorf("MAPE() = %v, want 0 when every yTrue value is zero", got)
	}
}
