package preprocessing_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/environment/classiccontrol/mountaincar"
	"github.com/personalrobotics/d3rlpy/preprocessing"
)

func TestMinMaxScalerTransformsToUnitRange(t *testing.T) {
	s := preprocessing.NewMinMaxScaler()
	if s.Fitted() {
		t.Fatal("scaler should start unfitted")
	}
	if err := s.FitWithEnv(mountaincar.New(1)); err != nil {
		t.Fatalf("fitWithEnv: %v", err)
	}
	if !s.Fitted() {
		t.Fatal("scaler should be fitted")
	}

	low := mat.NewVecDense(2, []float64{mountaincar.MinPosition,
		-mountaincar.MaxSpeed})
	out := s.Transform(low)
	for i := 0; i < out.Len(); i++ {
		if math.Abs(out.AtVec(i)) > 1e-6 {
			t.Errorf("feature %v: lower bound should map to 0, got %v", i,
				out.AtVec(i))
		}
	}

	high := mat.NewVecDense(2, []float64{mountaincar.MaxPosition,
		mountaincar.MaxSpeed})
	out = s.Transform(high)
	for i := 0; i < out.Len(); i++ {
		if math.Abs(out.AtVec(i)-1.0) > 1e-6 {
			t.Errorf("feature %v: upper bound should map to 1, got %v", i,
				out.AtVec(i))
		}
	}
}

func TestMinMaxActionScalerNormalizes(t *testing.T) {
	s := preprocessing.NewMinMaxActionScaler()
	if err := s.FitWithEnv(mountaincar.New(1)); err != nil {
		t.Fatalf("fitWithEnv: %v", err)
	}

	out := s.Transform(mat.NewVecDense(1, []float64{mountaincar.MaxAction}))
	if math.Abs(out.AtVec(0)-1.0) > 1e-6 {
		t.Errorf("max action should map to 1, got %v", out.AtVec(0))
	}

	out = s.Transform(mat.NewVecDense(1, []float64{0.0}))
	if math.Abs(out.AtVec(0)) > 1e-6 {
		t.Errorf("midpoint action should map to 0, got %v", out.AtVec(0))
	}
}

func TestScalersRejectNilEnvironment(t *testing.T) {
	if err := preprocessing.NewMinMaxScaler().FitWithEnv(nil); err == nil {
		t.Error("expected error for nil environment")
	}
	if err := preprocessing.NewMinMaxActionScaler().FitWithEnv(nil); err == nil {
		t.Error("expected error for nil environment")
	}
}
