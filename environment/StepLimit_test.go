package environment_test

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/environment"
)

// endlessEnv never terminates on its own
type endlessEnv struct {
	terminalAt int
	steps      int
}

func (e *endlessEnv) Reset() (mat.Vector, error) {
	e.steps = 0
	return mat.NewVecDense(1, nil), nil
}

func (e *endlessEnv) Step(action mat.Vector) (mat.Vector, float64, bool,
	environment.Info, error) {
	e.steps++
	terminal := e.terminalAt > 0 && e.steps == e.terminalAt
	return mat.NewVecDense(1, nil), 0.0, terminal, nil, nil
}

func (e *endlessEnv) ObservationSpec() environment.Spec {
	bound := mat.NewVecDense(1, nil)
	return environment.NewSpec([]int{1}, bound, bound, environment.Continuous)
}

func (e *endlessEnv) ActionSpec() environment.Spec {
	return environment.NewSpec([]int{1},
		mat.NewVecDense(1, []float64{-1}),
		mat.NewVecDense(1, []float64{1}),
		environment.Continuous,
	)
}

func TestStepLimitTruncatesAtCap(t *testing.T) {
	limited, err := environment.NewStepLimit(&endlessEnv{}, 3)
	if err != nil {
		t.Fatalf("newStepLimit: %v", err)
	}
	if _, err := limited.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	action := mat.NewVecDense(1, nil)
	for i := 0; i < 2; i++ {
		_, _, terminal, info, err := limited.Step(action)
		if err != nil {
			t.Fatalf("step %v: %v", i, err)
		}
		if terminal || info.Truncated() {
			t.Fatalf("step %v: episode ended before the cap", i)
		}
	}

	_, _, terminal, info, err := limited.Step(action)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !terminal {
		t.Error("cap reached: episode should end")
	}
	if !info.Truncated() {
		t.Error("cap reached: info should flag truncation")
	}
}

func TestStepLimitResetRestartsCounter(t *testing.T) {
	limited, err := environment.NewStepLimit(&endlessEnv{}, 2)
	if err != nil {
		t.Fatalf("newStepLimit: %v", err)
	}
	action := mat.NewVecDense(1, nil)

	if _, err := limited.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	limited.Step(action)
	limited.Step(action)

	if _, err := limited.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	_, _, terminal, info, err := limited.Step(action)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if terminal || info.Truncated() {
		t.Error("first step after reset should not hit the cap")
	}
}

func TestStepLimitDoesNotMaskTrueTermination(t *testing.T) {
	limited, err := environment.NewStepLimit(&endlessEnv{terminalAt: 3}, 3)
	if err != nil {
		t.Fatalf("newStepLimit: %v", err)
	}
	if _, err := limited.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	action := mat.NewVecDense(1, nil)
	limited.Step(action)
	limited.Step(action)
	_, _, terminal, info, err := limited.Step(action)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !terminal {
		t.Error("episode should have terminated")
	}
	if info.Truncated() {
		t.Error("a true termination at the cap should not be flagged as " +
			"truncation")
	}
}

func TestNewStepLimitValidates(t *testing.T) {
	if _, err := environment.NewStepLimit(nil, 10); err == nil {
		t.Error("expected error for nil environment")
	}
	if _, err := environment.NewStepLimit(&endlessEnv{}, 0); err == nil {
		t.Error("expected error for a zero step cap")
	}
}
