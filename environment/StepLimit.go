package environment

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StepLimit wraps an Environment to end episodes at a fixed step cap.
// When the cap is hit before the wrapped environment terminates on its
// own, the returned Info carries the TimeLimitTruncated flag so that
// consumers can distinguish truncation from true termination.
type StepLimit struct {
	Environment
	episodeSteps int
	currentStep  int
}

// NewStepLimit wraps env so that episodes last at most episodeSteps
// steps
func NewStepLimit(env Environment, episodeSteps int) (*StepLimit, error) {
	if env == nil {
		return nil, errors.New("newStepLimit: no environment given")
	}
	if episodeSteps < 1 {
		return nil, errors.Errorf("newStepLimit: episodeSteps must be "+
			"positive, got %d", episodeSteps)
	}
	return &StepLimit{Environment: env, episodeSteps: episodeSteps}, nil
}

// Reset resets the wrapped environment and the step counter
func (s *StepLimit) Reset() (mat.Vector, error) {
	s.currentStep = 0
	return s.Environment.Reset()
}

// Step takes one step in the wrapped environment, truncating the
// episode if the step cap has been reached
func (s *StepLimit) Step(action mat.Vector) (mat.Vector, float64, bool,
	Info, error) {
	obs, reward, terminal, info, err := s.Environment.Step(action)
	if err != nil {
		return obs, reward, terminal, info, err
	}

	s.currentStep++
	if s.currentStep >= s.episodeSteps && !terminal {
		if info == nil {
			info = Info{}
		}
		info[TimeLimitTruncated] = true
		terminal = true
	}
	return obs, reward, terminal, info, nil
}
