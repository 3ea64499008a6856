package preprocessing

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/environment"
)

// Scaler normalizes observations or actions using statistics fit once
// against an environment. Fitting is idempotent from the caller's
// perspective: orchestrators fit a scaler only if Fitted() is false,
// so a scaler fit offline keeps its statistics.
type Scaler interface {
	FitWithEnv(e environment.Environment) error
	Fitted() bool
	Transform(x mat.Vector) *mat.VecDense
	Type() string
}

// MinMaxScaler normalizes observation features to [0, 1] using the
// bounds of the environment's observation space.
type MinMaxScaler struct {
	low    mat.Vector
	high   mat.Vector
	fitted bool
}

// NewMinMaxScaler returns an unfitted min-max observation scaler
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// FitWithEnv records the observation bounds of e
func (m *MinMaxScaler) FitWithEnv(e environment.Environment) error {
	if e == nil {
		return errors.New("fitWithEnv: no environment given")
	}
	spec := e.ObservationSpec()
	m.low = spec.LowerBound
	m.high = spec.UpperBound
	m.fitted = true
	return nil
}

// Fitted returns whether the scaler has been fit
func (m *MinMaxScaler) Fitted() bool {
	return m.fitted
}

// Transform maps each feature of x from its recorded bounds to [0, 1]
func (m *MinMaxScaler) Transform(x mat.Vector) *mat.VecDense {
	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		low, high := m.low.AtVec(i), m.high.AtVec(i)
		out.SetVec(i, (x.AtVec(i)-low)/(high-low+boundsEps))
	}
	return out
}

// Type returns the scaler type name
func (m *MinMaxScaler) Type() string {
	return "min_max"
}

// MinMaxActionScaler normalizes actions from the environment's native
// action bounds to [-1, 1].
type MinMaxActionScaler struct {
	space  environment.Spec
	fitted bool
}

// NewMinMaxActionScaler returns an unfitted min-max action scaler
func NewMinMaxActionScaler() *MinMaxActionScaler {
	return &MinMaxActionScaler{}
}

// FitWithEnv records the action bounds of e
func (m *MinMaxActionScaler) FitWithEnv(e environment.Environment) error {
	if e == nil {
		return errors.New("fitWithEnv: no environment given")
	}
	m.space = e.ActionSpec()
	m.fitted = true
	return nil
}

// Fitted returns whether the scaler has been fit
func (m *MinMaxActionScaler) Fitted() bool {
	return m.fitted
}

// Transform maps x from the recorded action bounds to [-1, 1]
func (m *MinMaxActionScaler) Transform(x mat.Vector) *mat.VecDense {
	return Scale(m.space, x)
}

// Type returns the scaler type name
func (m *MinMaxActionScaler) Type() string {
	return "min_max"
}
