// Package mountaincar implements the continuous-action Mountain Car
// environment. The agent controls an underpowered car in a valley and
// must rock back and forth to build enough momentum to reach the goal
// on the right hill.
package mountaincar

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/utils/floatutils"
)

const (
	MinPosition  float64 = -1.2
	MaxPosition  float64 = 0.6
	MaxSpeed     float64 = 0.07
	Power        float64 = 0.0015 // Engine power
	Gravity      float64 = 0.0025
	GoalPosition float64 = 0.45

	MinAction float64 = -1.0
	MaxAction float64 = 1.0

	// Bounds on the uniformly random starting position
	MinStart float64 = -0.6
	MaxStart float64 = -0.4
)

// MountainCar implements the environment.Environment interface.
//
// State features consist of the x position of the car and its
// velocity. The sign of the velocity denotes direction, with negative
// meaning that the car is travelling left. Upon reaching the minimum
// position, the velocity of the car is set to 0.
//
// Actions are 1-dimensional and continuous, determining the force to
// apply to the car. Actions outside [MinAction, MaxAction] are clipped
// to stay within that range. The reward is -1 on every step until the
// car reaches GoalPosition, at which point the episode terminates.
type MountainCar struct {
	positionBounds r1.Interval
	speedBounds    r1.Interval
	starter        env.UniformActionSampler
	state          *mat.VecDense
}

// New creates a new Mountain Car environment whose starting positions
// are drawn uniformly randomly from [MinStart, MaxStart]
func New(seed uint64) *MountainCar {
	startSpec := env.NewSpec([]int{1},
		mat.NewVecDense(1, []float64{MinStart}),
		mat.NewVecDense(1, []float64{MaxStart}),
		env.Continuous,
	)

	return &MountainCar{
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		starter:        env.NewUniformActionSampler(startSpec, seed),
	}
}

// Reset resets the environment and returns a starting state drawn from
// the start-state distribution
func (m *MountainCar) Reset() (mat.Vector, error) {
	position := m.starter.Sample().AtVec(0)
	m.state = mat.NewVecDense(2, []float64{position, 0.0})
	return mat.VecDenseCopyOf(m.state), nil
}

// Step takes one environmental step given a 1-dimensional force action
func (m *MountainCar) Step(action mat.Vector) (mat.Vector, float64, bool,
	env.Info, error) {
	if m.state == nil {
		return nil, 0, false, nil, errors.New("step: Reset must be " +
			"called before Step")
	}
	if action.Len() != 1 {
		return nil, 0, false, nil, errors.Errorf("step: actions should "+
			"be 1-dimensional, got %d dimensions", action.Len())
	}

	force := floatutils.Clip(action.AtVec(0), MinAction, MaxAction)
	position, velocity := m.state.AtVec(0), m.state.AtVec(1)

	velocity += force*Power - Gravity*math.Cos(3*position)
	velocity = floatutils.ClipInterval(velocity, m.speedBounds)

	position += velocity
	position = floatutils.ClipInterval(position, m.positionBounds)
	if position <= m.positionBounds.Min && velocity < 0 {
		velocity = 0
	}

	m.state = mat.NewVecDense(2, []float64{position, velocity})
	terminal := position >= GoalPosition

	return mat.VecDenseCopyOf(m.state), -1.0, terminal, env.Info{}, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (m *MountainCar) ObservationSpec() env.Spec {
	lowerBound := mat.NewVecDense(2, []float64{m.positionBounds.Min,
		m.speedBounds.Min})
	upperBound := mat.NewVecDense(2, []float64{m.positionBounds.Max,
		m.speedBounds.Max})

	return env.NewSpec([]int{2}, lowerBound, upperBound, env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (m *MountainCar) ActionSpec() env.Spec {
	lowerBound := mat.NewVecDense(1, []float64{MinAction})
	upperBound := mat.NewVecDense(1, []float64{MaxAction})

	return env.NewSpec([]int{1}, lowerBound, upperBound, env.Continuous)
}
