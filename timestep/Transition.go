// Package timestep implements the unit records of agent-environment
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition packages together a single step of interaction with an
// environment, including the observation the step led to. The Terminal
// field marks true environment termination, while ClipEpisode marks
// any episode boundary: true termination or time-limit truncation.
// Terminal implies ClipEpisode, but an episode may be clipped without
// terminating (truncation).
type Transition struct {
	Observation     mat.Vector
	Action          mat.Vector
	Reward          float64
	NextObservation mat.Vector
	Terminal        bool
	ClipEpisode     bool
}

// New creates a Transition. The ClipEpisode flag is forced true
// whenever terminal is true so that the boundary invariant always
// holds.
func New(observation, action mat.Vector, reward float64,
	nextObservation mat.Vector, terminal, clipEpisode bool) Transition {
	return Transition{
		Observation:     observation,
		Action:          action,
		Reward:          reward,
		NextObservation: nextObservation,
		Terminal:        terminal,
		ClipEpisode:     clipEpisode || terminal,
	}
}

func (t Transition) String() string {
	str := "Transition | Reward: %.2f  |  Terminal: %v  |  ClipEpisode: %v"
	return fmt.Sprintf(str, t.Reward, t.Terminal, t.ClipEpisode)
}
