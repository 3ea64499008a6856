// Package expreplay implements experience replay buffers for online
// reinforcement learning
package expreplay

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/timestep"
)

// Buffer is an ordered, capacity-bounded store of transitions. Append
// is O(1) amortized and may evict the oldest transition at capacity.
// Sample and SampleTransitions draw n-step windows that never cross an
// episode boundary; a window reaching the newest stored transition is
// truncated there, so any non-empty buffer is sampleable. ClipEpisode
// finalizes an in-progress trajectory at loop shutdown without
// appending a new transition.
type Buffer interface {
	Append(observation, action mat.Vector, reward float64,
		nextObservation mat.Vector, terminal, clipEpisode bool) error
	Sample(batchSize, nFrames, nSteps int, gamma float64) (*MiniBatch, error)
	SampleTransitions(batchSize, nFrames, nSteps int,
		gamma float64) ([]Window, error)
	ToMiniBatch(windows []Window, nFrames, nSteps int,
		gamma float64) (*MiniBatch, error)
	ClipEpisode()
	Len() int
}

// Window is a single sampled n-step transition window: the
// frame-stacked observation at the window start, the action taken
// there, the discounted n-step return over the window, and the
// frame-stacked observation where the window ends. Discount is
// gamma^m for the m steps the window actually spans, which may be
// fewer than nSteps when the episode ends inside the window or the
// window reaches the newest stored transition. NextObservation is
// zero for windows ending in a terminal transition.
type Window struct {
	Observation     *mat.VecDense
	Action          mat.Vector
	Return          float64
	NextObservation *mat.VecDense
	Terminal        bool
	Discount        float64
}

// ReplayBuffer is a FIFO Buffer implementation backed by a ring of
// transitions. Episode boundaries are tracked through the ClipEpisode
// flag on stored transitions; sampled windows stop at those flags.
type ReplayBuffer struct {
	maxCapacity int
	data        []timestep.Transition
	start       int
	count       int
	rng         *rand.Rand
}

// New creates a ReplayBuffer holding at most maxCapacity transitions
func New(maxCapacity int, seed uint64) (*ReplayBuffer, error) {
	if maxCapacity < 1 {
		return nil, errors.Errorf("new: maxCapacity must be >= 1, "+
			"got %d", maxCapacity)
	}

	return &ReplayBuffer{
		maxCapacity: maxCapacity,
		data:        make([]timestep.Transition, maxCapacity),
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// at returns a pointer to the transition at logical index i, where
// index 0 is the oldest stored transition
func (r *ReplayBuffer) at(i int) *timestep.Transition {
	return &r.data[(r.start+i)%r.maxCapacity]
}

// Len returns the current number of stored transitions
func (r *ReplayBuffer) Len() int {
	return r.count
}

// Append stores a new transition, evicting the oldest one if the
// buffer is at capacity
func (r *ReplayBuffer) Append(observation, action mat.Vector,
	reward float64, nextObservation mat.Vector, terminal,
	clipEpisode bool) error {
	if observation == nil {
		return errors.New("append: no observation given")
	}
	if action == nil {
		return errors.New("append: no action given")
	}
	if nextObservation == nil {
		return errors.New("append: no next observation given")
	}

	if r.count == r.maxCapacity {
		r.start = (r.start + 1) % r.maxCapacity
	} else {
		r.count++
	}
	*r.at(r.count - 1) = timestep.New(observation, action, reward,
		nextObservation, terminal, clipEpisode)
	return nil
}

// ClipEpisode finalizes the in-flight trajectory by marking the newest
// transition as an episode boundary. The buffer length is unchanged.
// Calling ClipEpisode on an empty buffer or after a natural episode
// boundary is a no-op.
func (r *ReplayBuffer) ClipEpisode() {
	if r.count == 0 {
		return
	}
	r.at(r.count - 1).ClipEpisode = true
}

// stackedAt returns the frame-stacked observation ending at logical
// index i: the observations of the last nFrames transitions of the
// same episode up to and including i, concatenated oldest first, with
// missing leading frames zero-filled.
func (r *ReplayBuffer) stackedAt(i, nFrames int) *mat.VecDense {
	features := r.at(i).Observation.Len()
	data := make([]float64, features*nFrames)

	for k := 0; k < nFrames; k++ {
		j := i - k
		if j < 0 {
			break
		}
		// A ClipEpisode flag on an earlier transition means it ended
		// the previous episode.
		if k > 0 && r.at(j).ClipEpisode {
			break
		}
		offset := (nFrames - 1 - k) * features
		obs := r.at(j).Observation
		for f := 0; f < features; f++ {
			data[offset+f] = obs.AtVec(f)
		}
	}
	return mat.NewVecDense(len(data), data)
}

// stackedNext returns the frame-stacked successor observation of the
// transition at logical index i: its stored next observation preceded
// by the trailing observations of the same episode, with missing
// leading frames zero-filled.
func (r *ReplayBuffer) stackedNext(i, nFrames int) *mat.VecDense {
	features := r.at(i).NextObservation.Len()
	data := make([]float64, features*nFrames)

	for k := 0; k < nFrames; k++ {
		obs := r.at(i).NextObservation
		if k > 0 {
			j := i - k + 1
			if j < 0 {
				break
			}
			// A ClipEpisode flag on an earlier transition means it
			// ended the previous episode.
			if j < i && r.at(j).ClipEpisode {
				break
			}
			obs = r.at(j).Observation
		}
		offset := (nFrames - 1 - k) * features
		for f := 0; f < features; f++ {
			data[offset+f] = obs.AtVec(f)
		}
	}
	return mat.NewVecDense(len(data), data)
}

// window builds the n-step Window starting at logical index i. The
// walk stops at the first episode boundary or at the newest stored
// transition, whichever comes first, so every index is sampleable.
func (r *ReplayBuffer) window(i, nFrames, nSteps int,
	gamma float64) Window {
	nStepReturn := 0.0
	discount := 1.0
	steps := 0

	for k := 0; k < nSteps; k++ {
		t := r.at(i + k)
		nStepReturn += discount * t.Reward
		discount *= gamma
		steps++
		if t.ClipEpisode || i+k+1 >= r.count {
			break
		}
	}

	last := r.at(i + steps - 1)
	w := Window{
		Observation: r.stackedAt(i, nFrames),
		Action:      r.at(i).Action,
		Return:      nStepReturn,
		Terminal:    last.Terminal,
		Discount:    math.Pow(gamma, float64(steps)),
	}

	if last.Terminal {
		// No successor state exists past a terminal transition.
		features := r.at(i).Observation.Len()
		w.NextObservation = mat.NewVecDense(features*nFrames, nil)
	} else {
		w.NextObservation = r.stackedNext(i+steps-1, nFrames)
	}
	return w
}

// SampleTransitions draws batchSize n-step windows uniformly with
// replacement. Windows never cross an episode boundary.
func (r *ReplayBuffer) SampleTransitions(batchSize, nFrames, nSteps int,
	gamma float64) ([]Window, error) {
	if r.count == 0 {
		return nil, errors.New("sampleTransitions: cannot sample from " +
			"an empty buffer")
	}
	if batchSize < 1 {
		return nil, errors.Errorf("sampleTransitions: batchSize must be "+
			"positive, got %d", batchSize)
	}

	windows := make([]Window, batchSize)
	for i := range windows {
		windows[i] = r.window(r.rng.Intn(r.count), nFrames, nSteps, gamma)
	}
	return windows, nil
}

// Sample draws a batch of n-step windows and assembles them into a
// MiniBatch
func (r *ReplayBuffer) Sample(batchSize, nFrames, nSteps int,
	gamma float64) (*MiniBatch, error) {
	windows, err := r.SampleTransitions(batchSize, nFrames, nSteps, gamma)
	if err != nil {
		return nil, errors.Wrap(err, "sample")
	}
	return r.ToMiniBatch(windows, nFrames, nSteps, gamma)
}
