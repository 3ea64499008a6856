// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// Cardinality indicates whether the associated space is continuous or
// discrete
type Cardinality int

const (
	Discrete Cardinality = iota
	Continuous
)

// TimeLimitTruncated is the Info key signalling that an episode ended
// because of a step cap rather than task completion.
const TimeLimitTruncated string = "TimeLimit.truncated"

// Info carries auxiliary per-step flags returned by an environment.
type Info map[string]bool

// Truncated returns whether the episode was ended by a time limit.
// Safe to call on a nil Info.
func (i Info) Truncated() bool {
	return i[TimeLimitTruncated]
}

// Spec is the specification of an observation or action space: its
// shape, elementwise bounds, and whether it is discrete or continuous.
// Image-shaped observation spaces have a 3-dimensional Shape; vector
// spaces have a 1-dimensional Shape whose single element equals the
// number of features.
type Spec struct {
	Shape      []int
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec creates a new space specification
func NewSpec(shape []int, lowerBound, upperBound mat.Vector,
	cardinality Cardinality) Spec {
	return Spec{shape, lowerBound, upperBound, cardinality}
}

// Len returns the total number of elements in the space
func (s Spec) Len() int {
	n := 1
	for _, dim := range s.Shape {
		n *= dim
	}
	return n
}

// Environment implements a simulated environment with the standard
// reset/step interaction contract. Step returns the next observation,
// the reward for the transition, whether the episode terminated, and
// auxiliary Info flags.
type Environment interface {
	Reset() (mat.Vector, error)
	Step(action mat.Vector) (mat.Vector, float64, bool, Info, error)
	ObservationSpec() Spec
	ActionSpec() Spec
}

// UniformActionSampler draws uniformly random actions from within an
// action space's native bounds.
type UniformActionSampler struct {
	dims int
	rand *distmv.Uniform
}

// NewUniformActionSampler creates a sampler over the bounds of spec
func NewUniformActionSampler(spec Spec, seed uint64) UniformActionSampler {
	bounds := make([]r1.Interval, spec.LowerBound.Len())
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: spec.LowerBound.AtVec(i),
			Max: spec.UpperBound.AtVec(i),
		}
	}

	source := rand.NewSource(seed)
	return UniformActionSampler{len(bounds), distmv.NewUniform(bounds, source)}
}

// Sample returns a uniformly random in-bounds action
func (u UniformActionSampler) Sample() *mat.VecDense {
	return mat.NewVecDense(u.dims, u.rand.Rand(nil))
}
