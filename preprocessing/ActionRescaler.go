// Package preprocessing implements the per-step transforms applied to
// observations and actions before they reach a learning algorithm:
// action rescaling between native and normalized ranges, frame
// stacking for image observations, and fit-once feature scalers.
package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/utils/floatutils"
)

// boundsEps guards against division by zero on degenerate
// zero-width action dimensions (low == high).
const boundsEps float64 = 1e-8

// Scale clips action to the bounds of space, then maps it from
// [low, high] to the normalized range [-1, 1]. The action space need
// not be symmetric.
func Scale(space environment.Spec, action mat.Vector) *mat.VecDense {
	scaled := mat.NewVecDense(action.Len(), nil)
	for i := 0; i < action.Len(); i++ {
		low := space.LowerBound.AtVec(i)
		high := space.UpperBound.AtVec(i)
		a := floatutils.Clip(action.AtVec(i), low, high)
		scaled.SetVec(i, 2.0*((a-low)/(high-low+boundsEps))-1.0)
	}
	return scaled
}

// Unscale maps a normalized action from [-1, 1] back to the
// [low, high] bounds of space. It is the inverse of Scale up to the
// epsilon bounds guard.
func Unscale(space environment.Spec, scaled mat.Vector) *mat.VecDense {
	action := mat.NewVecDense(scaled.Len(), nil)
	for i := 0; i < scaled.Len(); i++ {
		low := space.LowerBound.AtVec(i)
		high := space.UpperBound.AtVec(i)
		action.SetVec(i, low+0.5*(scaled.AtVec(i)+1.0)*(high-low+boundsEps))
	}
	return action
}
