package body

import "github.com/nudtxiong/rbdcore/spatial"

// Model is the body-model contract variable-shape generalized state needs
// (spec.md §6): an Articulated's coordinate count depends on its joint set,
// so RNE and the constraint assembler walk it through this slice-based
// interface. RigidBody's state is fixed-shape (a Pose plus a Twist) and is
// read/written through its own typed accessors instead — boxing it into
// []float64 here would cost an allocation on every driver/stabilizer access
// for no consumer that needs the generic form.
type Model interface {
	GeneralizedCoordinates(enc Encoding) []float64
	SetGeneralizedCoordinates(enc Encoding, v []float64)
	GeneralizedVelocity() []float64
	SetGeneralizedVelocity(v []float64)
	NumGeneralizedCoordinates(enc Encoding) int
}

// SpatialAxes returns the joint's spatial axis matrix as stored: the axes
// are pre-expressed in the joint's declared frame per spec.md §3, and the
// FrameLink/FrameGlobal choice only matters for transform semantics
// upstream (RNE).
func (j *Joint) SpatialAxes() []spatial.Twist    { return j.Axes }
func (j *Joint) SpatialAxesDot() []spatial.Twist { return j.AxesDot }

var _ Model = (*Articulated)(nil)
