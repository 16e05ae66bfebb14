// Package body is the rigid-body and articulated-body model: generalized
// coordinate get/set, joint state, and the arena-indexed tree structure the
// rest of the core walks (replacing box2d's/Moby's pointer-linked bodies and
// shared_ptr joints with stable integer ids, per spec.md §9).
package body

import "github.com/nudtxiong/rbdcore/spatial"

// Encoding selects between the two generalized-coordinate representations
// the spec requires to coexist.
type Encoding int

const (
	// EncodingEuler is quaternion-encoded orientation, length nq.
	EncodingEuler Encoding = iota
	// EncodingSpatial is angular-velocity encoded, length nv.
	EncodingSpatial
)

// Compliance marks a body as participating in impulsive contact resolution
// (rigid) or compliant contact forces instead (compliant).
type Compliance int

const (
	Rigid Compliance = iota
	Compliant
)

// VelocityFrame declares the frame a body's spatial velocity is expressed in.
type VelocityFrame int

const (
	FrameGlobal VelocityFrame = iota
	FrameLink
)

// RigidBody is a free or articulated-link rigid body.
type RigidBody struct {
	ID    int
	Pose  spatial.Pose
	Vel   spatial.Twist
	Frame VelocityFrame

	Inertia spatial.Inertia

	ExternalWrench spatial.Wrench
	Compliance     Compliance

	GeometryIDs []int

	// Set when this body is a link of an Articulated; -1 otherwise.
	Articulation  int
	InboardJoint  int
	ParentLinkIdx int
}

func NewFreeBody(id int, inertia spatial.Inertia) *RigidBody {
	return &RigidBody{
		ID:            id,
		Pose:          spatial.Identity(),
		Inertia:       inertia,
		Articulation:  -1,
		InboardJoint:  -1,
		ParentLinkIdx: -1,
	}
}

// GeneralizedVelocity returns this free body's spatial velocity.
func (b *RigidBody) GeneralizedVelocity() spatial.Twist { return b.Vel }

func (b *RigidBody) SetGeneralizedVelocity(t spatial.Twist) { b.Vel = t }

// Integrate advances the free body's pose by dt using its current velocity
// (semi-implicit Euler position update: q+ = q + dt*v+).
func (b *RigidBody) Integrate(dt float64) {
	b.Pose.Position = b.Pose.Position.Add(b.Vel.Linear.Scale(dt))
	b.Pose.Orientation = b.Pose.Orientation.Integrate(b.Vel.Angular, dt)
}
