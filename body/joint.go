package body

import (
	"math"

	"github.com/nudtxiong/rbdcore/spatial"
)

// Side identifies which bound of a DOF's position limit is being referenced.
type Side int

const (
	Lower Side = iota
	Upper
)

// Joint connects a parent link to a child (outboard) link with d degrees of
// freedom, d in [1,6]. S is the 6xd spatial axis matrix (one Twist per DOF);
// Sdot is its time derivative. Axes are expressed in the joint's declared
// frame (see body.VelocityFrame on the owning RigidBody).
type Joint struct {
	ID int

	ParentLink int
	ChildLink  int

	Axes     []spatial.Twist // length d
	AxesDot  []spatial.Twist // length d

	Q  []float64 // current coordinates, length d
	Qd []float64 // current velocities, length d

	Lo []float64 // per-DOF lower position limit
	Hi []float64 // per-DOF upper position limit

	// ConstraintForce stores the last computed per-DOF constraint/actuator
	// force, filled in by RNE's constraint-force variant.
	ConstraintForce []float64
}

func NewJoint(id, parent, child int, axes []spatial.Twist, lo, hi []float64) *Joint {
	d := len(axes)
	return &Joint{
		ID:              id,
		ParentLink:      parent,
		ChildLink:       child,
		Axes:            axes,
		AxesDot:         make([]spatial.Twist, d),
		Q:               make([]float64, d),
		Qd:              make([]float64, d),
		Lo:              lo,
		Hi:              hi,
		ConstraintForce: make([]float64, d),
	}
}

func (j *Joint) NumDOF() int { return len(j.Axes) }

// SpatialVelocity returns s*qdot, the joint's contribution to relative twist.
func (j *Joint) SpatialVelocity() spatial.Twist {
	var t spatial.Twist
	for i, a := range j.Axes {
		t = t.Add(a.Scale(j.Qd[i]))
	}
	return t
}

// SpatialAcceleration returns s*qddot for the given desired accelerations.
func (j *Joint) SpatialAcceleration(qddDes []float64) spatial.Twist {
	var t spatial.Twist
	for i, a := range j.Axes {
		t = t.Add(a.Scale(qddDes[i]))
	}
	return t
}

// SpatialAxesDotVelocity returns sdot*qdot.
func (j *Joint) SpatialAxesDotVelocity() spatial.Twist {
	var t spatial.Twist
	for i, a := range j.AxesDot {
		t = t.Add(a.Scale(j.Qd[i]))
	}
	return t
}

// Violations reports, per DOF, whether the current position exceeds a limit
// and by how much. A DOF can only violate one side at a time.
type Violation struct {
	DOF        int
	Side       Side
	Magnitude  float64
}

func (j *Joint) LimitViolations() []Violation {
	var out []Violation
	for i := range j.Axes {
		if j.Q[i] > j.Hi[i] {
			out = append(out, Violation{DOF: i, Side: Upper, Magnitude: j.Q[i] - j.Hi[i]})
		} else if j.Q[i] < j.Lo[i] {
			out = append(out, Violation{DOF: i, Side: Lower, Magnitude: j.Lo[i] - j.Q[i]})
		}
	}
	return out
}

// TimeToLimit returns the smallest time, over the DOFs moving toward a limit
// at the current qdot, until one of them reaches it (+Inf if none is
// approaching).
func (j *Joint) TimeToLimit() float64 {
	best := math.Inf(1)
	for i := range j.Axes {
		if j.Q[i] < j.Hi[i] && j.Qd[i] > 0 {
			t := (j.Hi[i] - j.Q[i]) / j.Qd[i]
			if t < best {
				best = t
			}
		}
		if j.Q[i] > j.Lo[i] && j.Qd[i] < 0 {
			t := (j.Lo[i] - j.Q[i]) / j.Qd[i]
			if t < best {
				best = t
			}
		}
	}
	return best
}
