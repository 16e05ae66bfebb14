package rne

import (
	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/spatial"
	"gonum.org/v1/gonum/mat"
)

// FreeBodyAccel computes a single free rigid body's spatial acceleration
// from its current velocity and accumulated external wrench via the
// Newton-Euler balance I*a + v x* (I*v) = Fext, solved for a. Bodies with
// non-positive mass (static/fixed) never accelerate.
func FreeBodyAccel(rb *body.RigidBody) spatial.Twist {
	if rb.Inertia.Mass <= 0 {
		return spatial.Twist{}
	}
	gyroscopic := spatial.TwistCrossWrench(rb.Vel, rb.Inertia.ApplyWrench(rb.Vel))
	rhs := spatial.WrenchVec(rb.ExternalWrench.Sub(gyroscopic))

	var a mat.VecDense
	if err := a.SolveVec(rb.Inertia.DenseMatrix(), rhs); err != nil {
		return spatial.Twist{}
	}
	return spatial.VecTwist(&a)
}

// MassMatrix builds a fixed-base articulated body's joint-space mass matrix
// via one RNE evaluation per degree of freedom: a unit qdd at that DOF with
// velocities and external wrenches zeroed, so the Coriolis/centrifugal/
// gravity terms drop out and what's left is that column of M. Exposed
// separately from ForwardDynamics so other consumers of the generalized
// mass matrix (constraint effective-mass assembly) don't need a tau/bias
// solve to get it.
//
// Grounded on RNEAlgorithm.cpp's calc_fwd_dyn, which builds the mass matrix
// the same way — one RNE call per column — rather than via a dedicated CRBA
// pass.
func MassMatrix(a *body.Articulated) *mat.Dense {
	ndof := a.NumDOF()
	if ndof == 0 {
		return &mat.Dense{}
	}

	savedVel := make([]spatial.Twist, len(a.Links))
	savedFext := make([]spatial.Wrench, len(a.Links))
	for i, l := range a.Links {
		savedVel[i], savedFext[i] = l.Vel, l.ExternalWrench
		l.Vel = spatial.Twist{}
		l.ExternalWrench = spatial.Wrench{}
	}
	defer func() {
		for i, l := range a.Links {
			l.Vel, l.ExternalWrench = savedVel[i], savedFext[i]
		}
	}()

	H := mat.NewDense(ndof, ndof, nil)
	col := 0
	for _, j := range a.Joints {
		for k := 0; k < j.NumDOF(); k++ {
			inputs := zeroInputs(a)
			inputs[j.ChildLink].QddDes[k] = 1
			colVec := flattenJointForces(a, FixedBase(a, inputs))
			for row := 0; row < ndof; row++ {
				H.Set(row, col, colVec[row])
			}
			col++
		}
	}
	return H
}

// LinkVelocityJacobian returns, for a fixed-base articulated body, one twist
// per generalized DOF (a.Joints order, matching GeneralizedVelocity's
// layout): the twist a unit velocity at that DOF alone induces at link
// linkIdx, with every other DOF's velocity held at zero. This is the
// velocity-domain analogue of MassMatrix's per-DOF unit-qdd columns, built
// by the same BFS/frame-transport propagation FixedBase's pass 1 uses for
// acceleration, minus the Coriolis/qddot terms a linear velocity map
// doesn't carry.
func LinkVelocityJacobian(a *body.Articulated, linkIdx int) []spatial.Twist {
	ndof := a.NumDOF()
	out := make([]spatial.Twist, ndof)
	order := bfsOrder(a)
	col := 0
	for _, j := range a.Joints {
		for k := 0; k < j.NumDOF(); k++ {
			v := make([]spatial.Twist, len(a.Links))
			for _, idx := range order {
				if idx == 0 {
					continue
				}
				link := a.Links[idx]
				joint := a.Joints[link.InboardJoint]
				parent := link.ParentLinkIdx

				var sqd spatial.Twist
				if joint.ID == j.ID {
					sqd = joint.Axes[k]
				}
				if link.Frame == body.FrameGlobal {
					v[idx] = v[parent].Add(sqd)
				} else {
					v[idx] = linkTransform(link).TransformForward(v[parent]).Add(sqd)
				}
			}
			out[col] = v[linkIdx]
			col++
		}
	}
	return out
}

// ForwardDynamics computes a fixed-base articulated body's joint
// accelerations from its current state and per-joint actuator forces tau
// (length a.NumDOF(), in a.Joints order): bias = FixedBase(current q, qd,
// qdd=0), M = MassMatrix(a), then qdd = M^-1*(tau-bias).
func ForwardDynamics(a *body.Articulated, tau []float64) []float64 {
	ndof := a.NumDOF()
	if ndof == 0 {
		return nil
	}

	bias := flattenJointForces(a, FixedBase(a, currentInputs(a)))
	H := MassMatrix(a)

	rhs := mat.NewVecDense(ndof, nil)
	for i := 0; i < ndof; i++ {
		t := 0.0
		if i < len(tau) {
			t = tau[i]
		}
		rhs.SetVec(i, t-bias[i])
	}
	qdd := mat.NewVecDense(ndof, nil)
	if err := qdd.SolveVec(H, rhs); err != nil {
		return make([]float64, ndof)
	}
	out := make([]float64, ndof)
	for i := range out {
		out[i] = qdd.AtVec(i)
	}
	return out
}

func currentInputs(a *body.Articulated) []LinkInput {
	out := make([]LinkInput, len(a.Links))
	for i, l := range a.Links {
		out[i] = LinkInput{QddDes: make([]float64, inboardDOF(a, l)), Fext: l.ExternalWrench}
	}
	return out
}

func zeroInputs(a *body.Articulated) []LinkInput {
	out := make([]LinkInput, len(a.Links))
	for i, l := range a.Links {
		out[i] = LinkInput{QddDes: make([]float64, inboardDOF(a, l))}
	}
	return out
}

func inboardDOF(a *body.Articulated, l *body.RigidBody) int {
	if l.InboardJoint < 0 {
		return 0
	}
	return a.Joints[l.InboardJoint].NumDOF()
}

// flattenJointForces concatenates per-joint force vectors in a.Joints order,
// matching Articulated.GeneralizedVelocity's ordering.
func flattenJointForces(a *body.Articulated, forces map[int][]float64) []float64 {
	out := make([]float64, 0, a.NumDOF())
	for _, j := range a.Joints {
		out = append(out, forces[j.ID]...)
	}
	return out
}
