// Package rne implements the Recursive Newton-Euler inverse-dynamics
// algorithm over an articulated kinematic tree, in fixed-base, floating-base
// and constraint-force variants (spec.md §4.4), grounded on
// original_source/src/RNEAlgorithm.cpp.
package rne

import (
	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/spatial"
	"gonum.org/v1/gonum/mat"
)

// LinkInput is the per-link external data RNE needs: the desired joint
// acceleration for that link's inbound joint, and the external wrench
// applied to the link (in the link's own frame).
type LinkInput struct {
	QddDes []float64
	Fext   spatial.Wrench
}

// LinkAccel supplies a link's already-known spatial acceleration, used by
// ConstraintForces in place of a desired joint acceleration: that pass runs
// after forward dynamics has already resolved qdd, so it projects the
// resulting net force directly rather than driving the recursion from qdd.
type LinkAccel struct {
	Accel spatial.Twist
	Fext  spatial.Wrench
}

// isoInertias returns, for every link, its isolated spatial inertia as a
// function solely of the link's own mass properties (link 0 / the base is
// included but unused by the fixed-base pass).
func isoInertias(a *body.Articulated) []spatial.Inertia {
	out := make([]spatial.Inertia, len(a.Links))
	for i, l := range a.Links {
		out[i] = l.Inertia
	}
	return out
}

// linkTransform returns the child-relative rigid transform used to move a
// parent-frame quantity into the child's frame. In the `global` reference
// frame this is the identity (spec.md §4.4); in `link` reference it is the
// joint's forward spatial transform.
func linkTransform(l *body.RigidBody) spatial.Pose {
	if l.Frame == body.FrameGlobal {
		return spatial.Identity()
	}
	return l.Pose
}

// FixedBase executes the three-pass RNE algorithm for a fixed-base
// articulated body and returns, per joint id, the actuator force vector.
func FixedBase(a *body.Articulated, inputs []LinkInput) map[int][]float64 {
	n := len(a.Links)
	Iiso := isoInertias(a)
	accels := make([]spatial.Twist, n)

	// Pass 1 (downward): velocities are already stored on each link; compute
	// relative + transported accelerations via BFS from the base.
	order := bfsOrder(a)
	for _, idx := range order {
		if idx == 0 {
			continue
		}
		link := a.Links[idx]
		joint := a.Joints[link.InboardJoint]
		parent := link.ParentLinkIdx

		v := link.Vel
		sqd := joint.SpatialVelocity()
		a_i := spatial.SpatialCross(v, sqd).
			Add(joint.SpatialAcceleration(inputs[idx].QddDes)).
			Add(joint.SpatialAxesDotVelocity())

		if link.Frame == body.FrameGlobal {
			a_i = a_i.Add(accels[parent])
		} else {
			xform := linkTransform(link)
			a_i = a_i.Add(xform.TransformForward(accels[parent]))
		}
		accels[idx] = a_i
	}

	// Pass 2 (upward, children before parents): accumulate net link wrenches.
	// Walking bfsOrder in reverse guarantees every link's own subtree has
	// already been folded in by the time it contributes to its parent, which
	// a naive leaf-driven queue (processed one link at a time, parent
	// re-enqueued per child) does not for links with more than one child.
	forces := make([]spatial.Wrench, n)
	for i := len(order) - 1; i >= 0; i-- {
		idx := order[i]
		if idx == 0 {
			continue
		}
		link := a.Links[idx]
		parent := link.ParentLinkIdx

		fi := Iiso[idx].ApplyWrench(accels[idx])
		fi = fi.Add(spatial.TwistCrossWrench(link.Vel, Iiso[idx].ApplyWrench(link.Vel)))
		fi = fi.Sub(transportExternal(link, inputs[idx].Fext))

		forces[idx] = forces[idx].Add(fi)

		if parent != 0 {
			if link.Frame == body.FrameGlobal {
				forces[parent] = forces[parent].Add(forces[idx])
			} else {
				forces[parent] = forces[parent].Add(linkTransform(link).WrenchTransformBackward(forces[idx]))
			}
		}
	}

	// Pass 3: project onto each joint's spatial axes.
	out := make(map[int][]float64, len(a.Joints))
	for idx := 1; idx < n; idx++ {
		link := a.Links[idx]
		joint := a.Joints[link.InboardJoint]
		q := make([]float64, joint.NumDOF())
		fv := spatial.WrenchVec(forces[idx])
		for k, ax := range joint.Axes {
			q[k] = axisDotWrench(ax, fv)
		}
		out[joint.ID] = q
	}
	return out
}

func axisDotWrench(ax spatial.Twist, f *mat.VecDense) float64 {
	av := spatial.TwistVec(ax)
	sum := 0.0
	for i := 0; i < 6; i++ {
		sum += av.AtVec(i) * f.AtVec(i)
	}
	return sum
}

func transportExternal(link *body.RigidBody, fext spatial.Wrench) spatial.Wrench {
	if link.Frame == body.FrameGlobal {
		return link.Pose.WrenchTransformBackward(fext)
	}
	return fext
}

func bfsOrder(a *body.Articulated) []int {
	order := []int{0}
	queue := append([]int{}, a.Children[0]...)
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		order = append(order, idx)
		queue = append(queue, a.Children[idx]...)
	}
	return order
}

// FloatingBase executes the four-pass composite-rigid-body RNE algorithm for
// an articulated body with an unconstrained 6-DOF base, returning the
// per-joint actuator forces and the resolved base spatial acceleration.
//
// inputs must include an entry for every link (link 0's QddDes is ignored:
// the base has no inner joint).
func FloatingBase(a *body.Articulated, inputs []LinkInput) (map[int][]float64, spatial.Twist) {
	n := len(a.Links)
	Iiso := isoInertias(a)

	// Pass 1: velocities and relative (to-base) accelerations, top-down.
	v := make([]spatial.Twist, n)
	rel := make([]spatial.Twist, n)
	v[0] = a.Links[0].Vel

	order := bfsOrder(a)
	for _, idx := range order {
		if idx == 0 {
			continue
		}
		link := a.Links[idx]
		joint := a.Joints[link.InboardJoint]
		parent := link.ParentLinkIdx

		sqd := joint.SpatialVelocity()
		v[idx] = v[parent].Add(sqd)
		rel[idx] = rel[parent].
			Add(joint.SpatialAcceleration(inputs[idx].QddDes)).
			Add(joint.SpatialAxesDotVelocity()).
			Add(spatial.SpatialCross(v[idx], sqd))
	}

	// Pass 2: per-link composite inertia (seeded with the isolated inertia)
	// and zero-acceleration wrench, expressed in the global frame.
	I := make([]*mat.Dense, n)
	Z := make([]spatial.Wrench, n)
	for idx := 0; idx < n; idx++ {
		link := a.Links[idx]
		I[idx] = Iiso[idx].DenseMatrix()

		za := Iiso[idx].ApplyWrench(rel[idx])
		za = za.Add(spatial.TwistCrossWrench(v[idx], Iiso[idx].ApplyWrench(v[idx])))
		za = za.Sub(link.Pose.WrenchTransformBackward(inputs[idx].Fext))
		Z[idx] = za
	}

	// Pass 3: aggregate composite inertia/Z.A. wrench bottom-up into the base,
	// walking bfsOrder in reverse (children folded in before their parent).
	for i := len(order) - 1; i >= 0; i-- {
		idx := order[i]
		if idx == 0 {
			continue
		}
		parent := a.Links[idx].ParentLinkIdx
		var sum mat.Dense
		sum.Add(I[parent], I[idx])
		I[parent] = &sum
		Z[parent] = Z[parent].Add(Z[idx])
	}

	// Pass 4: solve for base acceleration (I0 * a0 = -Z0), then project onto
	// each joint's spatial axes: Q = s^T * (I_idx * a0 + Z_idx).
	var negZ0 mat.VecDense
	negZ0.ScaleVec(-1, spatial.WrenchVec(Z[0]))

	a0vec := mat.NewVecDense(6, nil)
	if err := a0vec.SolveVec(I[0], &negZ0); err != nil {
		a0vec = mat.NewVecDense(6, nil)
	}
	a0 := spatial.VecTwist(a0vec)

	out := make(map[int][]float64, len(a.Joints))
	for idx := 1; idx < n; idx++ {
		link := a.Links[idx]
		joint := a.Joints[link.InboardJoint]

		var iTimesA0 mat.VecDense
		iTimesA0.MulVec(I[idx], spatial.TwistVec(a0))
		total := spatial.VecWrench(&iTimesA0).Add(Z[idx])

		fv := spatial.WrenchVec(total)
		q := make([]float64, joint.NumDOF())
		for k, ax := range joint.Axes {
			q[k] = axisDotWrench(ax, fv)
		}
		out[joint.ID] = q
	}
	return out, a0
}

// ConstraintForces computes each joint's constraint-force vector (spec.md
// §4.4's constraint-force variant) from the links' already-known spatial
// accelerations, grounded on RNEAlgorithm.cpp's calc_constraint_forces: the
// same backward net-wrench rollup as FixedBase's pass 2, but driven by a
// supplied acceleration instead of one assembled from a desired qdd, and
// projected onto each joint's constraint axes rather than its actuator axes.
//
// constraintAxes supplies, per joint id, the axes the constraint force is to
// be resolved along; a joint absent from the map is skipped.
func ConstraintForces(a *body.Articulated, accels []LinkAccel, constraintAxes map[int][]spatial.Twist) map[int][]float64 {
	n := len(a.Links)
	Iiso := isoInertias(a)
	order := bfsOrder(a)

	forces := make([]spatial.Wrench, n)
	for i := len(order) - 1; i >= 0; i-- {
		idx := order[i]
		if idx == 0 {
			continue
		}
		link := a.Links[idx]
		parent := link.ParentLinkIdx

		fi := Iiso[idx].ApplyWrench(accels[idx].Accel)
		fi = fi.Add(spatial.TwistCrossWrench(link.Vel, Iiso[idx].ApplyWrench(link.Vel)))
		fi = fi.Sub(transportExternal(link, accels[idx].Fext))

		forces[idx] = forces[idx].Add(fi)

		if parent != 0 {
			if link.Frame == body.FrameGlobal {
				forces[parent] = forces[parent].Add(forces[idx])
			} else {
				forces[parent] = forces[parent].Add(linkTransform(link).WrenchTransformBackward(forces[idx]))
			}
		}
	}

	out := make(map[int][]float64, len(constraintAxes))
	for idx := 1; idx < n; idx++ {
		link := a.Links[idx]
		joint := a.Joints[link.InboardJoint]
		axes, ok := constraintAxes[joint.ID]
		if !ok {
			continue
		}
		fv := spatial.WrenchVec(forces[idx])
		lambda := make([]float64, len(axes))
		for k, ax := range axes {
			lambda[k] = axisDotWrench(ax, fv)
		}
		out[joint.ID] = lambda
	}
	return out
}
