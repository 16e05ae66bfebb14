package rne_test

import (
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/rne"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

// pendulumArm builds a fixed-base single-DOF arm: a point link offset 1m
// along x from the base, with a revolute joint about the y axis (the
// standard planar-pendulum configuration in the x-z plane).
func pendulumArm(mass float64) *body.Articulated {
	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.SphereInertia(1, 1))
	a.AddLink(base)

	link := body.NewFreeBody(1, spatial.SphereInertia(mass, 0.05))
	link.Pose.Position = spatial.NewVec3(1, 0, 0)
	a.AddLink(link)

	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 1, 0)}}, []float64{-3.14}, []float64{3.14})
	a.AddJoint(j)
	return a
}

func TestFixedBaseZeroInputYieldsZeroTorque(t *testing.T) {
	a := pendulumArm(1)
	inputs := []rne.LinkInput{{}, {QddDes: []float64{0}}}

	out := rne.FixedBase(a, inputs)
	require.InDelta(t, 0, out[0][0], 1e-9)
}

func TestFixedBaseStaticGravityTorque(t *testing.T) {
	const g = 9.81
	mass := 1.0
	a := pendulumArm(mass)
	gravity := spatial.Wrench{Force: spatial.NewVec3(0, 0, -mass * g)}
	inputs := []rne.LinkInput{{}, {QddDes: []float64{0}, Fext: gravity}}

	out := rne.FixedBase(a, inputs)
	// Holding the arm static against gravity requires an actuator torque
	// equal and opposite to the gravity-induced torque about the joint axis.
	require.InDelta(t, -mass*g, out[0][0], 1e-9)
}

func TestFloatingBaseNoForcesNoAccel(t *testing.T) {
	a := body.NewArticulated(0, true)
	base := body.NewFreeBody(0, spatial.SphereInertia(1, 1))
	a.AddLink(base)

	_, a0 := rne.FloatingBase(a, []rne.LinkInput{{}})
	require.InDelta(t, 0, a0.Linear.Length(), 1e-9)
	require.InDelta(t, 0, a0.Angular.Length(), 1e-9)
}

func TestFloatingBaseGravityProducesFreeFallAcceleration(t *testing.T) {
	const g = 9.81
	mass := 2.0
	a := body.NewArticulated(0, true)
	base := body.NewFreeBody(0, spatial.SphereInertia(mass, 0.5))
	a.AddLink(base)

	gravity := spatial.Wrench{Force: spatial.NewVec3(0, 0, -mass * g)}
	_, a0 := rne.FloatingBase(a, []rne.LinkInput{{Fext: gravity}})

	require.InDelta(t, -g, a0.Linear.Z, 1e-9)
	require.InDelta(t, 0, a0.Angular.Length(), 1e-9)
}

func TestConstraintForcesSkipsJointsWithoutAxes(t *testing.T) {
	a := pendulumArm(1)
	accels := []rne.LinkAccel{{}, {}}
	out := rne.ConstraintForces(a, accels, map[int][]spatial.Twist{})
	require.Empty(t, out)
}
