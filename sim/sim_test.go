package sim_test

import (
	"context"
	"math"
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/driver"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/lcp"
	"github.com/nudtxiong/rbdcore/sim"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const gravity = 9.81

func newPlane(bodyID, geomID int) (*body.RigidBody, *geom.Geometry) {
	plane := body.NewFreeBody(bodyID, spatial.Inertia{})
	plane.Pose = spatial.Identity()
	g := &geom.Geometry{ID: geomID, BodyID: bodyID, Kind: geom.KindPlane, Offset: spatial.Identity(),
		Plane: geom.Plane{Normal: spatial.NewVec3(0, 1, 0), Offset: 0}}
	return plane, g
}

// Scenario 1: free-falling sphere onto a plane settles at y ~= radius.
func TestScenarioFreeFallingSphereSettles(t *testing.T) {
	s := sim.New(sim.Options{Driver: driver.Options{MinStepSize: 1e-5, ContactDistThresh: 1e-2}})

	sphere := body.NewFreeBody(0, spatial.SphereInertia(1, 0.5))
	sphere.Pose.Position = spatial.NewVec3(0, 2, 0)
	sphere.ExternalWrench = spatial.Wrench{Force: spatial.NewVec3(0, -gravity, 0)}
	gSphere := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}

	plane, gPlane := newPlane(1, 1)

	s.AddFreeBody(sphere)
	s.AddFreeBody(plane)
	s.TrackPair(gSphere, gPlane)

	ctx := context.Background()
	dt := 1e-3
	steps := int(2.0 / dt)
	for i := 0; i < steps; i++ {
		require.NoError(t, s.Step(ctx, dt))
	}

	require.InDelta(t, 0.5, sphere.Pose.Position.Y, 0.05)
}

// Scenario 3: a box resting on a plane generates contacts whose normal
// impulses roughly balance gravity (checked indirectly via a near-zero
// vertical velocity and non-penetration, since the impulse magnitudes
// themselves are internal to Driver's impulsive solve).
func TestScenarioBoxRestingOnPlane(t *testing.T) {
	s := sim.New(sim.Options{Driver: driver.Options{MinStepSize: 1e-5, ContactDistThresh: 1e-2}})

	box := body.NewFreeBody(0, spatial.BoxInertia(1, 1, 1, 1))
	box.Pose.Position = spatial.NewVec3(0, 0.5, 0)
	box.ExternalWrench = spatial.Wrench{Force: spatial.NewVec3(0, -gravity, 0)}
	gBox := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindBox, Offset: spatial.Identity(), Box: geom.Box{HalfExtents: spatial.NewVec3(0.5, 0.5, 0.5)}}

	plane, gPlane := newPlane(1, 1)

	s.AddFreeBody(box)
	s.AddFreeBody(plane)
	s.TrackPair(gBox, gPlane)

	ctx := context.Background()
	dt := 1e-3
	for i := 0; i < 1000; i++ {
		require.NoError(t, s.Step(ctx, dt))
	}

	require.InDelta(t, 0.5, box.Pose.Position.Y, 0.05)
	require.Less(t, math.Abs(box.Vel.Linear.Y), 0.1)
}

// Scenario 5: a joint driven at constant velocity saturates at its upper
// limit and never exceeds it.
func TestScenarioJointLimitClamp(t *testing.T) {
	s := sim.New(sim.Options{Driver: driver.Options{MinStepSize: 1e-5}})

	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.Inertia{})
	a.AddLink(base)
	link := body.NewFreeBody(1, spatial.SphereInertia(1, 0.1))
	a.AddLink(link)
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 0, 1)}}, []float64{-0.1}, []float64{0.1})
	a.AddJoint(j)
	j.Qd[0] = 1

	s.AddArticulated(a)

	ctx := context.Background()
	dt := 1e-3
	for i := 0; i < 500; i++ {
		require.NoError(t, s.Step(ctx, dt))
		require.LessOrEqual(t, j.Q[0], 0.1+1e-6)
	}
	require.InDelta(t, 0.1, j.Q[0], 1e-3)
}

// Scenario 6: a trivially feasible LCP (M=I, q>=0) returns z=0 via the
// trivial-exit path.
func TestScenarioLCPTrivialFeasibility(t *testing.T) {
	M := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		M.Set(i, i, 1)
	}
	q := []float64{1, 2, 3}

	z, err := lcp.Lemke(M, q, nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0}, z)
}

// Scenario 2: pendulum energy drift, a longer-running check skipped in short
// test runs.
func TestScenarioPendulumEnergyDrift(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running energy-drift scenario skipped with -short")
	}

	s := sim.New(sim.Options{Driver: driver.Options{MinStepSize: 1e-5}})

	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.Inertia{})
	a.AddLink(base)
	link := body.NewFreeBody(1, spatial.SphereInertia(1, 0.05))
	a.AddLink(link)
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 0, 1)}}, []float64{-math.Pi}, []float64{math.Pi})
	a.AddJoint(j)
	j.Q[0] = math.Pi / 4

	s.AddArticulated(a)

	e0 := pendulumEnergy(j.Q[0], j.Qd[0])

	ctx := context.Background()
	dt := 1e-3
	for i := 0; i < 10000; i++ {
		require.NoError(t, s.Step(ctx, dt))
	}

	e1 := pendulumEnergy(j.Q[0], j.Qd[0])
	require.LessOrEqual(t, math.Abs(e1-e0)/math.Abs(e0), 0.05)
}

// pendulumEnergy is the 1-link pendulum's KE+PE for a unit-length,
// unit-mass link pivoting about the origin (I = m*L^2 about the pivot).
func pendulumEnergy(q, qd float64) float64 {
	const mass, length = 1.0, 1.0
	ke := 0.5 * mass * length * length * qd * qd
	pe := mass * gravity * length * (1 - math.Cos(q))
	return ke + pe
}

// Scenario 4: two stacked spheres settle at y~=0.5 and y~=1.5, a
// longer-running check skipped in short test runs.
func TestScenarioStackedSpheresSettle(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running stacked-sphere scenario skipped with -short")
	}

	s := sim.New(sim.Options{Driver: driver.Options{MinStepSize: 1e-5, ContactDistThresh: 1e-2}})

	lower := body.NewFreeBody(0, spatial.SphereInertia(1, 0.5))
	lower.Pose.Position = spatial.NewVec3(0, 0.6, 0)
	lower.ExternalWrench = spatial.Wrench{Force: spatial.NewVec3(0, -gravity, 0)}
	gLower := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}

	upper := body.NewFreeBody(1, spatial.SphereInertia(1, 0.5))
	upper.Pose.Position = spatial.NewVec3(0, 1.7, 0)
	upper.ExternalWrench = spatial.Wrench{Force: spatial.NewVec3(0, -gravity, 0)}
	gUpper := &geom.Geometry{ID: 1, BodyID: 1, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}

	plane, gPlane := newPlane(2, 2)

	s.AddFreeBody(lower)
	s.AddFreeBody(upper)
	s.AddFreeBody(plane)
	s.TrackPair(gLower, gPlane)
	s.TrackPair(gUpper, gLower)

	ctx := context.Background()
	dt := 1e-3
	for i := 0; i < 2000; i++ {
		require.NoError(t, s.Step(ctx, dt))
	}

	require.InDelta(t, 0.5, lower.Pose.Position.Y, 1e-2)
	require.InDelta(t, 1.5, upper.Pose.Position.Y, 1e-2)
}
