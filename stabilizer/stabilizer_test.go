package stabilizer_test

import (
	"context"
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/constraint"
	"github.com/nudtxiong/rbdcore/driver"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/nudtxiong/rbdcore/stabilizer"
	"github.com/stretchr/testify/require"
)

func TestStabilizeRemovesSpherePenetration(t *testing.T) {
	a := body.NewFreeBody(0, spatial.SphereInertia(1, 0.5))
	a.Pose.Position = spatial.NewVec3(0, 0, 0)
	b := body.NewFreeBody(1, spatial.SphereInertia(1, 0.5))
	b.Pose.Position = spatial.NewVec3(0.6, 0, 0) // overlapping by 0.4

	gA := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}
	gB := &geom.Geometry{ID: 1, BodyID: 1, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}

	reg := constraint.NewRegistry()
	reg.AddFree(a)
	reg.AddFree(b)

	w := &driver.World{
		Free:     []*body.RigidBody{a, b},
		Pairs:    []geom.GeomPair{{A: gA, B: gB}},
		Registry: reg,
	}

	s := stabilizer.New(w, stabilizer.Options{})
	require.NoError(t, s.Stabilize(context.Background()))

	dist := a.Pose.Position.Sub(b.Pose.Position).Length()
	require.GreaterOrEqual(t, dist, 1.0-1e-4)
}

func TestStabilizeNoOpWhenAlreadyFeasible(t *testing.T) {
	a := body.NewFreeBody(0, spatial.SphereInertia(1, 0.5))
	a.Pose.Position = spatial.NewVec3(0, 0, 0)
	b := body.NewFreeBody(1, spatial.SphereInertia(1, 0.5))
	b.Pose.Position = spatial.NewVec3(5, 0, 0)

	gA := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}
	gB := &geom.Geometry{ID: 1, BodyID: 1, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}

	reg := constraint.NewRegistry()
	reg.AddFree(a)
	reg.AddFree(b)

	w := &driver.World{
		Free:     []*body.RigidBody{a, b},
		Pairs:    []geom.GeomPair{{A: gA, B: gB}},
		Registry: reg,
	}

	s := stabilizer.New(w, stabilizer.Options{})
	require.NoError(t, s.Stabilize(context.Background()))
	require.InDelta(t, 5.0, b.Pose.Position.X, 1e-9)
}

func TestStabilizeClampsJointLimitViolation(t *testing.T) {
	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.Inertia{})
	a.AddLink(base)
	link := body.NewFreeBody(1, spatial.SphereInertia(1, 0.1))
	a.AddLink(link)
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 0, 1)}}, []float64{-0.1}, []float64{0.1})
	a.AddJoint(j)
	j.Q[0] = 0.2 // violates the upper limit by 0.1

	reg := constraint.NewRegistry()
	reg.AddArticulated(a)

	w := &driver.World{
		Articulated: []*body.Articulated{a},
		Registry:    reg,
	}

	s := stabilizer.New(w, stabilizer.Options{})
	require.NoError(t, s.Stabilize(context.Background()))
	require.LessOrEqual(t, j.Q[0], 0.1+1e-6)
}
