package driver_test

import (
	"context"
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/constraint"
	"github.com/nudtxiong/rbdcore/driver"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

func TestStepEmptyWorldAdvancesTimeOnly(t *testing.T) {
	w := &driver.World{Registry: constraint.NewRegistry()}
	d := driver.New(w, driver.Options{})

	require.NoError(t, d.Step(context.Background(), 0.1, nil))
	require.InDelta(t, 0.1, d.Time, 1e-12)
}

func TestStepFreeFallingSphereSettlesOnPlane(t *testing.T) {
	sphere := body.NewFreeBody(0, spatial.SphereInertia(1, 0.5))
	sphere.Pose.Position = spatial.NewVec3(0, 1.0, 0)
	sphere.ExternalWrench = spatial.Wrench{Force: spatial.NewVec3(0, -9.81, 0)}

	plane := body.NewFreeBody(1, spatial.Inertia{}) // mass 0: static
	plane.Pose = spatial.Identity()

	gSphere := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}
	gPlane := &geom.Geometry{ID: 1, BodyID: 1, Kind: geom.KindPlane, Offset: spatial.Identity(), Plane: geom.Plane{Normal: spatial.NewVec3(0, 1, 0), Offset: 0}}

	reg := constraint.NewRegistry()
	reg.AddFree(sphere)
	reg.AddFree(plane)

	w := &driver.World{
		Free:     []*body.RigidBody{sphere, plane},
		Pairs:    []geom.GeomPair{{A: gSphere, B: gPlane}},
		Registry: reg,
	}
	d := driver.New(w, driver.Options{MinStepSize: 1e-4, ContactDistThresh: 1e-2})

	ctx := context.Background()
	dt := 1e-2
	for i := 0; i < 300; i++ {
		require.NoError(t, d.Step(ctx, dt, nil))
		// Re-apply gravity: the driver integrates existing ExternalWrench each
		// mini-step but never clears/reapplies it itself (that bookkeeping is
		// sim's job); keep it simple here and just rely on the initial value
		// persisting, since Driver never zeroes ExternalWrench between steps.
	}

	require.GreaterOrEqual(t, sphere.Pose.Position.Y, 0.5-1e-2)
	require.LessOrEqual(t, sphere.Pose.Position.Y, 0.5+0.05)
}
