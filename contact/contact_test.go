package contact_test

import (
	"testing"

	"github.com/nudtxiong/rbdcore/contact"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

func identityPose(id int) spatial.Pose {
	switch id {
	case 0:
		return spatial.Pose{Position: spatial.NewVec3(0, 0, 0), Orientation: spatial.IdentityOrientation()}
	case 1:
		return spatial.Pose{Position: spatial.NewVec3(0.8, 0, 0), Orientation: spatial.IdentityOrientation()}
	default:
		return spatial.Identity()
	}
}

func sphereGeom(id, bodyID int, r float64) *geom.Geometry {
	return &geom.Geometry{ID: id, BodyID: bodyID, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: r}}
}

func TestSphereSphereSymmetricUnderSwap(t *testing.T) {
	g := &contact.Generator{Pose: identityPose, Epsilon: 1e-4}
	a := sphereGeom(0, 0, 0.5)
	b := sphereGeom(1, 1, 0.5)

	ab := g.Find(a, b)
	ba := g.Find(b, a)
	require.Len(t, ab, 1)
	require.Len(t, ba, 1)

	require.InDelta(t, ab[0].Point.X, ba[0].Point.X, 1e-9)
	require.InDelta(t, ab[0].Point.Y, ba[0].Point.Y, 1e-9)
	require.InDelta(t, ab[0].Point.Z, ba[0].Point.Z, 1e-9)
	require.InDelta(t, ab[0].Normal.X, -ba[0].Normal.X, 1e-9)
}

func TestSphereSphereSeparatedYieldsNoContact(t *testing.T) {
	g := &contact.Generator{Pose: identityPose, Epsilon: 1e-4}
	a := sphereGeom(0, 0, 0.1)
	b := sphereGeom(1, 1, 0.1)
	require.Empty(t, g.Find(a, b))
}

func TestPlaneGenericEmitsContactWithinEpsilon(t *testing.T) {
	g := &contact.Generator{Pose: func(id int) spatial.Pose { return spatial.Identity() }, Epsilon: 1e-3}

	plane := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindPlane, Offset: spatial.Identity(),
		Plane: geom.Plane{Normal: spatial.NewVec3(0, 1, 0), Offset: 0}}
	box := &geom.Geometry{ID: 1, BodyID: 1, Kind: geom.KindBox, Offset: spatial.Pose{
		Position: spatial.NewVec3(0, 0.5, 0), Orientation: spatial.IdentityOrientation(),
	}, Box: geom.Box{HalfExtents: spatial.NewVec3(0.5, 0.5, 0.5)}}

	out := g.Find(plane, box)
	require.Len(t, out, 4) // four bottom corners resting exactly on the plane
	for _, c := range out {
		require.InDelta(t, 0, c.Normal.X, 1e-9)
		require.InDelta(t, -1, c.Normal.Y, 1e-9) // from the box (B) into the plane (A)
	}
}
