package geom_test

import (
	"testing"

	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

func identityPose(id int) spatial.Pose { return spatial.Identity() }

func TestSphereSphereSymmetricUnderSwap(t *testing.T) {
	a := &geom.Geometry{ID: 1, Kind: geom.KindSphere, Sphere: geom.Sphere{Radius: 0.5},
		Offset: spatial.Pose{Position: spatial.NewVec3(0, 0, 0), Orientation: spatial.IdentityOrientation()}}
	b := &geom.Geometry{ID: 2, Kind: geom.KindSphere, Sphere: geom.Sphere{Radius: 0.5},
		Offset: spatial.Pose{Position: spatial.NewVec3(1.2, 0, 0), Orientation: spatial.IdentityOrientation()}}

	f := &geom.Facade{Pose: identityPose}
	dAB, pA, pB := f.CalcSignedDist(a, b)
	dBA, pB2, pA2 := f.CalcSignedDist(b, a)

	require.InDelta(t, dAB, dBA, 1e-9)
	require.InDelta(t, pA.X, pA2.X, 1e-9)
	require.InDelta(t, pB.X, pB2.X, 1e-9)
}

func TestSphereOnPlaneSignedDistance(t *testing.T) {
	plane := &geom.Geometry{ID: 1, Kind: geom.KindPlane, Plane: geom.Plane{Normal: spatial.NewVec3(0, 1, 0)},
		Offset: spatial.Identity()}
	sphere := &geom.Geometry{ID: 2, Kind: geom.KindSphere, Sphere: geom.Sphere{Radius: 0.5},
		Offset: spatial.Pose{Position: spatial.NewVec3(0, 2, 0), Orientation: spatial.IdentityOrientation()}}

	f := &geom.Facade{Pose: identityPose}
	dist, _, _ := f.CalcSignedDist(plane, sphere)
	require.InDelta(t, 1.5, dist, 1e-9)
}

func TestHeightmapFlatGroundMatchesPlane(t *testing.T) {
	hm := &geom.Heightmap{Heights: [][]float64{{0, 0}, {0, 0}}, CellSize: 1}
	hmGeom := &geom.Geometry{ID: 1, Kind: geom.KindHeightmap, Heightmap: hm, Offset: spatial.Identity()}
	sphere := &geom.Geometry{ID: 2, Kind: geom.KindSphere, Sphere: geom.Sphere{Radius: 0.5},
		Offset: spatial.Pose{Position: spatial.NewVec3(0, 1, 0), Orientation: spatial.IdentityOrientation()}}

	f := &geom.Facade{Pose: identityPose}
	dist, _, _ := f.CalcSignedDist(hmGeom, sphere)
	require.InDelta(t, 0.5, dist, 1e-9)
}
