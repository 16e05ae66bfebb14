package constraint_test

import (
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/constraint"
	"github.com/nudtxiong/rbdcore/contact"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

func touchingSpheres() (*body.RigidBody, *body.RigidBody, *geom.Geometry, *geom.Geometry) {
	a := body.NewFreeBody(0, spatial.SphereInertia(1, 0.5))
	b := body.NewFreeBody(1, spatial.SphereInertia(2, 0.5))
	b.Pose.Position = spatial.NewVec3(1, 0, 0)

	ga := &geom.Geometry{ID: 0, BodyID: 0, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}
	gb := &geom.Geometry{ID: 1, BodyID: 1, Kind: geom.KindSphere, Offset: spatial.Identity(), Sphere: geom.Sphere{Radius: 0.5}}
	a.GeometryIDs = []int{0}
	b.GeometryIDs = []int{1}
	return a, b, ga, gb
}

func TestAssembleTouchingSpheresEffectiveMass(t *testing.T) {
	a, b, ga, gb := touchingSpheres()
	reg := constraint.NewRegistry()
	reg.AddFree(a)
	reg.AddFree(b)

	pose := func(id int) spatial.Pose {
		if id == 0 {
			return a.Pose
		}
		return b.Pose
	}
	facade := &geom.Facade{Pairs: []geom.GeomPair{{A: ga, B: gb}}, Pose: pose}
	pdis := facade.CalcPairwiseDistances()
	require.Len(t, pdis, 1)
	require.InDelta(t, 0, pdis[0].Dist, 1e-9)

	gen := &contact.Generator{Pose: pose, Epsilon: 1e-6}
	constraints := constraint.DiscoverContacts(gen, pdis, 1e-3)
	require.Len(t, constraints, 1)

	islands := constraint.Partition(constraints, reg.Lookup)
	require.Len(t, islands, 1)
	require.Len(t, islands[0].SuperBodies, 2)

	pds := constraint.Assemble(islands, reg)
	require.Len(t, pds, 1)
	pd := pds[0]
	require.Equal(t, 1, len(pd.Contacts))
	require.Equal(t, 12, pd.NGC) // two free bodies, 6 DOF each

	// Contact point sits on the line between the two centers, so the r x n
	// lever arm is zero for both bodies and the effective mass collapses to
	// the sum of the reciprocal masses: 1/1 + 1/2.
	require.InDelta(t, 1.5, pd.CnMCnT.At(0, 0), 1e-6)
}

func TestDiscoverLimitsFindsViolation(t *testing.T) {
	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.SphereInertia(1, 1))
	a.AddLink(base)
	link := body.NewFreeBody(1, spatial.SphereInertia(1, 0.1))
	a.AddLink(link)
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 1, 0)}}, []float64{-0.1}, []float64{0.1})
	j.Q[0] = 0.2
	a.AddJoint(j)

	limits := constraint.DiscoverLimits([]*body.Articulated{a})
	require.Len(t, limits, 1)
	require.Equal(t, body.Upper, limits[0].Side)
	require.InDelta(t, 0.1, limits[0].Violation, 1e-9)
}
