package rne_test

import (
	"math"
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/rne"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

func TestFreeBodyAccelGravityOnly(t *testing.T) {
	rb := body.NewFreeBody(0, spatial.SphereInertia(2, 0.5))
	rb.ExternalWrench = spatial.Wrench{Force: spatial.NewVec3(0, -2*9.81, 0)}

	a := rne.FreeBodyAccel(rb)
	require.InDelta(t, -9.81, a.Linear.Y, 1e-9)
	require.InDelta(t, 0, a.Angular.Length(), 1e-12)
}

func TestForwardDynamicsSingleRevoluteReturnsNonNaNAccel(t *testing.T) {
	// Single revolute link, axis (0,0,1), mass 1, sphere inertia about its
	// own com at the joint: zero torque in, zero velocity, no external
	// force. A sanity check that ForwardDynamics round-trips through
	// FixedBase and returns one non-NaN acceleration without blowing up.
	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.Inertia{})
	a.AddLink(base)
	link := body.NewFreeBody(1, spatial.SphereInertia(1, 0.1))
	a.AddLink(link)
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 0, 1)}}, []float64{-10}, []float64{10})
	a.AddJoint(j)

	qdd := rne.ForwardDynamics(a, []float64{0})
	require.Len(t, qdd, 1)
	require.False(t, math.IsNaN(qdd[0]))
}
