package body_test

import (
	"testing"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/require"
)

func makeSingleLinkArm() *body.Articulated {
	a := body.NewArticulated(0, false)
	base := body.NewFreeBody(0, spatial.SphereInertia(1, 1))
	a.AddLink(base)
	link := body.NewFreeBody(1, spatial.SphereInertia(1, 0.1))
	a.AddLink(link)
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: spatial.NewVec3(0, 0, 1)}}, []float64{-1}, []float64{1})
	a.AddJoint(j)
	return a
}

func TestGeneralizedCoordinatesRoundTrip(t *testing.T) {
	a := makeSingleLinkArm()
	a.Joints[0].Q[0] = 0.42

	q := a.GeneralizedCoordinates(body.EncodingEuler)
	a.SetGeneralizedCoordinates(body.EncodingEuler, q)
	q2 := a.GeneralizedCoordinates(body.EncodingEuler)

	require.Equal(t, q, q2)
}

func TestLimitViolations(t *testing.T) {
	a := makeSingleLinkArm()
	a.Joints[0].Q[0] = 1.5
	v := a.Joints[0].LimitViolations()
	require.Len(t, v, 1)
	require.Equal(t, body.Upper, v[0].Side)
	require.InDelta(t, 0.5, v[0].Magnitude, 1e-9)
}

func TestTimeToLimit(t *testing.T) {
	a := makeSingleLinkArm()
	a.Joints[0].Q[0] = 0.0
	a.Joints[0].Qd[0] = 1.0
	tt := a.Joints[0].TimeToLimit()
	require.InDelta(t, 1.0, tt, 1e-9)
}
