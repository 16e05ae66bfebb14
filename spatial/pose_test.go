package spatial_test

import (
	"math"
	"testing"

	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoseTransformRoundTrip(t *testing.T) {
	p := spatial.Pose{
		Position:    spatial.NewVec3(1, 2, 3),
		Orientation: spatial.OrientationFromAxisAngle(spatial.NewVec3(0, 0, 1), math.Pi/3),
	}
	local := spatial.NewVec3(0.5, -0.25, 2.0)
	world := p.Transform(local)
	back := p.InverseTransform(world)

	require.InDelta(t, local.X, back.X, 1e-9)
	require.InDelta(t, local.Y, back.Y, 1e-9)
	require.InDelta(t, local.Z, back.Z, 1e-9)
}

func TestOrientationIntegratePreservesUnitNorm(t *testing.T) {
	o := spatial.IdentityOrientation()
	w := spatial.NewVec3(0.1, 0.2, -0.3)
	for i := 0; i < 1000; i++ {
		o = o.Integrate(w, 0.001)
	}
	assert.InDelta(t, 1.0, quatNorm(o), 1e-6)
}

func quatNorm(o spatial.Orientation) float64 {
	q := o.Q
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

func TestSpatialCrossZeroWhenParallel(t *testing.T) {
	v := spatial.Twist{Angular: spatial.NewVec3(1, 0, 0), Linear: spatial.NewVec3(0, 0, 0)}
	c := spatial.SpatialCross(v, v)
	assert.Equal(t, spatial.Vec3{}, c.Angular)
}
