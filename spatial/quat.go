package spatial

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Orientation wraps a unit quaternion, grounded on gonum's num/quat package
// the way viamrobotics-rdk's spatialmath package does.
type Orientation struct {
	Q quat.Number
}

func IdentityOrientation() Orientation {
	return Orientation{Q: quat.Number{Real: 1}}
}

// OrientationFromComponents builds an Orientation from raw (w,x,y,z)
// quaternion components, e.g. when deserializing Euler-encoded generalized
// coordinates.
func OrientationFromComponents(w, x, y, z float64) Orientation {
	return Orientation{Q: quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}}
}

func OrientationFromAxisAngle(axis Vec3, angle float64) Orientation {
	n, ok := axis.Normalized(1e-12)
	if !ok {
		return IdentityOrientation()
	}
	half := angle / 2
	s := math.Sin(half)
	return Orientation{Q: quat.Number{
		Real: math.Cos(half),
		Imag: n.X * s,
		Jmag: n.Y * s,
		Kmag: n.Z * s,
	}}
}

func (o Orientation) Normalize() Orientation {
	return Orientation{Q: quat.Scale(1/quat.Abs(o.Q), o.Q)}
}

func (o Orientation) Mul(other Orientation) Orientation {
	return Orientation{Q: quat.Mul(o.Q, other.Q)}
}

func (o Orientation) Conj() Orientation {
	return Orientation{Q: quat.Conj(o.Q)}
}

// Rotate applies the orientation to v: q * (0,v) * q^-1.
func (o Orientation) Rotate(v Vec3) Vec3 {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(o.Q, p), quat.Conj(o.Q))
	return Vec3{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Integrate advances the orientation by angular velocity w over dt using the
// standard quaternion derivative qdot = 0.5 * (0,w) * q, then renormalizes.
func (o Orientation) Integrate(w Vec3, dt float64) Orientation {
	wq := quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}
	dq := quat.Scale(0.5*dt, quat.Mul(wq, o.Q))
	sum := quat.Add(o.Q, dq)
	return Orientation{Q: sum}.Normalize()
}
