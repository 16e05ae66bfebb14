// Package spatial is the spatial-algebra facade: poses, twists, wrenches and
// spatial inertias expressed as frame-attached 6-vectors, plus the dense
// matrix types the rest of the core solves against. It plays the role the
// spec treats as an external collaborator; here it is a small concrete
// implementation grounded on gonum rather than a hand-rolled 3x3/4x4 kit.
package spatial

import "math"

// Vec3 is a 3-dimensional Euclidean vector.
type Vec3 struct {
	X, Y, Z float64
}

func NewVec3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalized returns the unit vector in the direction of v, and false if v is
// degenerate (zero-norm, within tol).
func (v Vec3) Normalized(tol float64) (Vec3, bool) {
	l := v.Length()
	if l <= tol {
		return Vec3{}, false
	}
	return v.Scale(1.0 / l), true
}
