package spatial

import "gonum.org/v1/gonum/mat"

// Inertia is a frame-attached rigid-body spatial inertia: mass, center of
// mass offset from the body frame origin, and the 3x3 rotational inertia
// tensor about that center of mass.
type Inertia struct {
	Mass   float64
	Com    Vec3
	Tensor mat.SymDense // 3x3, about Com
}

func NewInertia(mass float64, com Vec3, ixx, iyy, izz, ixy, ixz, iyz float64) Inertia {
	t := mat.NewSymDense(3, []float64{
		ixx, ixy, ixz,
		ixy, iyy, iyz,
		ixz, iyz, izz,
	})
	return Inertia{Mass: mass, Com: com, Tensor: *t}
}

func SphereInertia(mass, radius float64) Inertia {
	i := 0.4 * mass * radius * radius
	return NewInertia(mass, Vec3{}, i, i, i, 0, 0, 0)
}

func BoxInertia(mass, sx, sy, sz float64) Inertia {
	ixx := mass / 12 * (sy*sy + sz*sz)
	iyy := mass / 12 * (sx*sx + sz*sz)
	izz := mass / 12 * (sx*sx + sy*sy)
	return NewInertia(mass, Vec3{}, ixx, iyy, izz, 0, 0, 0)
}

func skew(v Vec3) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// Apply computes the spatial momentum I*v for a twist v, using the standard
// rigid-body spatial inertia product:
//
//	h_angular = Ibar*w - m * c x (c x w) + m * c x v
//	h_linear  = m*v - m * c x w
func (in Inertia) Apply(t Twist) Twist {
	c := in.Com
	m := in.Mass

	var Iw mat.VecDense
	w := mat.NewVecDense(3, []float64{t.Angular.X, t.Angular.Y, t.Angular.Z})
	Iw.MulVec(&in.Tensor, w)
	angular := Vec3{Iw.AtVec(0), Iw.AtVec(1), Iw.AtVec(2)}.Sub(c.Cross(c.Cross(t.Angular)).Scale(m)).Add(c.Cross(t.Linear).Scale(m))
	linear := t.Linear.Scale(m).Sub(c.Cross(t.Angular).Scale(m))
	return Twist{Angular: angular, Linear: linear}
}

// ApplyWrench applies the spatial inertia as a momentum->wrench map (they
// share representation in a frame-attached formulation, so this is Apply
// with wrench semantics on the result).
func (in Inertia) ApplyWrench(t Twist) Wrench {
	h := in.Apply(t)
	return Wrench{Torque: h.Angular, Force: h.Linear}
}

// DenseMatrix returns the 6x6 spatial inertia matrix
//
//	[ Ibar - m*skew(c)*skew(c)   m*skew(c) ]
//	[ -m*skew(c)                 m*I3      ]
//
// in (angular;linear) block order, for use by the LCP/stabilizer assembly.
func (in Inertia) DenseMatrix() *mat.Dense {
	m := in.Mass
	sc := skew(in.Com)
	var scsc mat.Dense
	scsc.Mul(sc, sc)

	out := mat.NewDense(6, 6, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.Set(r, c, in.Tensor.At(r, c)-m*scsc.At(r, c))
			out.Set(r, c+3, m*sc.At(r, c))
			out.Set(r+3, c, -m*sc.At(r, c))
		}
		out.Set(r+3, r+3, m)
	}
	return out
}
