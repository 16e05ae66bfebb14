package spatial

import "gonum.org/v1/gonum/mat"

// TwistVec flattens a twist to a 6-length dense vector (angular;linear).
func TwistVec(t Twist) *mat.VecDense {
	return mat.NewVecDense(6, []float64{
		t.Angular.X, t.Angular.Y, t.Angular.Z,
		t.Linear.X, t.Linear.Y, t.Linear.Z,
	})
}

// VecTwist is the inverse of TwistVec.
func VecTwist(v mat.Vector) Twist {
	return Twist{
		Angular: Vec3{v.AtVec(0), v.AtVec(1), v.AtVec(2)},
		Linear:  Vec3{v.AtVec(3), v.AtVec(4), v.AtVec(5)},
	}
}

func WrenchVec(f Wrench) *mat.VecDense {
	return mat.NewVecDense(6, []float64{
		f.Torque.X, f.Torque.Y, f.Torque.Z,
		f.Force.X, f.Force.Y, f.Force.Z,
	})
}

func VecWrench(v mat.Vector) Wrench {
	return Wrench{
		Torque: Vec3{v.AtVec(0), v.AtVec(1), v.AtVec(2)},
		Force:  Vec3{v.AtVec(3), v.AtVec(4), v.AtVec(5)},
	}
}

// AxisMatrix stacks d spatial-axis twists into a 6xd dense matrix, the
// "spatial axis matrix s" of spec.md's Joint data model.
func AxisMatrix(axes []Twist) *mat.Dense {
	m := mat.NewDense(6, len(axes), nil)
	for j, a := range axes {
		col := TwistVec(a)
		for r := 0; r < 6; r++ {
			m.Set(r, j, col.AtVec(r))
		}
	}
	return m
}
