package spatial

// Pose is a rigid transform (position + orientation) in SE(3).
type Pose struct {
	Position    Vec3
	Orientation Orientation
}

func Identity() Pose {
	return Pose{Orientation: IdentityOrientation()}
}

// Transform maps a point expressed in this pose's local frame into the
// parent frame: p_world = R*p_local + t.
func (p Pose) Transform(local Vec3) Vec3 {
	return p.Orientation.Rotate(local).Add(p.Position)
}

// InverseTransform maps a point expressed in the parent frame back into this
// pose's local frame.
func (p Pose) InverseTransform(world Vec3) Vec3 {
	return p.Orientation.Conj().Rotate(world.Sub(p.Position))
}

// Compose returns p * other: the pose equivalent to applying `other` first
// and then `p`.
func (p Pose) Compose(other Pose) Pose {
	return Pose{
		Position:    p.Transform(other.Position),
		Orientation: p.Orientation.Mul(other.Orientation),
	}
}

func (p Pose) Inverse() Pose {
	inv := p.Orientation.Conj()
	return Pose{
		Position:    inv.Rotate(p.Position.Neg()),
		Orientation: inv,
	}
}

// Twist is a frame-attached 6-vector: angular velocity w then linear velocity v.
type Twist struct {
	Angular Vec3
	Linear  Vec3
}

func (t Twist) Add(o Twist) Twist {
	return Twist{Angular: t.Angular.Add(o.Angular), Linear: t.Linear.Add(o.Linear)}
}

func (t Twist) Sub(o Twist) Twist {
	return Twist{Angular: t.Angular.Sub(o.Angular), Linear: t.Linear.Sub(o.Linear)}
}

func (t Twist) Scale(s float64) Twist {
	return Twist{Angular: t.Angular.Scale(s), Linear: t.Linear.Scale(s)}
}

// SpatialCross computes the spatial (Lie bracket) cross product of two
// twists, used by RNE to accumulate Coriolis/centrifugal terms:
// v x* w = (wv x ww, wv x wl + wl x ww).
func SpatialCross(v, w Twist) Twist {
	return Twist{
		Angular: v.Angular.Cross(w.Angular),
		Linear:  v.Angular.Cross(w.Linear).Add(v.Linear.Cross(w.Angular)),
	}
}

// TwistCrossWrench computes the dual spatial cross product v x* h, used by
// RNE to form the Coriolis/centrifugal wrench term v x* (I*v):
// (w x n + u x f, w x f).
func TwistCrossWrench(v Twist, h Wrench) Wrench {
	return Wrench{
		Torque: v.Angular.Cross(h.Torque).Add(v.Linear.Cross(h.Force)),
		Force:  v.Angular.Cross(h.Force),
	}
}

// Wrench is a frame-attached 6-vector: torque then force.
type Wrench struct {
	Torque Vec3
	Force  Vec3
}

func (w Wrench) Add(o Wrench) Wrench {
	return Wrench{Torque: w.Torque.Add(o.Torque), Force: w.Force.Add(o.Force)}
}

func (w Wrench) Sub(o Wrench) Wrench {
	return Wrench{Torque: w.Torque.Sub(o.Torque), Force: w.Force.Sub(o.Force)}
}

func (w Wrench) Neg() Wrench {
	return Wrench{Torque: w.Torque.Neg(), Force: w.Force.Neg()}
}

// TransformForward transports a twist expressed in the parent frame into the
// child frame defined by `pose` (the child's pose relative to the parent).
func (p Pose) TransformForward(t Twist) Twist {
	local := p.Orientation.Conj()
	angular := local.Rotate(t.Angular)
	// v' = R^T (v - w x r), r = translation from parent origin to child origin
	linear := local.Rotate(t.Linear.Sub(t.Angular.Cross(p.Position)))
	return Twist{Angular: angular, Linear: linear}
}

// TransformBackward is the inverse of TransformForward: a twist expressed in
// the child frame is mapped back into the parent frame.
func (p Pose) TransformBackward(t Twist) Twist {
	angular := p.Orientation.Rotate(t.Angular)
	linear := p.Orientation.Rotate(t.Linear).Add(angular.Cross(p.Position))
	return Twist{Angular: angular, Linear: linear}
}

// WrenchTransformForward transports a wrench from parent frame to child frame.
func (p Pose) WrenchTransformForward(f Wrench) Wrench {
	local := p.Orientation.Conj()
	force := local.Rotate(f.Force)
	torque := local.Rotate(f.Torque.Sub(p.Position.Cross(f.Force)))
	return Wrench{Torque: torque, Force: force}
}

// WrenchTransformBackward transports a wrench from child frame to parent frame.
func (p Pose) WrenchTransformBackward(f Wrench) Wrench {
	force := p.Orientation.Rotate(f.Force)
	torque := p.Orientation.Rotate(f.Torque).Add(p.Position.Cross(force))
	return Wrench{Torque: torque, Force: force}
}
