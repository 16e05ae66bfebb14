package body

import "github.com/nudtxiong/rbdcore/spatial"

// Articulated is a tree of links connected by joints: Links has length L, one
// root ("base") at index 0, each non-root link has exactly one inbound
// joint. The base may be fixed or floating.
type Articulated struct {
	ID     int
	Links  []*RigidBody
	Joints []*Joint

	// Children[i] lists the link indices whose inbound joint's parent is
	// link i, the arena-indexed replacement for child/parent pointer chains.
	Children [][]int

	FloatingBase bool

	// BaseVelocity/BaseAcceleration hold the 6-DOF floating-base state; unused
	// when FloatingBase is false.
	BaseVelocity     spatial.Twist
	BaseAcceleration spatial.Twist
}

func NewArticulated(id int, floating bool) *Articulated {
	return &Articulated{ID: id, FloatingBase: floating}
}

// AddLink appends a link to the arena and returns its index.
func (a *Articulated) AddLink(rb *RigidBody) int {
	idx := len(a.Links)
	rb.Articulation = a.ID
	rb.ParentLinkIdx = -1
	rb.InboardJoint = -1
	a.Links = append(a.Links, rb)
	a.Children = append(a.Children, nil)
	return idx
}

// AddJoint connects parent -> child and records the inbound-joint/parent
// bookkeeping on the child link.
func (a *Articulated) AddJoint(j *Joint) int {
	idx := len(a.Joints)
	a.Joints = append(a.Joints, j)
	a.Links[j.ChildLink].InboardJoint = idx
	a.Links[j.ChildLink].ParentLinkIdx = j.ParentLink
	a.Children[j.ParentLink] = append(a.Children[j.ParentLink], j.ChildLink)
	return idx
}

func (a *Articulated) Base() *RigidBody { return a.Links[0] }

func (a *Articulated) IsBase(linkIdx int) bool { return linkIdx == 0 }

func (a *Articulated) NumDOF() int {
	n := 0
	for _, j := range a.Joints {
		n += j.NumDOF()
	}
	if a.FloatingBase {
		n += 6
	}
	return n
}

// NumGeneralizedCoordinates returns the length of the concatenated
// generalized-coordinate vector for the given encoding: for Euler encoding
// the floating base contributes 7 (position + quaternion) instead of 6.
func (a *Articulated) NumGeneralizedCoordinates(enc Encoding) int {
	n := 0
	for _, j := range a.Joints {
		n += j.NumDOF()
	}
	if a.FloatingBase {
		if enc == EncodingEuler {
			n += 7
		} else {
			n += 6
		}
	}
	return n
}

// GeneralizedCoordinates concatenates q's in link-index order (the link
// whose inbound joint index is i contributes its Q), optionally preceded by
// the floating base's pose.
func (a *Articulated) GeneralizedCoordinates(enc Encoding) []float64 {
	out := make([]float64, 0, a.NumGeneralizedCoordinates(enc))
	if a.FloatingBase {
		base := a.Base()
		if enc == EncodingEuler {
			out = append(out, base.Pose.Position.X, base.Pose.Position.Y, base.Pose.Position.Z,
				base.Pose.Orientation.Q.Real, base.Pose.Orientation.Q.Imag,
				base.Pose.Orientation.Q.Jmag, base.Pose.Orientation.Q.Kmag)
		} else {
			v := a.BaseVelocity
			out = append(out, v.Angular.X, v.Angular.Y, v.Angular.Z, v.Linear.X, v.Linear.Y, v.Linear.Z)
		}
	}
	for _, j := range a.Joints {
		out = append(out, j.Q...)
	}
	return out
}

// SetGeneralizedCoordinates is the inverse of GeneralizedCoordinates.
func (a *Articulated) SetGeneralizedCoordinates(enc Encoding, v []float64) {
	idx := 0
	if a.FloatingBase {
		base := a.Base()
		if enc == EncodingEuler {
			base.Pose.Position = spatial.NewVec3(v[0], v[1], v[2])
			base.Pose.Orientation = spatial.OrientationFromComponents(v[3], v[4], v[5], v[6]).Normalize()
			idx = 7
		} else {
			a.BaseVelocity = spatial.Twist{
				Angular: spatial.NewVec3(v[0], v[1], v[2]),
				Linear:  spatial.NewVec3(v[3], v[4], v[5]),
			}
			idx = 6
		}
	}
	for _, j := range a.Joints {
		d := j.NumDOF()
		copy(j.Q, v[idx:idx+d])
		idx += d
	}
}

func (a *Articulated) GeneralizedVelocity() []float64 {
	out := make([]float64, 0, a.NumDOF())
	if a.FloatingBase {
		v := a.BaseVelocity
		out = append(out, v.Angular.X, v.Angular.Y, v.Angular.Z, v.Linear.X, v.Linear.Y, v.Linear.Z)
	}
	for _, j := range a.Joints {
		out = append(out, j.Qd...)
	}
	return out
}

func (a *Articulated) SetGeneralizedVelocity(v []float64) {
	idx := 0
	if a.FloatingBase {
		a.BaseVelocity = spatial.Twist{
			Angular: spatial.NewVec3(v[0], v[1], v[2]),
			Linear:  spatial.NewVec3(v[3], v[4], v[5]),
		}
		idx = 6
	}
	for _, j := range a.Joints {
		d := j.NumDOF()
		copy(j.Qd, v[idx:idx+d])
		idx += d
	}
}
