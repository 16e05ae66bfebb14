package constraint

import "github.com/nudtxiong/rbdcore/body"

// Registry is the concrete Lookup provider: every free body and articulated
// body the simulator owns, indexed by the RigidBody.ID that geometries and
// joints reference. It is the arena-lookup layer spec.md §9's re-architecture
// guidance calls for in place of shared_ptr back-references.
type Registry struct {
	owner map[int]BodyRef
}

func NewRegistry() *Registry {
	return &Registry{owner: map[int]BodyRef{}}
}

func (r *Registry) AddFree(rb *body.RigidBody) {
	r.owner[rb.ID] = BodyRef{Free: rb}
}

func (r *Registry) AddArticulated(a *body.Articulated) {
	for idx, link := range a.Links {
		r.owner[link.ID] = BodyRef{Articulated: a, LinkIdx: idx}
	}
}

// Lookup implements the Lookup function type.
func (r *Registry) Lookup(bodyID int) (BodyRef, bool) {
	ref, ok := r.owner[bodyID]
	return ref, ok
}

// RigidBody returns the concrete link (or free body) this reference names.
func (ref BodyRef) RigidBody() *body.RigidBody {
	if ref.Articulated != nil {
		return ref.Articulated.Links[ref.LinkIdx]
	}
	return ref.Free
}

// DOF returns the super-body's generalized-coordinate count in the spatial
// (angular-velocity) encoding, the encoding problem-data assembly uses for
// NGC per spec.md §4.2.
func (ref BodyRef) DOF() int {
	if ref.Articulated != nil {
		return ref.Articulated.NumDOF()
	}
	return 6
}
