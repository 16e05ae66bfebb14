// Package constraint assembles the unilateral-constraint problem the LCP
// solver consumes: contact and joint-limit discovery, island partitioning
// over super-bodies, and per-island block-matrix problem data. Grounded on
// original_source/src/ConstraintStabilization.cpp's compute_problem_data /
// set_unilateral_constraint_data, re-expressed over the arena-indexed body
// model instead of shared_ptr DynamicBody graphs.
package constraint

import (
	"sort"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/contact"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
)

// Kind discriminates the two unilateral-constraint shapes the spec's data
// model names: a contact (two geometries, a point and normal) or a joint
// limit (one DOF of one joint, pinned to its upper or lower bound).
type Kind int

const (
	KindContact Kind = iota
	KindLimit
)

// Unilateral is the tagged union spec.md's data model calls out: a Contact
// fills GeomA/GeomB/Point/Normal/Gap; a Limit fills Joint/DOF/Side/Violation.
// TangentU/TangentV complete the contact's local tangent frame (the spec's
// data model names it even though this package's LCP rows are normal/limit
// only — friction resolution is a consumer of the frame, not assembled here).
type Unilateral struct {
	Kind Kind

	GeomA, GeomB     *geom.Geometry
	Point            spatial.Vec3
	Normal           spatial.Vec3
	TangentU, TangentV spatial.Vec3
	Gap              float64

	Articulated *body.Articulated
	Joint       *body.Joint
	DOF         int
	Side        body.Side
	Violation   float64
}

// tangentFrame builds an arbitrary right-handed basis (u,v) orthogonal to a
// unit normal, used to fill out a Contact's friction frame.
func tangentFrame(n spatial.Vec3) (spatial.Vec3, spatial.Vec3) {
	ref := spatial.NewVec3(1, 0, 0)
	if n.X > 0.9 || n.X < -0.9 {
		ref = spatial.NewVec3(0, 1, 0)
	}
	u, ok := ref.Sub(n.Scale(ref.Dot(n))).Normalized(1e-9)
	if !ok {
		u = spatial.NewVec3(0, 0, 1)
	}
	v := n.Cross(u)
	return u, v
}

// BodyRef resolves a geometry's owning body id to a free rigid body, or to
// an articulated link (non-nil Articulated and a valid link index). Exactly
// one of the two shapes applies for any live body id.
type BodyRef struct {
	Free       *body.RigidBody
	Articulated *body.Articulated
	LinkIdx    int
}

// Lookup maps the global body ids geom.Geometry.BodyID and joint outboard
// links reference back to the owning body, the facade the rest of this
// package depends on instead of a concrete "world" type.
type Lookup func(bodyID int) (BodyRef, bool)

// DiscoverContacts runs the contact generator over every near/penetrating
// PDI (|gap| <= eps, or gap < 0) and wraps the results as Contact
// constraints, per spec.md §4.2's "kissing or interpenetrating" rule.
func DiscoverContacts(gen *contact.Generator, pdis []geom.PDI, eps float64) []Unilateral {
	var out []Unilateral
	for _, pdi := range pdis {
		if pdi.Dist > eps {
			continue
		}
		cs := gen.Find(pdi.GeomA, pdi.GeomB)
		for _, c := range cs {
			u, v := tangentFrame(c.Normal)
			out = append(out, Unilateral{
				Kind: KindContact, GeomA: c.GeomA, GeomB: c.GeomB,
				Point: c.Point, Normal: c.Normal, TangentU: u, TangentV: v,
				Gap: pdi.Dist,
			})
		}
	}
	return out
}

// DiscoverLimits scans every joint DOF of every articulated body for a
// position limit violation, per spec.md §4.2's joint-limit discovery rule.
func DiscoverLimits(bodies []*body.Articulated) []Unilateral {
	var out []Unilateral
	for _, a := range bodies {
		for _, j := range a.Joints {
			for _, v := range j.LimitViolations() {
				out = append(out, Unilateral{
					Kind: KindLimit, Articulated: a, Joint: j, DOF: v.DOF, Side: v.Side, Violation: v.Magnitude,
				})
			}
		}
	}
	return out
}

// superBody is the stable key spec.md's glossary calls a "super-body": the
// articulated body containing a link, or the free body itself.
type superBody struct {
	Articulated int // -1 if this is a free body
	ID          int // Articulated.ID, or the free RigidBody's ID
}

func superBodyOf(ref BodyRef) superBody {
	if ref.Articulated != nil {
		return superBody{Articulated: ref.Articulated.ID, ID: ref.Articulated.ID}
	}
	return superBody{Articulated: -1, ID: ref.Free.ID}
}

// superBodies returns the super-bodies a constraint touches, resolved via
// lookup, in A-then-B order and not deduplicated (Partition deduplicates
// with sortedUnique). A constraint touching an
// unresolvable body id (e.g. a static/world geometry with no owning body)
// contributes no super-body for that side.
func superBodies(u Unilateral, lookup Lookup) []superBody {
	var out []superBody
	add := func(bodyID int) {
		if ref, ok := lookup(bodyID); ok {
			out = append(out, superBodyOf(ref))
		}
	}
	switch u.Kind {
	case KindContact:
		add(u.GeomA.BodyID)
		add(u.GeomB.BodyID)
	case KindLimit:
		out = append(out, superBody{Articulated: u.Articulated.ID, ID: u.Articulated.ID})
	}
	return out
}

func sortedUnique(sbs []superBody) []superBody {
	sort.Slice(sbs, func(i, j int) bool {
		if sbs[i].Articulated != sbs[j].Articulated {
			return sbs[i].Articulated < sbs[j].Articulated
		}
		return sbs[i].ID < sbs[j].ID
	})
	out := sbs[:0]
	for i, sb := range sbs {
		if i == 0 || sb != out[len(out)-1] {
			out = append(out, sb)
		}
	}
	return out
}
