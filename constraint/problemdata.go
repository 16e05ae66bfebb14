package constraint

import (
	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/rne"
	"github.com/nudtxiong/rbdcore/spatial"
	"gonum.org/v1/gonum/mat"
)

// ProblemData is the per-island block-matrix assembly spec.md §3/§4.2
// describes: the normal/limit effective-mass blocks, right-hand sides, and
// the index scheme (CN_IDX, L_IDX, ALPHA_X_IDX, N_VARS) that pins each
// constraint's row in the island's LCP.
type ProblemData struct {
	SuperBodies []superBody
	NGC         int

	Contacts []Unilateral
	Limits   []Unilateral

	CnMCnT *mat.Dense // NContacts x NContacts
	CnMLT  *mat.Dense // NContacts x NLimits
	LMLT   *mat.Dense // NLimits x NLimits

	CnV []float64 // signed gap per contact
	LV  []float64 // limit violation per DOF

	// N_CONSTRAINT_EQNS_IMP is reserved for implicit articulation-constraint
	// rows (spec.md §4.2); this core has no implicit-constraint source, so
	// it is always zero and ALPHA_X_IDX == N_VARS.
	CnIdx, LIdx, AlphaXIdx, NVars int
}

// jacobianLocal expresses the constraint-direction Jacobian row for an
// impulse applied at world point `point` along world direction `dir` to
// `rb`, in rb's own local (body) frame — matching the frame
// spatial.Inertia.DenseMatrix() is expressed in (about the body origin,
// with the center-of-mass offset folded into the matrix).
func jacobianLocal(rb *body.RigidBody, point, dir spatial.Vec3) spatial.Twist {
	conj := rb.Pose.Orientation.Conj()
	r := conj.Rotate(point.Sub(rb.Pose.Position))
	d := conj.Rotate(dir)
	return spatial.Twist{Angular: r.Cross(d), Linear: d}
}

// effMass is the effective-mass inner product j1^T*M^-1*j2 for a single free
// rigid body's 6x6 spatial inertia.
func effMass(rb *body.RigidBody, j1, j2 spatial.Twist) float64 {
	if rb.Inertia.Mass <= 0 {
		return 0 // infinite-mass / static body: zero impulse response
	}
	var Minv mat.Dense
	if err := Minv.Inverse(rb.Inertia.DenseMatrix()); err != nil {
		return 0
	}
	v1 := spatial.TwistVec(j1)
	v2 := spatial.TwistVec(j2)
	var tmp mat.VecDense
	tmp.MulVec(&Minv, v2)
	sum := 0.0
	for i := 0; i < 6; i++ {
		sum += v1.AtVec(i) * tmp.AtVec(i)
	}
	return sum
}

// massCache memoizes the expensive per-articulated-body work effective-mass
// assembly needs (the joint-space mass matrix inverse and a link's
// generalized-velocity Jacobian), since one island can touch the same
// Articulated through several contacts and limits at once.
type massCache struct {
	inv map[*body.Articulated]*mat.Dense
	jac map[jacKey][]spatial.Twist
}

type jacKey struct {
	a    *body.Articulated
	link int
}

func newMassCache() *massCache {
	return &massCache{inv: map[*body.Articulated]*mat.Dense{}, jac: map[jacKey][]spatial.Twist{}}
}

func (c *massCache) invMass(a *body.Articulated) *mat.Dense {
	if m, ok := c.inv[a]; ok {
		return m
	}
	M := rne.MassMatrix(a)
	n, _ := M.Dims()
	inv := newBlock(n, n)
	if n > 0 {
		if err := inv.Inverse(M); err != nil {
			inv = mat.NewDense(n, n, nil) // singular: treat as zero response
		}
	}
	c.inv[a] = inv
	return inv
}

// newBlock returns a zeroed r x c matrix, or an empty matrix when either
// dimension is zero (mat.NewDense panics on a zero dimension).
func newBlock(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, nil)
}

func (c *massCache) velocityJacobian(a *body.Articulated, linkIdx int) []spatial.Twist {
	key := jacKey{a, linkIdx}
	if v, ok := c.jac[key]; ok {
		return v
	}
	v := rne.LinkVelocityJacobian(a, linkIdx)
	c.jac[key] = v
	return v
}

// dofOffset is a joint's starting column/row within an articulated body's
// flattened generalized-velocity vector (a.Joints order).
func dofOffset(a *body.Articulated, jointID int) int {
	offset := 0
	for _, j := range a.Joints {
		if j.ID == jointID {
			return offset
		}
		offset += j.NumDOF()
	}
	return offset
}

// generalizedRow projects a link's per-DOF velocity Jacobian onto the
// world-space point/direction a contact or limit cares about: for each DOF,
// the resulting scalar closing velocity along dir at point.
func generalizedRow(jac []spatial.Twist, link *body.RigidBody, point, dir spatial.Vec3) []float64 {
	r := point.Sub(link.Pose.Position)
	out := make([]float64, len(jac))
	for k, tw := range jac {
		vAtPoint := tw.Linear.Add(tw.Angular.Cross(r))
		out[k] = vAtPoint.Dot(dir)
	}
	return out
}

// articulatedEffMass is the multi-link analogue of effMass: a contact or
// limit touching one link of a chain is resisted by the whole chain's
// joint-space mass matrix, not the link's own isolated inertia (Moby's
// ConstraintStabilization.cpp special-cases ArticulatedBodyPtr for exactly
// this reason — see DESIGN.md).
func articulatedEffMass(cache *massCache, a *body.Articulated, linkIdx int, p1, d1, p2, d2 spatial.Vec3) float64 {
	minv := cache.invMass(a)
	n, _ := minv.Dims()
	if n == 0 {
		return 0
	}
	link := a.Links[linkIdx]
	jac := cache.velocityJacobian(a, linkIdx)
	g1 := generalizedRow(jac, link, p1, d1)
	g2 := generalizedRow(jac, link, p2, d2)
	sum := 0.0
	for i := range g1 {
		if g1[i] == 0 {
			continue
		}
		for j := range g2 {
			if g2[j] == 0 {
				continue
			}
			sum += g1[i] * minv.At(i, j) * g2[j]
		}
	}
	return sum
}

// bodyEffMassTerm is one body's contribution to a contact self- or
// cross-term: free bodies via their own isolated inertia, articulated links
// via the whole chain's generalized mass matrix.
func bodyEffMassTerm(cache *massCache, reg *Registry, bodyID int, p1, d1, p2, d2 spatial.Vec3) float64 {
	ref, ok := reg.Lookup(bodyID)
	if !ok {
		return 0
	}
	if ref.Articulated == nil {
		rb := ref.RigidBody()
		j1 := jacobianLocal(rb, p1, d1)
		j2 := jacobianLocal(rb, p2, d2)
		return effMass(rb, j1, j2)
	}
	return articulatedEffMass(cache, ref.Articulated, ref.LinkIdx, p1, d1, p2, d2)
}

// contactEffMass is a contact's self-term Cn_iM_CnT(i,i): the sum of each
// touching body's impulse response along the contact normal (the sign each
// body's Jacobian carries cancels out in a self-term, since the quantity is
// quadratic in the Jacobian).
func contactEffMass(cache *massCache, reg *Registry, c Unilateral) float64 {
	sum := 0.0
	for _, bodyID := range [2]int{c.GeomA.BodyID, c.GeomB.BodyID} {
		sum += bodyEffMassTerm(cache, reg, bodyID, c.Point, c.Normal, c.Point, c.Normal)
	}
	return sum
}

// contactSign reports which side of contact c bodyID plays: +1 as GeomA,
// -1 as GeomB (the Jacobian direction each side's impulse response sees).
func contactSign(c Unilateral, bodyID int) (float64, bool) {
	switch bodyID {
	case c.GeomA.BodyID:
		return 1, true
	case c.GeomB.BodyID:
		return -1, true
	default:
		return 0, false
	}
}

// contactContactCross is a cross term Cn_iM_CnT(i,j), i != j: nonzero only
// through bodies the two contacts share (0, 1, or 2 of them).
func contactContactCross(cache *massCache, reg *Registry, a, b Unilateral) float64 {
	sum := 0.0
	for _, bodyID := range [2]int{a.GeomA.BodyID, a.GeomB.BodyID} {
		signA, _ := contactSign(a, bodyID)
		signB, ok := contactSign(b, bodyID)
		if !ok {
			continue
		}
		sum += signA * signB * bodyEffMassTerm(cache, reg, bodyID, a.Point, a.Normal, b.Point, b.Normal)
	}
	return sum
}

func limitOutboard(l Unilateral) *body.RigidBody {
	return l.Articulated.Links[l.Joint.ChildLink]
}

// limitDOFIndex is a joint limit's row/column within its articulated body's
// flattened generalized-velocity vector — the basis index a unit joint
// velocity at that DOF occupies, since a limit constrains a generalized
// coordinate directly rather than a world-space point.
func limitDOFIndex(l Unilateral) int {
	return dofOffset(l.Articulated, l.Joint.ID) + l.DOF
}

// limitEffMass is a joint limit's self-term L_iM_LT(i,i): the corresponding
// diagonal entry of the whole chain's generalized inverse mass matrix, not
// the outboard link's own isolated inertia — an impulse at one joint's limit
// is resisted by the entire chain through every joint between it and the
// base (Moby's ConstraintStabilization.cpp special-cases ArticulatedBodyPtr
// for exactly this reason — see DESIGN.md).
func limitEffMass(cache *massCache, l Unilateral) float64 {
	minv := cache.invMass(l.Articulated)
	n, _ := minv.Dims()
	k := limitDOFIndex(l)
	if n == 0 || k >= n {
		return 0
	}
	return minv.At(k, k)
}

// limitLimitCross is L_iM_LT(i,j) for distinct limits: the generalized
// inverse mass matrix's off-diagonal entry between the two limits' DOFs,
// zero only when the limits belong to different articulated bodies
// entirely (disjoint chains have no mass coupling).
func limitLimitCross(cache *massCache, a, b Unilateral) float64 {
	if a.Articulated != b.Articulated {
		return 0
	}
	minv := cache.invMass(a.Articulated)
	n, _ := minv.Dims()
	ka, kb := limitDOFIndex(a), limitDOFIndex(b)
	if n == 0 || ka >= n || kb >= n {
		return 0
	}
	return minv.At(ka, kb)
}

// contactLimitCross is Cn_iM_LT(i,j): nonzero only when the contact touches
// a link of the limit's articulated body, routed through that chain's
// generalized mass matrix the same way limitEffMass is.
func contactLimitCross(cache *massCache, reg *Registry, c, l Unilateral) float64 {
	outboard := limitOutboard(l)
	sign, ok := contactSign(c, outboard.ID)
	if !ok {
		return 0
	}
	ref, ok := reg.Lookup(outboard.ID)
	if !ok || ref.Articulated != l.Articulated {
		return 0
	}
	minv := cache.invMass(l.Articulated)
	n, _ := minv.Dims()
	k := limitDOFIndex(l)
	if n == 0 || k >= n {
		return 0
	}
	jac := cache.velocityJacobian(l.Articulated, ref.LinkIdx)
	g1 := generalizedRow(jac, outboard, c.Point, c.Normal)
	sum := 0.0
	for i := range g1 {
		if g1[i] == 0 {
			continue
		}
		sum += sign * g1[i] * minv.At(i, k)
	}
	return sum
}

// Assemble builds per-island problem data for every island spec.md §4.2
// describes: NGC, the effective-mass blocks (self and cross terms), and the
// right-hand sides, with limits kept in upper-triangle-then-mirrored form.
func Assemble(islands []Island, reg *Registry) []ProblemData {
	out := make([]ProblemData, len(islands))
	for i, isl := range islands {
		out[i] = assembleOne(isl, reg)
	}
	return out
}

func assembleOne(isl Island, reg *Registry) ProblemData {
	var pd ProblemData
	pd.SuperBodies = isl.SuperBodies
	cache := newMassCache()

	for _, c := range isl.Constraints {
		switch c.Kind {
		case KindContact:
			pd.Contacts = append(pd.Contacts, c)
		case KindLimit:
			pd.Limits = append(pd.Limits, c)
		}
	}

	for _, sb := range isl.SuperBodies {
		pd.NGC += superBodyDOF(sb, isl, reg)
	}

	nc, nl := len(pd.Contacts), len(pd.Limits)
	pd.CnMCnT = newBlock(nc, nc)
	pd.CnMLT = newBlock(nc, nl)
	pd.LMLT = newBlock(nl, nl)
	pd.CnV = make([]float64, nc)
	pd.LV = make([]float64, nl)

	for i, ci := range pd.Contacts {
		pd.CnV[i] = ci.Gap
		for j, cj := range pd.Contacts {
			if i == j {
				pd.CnMCnT.Set(i, j, contactEffMass(cache, reg, ci))
			} else if j > i {
				v := contactContactCross(cache, reg, ci, cj)
				pd.CnMCnT.Set(i, j, v)
				pd.CnMCnT.Set(j, i, v)
			}
		}
		for j, lj := range pd.Limits {
			pd.CnMLT.Set(i, j, contactLimitCross(cache, reg, ci, lj))
		}
	}

	for i, li := range pd.Limits {
		pd.LV[i] = li.Violation
		pd.LMLT.Set(i, i, limitEffMass(cache, li))
		for j := i + 1; j < nl; j++ {
			v := limitLimitCross(cache, li, pd.Limits[j])
			pd.LMLT.Set(i, j, v)
			pd.LMLT.Set(j, i, v)
		}
	}

	pd.CnIdx = 0
	pd.LIdx = pd.CnIdx + nc
	pd.AlphaXIdx = pd.LIdx + nl
	pd.NVars = pd.AlphaXIdx // no implicit-constraint rows in this core
	return pd
}

// superBodyDOF resolves one super-body's generalized-coordinate count by
// finding any constraint in the island that names it.
func superBodyDOF(sb superBody, isl Island, reg *Registry) int {
	for _, c := range isl.Constraints {
		switch c.Kind {
		case KindContact:
			for _, bodyID := range [2]int{c.GeomA.BodyID, c.GeomB.BodyID} {
				if ref, ok := reg.Lookup(bodyID); ok && superBodyOf(ref) == sb {
					return ref.DOF()
				}
			}
		case KindLimit:
			if sbOf := (superBody{Articulated: c.Articulated.ID, ID: c.Articulated.ID}); sbOf == sb {
				return c.Articulated.NumDOF()
			}
		}
	}
	return 0
}
