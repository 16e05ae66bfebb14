// Package stabilizer implements the post-step constraint projection loop:
// push interpenetrating geometry pairs and violated joint limits back onto
// the feasible manifold without touching velocities. Grounded on
// original_source/src/ConstraintStabilization.cpp's stabilize /
// determine_dq / update_q.
package stabilizer

import (
	"context"
	"math"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/constraint"
	"github.com/nudtxiong/rbdcore/contact"
	"github.com/nudtxiong/rbdcore/driver"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/lcp"
	"github.com/nudtxiong/rbdcore/simerr"
	"github.com/nudtxiong/rbdcore/spatial"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Options configures the stabilizer's feasibility tolerance, line-search
// constants, and LCP numerics (spec.md §4.6/§6).
type Options struct {
	Eps      float64 // minimum acceptable gap before the loop stops
	Alpha    float64 // Armijo-lite acceptance slope
	Beta     float64 // backtracking shrink factor
	MinT     float64 // underflow floor for the line-search step
	MaxIters int

	LCPMinExp, LCPStepExp, LCPMaxExp int
	PivTol, ZeroTol                  float64

	Logger *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.Eps == 0 {
		o.Eps = 1e-6
	}
	if o.Alpha == 0 {
		o.Alpha = 0.05
	}
	if o.Beta == 0 {
		o.Beta = 0.8
	}
	if o.MinT == 0 {
		o.MinT = 1e-10
	}
	if o.MaxIters == 0 {
		o.MaxIters = 50
	}
	if o.LCPMinExp == 0 && o.LCPStepExp == 0 && o.LCPMaxExp == 0 {
		o.LCPMinExp, o.LCPStepExp, o.LCPMaxExp = -20, 4, -4
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// Stabilizer iteratively projects a driver.World's configuration onto the
// feasible manifold (spec.md §4.6).
type Stabilizer struct {
	World *driver.World
	Gen   *contact.Generator
	Opts  Options
}

func New(w *driver.World, opts Options) *Stabilizer {
	opts = opts.withDefaults()
	return &Stabilizer{World: w, Gen: &contact.Generator{Pose: w.Pose, Epsilon: opts.Eps}, Opts: opts}
}

// Stabilize runs the projection loop until the minimum pairwise gap is
// non-negative (within Eps) and no joint limit is violated, or until the
// iteration cap or the line-search step-size floor is hit. Convergence is
// not guaranteed, per spec.md §4.6 — this mirrors the original's own
// unproved-termination acknowledgement.
func (s *Stabilizer) Stabilize(ctx context.Context) error {
	facade := &geom.Facade{Pairs: s.World.Pairs, Pose: s.World.Pose}

	for iter := 0; iter < s.Opts.MaxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pdis := facade.CalcPairwiseDistances()
		limits := constraint.DiscoverLimits(s.World.Articulated)
		s0 := violationMeasure(pdis, limits)
		if s0 <= s.Opts.Eps {
			s.Opts.Logger.Debugw("stabilizer: converged", "iter", iter, "violation", s0)
			return nil
		}

		contacts := constraint.DiscoverContacts(s.Gen, pdis, math.Inf(1))
		cs := append(append([]constraint.Unilateral{}, contacts...), limits...)
		if len(cs) == 0 {
			return nil // no constraint data to project against; nothing more to do
		}

		islands := constraint.Partition(cs, s.World.Registry.Lookup)
		pds := constraint.Assemble(islands, s.World.Registry)

		freeDq := map[int]spatial.Twist{}
		jointDq := map[*body.Joint][]float64{}
		for _, pd := range pds {
			if err := s.solveIsland(pd, freeDq, jointDq); err != nil {
				s.Opts.Logger.Errorw("stabilizer: island solve failed", "iter", iter, "err", err)
				return err
			}
		}

		if !s.lineSearch(facade, freeDq, jointDq, s0) {
			s.Opts.Logger.Debugw("stabilizer: line search underflowed, accepting current state", "iter", iter, "violation", s0)
			return nil // line search underflowed MinT: accept current state as-is
		}
	}
	s.Opts.Logger.Warnw("stabilizer: iteration cap reached", "maxIters", s.Opts.MaxIters)
	return nil
}

// solveIsland solves one island's position-level LCP (the §4.2 block
// matrix, re-used with Cn_v = current gaps and, per spec.md §4.6's explicit
// direction, L_v = 0 rather than the joint-violation magnitude constraint.Assemble
// fills by default) and accumulates the resulting per-body/per-joint Δq.
func (s *Stabilizer) solveIsland(pd constraint.ProblemData, freeDq map[int]spatial.Twist, jointDq map[*body.Joint][]float64) error {
	n := pd.NVars
	if n == 0 {
		return nil
	}
	nc, nl := len(pd.Contacts), len(pd.Limits)

	M := mat.NewDense(n, n, nil)
	for i := 0; i < nc; i++ {
		for j := 0; j < nc; j++ {
			M.Set(pd.CnIdx+i, pd.CnIdx+j, pd.CnMCnT.At(i, j))
		}
		for j := 0; j < nl; j++ {
			v := pd.CnMLT.At(i, j)
			M.Set(pd.CnIdx+i, pd.LIdx+j, v)
			M.Set(pd.LIdx+j, pd.CnIdx+i, v)
		}
	}
	for i := 0; i < nl; i++ {
		for j := 0; j < nl; j++ {
			M.Set(pd.LIdx+i, pd.LIdx+j, pd.LMLT.At(i, j))
		}
	}

	q := make([]float64, n)
	copy(q[pd.CnIdx:], pd.CnV) // Cn_v = current gaps
	// L_v left at zero per spec.md §4.6.

	opts := lcp.RegularizeOptions{
		MinExp: s.Opts.LCPMinExp, StepExp: s.Opts.LCPStepExp, MaxExp: s.Opts.LCPMaxExp,
		PivTol: s.Opts.PivTol, ZeroTol: s.Opts.ZeroTol,
		Logger: s.Opts.Logger,
	}
	z, err := lcp.Regularized(M, q, opts)
	if err != nil {
		s.Opts.Logger.Warnw("stabilizer: island LCP solve failed", "contacts", nc, "limits", nl, "err", err)
		return simerr.ErrSustainedContactSolveFail
	}

	for i, c := range pd.Contacts {
		zi := z[pd.CnIdx+i]
		if zi == 0 {
			continue
		}
		accumulatePositionDelta(freeDq, c.GeomA.BodyID, s.World, c.Point, c.Normal, zi)
		accumulatePositionDelta(freeDq, c.GeomB.BodyID, s.World, c.Point, c.Normal, -zi)
	}
	for i, l := range pd.Limits {
		zi := z[pd.LIdx+i]
		if zi == 0 {
			continue
		}
		eff := pd.LMLT.At(i, i)
		if eff <= 0 {
			continue
		}
		dq := zi * eff
		if l.Side == body.Upper {
			dq = -dq
		}
		cur := jointDq[l.Joint]
		if cur == nil {
			cur = make([]float64, l.Joint.NumDOF())
		}
		cur[l.DOF] += dq
		jointDq[l.Joint] = cur
	}
	return nil
}

func accumulatePositionDelta(freeDq map[int]spatial.Twist, bodyID int, w *driver.World, point, dir spatial.Vec3, mag float64) {
	ref, ok := w.Registry.Lookup(bodyID)
	if !ok {
		return
	}
	rb := ref.RigidBody()
	if rb.Inertia.Mass <= 0 {
		return
	}
	conj := rb.Pose.Orientation.Conj()
	rLocal := conj.Rotate(point.Sub(rb.Pose.Position))
	dLocal := conj.Rotate(dir)
	jLocal := spatial.Twist{Angular: rLocal.Cross(dLocal), Linear: dLocal}

	var Minv mat.Dense
	if err := Minv.Inverse(rb.Inertia.DenseMatrix()); err != nil {
		return
	}
	var dv mat.VecDense
	dv.MulVec(&Minv, spatial.TwistVec(jLocal))
	dLocalTwist := spatial.VecTwist(&dv).Scale(mag)

	dWorld := spatial.Twist{
		Angular: rb.Pose.Orientation.Rotate(dLocalTwist.Angular),
		Linear:  rb.Pose.Orientation.Rotate(dLocalTwist.Linear),
	}
	freeDq[bodyID] = freeDq[bodyID].Add(dWorld)
}

// lineSearch implements spec.md §4.6's backtracking acceptance test: accept
// the first t in {1, β, β², ...} for which s(q + t·Δq) < (1 − α·t)·s(q),
// replacing q ← q + t·Δq on acceptance. Returns false if t underflows MinT first.
func (s *Stabilizer) lineSearch(facade *geom.Facade, freeDq map[int]spatial.Twist, jointDq map[*body.Joint][]float64, s0 float64) bool {
	type freeSave struct {
		id   int
		pose spatial.Pose
	}
	saves := make([]freeSave, 0, len(freeDq))
	for id := range freeDq {
		if ref, ok := s.World.Registry.Lookup(id); ok {
			saves = append(saves, freeSave{id: id, pose: ref.RigidBody().Pose})
		}
	}
	jointSaves := make(map[*body.Joint][]float64, len(jointDq))
	for j := range jointDq {
		jointSaves[j] = append([]float64{}, j.Q...)
	}

	apply := func(t float64) {
		for _, sv := range saves {
			ref, _ := s.World.Registry.Lookup(sv.id)
			rb := ref.RigidBody()
			dq := freeDq[sv.id]
			rb.Pose.Position = sv.pose.Position.Add(dq.Linear.Scale(t))
			rb.Pose.Orientation = sv.pose.Orientation.Integrate(dq.Angular, t)
		}
		for j, base := range jointSaves {
			dq := jointDq[j]
			for k := range j.Q {
				j.Q[k] = base[k] + dq[k]*t
			}
		}
	}
	revert := func() {
		for _, sv := range saves {
			ref, _ := s.World.Registry.Lookup(sv.id)
			ref.RigidBody().Pose = sv.pose
		}
		for j, base := range jointSaves {
			copy(j.Q, base)
		}
	}

	for t := 1.0; t >= s.Opts.MinT; t *= s.Opts.Beta {
		apply(t)
		pdis := facade.CalcPairwiseDistances()
		limits := constraint.DiscoverLimits(s.World.Articulated)
		if s1 := violationMeasure(pdis, limits); s1 < s0-s.Opts.Alpha*t*s0 {
			return true
		}
		revert()
	}
	return false
}

// violationMeasure is s(q) = max(0, -min_gap) + sum of joint-limit
// violations, spec.md §4.6's scalar feasibility score.
func violationMeasure(pdis []geom.PDI, limits []constraint.Unilateral) float64 {
	minGap := math.Inf(1)
	for _, p := range pdis {
		if p.Dist < minGap {
			minGap = p.Dist
		}
	}
	s := 0.0
	if minGap < 0 {
		s = -minGap
	}
	for _, l := range limits {
		s += l.Violation
	}
	return s
}
