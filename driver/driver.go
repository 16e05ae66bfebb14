// Package driver is the time-stepping integrator: semi-implicit Euler
// position integration with conservative advancement, forward-dynamics
// velocity integration, and an impulsive contact/joint-limit solve.
// Grounded on original_source's do_mini_step/step_si_Euler driver loop,
// re-expressed with a per-call scratch workspace instead of object-held
// scratch fields (spec.md §9, §5).
package driver

import (
	"context"
	"fmt"
	"math"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/constraint"
	"github.com/nudtxiong/rbdcore/contact"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/lcp"
	"github.com/nudtxiong/rbdcore/rne"
	"github.com/nudtxiong/rbdcore/simerr"
	"github.com/nudtxiong/rbdcore/spatial"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Options configures a Driver's time-stepping and LCP numerics (spec.md §6).
type Options struct {
	MinStepSize       float64
	ContactDistThresh float64
	Eps               float64

	LCPMinExp  int
	LCPStepExp int
	LCPMaxExp  int
	PivTol     float64
	ZeroTol    float64

	Logger *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.MinStepSize == 0 {
		o.MinStepSize = 1e-6
	}
	if o.ContactDistThresh == 0 {
		o.ContactDistThresh = 1e-3
	}
	if o.Eps == 0 {
		o.Eps = 1e-6
	}
	if o.LCPMinExp == 0 && o.LCPStepExp == 0 && o.LCPMaxExp == 0 {
		o.LCPMinExp, o.LCPStepExp, o.LCPMaxExp = -20, 4, -4
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// World is the set of bodies and broadphase-tracked geometry pairs a Driver
// steps. Driver mutates it in place each Step; World carries no behavior of
// its own beyond pose/velocity lookup by body id.
type World struct {
	Free        []*body.RigidBody
	Articulated []*body.Articulated
	Pairs       []geom.GeomPair
	Registry    *constraint.Registry
}

func (w *World) Pose(bodyID int) spatial.Pose {
	ref, ok := w.Registry.Lookup(bodyID)
	if !ok {
		return spatial.Identity()
	}
	return ref.RigidBody().Pose
}

func (w *World) Vel(bodyID int) spatial.Twist {
	ref, ok := w.Registry.Lookup(bodyID)
	if !ok {
		return spatial.Twist{}
	}
	return ref.RigidBody().Vel
}

// Driver is the time-stepping integrator (spec.md §4.5). Constraint
// stabilization is a sibling step, not performed by Step itself: the caller
// (sim.Simulator.Step) invokes a stabilizer.Stabilizer immediately after a
// successful Step, keeping the two packages independent of one another.
type Driver struct {
	World *World
	Gen   *contact.Generator
	Opts  Options
	Time  float64

	// MiniStepCallback, if set, is invoked after every successful
	// do_mini_step with the elapsed time of that mini-step.
	MiniStepCallback func(h float64)

	scratch scratch
}

func New(w *World, opts Options) *Driver {
	opts = opts.withDefaults()
	return &Driver{
		World: w,
		Gen:   &contact.Generator{Pose: w.Pose, Epsilon: opts.Eps},
		Opts:  opts,
	}
}

// scratch holds the per-step working state spec.md §5 calls out as owned
// per-call and never leaking across steps.
type scratch struct {
	minGap float64
}

// MinGap returns the minimum pairwise gap recorded by the most recent Step,
// the constraint-violation metric spec.md §4.5 step 7 asks for.
func (d *Driver) MinGap() float64 { return d.scratch.minGap }

// Step advances the simulation by dt: broadphase/PDI refresh, semi-implicit
// Euler integration with conservative advancement (step_si_Euler), the
// user's post-step callback, and violation-metric recording (spec.md §4.5
// steps 1-5, 7; step 6 is the caller's responsibility, see Driver doc).
func (d *Driver) Step(ctx context.Context, dt float64, postStep func()) error {
	d.scratch = scratch{}
	facade := &geom.Facade{Pairs: d.World.Pairs, Pose: d.World.Pose}

	elapsed := 0.0
	for elapsed < dt {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := d.doMiniStep(ctx, dt-elapsed, facade)
		if err != nil {
			d.Opts.Logger.Errorw("driver: mini-step failed", "time", d.Time, "err", err)
			return err
		}
		if h <= 0 {
			d.Opts.Logger.Debugw("driver: mini-step stalled, ending step early", "time", d.Time, "elapsed", elapsed, "dt", dt)
			break
		}
		elapsed += h
		d.Time += h
		d.Opts.Logger.Debugw("driver: mini-step advanced", "h", h, "time", d.Time)
		if d.MiniStepCallback != nil {
			d.MiniStepCallback(h)
		}
	}

	if postStep != nil {
		postStep()
	}

	d.scratch.minGap = minDist(facade.CalcPairwiseDistances())
	return nil
}

// doMiniStep implements spec.md §4.5's do_mini_step: conservative-advancement
// position integration, forward-dynamics velocity integration, and the
// impulsive contact/limit solve. Returns the elapsed mini-step time h.
func (d *Driver) doMiniStep(ctx context.Context, remaining float64, facade *geom.Facade) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	freeSnap := make([]spatial.Pose, len(d.World.Free))
	for i, rb := range d.World.Free {
		freeSnap[i] = rb.Pose
	}
	artSnap := make([]artSnapshot, len(d.World.Articulated))
	for i, a := range d.World.Articulated {
		artSnap[i] = snapshotArticulated(a)
	}

	h := 0.0
	for h < remaining {
		pdis := facade.CalcPairwiseDistances()
		tau := d.conservativeAdvanceStep(facade, pdis)
		tau = clampF(tau, d.Opts.MinStepSize, remaining-h)
		if tau <= 0 {
			break
		}
		for i, rb := range d.World.Free {
			rb.Pose = freeSnap[i]
			rb.Integrate(h + tau)
		}
		for i, a := range d.World.Articulated {
			restoreAndIntegrate(a, artSnap[i], h+tau)
		}
		h += tau
	}

	if err := d.checkFiniteState(); err != nil {
		return h, err
	}

	for _, rb := range d.World.Free {
		if rb.Compliance == body.Compliant {
			continue // resolved by a continuous compliant force, not the impulsive solve
		}
		accel := rne.FreeBodyAccel(rb)
		rb.Vel = rb.Vel.Add(accel.Scale(h))
	}
	for _, a := range d.World.Articulated {
		ndof := a.NumDOF()
		if ndof == 0 {
			continue
		}
		qdd := rne.ForwardDynamics(a, make([]float64, ndof))
		idx := 0
		for _, j := range a.Joints {
			for k := range j.Qd {
				j.Qd[k] += qdd[idx] * h
				idx++
			}
		}
	}

	if err := d.checkFiniteState(); err != nil {
		return h, err
	}

	pdis := facade.CalcPairwiseDistances()
	cs := constraint.DiscoverContacts(d.Gen, pdis, d.Opts.ContactDistThresh)
	cs = append(cs, constraint.DiscoverLimits(d.World.Articulated)...)
	if err := d.impulsiveSolve(cs); err != nil {
		return h, err
	}

	return h, nil
}

// conservativeAdvanceStep returns the smallest time-to-event across
// rigid-rigid geometry pairs (delegated to the collision facade) and joint
// DOFs approaching their limits, per spec.md §4.5's CA contract.
func (d *Driver) conservativeAdvanceStep(facade *geom.Facade, pdis []geom.PDI) float64 {
	best := math.Inf(1)
	for _, pdi := range pdis {
		if t := facade.CalcCAEulerStep(pdi, d.closingSpeed(pdi)); t < best {
			best = t
		}
	}
	for _, a := range d.World.Articulated {
		for _, j := range a.Joints {
			if t := j.TimeToLimit(); t < best {
				best = t
			}
		}
	}
	return best
}

// closingSpeed is the rate at which pdi's gap is shrinking (positive =
// approaching), computed from each side's point velocity at the pair's
// closest points.
func (d *Driver) closingSpeed(pdi geom.PDI) float64 {
	vA := pointVelocity(d.World.Pose(pdi.GeomA.BodyID), d.World.Vel(pdi.GeomA.BodyID), pdi.PA)
	vB := pointVelocity(d.World.Pose(pdi.GeomB.BodyID), d.World.Vel(pdi.GeomB.BodyID), pdi.PB)
	return -vA.Sub(vB).Dot(pdi.NAB)
}

func pointVelocity(pose spatial.Pose, vel spatial.Twist, point spatial.Vec3) spatial.Vec3 {
	r := point.Sub(pose.Position)
	return vel.Linear.Add(vel.Angular.Cross(r))
}

// impulsiveSolve partitions the current unilateral constraints into islands,
// assembles each island's problem data, and solves+applies the velocity-level
// LCP (restitution = -1 sentinel meaning pure projection, per spec.md §4.5
// step 9: no bounce, just remove the closing/violating velocity component).
func (d *Driver) impulsiveSolve(cs []constraint.Unilateral) error {
	islands := constraint.Partition(cs, d.World.Registry.Lookup)
	pds := constraint.Assemble(islands, d.World.Registry)
	for _, pd := range pds {
		if err := d.solveAndApply(pd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) solveAndApply(pd constraint.ProblemData) error {
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

	cnV, lV := d.velocityRHS(pd)
	q := make([]float64, n)
	copy(q[pd.CnIdx:], cnV)
	copy(q[pd.LIdx:], lV)

	opts := lcp.RegularizeOptions{
		MinExp: d.Opts.LCPMinExp, StepExp: d.Opts.LCPStepExp, MaxExp: d.Opts.LCPMaxExp,
		PivTol: d.Opts.PivTol, ZeroTol: d.Opts.ZeroTol, Logger: d.Opts.Logger,
	}
	z, err := lcp.Regularized(M, q, opts)
	if err != nil {
		d.Opts.Logger.Warnw("driver: impulsive solve failed", "contacts", nc, "limits", nl, "err", err)
		return fmt.Errorf("impulsive solve: %w", simerr.ErrSustainedContactSolveFail)
	}

	for i, c := range pd.Contacts {
		if zi := z[pd.CnIdx+i]; zi != 0 {
			d.applyImpulse(c.GeomA.BodyID, c.Point, c.Normal, zi)
			d.applyImpulse(c.GeomB.BodyID, c.Point, c.Normal, -zi)
		}
	}
	for i, l := range pd.Limits {
		if zi := z[pd.LIdx+i]; zi != 0 {
			applyLimitImpulse(l, zi, pd.LMLT.At(i, i))
		}
	}
	return nil
}

// velocityRHS computes the velocity-level q vector for the impulsive LCP:
// the current separating velocity per contact (margin = gap, increasing =
// separating) and the current margin-rate per joint limit (margin = hi-q for
// an upper violation, q-lo for a lower one).
func (d *Driver) velocityRHS(pd constraint.ProblemData) ([]float64, []float64) {
	cnV := make([]float64, len(pd.Contacts))
	for i, c := range pd.Contacts {
		vA := pointVelocity(d.World.Pose(c.GeomA.BodyID), d.World.Vel(c.GeomA.BodyID), c.Point)
		vB := pointVelocity(d.World.Pose(c.GeomB.BodyID), d.World.Vel(c.GeomB.BodyID), c.Point)
		cnV[i] = vA.Sub(vB).Dot(c.Normal)
	}
	lV := make([]float64, len(pd.Limits))
	for i, l := range pd.Limits {
		v := l.Joint.Qd[l.DOF]
		if l.Side == body.Upper {
			v = -v
		}
		lV[i] = v
	}
	return cnV, lV
}

// applyImpulse applies a scalar impulse of magnitude mag along world
// direction dir at world point to the body bodyID names, via Minv*J^T*mag
// (the same Jacobian-in-body-frame construction constraint.problemdata.go
// uses for effective mass, here used to update velocity directly).
func (d *Driver) applyImpulse(bodyID int, point, dir spatial.Vec3, mag float64) {
	ref, ok := d.World.Registry.Lookup(bodyID)
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
	dvLocal := spatial.VecTwist(&dv).Scale(mag)

	dvWorld := spatial.Twist{
		Angular: rb.Pose.Orientation.Rotate(dvLocal.Angular),
		Linear:  rb.Pose.Orientation.Rotate(dvLocal.Linear),
	}
	rb.Vel = rb.Vel.Add(dvWorld)
}

// applyLimitImpulse updates a joint's DOF velocity directly by the
// single-DOF impulse response: effMass is the DOF's inverse-mass diagonal
// entry (constraint.limitEffMass), so the velocity change is effMass·z.
func applyLimitImpulse(l constraint.Unilateral, z, effMass float64) {
	if effMass <= 0 {
		return
	}
	dqd := z * effMass
	if l.Side == body.Upper {
		dqd = -dqd
	}
	l.Joint.Qd[l.DOF] += dqd
}

type artSnapshot struct {
	basePose spatial.Pose
	q        []float64
}

func snapshotArticulated(a *body.Articulated) artSnapshot {
	q := make([]float64, 0, a.NumDOF())
	for _, j := range a.Joints {
		q = append(q, j.Q...)
	}
	pose := spatial.Identity()
	if a.FloatingBase {
		pose = a.Base().Pose
	}
	return artSnapshot{basePose: pose, q: q}
}

func restoreAndIntegrate(a *body.Articulated, snap artSnapshot, dt float64) {
	idx := 0
	for _, j := range a.Joints {
		for k := range j.Q {
			j.Q[k] = snap.q[idx] + j.Qd[k]*dt
			idx++
		}
	}
	if a.FloatingBase {
		base := a.Base()
		base.Pose = snap.basePose
		base.Integrate(dt)
	}
}

func (d *Driver) checkFiniteState() error {
	for _, rb := range d.World.Free {
		if !finiteVec3(rb.Pose.Position) || !finiteTwist(rb.Vel) {
			return fmt.Errorf("body %d: %w", rb.ID, simerr.ErrInvalidState)
		}
	}
	for _, a := range d.World.Articulated {
		for _, l := range a.Links {
			if !finiteVec3(l.Pose.Position) {
				return fmt.Errorf("link %d: %w", l.ID, simerr.ErrInvalidState)
			}
		}
		for _, j := range a.Joints {
			for _, v := range j.Q {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("joint %d: %w", j.ID, simerr.ErrInvalidState)
				}
			}
			for _, v := range j.Qd {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("joint %d: %w", j.ID, simerr.ErrInvalidVelocity)
				}
			}
		}
	}
	return nil
}

func finiteVec3(v spatial.Vec3) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finiteTwist(t spatial.Twist) bool {
	return finiteVec3(t.Angular) && finiteVec3(t.Linear)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func clampF(v, lo, hi float64) float64 {
	if hi < lo {
		return hi // remaining-h has shrunk below the floor: take what's left
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minDist(pdis []geom.PDI) float64 {
	best := math.Inf(1)
	for _, p := range pdis {
		if p.Dist < best {
			best = p.Dist
		}
	}
	return best
}
