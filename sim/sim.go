// Package sim is the top-level facade wiring body, geom, contact,
// constraint, lcp, rne, driver, and stabilizer together — the
// box2d.B2World analogue this module builds toward.
package sim

import (
	"context"
	"fmt"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/constraint"
	"github.com/nudtxiong/rbdcore/driver"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/stabilizer"
	"go.uber.org/zap"
)

// Options configures a Simulator's driver and stabilizer in one place.
type Options struct {
	Driver     driver.Options
	Stabilizer stabilizer.Options
	Logger     *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// Simulator owns a scene (free bodies, articulated bodies, tracked geometry
// pairs) and advances it step by step: a Driver.Step call followed by a
// Stabilizer.Stabilize pass, fulfilling the stabilization phase Driver.Step
// itself defers to its caller.
type Simulator struct {
	World *driver.World

	driver     *driver.Driver
	stabilizer *stabilizer.Stabilizer
	opts       Options
}

// New builds a Simulator over an empty scene. Use AddFreeBody/AddArticulated
// to populate it before the first Step.
func New(opts Options) *Simulator {
	opts = opts.withDefaults()
	w := &driver.World{Registry: constraint.NewRegistry()}
	opts.Driver.Logger = opts.Logger
	opts.Stabilizer.Logger = opts.Logger
	return &Simulator{
		World:      w,
		driver:     driver.New(w, opts.Driver),
		stabilizer: stabilizer.New(w, opts.Stabilizer),
		opts:       opts,
	}
}

// AddFreeBody registers a free rigid body with the scene.
func (s *Simulator) AddFreeBody(rb *body.RigidBody) {
	s.World.Free = append(s.World.Free, rb)
	s.World.Registry.AddFree(rb)
}

// AddArticulated registers an articulated body with the scene.
func (s *Simulator) AddArticulated(a *body.Articulated) {
	s.World.Articulated = append(s.World.Articulated, a)
	s.World.Registry.AddArticulated(a)
}

// TrackPair adds a geometry pair to the broadphase set the driver and
// stabilizer both query for contacts. Scenes are expected to supply their
// own broadphase (the collision facade's external concern, per spec.md §6);
// this core takes the candidate pair list as given.
func (s *Simulator) TrackPair(a, b *geom.Geometry) {
	s.World.Pairs = append(s.World.Pairs, geom.GeomPair{A: a, B: b})
}

// Step advances the scene by dt: a time-stepping Driver.Step (conservative
// advancement, forward dynamics, impulsive solve) followed by a
// Stabilizer.Stabilize pass that projects any residual penetration/limit
// violation back onto the feasible manifold, completing spec.md §4.5's
// seven-step loop (step 6 lives here, not in Driver).
func (s *Simulator) Step(ctx context.Context, dt float64) error {
	if err := s.driver.Step(ctx, dt, nil); err != nil {
		return fmt.Errorf("sim: driver step: %w", err)
	}
	if err := s.stabilizer.Stabilize(ctx); err != nil {
		return fmt.Errorf("sim: stabilize: %w", err)
	}
	return nil
}

// Time returns the simulator's accumulated simulation time.
func (s *Simulator) Time() float64 { return s.driver.Time }

// MinGap returns the minimum pairwise gap recorded by the most recent Step,
// spec.md §4.5 step 7's violation metric, measured before stabilization.
func (s *Simulator) MinGap() float64 { return s.driver.MinGap() }

// KineticEnergy sums 0.5*v^T*I*v over every free body's current spatial
// velocity, the half of spec.md §8's "KE + PE" energy-bound property this
// core can compute without a caller-supplied gravity field (potential
// energy is scene-specific and left to the caller, e.g. telemetry sampling
// alongside a known gravity vector).
func (s *Simulator) KineticEnergy() float64 {
	total := 0.0
	for _, rb := range s.World.Free {
		if rb.Inertia.Mass <= 0 {
			continue
		}
		w := rb.Inertia.ApplyWrench(rb.Vel)
		total += 0.5 * (w.Force.Dot(rb.Vel.Linear) + w.Torque.Dot(rb.Vel.Angular))
	}
	return total
}
