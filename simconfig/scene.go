package simconfig

import (
	"fmt"

	"github.com/nudtxiong/rbdcore/body"
	"github.com/nudtxiong/rbdcore/driver"
	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/sim"
	"github.com/nudtxiong/rbdcore/spatial"
	"github.com/nudtxiong/rbdcore/stabilizer"
)

// BuildScene instantiates a sim.Simulator from a Config: one free rigid
// body (plus its tracked geometry) per BodyConfig entry, and one separate
// minimal two-link articulated body per JointConfig entry (see buildJoint).
// Joints are not attached to the free bodies built from BodyConfig.
func BuildScene(cfg *Config) (*sim.Simulator, error) {
	s := sim.New(sim.Options{
		Driver: driver.Options{
			MinStepSize:       cfg.Driver.MinStepSize,
			ContactDistThresh: cfg.Driver.ContactDistThresh,
			Eps:               cfg.Driver.Eps,
		},
		Stabilizer: stabilizer.Options{
			Eps:      cfg.Stabilizer.Eps,
			Alpha:    cfg.Stabilizer.Alpha,
			Beta:     cfg.Stabilizer.Beta,
			MaxIters: cfg.Stabilizer.MaxIters,
		},
	})

	geoms := make(map[int]*geom.Geometry, len(cfg.Bodies))
	for i, bc := range cfg.Bodies {
		rb, g, err := buildBody(bc, i)
		if err != nil {
			return nil, fmt.Errorf("simconfig: body %d: %w", bc.ID, err)
		}
		s.AddFreeBody(rb)
		geoms[bc.ID] = g
	}

	for a := range geoms {
		for b := range geoms {
			if a < b {
				s.TrackPair(geoms[a], geoms[b])
			}
		}
	}

	for _, jc := range cfg.Joints {
		if err := buildJoint(s, jc); err != nil {
			return nil, fmt.Errorf("simconfig: joint %d: %w", jc.ID, err)
		}
	}

	return s, nil
}

func buildBody(bc BodyConfig, idx int) (*body.RigidBody, *geom.Geometry, error) {
	mass := bc.Mass
	if bc.Static {
		mass = 0
	}

	var inertia spatial.Inertia
	var g geom.Geometry
	g.ID = idx
	g.BodyID = bc.ID
	g.Offset = spatial.Identity()

	switch bc.Shape {
	case "sphere":
		if mass > 0 {
			inertia = spatial.SphereInertia(mass, bc.Radius)
		}
		g.Kind = geom.KindSphere
		g.Sphere = geom.Sphere{Radius: bc.Radius}
	case "box":
		if mass > 0 {
			inertia = spatial.BoxInertia(mass, bc.Extent[0], bc.Extent[1], bc.Extent[2])
		}
		g.Kind = geom.KindBox
		g.Box = geom.Box{HalfExtents: spatial.NewVec3(bc.Extent[0]/2, bc.Extent[1]/2, bc.Extent[2]/2)}
	case "plane":
		g.Kind = geom.KindPlane
		g.Plane = geom.Plane{Normal: spatial.NewVec3(bc.Normal[0], bc.Normal[1], bc.Normal[2]), Offset: 0}
	default:
		return nil, nil, fmt.Errorf("unknown shape %q", bc.Shape)
	}

	rb := body.NewFreeBody(bc.ID, inertia)
	rb.Pose.Position = spatial.NewVec3(bc.Pos[0], bc.Pos[1], bc.Pos[2])
	return rb, &g, nil
}

// buildJoint builds a two-link, single-DOF articulated body for one
// JointConfig entry: a massless fixed base with id ParentBody and a massless
// link with id ChildBody, both at the identity pose, joined by a revolute
// joint about Axis with limits [Lo, Hi]. No free body of the scene becomes
// a link.
func buildJoint(s *sim.Simulator, jc JointConfig) error {
	a := body.NewArticulated(jc.ID, false)
	base := body.NewFreeBody(jc.ParentBody, spatial.Inertia{})
	a.AddLink(base)
	child := body.NewFreeBody(jc.ChildBody, spatial.Inertia{})
	a.AddLink(child)

	axis := spatial.NewVec3(jc.Axis[0], jc.Axis[1], jc.Axis[2])
	j := body.NewJoint(0, 0, 1, []spatial.Twist{{Angular: axis}}, []float64{jc.Lo}, []float64{jc.Hi})
	a.AddJoint(j)

	s.AddArticulated(a)
	return nil
}
