// Package contact implements the narrowphase contact generator: given two
// collision geometries known to be near each other, it produces zero or more
// contact records with a world-space point and a unit normal pointing from
// geometry B into geometry A. Grounded on geom's distance facade (the same
// per-primitive math, specialized to emit contacts rather than a single
// closest-point pair) and dispatched the way box2d's b2Collide* family is
// dispatched — a lookup table keyed by shape kind instead of virtual calls.
package contact

import (
	"math"

	"github.com/nudtxiong/rbdcore/geom"
	"github.com/nudtxiong/rbdcore/spatial"
)

// Contact is one emitted contact point between two geometries.
type Contact struct {
	GeomA, GeomB *geom.Geometry
	Point        spatial.Vec3
	Normal       spatial.Vec3 // unit, points from B into A
}

// Generator holds the only state the contact generator needs: how to resolve
// a body id to its current world pose, and the tolerance epsilon used by
// vertex-scan kernels to decide "close enough to be kissing."
type Generator struct {
	Pose    geom.BodyPose
	Epsilon float64
}

type kernelFunc func(g *Generator, a, b *geom.Geometry) []Contact

// dispatch mirrors §4.1's table: rows/cols by geom.Kind, with sphere/box/
// plane/heightmap/convex/generic in that declared order. A nil entry means
// "skip" (plane/plane, plane/heightmap, heightmap/plane, heightmap/heightmap);
// every other pair either has a
// direct kernel or falls back to a vertex scan.
var dispatch [int(geom.KindGeneric) + 1][int(geom.KindGeneric) + 1]kernelFunc

func init() {
	set := func(ka, kb geom.Kind, fn kernelFunc) { dispatch[ka][kb] = fn }
	swap := func(fn kernelFunc) kernelFunc {
		return func(g *Generator, a, b *geom.Geometry) []Contact {
			return negate(fn(g, b, a))
		}
	}

	set(geom.KindSphere, geom.KindSphere, sphereSphere)
	set(geom.KindSphere, geom.KindBox, swap(boxSphere))
	set(geom.KindBox, geom.KindSphere, boxSphere)
	set(geom.KindSphere, geom.KindHeightmap, sphereHeightmap)
	set(geom.KindHeightmap, geom.KindSphere, swap(sphereHeightmap))
	set(geom.KindBox, geom.KindHeightmap, convexHeightmap)
	set(geom.KindHeightmap, geom.KindBox, swap(convexHeightmap))
	set(geom.KindConvex, geom.KindHeightmap, convexHeightmap)
	set(geom.KindHeightmap, geom.KindConvex, swap(convexHeightmap))

	for k := geom.KindSphere; k <= geom.KindGeneric; k++ {
		if k != geom.KindPlane && k != geom.KindHeightmap {
			set(geom.KindPlane, k, planeGeneric)
			set(k, geom.KindPlane, swap(planeGeneric))
		}
	}

	for ka := geom.KindSphere; ka <= geom.KindGeneric; ka++ {
		for kb := geom.KindSphere; kb <= geom.KindGeneric; kb++ {
			if dispatch[ka][kb] == nil && ka != geom.KindPlane && kb != geom.KindPlane {
				if ka == geom.KindHeightmap || kb == geom.KindHeightmap {
					if ka == geom.KindHeightmap && kb == geom.KindHeightmap {
						continue // skip: heightmap/heightmap
					}
					if ka == geom.KindHeightmap {
						set(ka, kb, heightmapGeneric)
					} else {
						set(ka, kb, swap(heightmapGeneric))
					}
					continue
				}
				set(ka, kb, vertexScan)
			}
		}
	}
}

// Find dispatches (a, b) through the kernel table and returns the emitted
// contacts, normalizing degenerate (zero-norm) normals out of the result.
func (g *Generator) Find(a, b *geom.Geometry) []Contact {
	kernel := dispatch[a.Kind][b.Kind]
	if kernel == nil {
		return nil
	}
	out := kernel(g, a, b)
	kept := out[:0]
	for _, c := range out {
		if c.Normal.Length() > 1e-12 {
			kept = append(kept, c)
		}
	}
	return kept
}

func negate(cs []Contact) []Contact {
	for i := range cs {
		cs[i].GeomA, cs[i].GeomB = cs[i].GeomB, cs[i].GeomA
		cs[i].Normal = cs[i].Normal.Scale(-1)
	}
	return cs
}

func sphereSphere(g *Generator, a, b *geom.Geometry) []Contact {
	poseA, poseB := g.Pose(a.BodyID), g.Pose(b.BodyID)
	cA := a.WorldPose(poseA).Position
	cB := b.WorldPose(poseB).Position
	d := cA.Sub(cB)
	if d.Length() > a.Sphere.Radius+b.Sphere.Radius {
		return nil
	}
	n, ok := d.Normalized(1e-12)
	if !ok {
		return nil
	}
	pa := cA.Sub(n.Scale(a.Sphere.Radius))
	pb := cB.Add(n.Scale(b.Sphere.Radius))
	mid := pa.Add(pb).Scale(0.5)
	return []Contact{{GeomA: a, GeomB: b, Point: mid, Normal: n}}
}

// boxSphere emits one contact between a box (a) and a sphere (b). The normal
// points sphere->box (B into A); on separation the point is the midpoint of the two
// closest surface points; on penetration it uses the sphere's closest point
// and the box-surface gradient direction, which is not necessarily the
// deepest penetration point (an acknowledged limitation of vertex/closest-
// point based narrowphase, carried over deliberately rather than papered
// over with a false promise of true deepest-point resolution).
func boxSphere(g *Generator, a, b *geom.Geometry) []Contact {
	poseA, poseB := g.Pose(a.BodyID), g.Pose(b.BodyID)
	boxWorld := a.WorldPose(poseA)
	sphCenter := b.WorldPose(poseB).Position
	local := boxWorld.InverseTransform(sphCenter)
	he := a.Box.HalfExtents
	clamped := spatial.NewVec3(
		clampF(local.X, -he.X, he.X),
		clampF(local.Y, -he.Y, he.Y),
		clampF(local.Z, -he.Z, he.Z),
	)
	pBox := boxWorld.Transform(clamped)
	d := sphCenter.Sub(pBox)
	gap := d.Length() - b.Sphere.Radius
	n, ok := d.Normalized(1e-12)
	if !ok {
		return nil
	}
	pSph := sphCenter.Sub(n.Scale(b.Sphere.Radius))
	point := pBox.Add(pSph).Scale(0.5)
	if gap < 0 {
		point = pSph
	}
	return []Contact{{GeomA: a, GeomB: b, Point: point, Normal: n.Scale(-1)}}
}

// planeGeneric enumerates the vertices of `other` (or, for a sphere, its
// lowest point toward the plane) and emits a contact for each within
// Epsilon of the plane surface.
func planeGeneric(g *Generator, plane, other *geom.Geometry) []Contact {
	posePlane, poseOther := g.Pose(plane.BodyID), g.Pose(other.BodyID)
	planeWorld := plane.WorldPose(posePlane)
	n := planeWorld.Orientation.Rotate(plane.Plane.Normal)
	n, ok := n.Normalized(1e-12)
	if !ok {
		return nil
	}
	pointOnPlane := planeWorld.Position.Add(n.Scale(plane.Plane.Offset))

	if other.Kind == geom.KindSphere {
		c := other.WorldPose(poseOther).Position
		d := c.Sub(pointOnPlane).Dot(n)
		if d-other.Sphere.Radius > g.Epsilon {
			return nil
		}
		return []Contact{{GeomA: plane, GeomB: other, Point: c.Sub(n.Scale(other.Sphere.Radius)), Normal: n.Scale(-1)}}
	}

	var out []Contact
	for _, v := range other.Vertices(poseOther) {
		d := v.Sub(pointOnPlane).Dot(n)
		if d <= g.Epsilon {
			out = append(out, Contact{GeomA: plane, GeomB: other, Point: v, Normal: n.Scale(-1)})
		}
	}
	return out
}

// sphereHeightmap probes the sphere's lowest point against the heightmap
// surface at that (x,z): a separating-but-close probe takes its normal from
// the local height gradient, a penetrating one uses the map's up axis.
func sphereHeightmap(g *Generator, sph, hm *geom.Geometry) []Contact {
	poseSph, poseHm := g.Pose(sph.BodyID), g.Pose(hm.BodyID)
	hmWorld := hm.WorldPose(poseHm)
	center := sph.WorldPose(poseSph).Position
	lowest := center.Sub(spatial.NewVec3(0, sph.Sphere.Radius, 0))
	local := hmWorld.InverseTransform(lowest)

	h := hm.Heightmap.Height(local.X, local.Z)
	residual := local.Y - h
	if residual > g.Epsilon {
		return nil
	}

	ground := hmWorld.Transform(spatial.NewVec3(local.X, h, local.Z))
	var n spatial.Vec3
	if residual < 0 {
		n = spatial.NewVec3(0, 1, 0)
	} else {
		dhdx, dhdz := hm.Heightmap.Gradient(local.X, local.Z)
		n = spatial.NewVec3(-dhdx, 1, -dhdz)
	}
	n, ok := n.Normalized(1e-12)
	if !ok {
		return nil
	}
	n = hmWorld.Orientation.Rotate(n)
	return []Contact{{GeomA: sph, GeomB: hm, Point: ground, Normal: n}}
}

// convexHeightmap probes every vertex of the convex (or box, treated as its
// 8 corners) hull against the heightmap, the same residual/gradient rule as
// sphereHeightmap per vertex.
func convexHeightmap(g *Generator, cv, hm *geom.Geometry) []Contact {
	poseCv, poseHm := g.Pose(cv.BodyID), g.Pose(hm.BodyID)
	hmWorld := hm.WorldPose(poseHm)
	verts := cv.Vertices(poseCv)

	var out []Contact
	for _, v := range verts {
		local := hmWorld.InverseTransform(v)
		h := hm.Heightmap.Height(local.X, local.Z)
		residual := local.Y - h
		if residual > g.Epsilon {
			continue
		}
		ground := hmWorld.Transform(spatial.NewVec3(local.X, h, local.Z))
		var n spatial.Vec3
		if residual < 0 {
			n = spatial.NewVec3(0, 1, 0)
		} else {
			dhdx, dhdz := hm.Heightmap.Gradient(local.X, local.Z)
			n = spatial.NewVec3(-dhdx, 1, -dhdz)
		}
		n, ok := n.Normalized(1e-12)
		if !ok {
			continue
		}
		n = hmWorld.Orientation.Rotate(n)
		out = append(out, Contact{GeomA: cv, GeomB: hm, Point: ground, Normal: n})
	}
	return out
}

// heightmapGeneric is the reciprocal-vertex-scan fallback for a heightmap
// paired with a primitive that has neither a dedicated heightmap kernel nor
// an enumerable hull handled above (a convex-less "generic" shape): each
// vertex of the generic geometry is probed against the heightmap surface.
func heightmapGeneric(g *Generator, hm, other *geom.Geometry) []Contact {
	return convexHeightmap(g, other, hm)
}

// vertexScan is the generic/generic fallback: for every vertex of A, measure
// its signed distance to B's surface; emit a contact for every vertex within
// Epsilon, with B's outward surface normal, which points from B into A.
func vertexScan(g *Generator, a, b *geom.Geometry) []Contact {
	poseA, poseB := g.Pose(a.BodyID), g.Pose(b.BodyID)
	var out []Contact
	for _, v := range a.Vertices(poseA) {
		dist, n := pointDistance(v, b, poseB)
		if dist <= g.Epsilon {
			out = append(out, Contact{GeomA: a, GeomB: b, Point: v, Normal: n})
		}
	}
	return out
}

// pointDistance measures the signed distance from a world-space point to a
// single geometry's surface, and the geometry's outward normal at the
// closest point — the same per-primitive math geom/distance.go uses for
// geometry pairs, specialized to a degenerate zero-radius query point so the
// vertex-scan kernels above don't need their own copy of it.
func pointDistance(p spatial.Vec3, target *geom.Geometry, targetPose spatial.Pose) (float64, spatial.Vec3) {
	world := target.WorldPose(targetPose)
	switch target.Kind {
	case geom.KindSphere:
		d := p.Sub(world.Position)
		n, ok := d.Normalized(1e-12)
		if !ok {
			n = spatial.NewVec3(0, 1, 0)
		}
		return d.Length() - target.Sphere.Radius, n
	case geom.KindBox:
		local := world.InverseTransform(p)
		he := target.Box.HalfExtents
		clamped := spatial.NewVec3(
			clampF(local.X, -he.X, he.X),
			clampF(local.Y, -he.Y, he.Y),
			clampF(local.Z, -he.Z, he.Z),
		)
		closest := world.Transform(clamped)
		d := p.Sub(closest)
		n, ok := d.Normalized(1e-12)
		if !ok {
			n = spatial.NewVec3(0, 1, 0)
		}
		return d.Length(), n
	case geom.KindPlane:
		n := world.Orientation.Rotate(target.Plane.Normal)
		n, _ = n.Normalized(1e-12)
		pointOnPlane := world.Position.Add(n.Scale(target.Plane.Offset))
		return p.Sub(pointOnPlane).Dot(n), n
	case geom.KindHeightmap:
		local := world.InverseTransform(p)
		h := target.Heightmap.Height(local.X, local.Z)
		dhdx, dhdz := target.Heightmap.Gradient(local.X, local.Z)
		n := spatial.NewVec3(-dhdx, 1, -dhdz)
		n, ok := n.Normalized(1e-12)
		if !ok {
			n = spatial.NewVec3(0, 1, 0)
		}
		n = world.Orientation.Rotate(n)
		return local.Y - h, n
	default:
		best := math.MaxFloat64
		var bestN spatial.Vec3
		for _, v := range target.Vertices(targetPose) {
			d := p.Sub(v)
			if l := d.Length(); l < best {
				best = l
				bestN, _ = d.Normalized(1e-12)
			}
		}
		return best, bestN
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
