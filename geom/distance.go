package geom

import (
	"math"

	"github.com/nudtxiong/rbdcore/spatial"
)

// PDI is an immutable pairwise-distance snapshot, produced by the facade and
// consumed read-only by the driver: (GeomA, GeomB, Dist, PA, PB, NAB).
// Dist < 0 denotes interpenetration.
type PDI struct {
	GeomA, GeomB *Geometry
	Dist         float64
	PA, PB       spatial.Vec3
	NAB          spatial.Vec3 // unit normal, B -> A
}

// BodyPose resolves a geometry's owning body's world pose; it is supplied by
// the caller (the body model) since the facade itself is geometry-only.
type BodyPose func(bodyID int) spatial.Pose

// Facade implements the collision-facade contract: calc_pairwise_distances,
// calc_signed_dist, calc_CA_Euler_step. It holds no simulation state and no
// scratch buffers: only the tracked pairs and the pose lookup.
type Facade struct {
	Pairs []GeomPair
	Pose  BodyPose
}

// GeomPair is a broadphase-produced candidate pair to refine into a PDI.
type GeomPair struct {
	A, B *Geometry
}

// CalcPairwiseDistances refreshes the PDI for every tracked broadphase pair.
func (f *Facade) CalcPairwiseDistances() []PDI {
	out := make([]PDI, 0, len(f.Pairs))
	for _, pr := range f.Pairs {
		dist, pa, pb := f.CalcSignedDist(pr.A, pr.B)
		n := pa.Sub(pb)
		nrm, ok := n.Normalized(1e-12)
		if !ok {
			nrm = spatial.NewVec3(0, 1, 0)
		}
		out = append(out, PDI{GeomA: pr.A, GeomB: pr.B, Dist: dist, PA: pa, PB: pb, NAB: nrm})
	}
	return out
}

// CalcSignedDist returns the signed distance between two geometries and a
// closest-point pair (pA on A, pB on B). Dispatch mirrors the pairing used by
// the contact generator but only needs distance, not normals/enumeration.
func (f *Facade) CalcSignedDist(a, b *Geometry) (float64, spatial.Vec3, spatial.Vec3) {
	poseA := f.Pose(a.BodyID)
	poseB := f.Pose(b.BodyID)

	switch {
	case a.Kind == KindSphere && b.Kind == KindSphere:
		return sphereSphereDist(a, poseA, b, poseB)
	case a.Kind == KindSphere && b.Kind == KindBox:
		d, pb, pa := boxSphereDist(b, poseB, a, poseA)
		return d, pa, pb
	case a.Kind == KindBox && b.Kind == KindSphere:
		return boxSphereDist(a, poseA, b, poseB)
	case a.Kind == KindPlane:
		return planeGenericDist(a, poseA, b, poseB)
	case b.Kind == KindPlane:
		d, pb, pa := planeGenericDist(b, poseB, a, poseA)
		return d, pa, pb
	case a.Kind == KindSphere && b.Kind == KindHeightmap:
		return sphereHeightmapDist(a, poseA, b, poseB)
	case a.Kind == KindHeightmap && b.Kind == KindSphere:
		d, pb, pa := sphereHeightmapDist(b, poseB, a, poseA)
		return d, pa, pb
	default:
		return genericGenericDist(a, poseA, b, poseB)
	}
}

func sphereSphereDist(a *Geometry, poseA spatial.Pose, b *Geometry, poseB spatial.Pose) (float64, spatial.Vec3, spatial.Vec3) {
	cA := a.WorldPose(poseA).Position
	cB := b.WorldPose(poseB).Position
	d := cA.Sub(cB)
	dist := d.Length() - a.Sphere.Radius - b.Sphere.Radius
	dir, ok := d.Normalized(1e-12)
	if !ok {
		dir = spatial.NewVec3(0, 1, 0)
	}
	pa := cA.Sub(dir.Scale(a.Sphere.Radius))
	pb := cB.Add(dir.Scale(b.Sphere.Radius))
	return dist, pa, pb
}

// boxSphereDist returns (dist, pBox, pSphere).
func boxSphereDist(box *Geometry, poseBox spatial.Pose, sph *Geometry, poseSph spatial.Pose) (float64, spatial.Vec3, spatial.Vec3) {
	boxWorld := box.WorldPose(poseBox)
	localCenter := boxWorld.InverseTransform(sph.WorldPose(poseSph).Position)
	he := box.Box.HalfExtents
	clamped := spatial.NewVec3(
		clampF(localCenter.X, -he.X, he.X),
		clampF(localCenter.Y, -he.Y, he.Y),
		clampF(localCenter.Z, -he.Z, he.Z),
	)
	pBoxLocal := clamped
	pBoxWorld := boxWorld.Transform(pBoxLocal)
	sphCenter := sph.WorldPose(poseSph).Position
	d := sphCenter.Sub(pBoxWorld)
	dist := d.Length() - sph.Sphere.Radius
	dir, ok := d.Normalized(1e-12)
	if !ok {
		dir = spatial.NewVec3(0, 1, 0)
	}
	pSph := sphCenter.Sub(dir.Scale(sph.Sphere.Radius))
	return dist, pBoxWorld, pSph
}

func planeGenericDist(plane *Geometry, posePlane spatial.Pose, other *Geometry, poseOther spatial.Pose) (float64, spatial.Vec3, spatial.Vec3) {
	planeWorld := plane.WorldPose(posePlane)
	n := planeWorld.Orientation.Rotate(plane.Plane.Normal)
	n, _ = n.Normalized(1e-12)
	pointOnPlane := planeWorld.Position.Add(n.Scale(plane.Plane.Offset))

	best := math.MaxFloat64
	var bestPt spatial.Vec3
	if other.Kind == KindSphere {
		c := other.WorldPose(poseOther).Position
		d := c.Sub(pointOnPlane).Dot(n) - other.Sphere.Radius
		proj := c.Sub(n.Scale(c.Sub(pointOnPlane).Dot(n)))
		return d, proj, c.Sub(n.Scale(other.Sphere.Radius))
	}
	verts := other.Vertices(poseOther)
	for _, v := range verts {
		d := v.Sub(pointOnPlane).Dot(n)
		if d < best {
			best = d
			bestPt = v
		}
	}
	if len(verts) == 0 {
		return best, pointOnPlane, pointOnPlane
	}
	proj := bestPt.Sub(n.Scale(best))
	return best, proj, bestPt
}

func sphereHeightmapDist(sph *Geometry, poseSph spatial.Pose, hm *Geometry, poseHm spatial.Pose) (float64, spatial.Vec3, spatial.Vec3) {
	hmWorld := hm.WorldPose(poseHm)
	center := sph.WorldPose(poseSph).Position
	local := hmWorld.InverseTransform(center)
	h := hm.Heightmap.Height(local.X, local.Z)
	dist := (local.Y - h) - sph.Sphere.Radius
	groundLocal := spatial.NewVec3(local.X, h, local.Z)
	groundWorld := hmWorld.Transform(groundLocal)
	lowest := center.Sub(spatial.NewVec3(0, sph.Sphere.Radius, 0))
	return dist, groundWorld, lowest
}

func genericGenericDist(a *Geometry, poseA spatial.Pose, b *Geometry, poseB spatial.Pose) (float64, spatial.Vec3, spatial.Vec3) {
	vertsA := a.Vertices(poseA)
	vertsB := b.Vertices(poseB)
	best := math.MaxFloat64
	var bestA, bestB spatial.Vec3
	for _, va := range vertsA {
		for _, vb := range vertsB {
			d := va.Sub(vb).Length()
			if d < best {
				best = d
				bestA, bestB = va, vb
			}
		}
	}
	if len(vertsA) == 0 || len(vertsB) == 0 {
		return best, bestA, bestB
	}
	return best, bestA, bestB
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

// CalcCAEulerStep returns the conservative-advancement step for one pair:
// an upper bound on the time until the pair's gap could reach zero, assuming
// constant closingSpeed (relative speed along NAB, positive when closing).
// Returns +Inf when no event is predicted (separating or stationary).
func (f *Facade) CalcCAEulerStep(pdi PDI, closingSpeed float64) float64 {
	if closingSpeed <= 0 {
		return math.Inf(1)
	}
	if pdi.Dist <= 0 {
		return 0
	}
	return pdi.Dist / closingSpeed
}
