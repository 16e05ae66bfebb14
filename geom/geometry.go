// Package geom is the collision facade: collision geometry primitives and
// the pairwise-distance queries the spec treats as an external collaborator
// ("given a geometry pair, returns signed distance, closest-point pair, and
// contact normal"). It is a concrete reference implementation of that facade
// so the rest of the core has something real to drive and test against.
package geom

import "github.com/nudtxiong/rbdcore/spatial"

// Kind tags the primitive a Geometry wraps, replacing runtime type
// assertions with an explicit discriminant per the spec's re-architecture
// guidance.
type Kind int

const (
	KindSphere Kind = iota
	KindBox
	KindPlane
	KindHeightmap
	KindConvex
	KindGeneric
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindPlane:
		return "plane"
	case KindHeightmap:
		return "heightmap"
	case KindConvex:
		return "convex"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Sphere is a primitive of radius Radius centered at the geometry's pose.
type Sphere struct{ Radius float64 }

// Box is an axis-aligned (in local frame) box of the given half-extents.
type Box struct{ HalfExtents spatial.Vec3 }

// Plane is an infinite plane through a point with the given outward normal,
// both expressed in the geometry's local frame (usually identity offset).
type Plane struct {
	Normal spatial.Vec3 // unit, local frame
	Offset float64      // signed distance of plane from local origin along Normal
}

// Heightmap is a regular grid of height samples over an XZ domain.
type Heightmap struct {
	Heights    [][]float64 // [row][col], row varies along Z, col along X
	CellSize   float64
	OriginX    float64
	OriginZ    float64
}

// Height bilinearly interpolates map height at local (x,z); out-of-range
// queries clamp to the border cell.
func (h *Heightmap) Height(x, z float64) float64 {
	if len(h.Heights) == 0 || len(h.Heights[0]) == 0 {
		return 0
	}
	fx := (x - h.OriginX) / h.CellSize
	fz := (z - h.OriginZ) / h.CellSize
	rows := len(h.Heights)
	cols := len(h.Heights[0])
	c0 := clampInt(int(fx), 0, cols-1)
	r0 := clampInt(int(fz), 0, rows-1)
	c1 := clampInt(c0+1, 0, cols-1)
	r1 := clampInt(r0+1, 0, rows-1)
	tx := fx - float64(c0)
	tz := fz - float64(r0)
	if tx < 0 {
		tx = 0
	}
	if tz < 0 {
		tz = 0
	}
	h00 := h.Heights[r0][c0]
	h10 := h.Heights[r0][c1]
	h01 := h.Heights[r1][c0]
	h11 := h.Heights[r1][c1]
	top := h00 + (h10-h00)*tx
	bot := h01 + (h11-h01)*tx
	return top + (bot-top)*tz
}

// Gradient returns the finite-difference slope (dh/dx, dh/dz) at (x,z).
func (h *Heightmap) Gradient(x, z float64) (float64, float64) {
	eps := h.CellSize * 0.5
	if eps <= 0 {
		eps = 1e-3
	}
	dhdx := (h.Height(x+eps, z) - h.Height(x-eps, z)) / (2 * eps)
	dhdz := (h.Height(x, z+eps) - h.Height(x, z-eps)) / (2 * eps)
	return dhdx, dhdz
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Convex is a generic convex hull given by its vertices in local frame.
type Convex struct {
	Vertices []spatial.Vec3
}

// Geometry pairs a primitive with a pose offset on an owning body.
type Geometry struct {
	ID     int
	BodyID int
	Kind   Kind
	Offset spatial.Pose // local frame, relative to body pose

	Sphere    Sphere
	Box       Box
	Plane     Plane
	Heightmap *Heightmap
	Convex    Convex
}

// WorldPose returns the geometry's pose in the global frame given its
// owning body's pose.
func (g *Geometry) WorldPose(bodyPose spatial.Pose) spatial.Pose {
	return bodyPose.Compose(g.Offset)
}

// Vertices returns the world-space vertices of the geometry for enumerable
// primitives (box corners, convex hull vertices). Spheres/planes/heightmaps
// return nil; callers should special-case them.
func (g *Geometry) Vertices(bodyPose spatial.Pose) []spatial.Vec3 {
	world := g.WorldPose(bodyPose)
	switch g.Kind {
	case KindBox:
		he := g.Box.HalfExtents
		out := make([]spatial.Vec3, 0, 8)
		for _, sx := range []float64{-1, 1} {
			for _, sy := range []float64{-1, 1} {
				for _, sz := range []float64{-1, 1} {
					local := spatial.NewVec3(sx*he.X, sy*he.Y, sz*he.Z)
					out = append(out, world.Transform(local))
				}
			}
		}
		return out
	case KindConvex:
		out := make([]spatial.Vec3, len(g.Convex.Vertices))
		for i, v := range g.Convex.Vertices {
			out[i] = world.Transform(v)
		}
		return out
	default:
		return nil
	}
}
