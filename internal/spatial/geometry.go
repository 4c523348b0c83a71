package spatial

import "math"

// Epsilon is the fixed tolerance used for all boundary decisions in this
// package: plane straddle tests, degenerate-normal checks, and contains-vs-
// strictly-contains classification.
const Epsilon = 1e-6

// Point3 is a point or vector in 3-space. The octree domain requires all
// entity positions and bounds to have non-negative components, but Point3
// itself carries no such constraint — it is also used for directions and
// extents, which are signed.
type Point3 struct {
	X, Y, Z float64
}

// Add returns p+q.
func (p Point3) Add(q Point3) Point3 { return Point3{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

// Sub returns p-q.
func (p Point3) Sub(q Point3) Point3 { return Point3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Scale returns p scaled by s.
func (p Point3) Scale(s float64) Point3 { return Point3{p.X * s, p.Y * s, p.Z * s} }

// Dot returns the dot product of p and q.
func (p Point3) Dot(q Point3) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }

// Cross returns the cross product p x q.
func (p Point3) Cross(q Point3) Point3 {
	return Point3{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Length returns the Euclidean norm of p.
func (p Point3) Length() float64 { return math.Sqrt(p.Dot(p)) }

// DistanceTo returns the Euclidean distance between p and q.
func (p Point3) DistanceTo(q Point3) float64 { return p.Sub(q).Length() }

// Normalize returns p scaled to unit length, and false if p is shorter than
// Epsilon (no well-defined direction).
func (p Point3) Normalize() (Point3, bool) {
	l := p.Length()
	if l < Epsilon {
		return Point3{}, false
	}
	return p.Scale(1 / l), true
}

// NonNegative reports whether all of p's components are >= 0.
func (p Point3) NonNegative() bool { return p.X >= 0 && p.Y >= 0 && p.Z >= 0 }

// AABB is an axis-aligned bounding box, Min <= Max componentwise.
type AABB struct {
	Min, Max Point3
}

// Valid reports whether Min <= Max on every axis.
func (b AABB) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Center returns the midpoint of the box.
func (b AABB) Center() Point3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns the half-size of the box along each axis.
func (b AABB) Extent() Point3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Corners returns the eight corners of the box in a fixed order: the three
// low bits of the index select max (1) or min (0) on x, y, z respectively.
func (b AABB) Corners() [8]Point3 {
	var c [8]Point3
	for i := 0; i < 8; i++ {
		x := b.Min.X
		if i&1 != 0 {
			x = b.Max.X
		}
		y := b.Min.Y
		if i&2 != 0 {
			y = b.Max.Y
		}
		z := b.Min.Z
		if i&4 != 0 {
			z = b.Max.Z
		}
		c[i] = Point3{X: x, Y: y, Z: z}
	}
	return c
}

// ContainsPoint reports whether p lies within the box, boundary inclusive.
func (b AABB) ContainsPoint(p Point3) bool {
	return p.X >= b.Min.X-Epsilon && p.X <= b.Max.X+Epsilon &&
		p.Y >= b.Min.Y-Epsilon && p.Y <= b.Max.Y+Epsilon &&
		p.Z >= b.Min.Z-Epsilon && p.Z <= b.Max.Z+Epsilon
}

// StrictlyContainsPoint reports whether p lies strictly inside the box,
// boundary exclusive.
func (b AABB) StrictlyContainsPoint(p Point3) bool {
	return p.X > b.Min.X+Epsilon && p.X < b.Max.X-Epsilon &&
		p.Y > b.Min.Y+Epsilon && p.Y < b.Max.Y-Epsilon &&
		p.Z > b.Min.Z+Epsilon && p.Z < b.Max.Z-Epsilon
}

// IntersectsCube reports whether b overlaps the other box (standard
// six-interval overlap test); touching faces count as overlap.
func (b AABB) IntersectsCube(o AABB) bool {
	return b.Min.X <= o.Max.X+Epsilon && b.Max.X >= o.Min.X-Epsilon &&
		b.Min.Y <= o.Max.Y+Epsilon && b.Max.Y >= o.Min.Y-Epsilon &&
		b.Min.Z <= o.Max.Z+Epsilon && b.Max.Z >= o.Min.Z-Epsilon
}

// ContainsCube reports whether b fully contains o.
func (b AABB) ContainsCube(o AABB) bool {
	return o.Min.X >= b.Min.X-Epsilon && o.Max.X <= b.Max.X+Epsilon &&
		o.Min.Y >= b.Min.Y-Epsilon && o.Max.Y <= b.Max.Y+Epsilon &&
		o.Min.Z >= b.Min.Z-Epsilon && o.Max.Z <= b.Max.Z+Epsilon
}

// IntersectsPlane classifies the box against a plane by sign-testing all
// eight corners: seeing both signs means the box straddles the plane.
func (b AABB) IntersectsPlane(pl Plane) Classification {
	neg, pos := false, false
	for _, c := range b.Corners() {
		d := pl.SignedDistance(c)
		if d < -Epsilon {
			neg = true
		} else if d > Epsilon {
			pos = true
		} else {
			neg, pos = true, true
		}
	}
	switch {
	case neg && pos:
		return Intersecting
	case neg && !pos:
		return Inside
	default:
		return Outside
	}
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: Point3{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: Point3{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

// ClosestPoint returns the point within b nearest to p.
func (b AABB) ClosestPoint(p Point3) Point3 {
	return Point3{
		X: clamp(p.X, b.Min.X, b.Max.X),
		Y: clamp(p.Y, b.Min.Y, b.Max.Y),
		Z: clamp(p.Z, b.Min.Z, b.Max.Z),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Point3
	Radius float64
}

// ContainsPoint reports whether p lies within the sphere, boundary inclusive.
func (s Sphere) ContainsPoint(p Point3) bool {
	return s.Center.DistanceTo(p) <= s.Radius+Epsilon
}

// IntersectsCube classifies a cube against the sphere using the classic
// closest-point-on-box distance test. The cube is Inside when all eight of
// its corners lie within the sphere.
func (s Sphere) IntersectsCube(b AABB) Classification {
	closest := b.ClosestPoint(s.Center)
	d2 := s.Center.Sub(closest).Dot(s.Center.Sub(closest))
	r2 := s.Radius * s.Radius
	if d2 > r2+Epsilon {
		return Outside
	}
	for _, c := range b.Corners() {
		if !s.ContainsPoint(c) {
			return Intersecting
		}
	}
	return Inside
}

// Plane is a half-space boundary stored in implicit form
// a*x + b*y + c*z + d = 0, with the inward direction being where
// SignedDistance is negative.
type Plane struct {
	A, B, C, D float64
}

// NewPlaneFromPointNormal builds a plane through point with the given
// (not necessarily unit) normal. Fails with ErrDegenerate if normal is
// shorter than Epsilon.
func NewPlaneFromPointNormal(point, normal Point3) (Plane, error) {
	n, ok := normal.Normalize()
	if !ok {
		return Plane{}, &ErrDegenerate{Reason: "plane normal has zero length"}
	}
	d := -n.Dot(point)
	return Plane{A: n.X, B: n.Y, C: n.Z, D: d}, nil
}

// NewPlaneFromPoints builds the plane through three non-collinear points,
// with the normal following the right-hand rule of (p1-p0) x (p2-p0).
// Fails with ErrDegenerate if the points are collinear (or coincident).
func NewPlaneFromPoints(p0, p1, p2 Point3) (Plane, error) {
	normal := p1.Sub(p0).Cross(p2.Sub(p0))
	if normal.Length() < Epsilon {
		return Plane{}, &ErrDegenerate{Reason: "three points are collinear"}
	}
	return NewPlaneFromPointNormal(p0, normal)
}

// SignedDistance returns a*p.x + b*p.y + c*p.z + d.
func (pl Plane) SignedDistance(p Point3) float64 {
	return pl.A*p.X + pl.B*p.Y + pl.C*p.Z + pl.D
}

// ContainsPoint reports whether p lies on the inward (non-positive) side of
// the plane, boundary inclusive.
func (pl Plane) ContainsPoint(p Point3) bool {
	return pl.SignedDistance(p) <= Epsilon
}

// StrictlyContainsPoint reports whether p lies strictly inward of the
// plane, boundary exclusive.
func (pl Plane) StrictlyContainsPoint(p Point3) bool {
	return pl.SignedDistance(p) < -Epsilon
}

// Normal returns the plane's (unit) normal vector.
func (pl Plane) Normal() Point3 { return Point3{X: pl.A, Y: pl.B, Z: pl.C} }

// Ray is a half-line starting at Origin heading in direction Dir (assumed
// non-zero; not required to be unit length).
type Ray struct {
	Origin Point3
	Dir    Point3
}

// IntersectsAABB performs the slab method, returning the entry distance
// tMin and whether the ray hits b within [0, tMax].
func (r Ray) IntersectsAABB(b AABB, tMax float64) (tHit float64, hit bool) {
	tMin, tFar := 0.0, tMax
	axes := [3][3]float64{
		{r.Origin.X, r.Dir.X, 0}, {r.Origin.Y, r.Dir.Y, 0}, {r.Origin.Z, r.Dir.Z, 0},
	}
	mins := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		origin, dir := axes[i][0], axes[i][1]
		if math.Abs(dir) < Epsilon {
			if origin < mins[i] || origin > maxs[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir
		t0 := (mins[i] - origin) * inv
		t1 := (maxs[i] - origin) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tMin > tFar {
			return 0, false
		}
	}
	return tMin, true
}

// IntersectsSphere returns the entry distance and whether the ray hits s
// within [0, tMax].
func (r Ray) IntersectsSphere(s Sphere, tMax float64) (tHit float64, hit bool) {
	oc := r.Origin.Sub(s.Center)
	a := r.Dir.Dot(r.Dir)
	if a < Epsilon {
		return 0, false
	}
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	if t0 < 0 {
		t0 = t1
	}
	if t0 < 0 || t0 > tMax {
		return 0, false
	}
	return t0, true
}

// Frustum is a closed convex region bounded by exactly six planes (near,
// far, left, right, top, bottom), each oriented inward.
type Frustum struct {
	Planes [6]Plane
}
