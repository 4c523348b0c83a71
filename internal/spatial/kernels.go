package spatial

import "math"

// Classification is the result of classifying one geometric object against
// another. It is mutually exclusive and total for every kernel in this
// package.
type Classification int

const (
	// Outside means the objects do not overlap at all.
	Outside Classification = iota
	// Intersecting means the objects partially overlap.
	Intersecting
	// Inside means the first object lies entirely within the second.
	Inside
	// Contains means the second object lies entirely within the first
	// (used by the AABB-vs-tetrahedron SAT kernel, which the sibling
	// tetrahedral index consumes).
	Contains
)

func (c Classification) String() string {
	switch c {
	case Outside:
		return "Outside"
	case Intersecting:
		return "Intersecting"
	case Inside:
		return "Inside"
	case Contains:
		return "Contains"
	default:
		return "Unknown"
	}
}

// ConvexHull is an intersection of closed half-spaces, represented as an
// ordered, unmodifiable list of inward-facing planes.
type ConvexHull struct {
	planes         []Plane
	centroid       Point3
	boundingRadius float64
	exact          bool
}

// Planes returns the hull's half-space planes. The returned slice must not
// be mutated by callers.
func (h *ConvexHull) Planes() []Plane { return h.planes }

// Centroid returns the cached centroid: the average of the planes'
// foot-points, clamped into the positive octant.
func (h *ConvexHull) Centroid() Point3 { return h.centroid }

// BoundingRadius returns the cached bounding radius: the maximum absolute
// signed distance from the centroid to any plane, plus slack.
func (h *ConvexHull) BoundingRadius() float64 { return h.boundingRadius }

// Exact reports whether the hull is a true half-space intersection (true)
// or degraded to an axis-aligned bounding box fallback (false). See
// NewConvexHullFromPoints.
func (h *ConvexHull) Exact() bool { return h.exact }

// NewConvexHullFromPlanes builds a hull directly from a caller-supplied set
// of inward-facing half-space planes (e.g. a frustum or an OBB's six faces).
func NewConvexHullFromPlanes(planes []Plane) (*ConvexHull, error) {
	if len(planes) < 4 {
		return nil, &ErrInvalidConfiguration{Reason: "a convex hull needs at least 4 planes"}
	}
	cp := make([]Plane, len(planes))
	copy(cp, planes)
	return finishHull(cp, true), nil
}

// NewConvexHullFromAABB builds the six-plane hull of an axis-aligned box,
// with inward normals.
func NewConvexHullFromAABB(b AABB) *ConvexHull {
	planes := []Plane{
		{A: -1, B: 0, C: 0, D: b.Min.X},  // x >= min.x
		{A: 1, B: 0, C: 0, D: -b.Max.X},  // x <= max.x
		{A: 0, B: -1, C: 0, D: b.Min.Y},  // y >= min.y
		{A: 0, B: 1, C: 0, D: -b.Max.Y},  // y <= max.y
		{A: 0, B: 0, C: -1, D: b.Min.Z},  // z >= min.z
		{A: 0, B: 0, C: 1, D: -b.Max.Z},  // z <= max.z
	}
	return finishHull(planes, true)
}

// NewConvexHullFromPoints builds the hull of a point set.
//
// When the set has fewer than 4 points, construction fails outright: a hull
// needs at least a tetrahedron's worth of vertices. With 4 or more points
// this implementation does not compute an exact 3D convex hull (gift
// wrapping over arbitrary point clouds); it documents the fallback rather
// than hiding it, per the hull-construction open question: the returned
// hull is the AABB of the points, and ok is false so callers can detect the
// degradation. Use NewConvexHullStrict if degrading silently is
// unacceptable.
func NewConvexHullFromPoints(points []Point3) (hull *ConvexHull, ok bool, err error) {
	if len(points) < 4 {
		return nil, false, &ErrInvalidConfiguration{Reason: "a convex hull needs at least 4 points"}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.Union(AABB{Min: p, Max: p})
	}
	hull = NewConvexHullFromAABB(box)
	hull.exact = false
	return hull, false, nil
}

// NewConvexHullStrict is NewConvexHullFromPoints but returns
// ErrHullFromVerticesNotSupported instead of silently degrading to an AABB.
func NewConvexHullStrict(points []Point3) (*ConvexHull, error) {
	hull, ok, err := NewConvexHullFromPoints(points)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ErrHullFromVerticesNotSupported{}
	}
	return hull, nil
}

func finishHull(planes []Plane, exact bool) *ConvexHull {
	var sum Point3
	for _, pl := range planes {
		sum = sum.Add(pl.Normal().Scale(-pl.D))
	}
	centroid := sum.Scale(1 / float64(len(planes)))
	centroid = Point3{
		X: math.Max(0, centroid.X),
		Y: math.Max(0, centroid.Y),
		Z: math.Max(0, centroid.Z),
	}
	var radius float64
	const slack = 1e-3
	for _, pl := range planes {
		d := math.Abs(pl.SignedDistance(centroid))
		if d > radius {
			radius = d
		}
	}
	return &ConvexHull{planes: planes, centroid: centroid, boundingRadius: radius + slack, exact: exact}
}

// ContainsPoint reports whether p satisfies every half-space (inclusive).
func (h *ConvexHull) ContainsPoint(p Point3) bool {
	for _, pl := range h.planes {
		if !pl.ContainsPoint(p) {
			return false
		}
	}
	return true
}

// StrictlyContainsPoint reports whether p satisfies every half-space
// (exclusive).
func (h *ConvexHull) StrictlyContainsPoint(p Point3) bool {
	for _, pl := range h.planes {
		if !pl.StrictlyContainsPoint(p) {
			return false
		}
	}
	return true
}

// DistanceToPoint returns the maximum signed distance of p from any plane:
// negative when inside, positive when outside, matching the spec's example
// convention (a point 5 units inside an AABB's x=10 face reports -5, and a
// point 1 unit outside reports +1).
func (h *ConvexHull) DistanceToPoint(p Point3) float64 {
	max := math.Inf(-1)
	for _, pl := range h.planes {
		d := pl.SignedDistance(p)
		if d > max {
			max = d
		}
	}
	return max
}

// ClassifyAABB classifies a box against the hull: all eight corners inside
// is Inside; none inside and no plane straddles is Outside; anything else
// is Intersecting.
func (h *ConvexHull) ClassifyAABB(b AABB) Classification {
	corners := b.Corners()
	allIn, anyIn := true, false
	for _, c := range corners {
		if h.ContainsPoint(c) {
			anyIn = true
		} else {
			allIn = false
		}
	}
	if allIn {
		return Inside
	}
	if anyIn {
		return Intersecting
	}
	for _, pl := range h.planes {
		if b.IntersectsPlane(pl) == Intersecting {
			return Intersecting
		}
	}
	return Outside
}

// PenetrationDepth returns the greatest distance any corner of b lies on
// the inward side of the hull's surface, or 0 if no corner is inside.
func (h *ConvexHull) PenetrationDepth(b AABB) float64 {
	var maxDepth float64
	for _, c := range b.Corners() {
		d := h.DistanceToPoint(c)
		if d < 0 && -d > maxDepth {
			maxDepth = -d
		}
	}
	return maxDepth
}

// PenetrationDepthPoint is PenetrationDepth for a single point entity.
func (h *ConvexHull) PenetrationDepthPoint(p Point3) float64 {
	return math.Max(0, -h.DistanceToPoint(p))
}

// OBB is an oriented bounding box: a center, three mutually orthogonal unit
// axes, and three positive half-extents along them.
type OBB struct {
	Center  Point3
	Axes    [3]Point3
	Extents [3]float64
}

// NewOBB validates and builds an OBB, failing if any resulting corner would
// land outside the positive octant.
func NewOBB(center Point3, axes [3]Point3, extents [3]float64) (OBB, error) {
	o := OBB{Center: center, Axes: axes, Extents: extents}
	for _, signs := range [8][3]float64{
		{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
	} {
		c := o.corner(signs)
		if !c.NonNegative() {
			return OBB{}, &ErrInvalidConfiguration{Reason: "OBB corner would have a negative coordinate"}
		}
	}
	return o, nil
}

func (o OBB) corner(signs [3]float64) Point3 {
	p := o.Center
	for i := 0; i < 3; i++ {
		p = p.Add(o.Axes[i].Scale(signs[i] * o.Extents[i]))
	}
	return p
}

// axisAligned reports whether o's axes are the standard basis within
// Epsilon, in which case its half-space set reduces to an AABB.
func (o OBB) axisAligned() bool {
	standard := [3]Point3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, a := range o.Axes {
		if math.Abs(a.X-standard[i].X) > Epsilon ||
			math.Abs(a.Y-standard[i].Y) > Epsilon ||
			math.Abs(a.Z-standard[i].Z) > Epsilon {
			return false
		}
	}
	return true
}

// ToHull emits the OBB's six bounding planes. When the OBB is axis-aligned
// (within Epsilon) this emits the equivalent AABB's plane set directly,
// avoiding unnecessary generality.
func (o OBB) ToHull() *ConvexHull {
	if o.axisAligned() {
		b := AABB{
			Min: o.Center.Sub(Point3{o.Extents[0], o.Extents[1], o.Extents[2]}),
			Max: o.Center.Add(Point3{o.Extents[0], o.Extents[1], o.Extents[2]}),
		}
		return NewConvexHullFromAABB(b)
	}
	planes := make([]Plane, 0, 6)
	for i := 0; i < 3; i++ {
		n := o.Axes[i]
		// Face at +extent: the center lies on the -n side, so the plane's
		// stored normal must be +n for SignedDistance to go negative inward.
		posPoint := o.Center.Add(n.Scale(o.Extents[i]))
		pl, _ := NewPlaneFromPointNormal(posPoint, n)
		planes = append(planes, pl)
		// Face at -extent: symmetric, stored normal is -n.
		negPoint := o.Center.Add(n.Scale(-o.Extents[i]))
		pl2, _ := NewPlaneFromPointNormal(negPoint, n.Scale(-1))
		planes = append(planes, pl2)
	}
	return finishHull(planes, true)
}

// Tetrahedron is four points in space, used by the SAT kernel below.
type Tetrahedron [4]Point3

// SATClassifyAABB classifies a tetrahedron against an AABB via the
// separating axis theorem: it projects all four tetra vertices and all
// eight box corners onto each of up to 25 candidate axes (3 box face
// normals, 4 tetra face normals, and the 18 cross products of the 6 tetra
// edges with the 3 box edges; degenerate axes are skipped) and reports a
// strict separation as Outside.
// Otherwise it checks for full containment in either direction before
// settling on Intersecting.
func SATClassifyAABB(t Tetrahedron, b AABB) Classification {
	boxCorners := b.Corners()
	axes := make([]Point3, 0, 15)
	axes = append(axes, Point3{1, 0, 0}, Point3{0, 1, 0}, Point3{0, 0, 1})
	faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	for _, f := range faces {
		n := t[f[1]].Sub(t[f[0]]).Cross(t[f[2]].Sub(t[f[0]]))
		if n.Length() > Epsilon {
			axes = append(axes, n)
		}
	}
	tetraEdges := [6]Point3{
		t[1].Sub(t[0]), t[2].Sub(t[0]), t[3].Sub(t[0]),
		t[2].Sub(t[1]), t[3].Sub(t[1]), t[3].Sub(t[2]),
	}
	boxEdges := [3]Point3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, te := range tetraEdges {
		for _, be := range boxEdges {
			c := te.Cross(be)
			if c.Length() > Epsilon {
				axes = append(axes, c)
			}
		}
	}

	for _, axis := range axes {
		tMin, tMax := projectAll(t[:], axis)
		bMin, bMax := projectAll(boxCorners[:], axis)
		if tMax < bMin-Epsilon || bMax < tMin-Epsilon {
			return Outside
		}
	}

	if tetraContainsAABB(t, b) {
		return Contains
	}
	if aabbContainsTetra(b, t) {
		return Inside
	}
	return Intersecting
}

func projectAll(pts []Point3, axis Point3) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return
}

func aabbContainsTetra(b AABB, t Tetrahedron) bool {
	for _, v := range t {
		if !b.ContainsPoint(v) {
			return false
		}
	}
	return true
}

func tetraContainsAABB(t Tetrahedron, b AABB) bool {
	planes := tetraFacePlanes(t)
	for _, c := range b.Corners() {
		for _, pl := range planes {
			if !pl.ContainsPoint(c) {
				return false
			}
		}
	}
	return true
}

func tetraFacePlanes(t Tetrahedron) []Plane {
	faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	opposite := [4]int{3, 2, 1, 0}
	planes := make([]Plane, 0, 4)
	for fi, f := range faces {
		pl, err := NewPlaneFromPoints(t[f[0]], t[f[1]], t[f[2]])
		if err != nil {
			continue
		}
		// Orient inward: the opposite vertex must satisfy the plane.
		if !pl.ContainsPoint(t[opposite[fi]]) {
			pl = Plane{A: -pl.A, B: -pl.B, C: -pl.C, D: -pl.D}
		}
		planes = append(planes, pl)
	}
	return planes
}
