package octree

import (
	"fmt"
	"sort"

	"github.com/cubeindex/octree/internal/spatial"
)

// QueryResult is one entity returned by a range, nearest, or shape query:
// its id, content, anchor position, optional bounds, the classification of
// that entity against the query region, its distance from the query's
// reference point (0 for queries with no natural reference, e.g. range(volume)
// queries like RangeAABB/RangeTetrahedron), its distance from the centroid of
// the query's convex hull when one is involved (RangeParallelepiped,
// RangeConvexHull, Frustum; 0 otherwise), and penetration depth for hull-based
// classification.
type QueryResult struct {
	ID                   EntityID
	Content              Content
	Position             spatial.Point3
	Bounds               *spatial.AABB
	Classification       spatial.Classification
	Distance             float64
	DistanceToHullCenter float64
	Penetration          float64
}

// candidates enumerates every live entity, a full scan used as the baseline
// for query kernels that don't yet have a narrowing index. RangeAABB narrows
// its bounded-entity candidates through the R-tree overlay first instead;
// point-entity queries on a large point cloud should prefer Lookup/subtree
// traversal where the call site already knows a containing region.
func (o *Octree) candidates() []*EntityRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.entities.All()
}

func sortByDistance(results []QueryResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
}

func sortByHullCenterDistance(results []QueryResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].DistanceToHullCenter < results[j].DistanceToHullCenter })
}

// RangePoint returns every entity whose anchor position equals p (within
// spatial.Epsilon).
func (o *Octree) RangePoint(p spatial.Point3) []QueryResult {
	var out []QueryResult
	for _, rec := range o.candidates() {
		if rec.Position.DistanceTo(p) <= spatial.Epsilon {
			out = append(out, QueryResult{ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds, Classification: spatial.Inside})
		}
	}
	return out
}

// RangeAABB returns every entity intersecting region: bounded entities are
// narrowed through the R-tree overlay first, then exactly classified;
// point entities are classified directly against region.
func (o *Octree) RangeAABB(region spatial.AABB) []QueryResult {
	var out []QueryResult
	o.mu.RLock()
	boundedIDs := o.bounds.SearchIntersect(region)
	o.mu.RUnlock()
	seen := make(map[EntityID]struct{}, len(boundedIDs))
	for _, id := range boundedIDs {
		rec, ok := o.entities.Get(id)
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		cls := classifyAABBAgainstAABB(*rec.Bounds, region)
		if cls == spatial.Outside {
			continue
		}
		out = append(out, QueryResult{ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds, Classification: cls})
	}
	for _, rec := range o.candidates() {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		if rec.Bounds != nil {
			continue
		}
		if region.ContainsPoint(rec.Position) {
			out = append(out, QueryResult{ID: rec.ID, Content: rec.Content, Position: rec.Position, Classification: spatial.Inside})
		}
	}
	return out
}

func classifyAABBAgainstAABB(entity, region spatial.AABB) spatial.Classification {
	if !entity.IntersectsCube(region) {
		return spatial.Outside
	}
	if region.ContainsCube(entity) {
		return spatial.Inside
	}
	if entity.ContainsCube(region) {
		return spatial.Contains
	}
	return spatial.Intersecting
}

// RangeSphere returns every entity whose position (or, for bounded
// entities, bounding box) intersects sphere, sorted by distance from the
// sphere's center.
func (o *Octree) RangeSphere(sphere spatial.Sphere) []QueryResult {
	var out []QueryResult
	for _, rec := range o.candidates() {
		var cls spatial.Classification
		if rec.Bounds != nil {
			cls = sphere.IntersectsCube(*rec.Bounds)
		} else if sphere.ContainsPoint(rec.Position) {
			cls = spatial.Inside
		} else {
			cls = spatial.Outside
		}
		if cls == spatial.Outside {
			continue
		}
		out = append(out, QueryResult{
			ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds,
			Classification: cls, Distance: sphere.Center.DistanceTo(rec.Position),
		})
	}
	sortByDistance(out)
	return out
}

// RangeParallelepiped returns every entity whose position (or bounding box,
// for bounded entities) lies within the oriented box obb. This is a
// range(volume) query with no natural reference point, so results are
// ordered by distance from the hull's centroid rather than Distance.
func (o *Octree) RangeParallelepiped(obb spatial.OBB) []QueryResult {
	hull := obb.ToHull()
	var out []QueryResult
	for _, rec := range o.candidates() {
		var cls spatial.Classification
		if rec.Bounds != nil {
			cls = hull.ClassifyAABB(*rec.Bounds)
		} else if hull.ContainsPoint(rec.Position) {
			cls = spatial.Inside
		} else {
			cls = spatial.Outside
		}
		if cls == spatial.Outside {
			continue
		}
		out = append(out, QueryResult{
			ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds,
			Classification: cls, DistanceToHullCenter: hull.Centroid().DistanceTo(rec.Position),
			Penetration: hull.PenetrationDepthPoint(rec.Position),
		})
	}
	sortByHullCenterDistance(out)
	return out
}

// RangeTetrahedron returns every entity whose bounding box (or, for point
// entities, a degenerate zero-size box at their position) is not entirely
// Outside tetra under the separating-axis test.
func (o *Octree) RangeTetrahedron(tetra spatial.Tetrahedron) []QueryResult {
	var out []QueryResult
	for _, rec := range o.candidates() {
		box := spatial.AABB{Min: rec.Position, Max: rec.Position}
		if rec.Bounds != nil {
			box = *rec.Bounds
		}
		cls := spatial.SATClassifyAABB(tetra, box)
		if cls == spatial.Outside {
			continue
		}
		out = append(out, QueryResult{ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds, Classification: cls})
	}
	return out
}

// RangeConvexHull returns every entity classified as Inside or Intersecting
// against hull, sorted by distance from ref. Each result also carries its
// distance from the hull's own centroid in DistanceToHullCenter.
func (o *Octree) RangeConvexHull(hull *spatial.ConvexHull, ref spatial.Point3) []QueryResult {
	center := hull.Centroid()
	var out []QueryResult
	for _, rec := range o.candidates() {
		var cls spatial.Classification
		if rec.Bounds != nil {
			cls = hull.ClassifyAABB(*rec.Bounds)
		} else if hull.ContainsPoint(rec.Position) {
			cls = spatial.Inside
		} else {
			cls = spatial.Outside
		}
		if cls == spatial.Outside {
			continue
		}
		out = append(out, QueryResult{
			ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds,
			Classification: cls, Distance: ref.DistanceTo(rec.Position),
			DistanceToHullCenter: center.DistanceTo(rec.Position),
			Penetration:          hull.PenetrationDepthPoint(rec.Position),
		})
	}
	sortByDistance(out)
	return out
}

// Frustum returns every entity inside or straddling f, sorted by distance
// from ref (typically the viewer/camera position).
func (o *Octree) Frustum(f spatial.Frustum, ref spatial.Point3) ([]QueryResult, error) {
	hull, err := spatial.NewConvexHullFromPlanes(f.Planes[:])
	if err != nil {
		return nil, fmt.Errorf("octree: frustum query: %w", err)
	}
	return o.RangeConvexHull(hull, ref), nil
}

// PlaneQuery returns every entity on the inward side of pl, or straddling
// it if it has bounds, classified accordingly. Each result's Distance is
// the signed distance of its position from pl (negative on the inward
// side), and results are not sorted.
func (o *Octree) PlaneQuery(pl spatial.Plane) []QueryResult {
	var out []QueryResult
	for _, rec := range o.candidates() {
		var cls spatial.Classification
		if rec.Bounds != nil {
			cls = rec.Bounds.IntersectsPlane(pl)
		} else if pl.ContainsPoint(rec.Position) {
			cls = spatial.Inside
		} else {
			cls = spatial.Outside
		}
		if cls == spatial.Outside {
			continue
		}
		out = append(out, QueryResult{
			ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds,
			Classification: cls, Distance: pl.SignedDistance(rec.Position),
		})
	}
	return out
}

// Ray returns every entity whose position (or bounds) the ray hits within
// [0, tMax], sorted by hit distance along the ray (nearest first).
func (o *Octree) Ray(ray spatial.Ray, tMax float64) []QueryResult {
	var out []QueryResult
	for _, rec := range o.candidates() {
		var tHit float64
		var hit bool
		if rec.Bounds != nil {
			tHit, hit = ray.IntersectsAABB(*rec.Bounds, tMax)
		} else {
			tHit, hit = ray.IntersectsSphere(spatial.Sphere{Center: rec.Position, Radius: spatial.Epsilon * 10}, tMax)
		}
		if !hit {
			continue
		}
		out = append(out, QueryResult{
			ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds,
			Classification: spatial.Intersecting, Distance: tHit,
		})
	}
	sortByDistance(out)
	return out
}

// KNearest returns the k entities whose anchor position is closest to ref,
// nearest first. Ties break by EntityID for deterministic ordering.
func (o *Octree) KNearest(ref spatial.Point3, k int) []QueryResult {
	if k <= 0 {
		return nil
	}
	all := o.candidates()
	out := make([]QueryResult, 0, len(all))
	for _, rec := range all {
		out = append(out, QueryResult{
			ID: rec.ID, Content: rec.Content, Position: rec.Position, Bounds: rec.Bounds,
			Classification: spatial.Inside, Distance: ref.DistanceTo(rec.Position),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Stats summarizes the current shape of the tree: node and entity counts,
// deepest level in use, and how many bounded entities the R-tree overlay
// is tracking.
type Stats struct {
	NodeCount    int
	EntityCount  int
	BoundedCount int
	DeepestLevel uint8
}

// Statistics computes a fresh Stats snapshot by scanning the node store.
func (o *Octree) Statistics() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var s Stats
	s.EntityCount = o.entities.Len()
	s.BoundedCount = o.bounds.Len()
	o.nodes.Each(func(key spatial.Key, n *Node) {
		s.NodeCount++
		if lvl := spatial.LevelOf(key); lvl > s.DeepestLevel {
			s.DeepestLevel = lvl
		}
	})
	return s
}

// BatchQueryKind selects which query a BatchQuery runs inside BatchAll, and
// so which of its shape fields is read.
type BatchQueryKind int

const (
	BatchRangeAABB BatchQueryKind = iota
	BatchRangeSphere
	BatchKNearest
)

// BatchQuery describes a single query to run as part of a parallelized
// batch; Region/Sphere/Ref/K are interpreted according to Kind.
type BatchQuery struct {
	Kind   BatchQueryKind
	Region spatial.AABB
	Sphere spatial.Sphere
	Ref    spatial.Point3
	K      int
}

// BatchAll runs every query in queries, in parallel when the batch is large
// enough per Config.ParallelMinSize, and returns one result slice per
// query in input order.
func (o *Octree) BatchAll(queries []BatchQuery) ([][]QueryResult, error) {
	execCfg := execConfigFrom(o.cfg)
	result, err := RunParallel(queries, execCfg, func(chunk []BatchQuery) ([][]QueryResult, error) {
		out := make([][]QueryResult, len(chunk))
		for i, q := range chunk {
			switch q.Kind {
			case BatchRangeAABB:
				out[i] = o.RangeAABB(q.Region)
			case BatchRangeSphere:
				out[i] = o.RangeSphere(q.Sphere)
			case BatchKNearest:
				out[i] = o.KNearest(q.Ref, q.K)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	flat := make([][]QueryResult, 0, len(queries))
	for _, chunk := range result.Values {
		flat = append(flat, chunk...)
	}
	return flat, nil
}
