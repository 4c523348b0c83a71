package octree

import (
	"sync"

	"github.com/cubeindex/octree/internal/spatial"
	"github.com/dhconnelly/rtreego"
)

// boundsOverlay is a secondary spatial index over every entity that carries
// an explicit bounding box. The node tree alone answers "which cells does
// this region touch"; the overlay answers "which bounded entities actually
// intersect this region" in O(log N) rather than a full entity scan, the
// same way a chart catalog's R-tree narrows a region query before the
// exact per-entry filter runs.
//
// Point entities (Bounds == nil) are never inserted here: their exact
// membership is already resolved by the node tree itself.
type boundsOverlay struct {
	mu    sync.RWMutex
	rtree *rtreego.Rtree
}

func newBoundsOverlay() *boundsOverlay {
	return &boundsOverlay{rtree: rtreego.NewTree(3, 25, 50)}
}

// rectTolerance is the minimum edge length rtreego.NewRect will accept;
// entity boxes that are flat along an axis are padded out to it.
const rectTolerance = 1e-9

// boundsSpatial adapts an entity's id and AABB to rtreego.Spatial.
type boundsSpatial struct {
	id     EntityID
	bounds spatial.AABB
}

func (b boundsSpatial) Bounds() rtreego.Rect {
	min := b.bounds.Min
	ext := b.bounds.Max.Sub(min)
	lengths := []float64{
		maxf(ext.X, rectTolerance),
		maxf(ext.Y, rectTolerance),
		maxf(ext.Z, rectTolerance),
	}
	rect, _ := rtreego.NewRect(rtreego.Point{min.X, min.Y, min.Z}, lengths)
	return rect
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Insert adds a bounded entity to the overlay.
func (o *boundsOverlay) Insert(id EntityID, bounds spatial.AABB) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rtree.Insert(boundsSpatial{id: id, bounds: bounds})
}

// Delete removes a bounded entity from the overlay. Reports whether it was
// found (an entity whose bounds changed between Insert and Delete without
// an intervening Update would not be found, a programming error in the
// caller rather than a state the overlay can recover from).
func (o *boundsOverlay) Delete(id EntityID, bounds spatial.AABB) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rtree.Delete(boundsSpatial{id: id, bounds: bounds})
}

// SearchIntersect returns the ids of every bounded entity whose box
// intersects region.
func (o *boundsOverlay) SearchIntersect(region spatial.AABB) []EntityID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	min := region.Min
	ext := region.Max.Sub(min)
	lengths := []float64{
		maxf(ext.X, rectTolerance),
		maxf(ext.Y, rectTolerance),
		maxf(ext.Z, rectTolerance),
	}
	rect, err := rtreego.NewRect(rtreego.Point{min.X, min.Y, min.Z}, lengths)
	if err != nil {
		return nil
	}
	hits := o.rtree.SearchIntersect(rect)
	out := make([]EntityID, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(boundsSpatial).id)
	}
	return out
}

// Len returns the number of bounded entities currently indexed.
func (o *boundsOverlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rtree.Size()
}
