// Package octree implements a hierarchical spatial index over a positive
// octant cubic domain. Entities are anchored by position (and, optionally,
// spread across cells by a bounding box) into a tree of cubic nodes
// addressed by a space-filling-curve key; nodes subdivide once they exceed
// a configured capacity, down to a configured maximum refinement level.
//
// A minimal insert-and-query session:
//
//	t, err := octree.New(octree.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := t.Insert("harbor-buoy-12", spatial.Point3{X: 100, Y: 200, Z: 0}, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hits := t.RangeSphere(spatial.Sphere{Center: spatial.Point3{X: 100, Y: 200, Z: 0}, Radius: 50})
package octree

import (
	"fmt"
	"sync"

	"github.com/cubeindex/octree/internal/spatial"
)

// Octree is the top-level spatial index: an entity store, a node store
// keyed by SFC key, and a secondary R-tree overlay for bounded entities.
// All mutation goes through a single writer lock; queries take the read
// side, so many queries may run concurrently with each other but never
// alongside a write.
type Octree struct {
	cfg Config

	mu       sync.RWMutex
	entities *EntityStore
	nodes    *NodeStore
	bounds   *boundsOverlay
}

// New builds an empty Octree. Passing the zero Config is equivalent to
// DefaultConfig(); New always validates and normalizes whatever is passed.
func New(cfg Config) (*Octree, error) {
	if cfg.NodeCapacity == 0 && cfg.MaxLevel == 0 {
		cfg = DefaultConfig()
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, fmt.Errorf("octree: invalid config: %w", err)
	}
	return &Octree{
		cfg:      cfg,
		entities: newEntityStore(cfg.IDGenerator),
		nodes:    newNodeStore(),
		bounds:   newBoundsOverlay(),
	}, nil
}

// Config returns a copy of the tree's normalized configuration.
func (o *Octree) Config() Config { return o.cfg }

// Len returns the number of live entities in the tree.
func (o *Octree) Len() int { return o.entities.Len() }

// Insert places a point entity at pos, starting its residency search at
// level. The entity is walked down through any existing subdivided
// ancestors until it lands on a non-subdivided node, where it is added; if
// that addition pushes the node over capacity (and level allows further
// refinement, and single-content mode is off), the node subdivides.
func (o *Octree) Insert(content Content, pos spatial.Point3, level uint8) (EntityID, error) {
	if !pos.NonNegative() {
		return 0, &spatial.ErrInvalidCoordinate{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	rec, err := o.entities.Put(content, pos, nil)
	if err != nil {
		return 0, fmt.Errorf("octree: insert: %w", err)
	}
	if err := o.placePoint(rec.ID, pos, level); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// InsertBounded places an entity anchored at pos but spatially extended by
// bounds. When SpanningEnabled is set, the entity occupies every node at
// level whose cube overlaps bounds; otherwise it behaves like Insert and is
// anchored to the single cell containing pos. A bounded entity is always
// added to the R-tree overlay regardless of spanning.
func (o *Octree) InsertBounded(content Content, pos spatial.Point3, bounds spatial.AABB, level uint8) (EntityID, error) {
	if !pos.NonNegative() {
		return 0, &spatial.ErrInvalidCoordinate{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
	if !bounds.Valid() {
		return 0, &spatial.ErrInvalidConfiguration{Reason: "bounds.Min must be <= bounds.Max on every axis"}
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	b := bounds
	rec, err := o.entities.Put(content, pos, &b)
	if err != nil {
		return 0, fmt.Errorf("octree: insert: %w", err)
	}
	o.bounds.Insert(rec.ID, b)

	if !o.cfg.SpanningEnabled {
		if err := o.placePoint(rec.ID, pos, level); err != nil {
			return 0, err
		}
		return rec.ID, nil
	}
	keys, err := o.spanningKeys(bounds, level)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		node := o.nodes.GetOrCreate(key)
		node.Add(rec.ID, o.cfg.NodeCapacity)
		o.entities.AddLocation(rec.ID, key)
	}
	return rec.ID, nil
}

// placePoint performs the tree-descent insert of a single point entity,
// creating intermediate nodes as needed and subdividing on overflow.
func (o *Octree) placePoint(id EntityID, pos spatial.Point3, level uint8) error {
	key, err := spatial.EncodeAtLevel(pos, level, o.cfg.MaxLevel)
	if err != nil {
		return fmt.Errorf("octree: insert: %w", err)
	}
	for {
		node := o.nodes.GetOrCreate(key)
		if !node.HasChildren() {
			shouldSplit := node.Add(id, o.cfg.NodeCapacity)
			o.entities.AddLocation(id, key)
			lvl := spatial.LevelOf(key)
			if shouldSplit && !o.cfg.SingleContentMode && lvl < o.cfg.MaxLevel {
				if err := o.subdivide(key, lvl); err != nil {
					return err
				}
			}
			return nil
		}
		// Node was already subdivided by an earlier insert: descend to
		// whichever child actually covers pos.
		lvl := spatial.LevelOf(key)
		child, err := spatial.EncodeAtLevel(pos, lvl+1, o.cfg.MaxLevel)
		if err != nil {
			return fmt.Errorf("octree: insert: %w", err)
		}
		key = child
	}
}

// subdivide redistributes every entity anchored at parentKey to the
// appropriate level+1 child, then marks the parent as subdivided. It does
// not cascade: a child that itself overflows is left for the next Insert
// into that child to subdivide further.
func (o *Octree) subdivide(parentKey spatial.Key, level uint8) error {
	parent, ok := o.nodes.Get(parentKey)
	if !ok {
		return nil
	}
	ids := parent.IDs()
	for _, id := range ids {
		rec, ok := o.entities.Get(id)
		if !ok {
			continue
		}
		childKey, err := spatial.EncodeAtLevel(rec.Position, level+1, o.cfg.MaxLevel)
		if err != nil {
			return fmt.Errorf("octree: subdivide: %w", err)
		}
		child := o.nodes.GetOrCreate(childKey)
		child.Add(id, o.cfg.NodeCapacity)
		o.entities.AddLocation(id, childKey)
		o.entities.RemoveLocation(id, parentKey)
		parent.MarkChild(octantOf(parentKey, childKey))
	}
	parent.Clear()
	parent.SetHasChildren(true)
	return nil
}

// octantOf returns which of the 8 children of parentKey childKey is.
// Because EncodeAtLevel's interleaving is consistent across levels,
// childKey always equals (parentKey<<3)|octant, so the octant is simply
// childKey's low 3 bits.
func octantOf(parentKey, childKey spatial.Key) uint8 {
	_ = parentKey
	return uint8(childKey & 0x7)
}

// spanningKeys enumerates the keys at level whose cube overlaps bounds.
func (o *Octree) spanningKeys(bounds spatial.AABB, level uint8) ([]spatial.Key, error) {
	limit := uint32(1)<<level - 1
	lo, err := spatial.EncodeAtLevel(bounds.Min, level, o.cfg.MaxLevel)
	if err != nil {
		return nil, fmt.Errorf("octree: spanning insert: %w", err)
	}
	hi, err := spatial.EncodeAtLevel(bounds.Max, level, o.cfg.MaxLevel)
	if err != nil {
		return nil, fmt.Errorf("octree: spanning insert: %w", err)
	}
	lx, ly, lz, _ := spatial.Decode(lo)
	hx, hy, hz, _ := spatial.Decode(hi)
	var keys []spatial.Key
	for x := lx; x <= hx && x <= limit; x++ {
		for y := ly; y <= hy && y <= limit; y++ {
			for z := lz; z <= hz && z <= limit; z++ {
				keys = append(keys, spatial.EncodeGrid(x, y, z, level))
			}
		}
	}
	return keys, nil
}

// Lookup returns the ids anchored at the cell containing pos, starting the
// search at level. If the addressed node exists but has been subdivided
// (its entities already moved down to children), Lookup recurses into
// level+1 and so on until it finds a non-subdivided node or reaches
// MaxLevel, per spec.
func (o *Octree) Lookup(pos spatial.Point3, level uint8) ([]EntityID, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for {
		key, err := spatial.EncodeAtLevel(pos, level, o.cfg.MaxLevel)
		if err != nil {
			return nil, fmt.Errorf("octree: lookup: %w", err)
		}
		node, ok := o.nodes.Get(key)
		if !ok {
			return nil, nil
		}
		if !node.HasChildren() || level >= o.cfg.MaxLevel {
			return node.IDs(), nil
		}
		level++
	}
}

// Remove deletes an entity from every node it occupies (and the R-tree
// overlay if it was bounded), pruning any node left both empty and
// childless. Reports ErrEntityNotFound if id is unknown.
func (o *Octree) Remove(id EntityID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.entities.Get(id)
	if !ok {
		return &ErrEntityNotFound{ID: id}
	}
	for _, key := range rec.Locations() {
		if node, ok := o.nodes.Get(key); ok {
			node.Remove(id)
			if node.IsEmpty() && !node.HasChildren() {
				o.nodes.Delete(key)
			}
		}
	}
	if rec.Bounds != nil {
		o.bounds.Delete(id, *rec.Bounds)
	}
	o.entities.Remove(id)
	return nil
}

// Update moves an existing entity to a new position, re-anchoring it at
// level. Bounded entities keep their existing bounds shape but are not
// re-spanned; callers that need to change an entity's bounds should Remove
// and re-InsertBounded it.
func (o *Octree) Update(id EntityID, pos spatial.Point3, level uint8) error {
	if !pos.NonNegative() {
		return &spatial.ErrInvalidCoordinate{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.entities.Get(id)
	if !ok {
		return &ErrEntityNotFound{ID: id}
	}
	for _, key := range o.entities.ClearLocations(id) {
		if node, ok := o.nodes.Get(key); ok {
			node.Remove(id)
			if node.IsEmpty() && !node.HasChildren() {
				o.nodes.Delete(key)
			}
		}
	}
	if rec.Bounds != nil {
		o.bounds.Delete(id, *rec.Bounds)
	}
	o.entities.SetPosition(id, pos)
	if err := o.placePoint(id, pos, level); err != nil {
		return err
	}
	if rec.Bounds != nil {
		extent := rec.Bounds.Max.Sub(rec.Bounds.Min)
		newBounds := spatial.AABB{Min: pos, Max: pos.Add(extent)}
		o.entities.SetBounds(id, &newBounds)
		o.bounds.Insert(id, newBounds)
	}
	return nil
}

// NodeCount returns the number of live nodes in the tree.
func (o *Octree) NodeCount() int {
	return o.nodes.Len()
}
