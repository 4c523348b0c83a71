package octree

import (
	"fmt"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/cubeindex/octree/internal/spatial"
)

// BulkRecord is one entity to place during a bulk build: its content and
// anchor position. Bulk building only handles point entities; bounded
// entities must go through InsertBounded individually.
type BulkRecord struct {
	Content  Content
	Position spatial.Point3
}

// BulkStats reports what a bulk build did, for logging and capacity
// planning.
type BulkStats struct {
	Strategy        BulkStrategy
	EntitiesPlaced  int
	NodesCreated    int
	MaxDepthReached uint8
	DuplicateIDs    int
	Elapsed         time.Duration
}

// placed pairs a BulkRecord with the EntityID already assigned to it, so
// every internal partitioning/sorting step can carry the id along without
// re-deriving it.
type placed struct {
	id  EntityID
	rec BulkRecord
}

// bulkFrame is one unit of pending work on the iterative top-down stack.
type bulkFrame struct {
	key     spatial.Key
	level   uint8
	records []placed
}

// BulkInsert loads records into the tree in one pass, using cfg's
// BulkStrategy. It returns the EntityIDs assigned, in the same order as
// records, plus build statistics.
//
// BulkInsert takes the tree's write lock for its entire duration: it is not
// meant to interleave with concurrent Insert/Remove calls, only to populate
// an empty (or nearly empty) tree quickly.
func (o *Octree) BulkInsert(records []BulkRecord) ([]EntityID, BulkStats, error) {
	start := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()

	items := make([]placed, len(records))
	ids := make([]EntityID, len(records))
	seen := bitset.New(uint(len(records)) + 1)
	var dupes int
	for i, r := range records {
		rec, err := o.entities.Put(r.Content, r.Position, nil)
		if err != nil {
			return nil, BulkStats{}, fmt.Errorf("octree: bulk insert: %w", err)
		}
		ids[i] = rec.ID
		items[i] = placed{id: rec.ID, rec: r}
		if o.cfg.TrackInsertedIDs {
			idx := uint(rec.ID) % (uint(len(records)) + 1)
			if seen.Test(idx) {
				dupes++
			}
			seen.Set(idx)
		}
	}

	if o.cfg.PreSort {
		sortByKey(items, o.cfg.MaxLevel)
	}

	var stats BulkStats
	var err error
	switch o.cfg.BulkStrategy {
	case BulkBottomUp:
		stats, err = o.bulkBottomUp(items)
	case BulkHybrid:
		stats, err = o.bulkHybrid(items)
	default:
		stats, err = o.bulkTopDown(items)
	}
	if err != nil {
		return nil, BulkStats{}, err
	}
	stats.Strategy = o.cfg.BulkStrategy
	stats.DuplicateIDs = dupes
	stats.Elapsed = time.Since(start)
	return ids, stats, nil
}

// bulkTopDown is the iterative, stack-driven top-down strategy: it starts
// with the whole batch at the root and, whenever a bucket exceeds the
// subdivision threshold and the level allows it, partitions the bucket by
// octant and pushes one frame per non-empty partition instead of inserting
// directly.
func (o *Octree) bulkTopDown(all []placed) (BulkStats, error) {
	stack := []bulkFrame{{key: spatial.Root(), level: 0, records: all}}
	var stats BulkStats

	for len(stack) > 0 {
		if len(stack) > o.cfg.MaxStackDepth {
			mid := len(stack) / 2
			for _, f := range stack[mid:] {
				o.bulkInsertDirect(f.key, f.records, &stats)
			}
			stack = stack[:mid]
			continue
		}
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if frame.level > stats.MaxDepthReached {
			stats.MaxDepthReached = frame.level
		}

		threshold := o.cfg.BulkSubdivisionThreshold
		if o.cfg.AdaptiveSubdivision {
			threshold = adaptiveThreshold(frame.records, frame.level, o.cfg.MaxLevel, threshold)
		}
		if len(frame.records) <= threshold || frame.level >= o.cfg.MaxLevel {
			o.bulkInsertDirect(frame.key, frame.records, &stats)
			continue
		}

		buckets := partitionByOctant(frame.records, frame.level, o.cfg.MaxLevel)
		node := o.nodes.GetOrCreate(frame.key)
		if frame.key != spatial.Root() || anyNonEmpty(buckets) {
			node.SetHasChildren(true)
		}
		node.Clear()
		stats.NodesCreated++
		for octant, bucket := range buckets {
			if len(bucket) == 0 {
				continue
			}
			childKey, err := spatial.Child(frame.key, uint8(octant))
			if err != nil {
				return stats, fmt.Errorf("octree: bulk top-down: %w", err)
			}
			node.MarkChild(uint8(octant))
			stack = append(stack, bulkFrame{key: childKey, level: frame.level + 1, records: bucket})
		}
	}
	return stats, nil
}

// adaptiveThreshold lowers base for a bucket whose records cluster tightly
// in space relative to the cell size at level: a bucket whose bounding-box
// diagonal spans less than a quarter of the cell's edge length is treated as
// dense, and split at half the usual threshold so it refines sooner than a
// uniformly-spread bucket of the same size would.
func adaptiveThreshold(records []placed, level, maxLevel uint8, base int) int {
	if len(records) == 0 {
		return base
	}
	box := spatial.AABB{Min: records[0].rec.Position, Max: records[0].rec.Position}
	for _, p := range records[1:] {
		box = box.Union(spatial.AABB{Min: p.rec.Position, Max: p.rec.Position})
	}
	diag := box.Min.DistanceTo(box.Max)
	cell := spatial.LengthAtLevel(level, maxLevel)
	if diag < cell/4 {
		half := base / 2
		if half < 1 {
			half = 1
		}
		return half
	}
	return base
}

func anyNonEmpty(buckets [8][]placed) bool {
	for _, b := range buckets {
		if len(b) > 0 {
			return true
		}
	}
	return false
}

// bulkBottomUp buckets every record directly into its finest-allowed cell,
// then walks the resulting node set from the deepest level upward, merging
// a full set of 8 siblings into their parent whenever the merged count
// still fits within NodeCapacity.
func (o *Octree) bulkBottomUp(all []placed) (BulkStats, error) {
	buckets := make(map[spatial.Key][]placed)
	for _, p := range all {
		key, err := spatial.EncodeAtLevel(p.rec.Position, o.cfg.MaxLevel, o.cfg.MaxLevel)
		if err != nil {
			return BulkStats{}, fmt.Errorf("octree: bulk bottom-up: %w", err)
		}
		buckets[key] = append(buckets[key], p)
	}

	var stats BulkStats
	stats.MaxDepthReached = o.cfg.MaxLevel
	for key, records := range buckets {
		o.bulkInsertDirect(key, records, &stats)
	}

	// Merge upward level by level while a full parent fits capacity.
	for level := o.cfg.MaxLevel; level > 0; level-- {
		parents := make(map[spatial.Key][]spatial.Key)
		o.nodes.Each(func(key spatial.Key, n *Node) {
			if n.HasChildren() || spatial.LevelOf(key) != level {
				return
			}
			parent, err := spatial.Parent(key)
			if err != nil {
				return
			}
			parents[parent] = append(parents[parent], key)
		})
		for parent, children := range parents {
			if len(children) < 8 {
				continue
			}
			total := 0
			for _, ck := range children {
				if n, ok := o.nodes.Get(ck); ok {
					total += n.Size()
				}
			}
			if total > o.cfg.NodeCapacity {
				continue
			}
			pnode := o.nodes.GetOrCreate(parent)
			for _, ck := range children {
				cnode, ok := o.nodes.Get(ck)
				if !ok {
					continue
				}
				for _, id := range cnode.IDs() {
					pnode.Add(id, o.cfg.NodeCapacity)
					o.entities.AddLocation(id, parent)
					o.entities.RemoveLocation(id, ck)
				}
				o.nodes.Delete(ck)
			}
		}
	}
	return stats, nil
}

// bulkHybrid buckets top-down to a shallow fan-out level, then finishes
// each resulting bucket with the bottom-up merge strategy.
func (o *Octree) bulkHybrid(all []placed) (BulkStats, error) {
	const fanOutLevel = uint8(2)
	shallow := fanOutLevel
	if shallow > o.cfg.MaxLevel {
		shallow = o.cfg.MaxLevel
	}
	buckets := make(map[spatial.Key][]placed)
	for _, p := range all {
		key, err := spatial.EncodeAtLevel(p.rec.Position, shallow, o.cfg.MaxLevel)
		if err != nil {
			return BulkStats{}, fmt.Errorf("octree: bulk hybrid: %w", err)
		}
		buckets[key] = append(buckets[key], p)
	}

	var stats BulkStats
	for _, bucket := range buckets {
		sub, err := o.bulkBottomUp(bucket)
		if err != nil {
			return stats, err
		}
		stats.NodesCreated += sub.NodesCreated
		stats.EntitiesPlaced += sub.EntitiesPlaced
		if sub.MaxDepthReached > stats.MaxDepthReached {
			stats.MaxDepthReached = sub.MaxDepthReached
		}
	}
	return stats, nil
}

// bulkInsertDirect adds every record in records straight into the node at
// key with no further partitioning, the terminal action of all three
// strategies once a bucket is small enough or the level is exhausted.
func (o *Octree) bulkInsertDirect(key spatial.Key, records []placed, stats *BulkStats) {
	_, existed := o.nodes.Get(key)
	node := o.nodes.GetOrCreate(key)
	if !existed {
		stats.NodesCreated++
	}
	for _, p := range records {
		node.Add(p.id, o.cfg.NodeCapacity)
		o.entities.AddLocation(p.id, key)
		stats.EntitiesPlaced++
	}
}

func partitionByOctant(records []placed, level, maxLevel uint8) [8][]placed {
	var buckets [8][]placed
	for _, p := range records {
		childKey, err := spatial.EncodeAtLevel(p.rec.Position, level+1, maxLevel)
		if err != nil {
			continue
		}
		buckets[childKey&0x7] = append(buckets[childKey&0x7], p)
	}
	return buckets
}

func sortByKey(items []placed, maxLevel uint8) {
	sort.Slice(items, func(i, j int) bool {
		ki, _ := spatial.EncodeAtLevel(items[i].rec.Position, maxLevel, maxLevel)
		kj, _ := spatial.EncodeAtLevel(items[j].rec.Position, maxLevel, maxLevel)
		return ki < kj
	})
}
