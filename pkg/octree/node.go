package octree

import (
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/cubeindex/octree/internal/spatial"
)

// Node is one cell of the octree: the set of entity ids currently anchored
// there, and whether it has been subdivided. A node with hasChildren set is
// always empty of entities — subdivision moves every entity down to the
// appropriate child and never leaves a node both occupied and split.
type Node struct {
	ids         map[EntityID]struct{}
	childMask   *bitset.BitSet // octants marked when a child node was created; pruning a child does not clear its bit
	hasChildren bool
}

func newNode() *Node {
	return &Node{ids: make(map[EntityID]struct{}), childMask: bitset.New(8)}
}

// Add inserts id into the node and reports whether the node's size now
// exceeds capacity (the caller decides whether that should trigger
// subdivision — single-content mode and max-level both suppress it).
func (n *Node) Add(id EntityID, capacity int) (shouldSplit bool) {
	n.ids[id] = struct{}{}
	return len(n.ids) > capacity
}

// Remove deletes id from the node, a no-op if it is not present.
func (n *Node) Remove(id EntityID) { delete(n.ids, id) }

// Clear empties the node's entity set, used right after subdivision
// redistributes every id to a child.
func (n *Node) Clear() { n.ids = make(map[EntityID]struct{}) }

// IsEmpty reports whether the node currently holds no entities.
func (n *Node) IsEmpty() bool { return len(n.ids) == 0 }

// Size returns the number of entities currently anchored at this node.
func (n *Node) Size() int { return len(n.ids) }

// HasChildren reports whether the node has been subdivided.
func (n *Node) HasChildren() bool { return n.hasChildren }

// SetHasChildren marks the node as subdivided, or clears that mark if v is
// false.
func (n *Node) SetHasChildren(v bool) { n.hasChildren = v }

// MarkChild records that a child node was created in octant i.
func (n *Node) MarkChild(i uint8) { n.childMask.Set(uint(i)) }

// UnmarkChild clears octant i's mark. The octree's Remove and Update do not
// call it when they prune an empty child node.
func (n *Node) UnmarkChild(i uint8) { n.childMask.Clear(uint(i)) }

// HasChild reports whether octant i is marked.
func (n *Node) HasChild(i uint8) bool { return n.childMask.Test(uint(i)) }

// ChildCount returns how many of the 8 octants are marked.
func (n *Node) ChildCount() int { return int(n.childMask.Count()) }

// IDs returns a snapshot of every entity id anchored at this node.
func (n *Node) IDs() []EntityID {
	ids := make([]EntityID, 0, len(n.ids))
	for id := range n.ids {
		ids = append(ids, id)
	}
	return ids
}

// NodeStore owns every live node, keyed by its SFC key, plus a sorted index
// of keys for range and ordered-iteration queries. Like EntityStore, reads
// may run concurrently; writes are serialized by the enclosing Octree.
type NodeStore struct {
	mu     sync.RWMutex
	nodes  map[spatial.Key]*Node
	sorted []spatial.Key
}

func newNodeStore() *NodeStore {
	return &NodeStore{nodes: make(map[spatial.Key]*Node)}
}

// Get returns the node at key, if one exists.
func (s *NodeStore) Get(key spatial.Key) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[key]
	return n, ok
}

// GetOrCreate returns the node at key, creating an empty one and inserting
// it into the sorted key index if absent.
func (s *NodeStore) GetOrCreate(key spatial.Key) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[key]; ok {
		return n
	}
	n := newNode()
	s.nodes[key] = n
	s.insertSorted(key)
	return n
}

// Delete removes the node at key entirely, used when a node becomes empty
// and has no children.
func (s *NodeStore) Delete(key spatial.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[key]; !ok {
		return
	}
	delete(s.nodes, key)
	i := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] >= key })
	if i < len(s.sorted) && s.sorted[i] == key {
		s.sorted = append(s.sorted[:i], s.sorted[i+1:]...)
	}
}

func (s *NodeStore) insertSorted(key spatial.Key) {
	i := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] >= key })
	s.sorted = append(s.sorted, 0)
	copy(s.sorted[i+1:], s.sorted[i:])
	s.sorted[i] = key
}

// Keys returns every node key in ascending SFC order.
func (s *NodeStore) Keys() []spatial.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]spatial.Key, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Len returns the number of live nodes.
func (s *NodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Each visits every live node and its key in ascending SFC order. fn must
// not mutate the store.
func (s *NodeStore) Each(fn func(key spatial.Key, n *Node)) {
	s.mu.RLock()
	keys := make([]spatial.Key, len(s.sorted))
	copy(keys, s.sorted)
	s.mu.RUnlock()
	for _, k := range keys {
		s.mu.RLock()
		n, ok := s.nodes[k]
		s.mu.RUnlock()
		if ok {
			fn(k, n)
		}
	}
}
