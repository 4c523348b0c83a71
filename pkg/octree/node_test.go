package octree

import (
	"testing"

	"github.com/cubeindex/octree/internal/spatial"
)

func TestNodeAddReportsSplitOnOverflow(t *testing.T) {
	n := newNode()
	const capacity = 2
	if split := n.Add(EntityID(1), capacity); split {
		t.Fatal("expected no split at 1/2 capacity")
	}
	if split := n.Add(EntityID(2), capacity); split {
		t.Fatal("expected no split at exactly capacity")
	}
	if split := n.Add(EntityID(3), capacity); !split {
		t.Fatal("expected split once capacity is exceeded")
	}
	if n.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", n.Size())
	}
}

func TestNodeRemoveAndClear(t *testing.T) {
	n := newNode()
	n.Add(EntityID(1), 10)
	n.Add(EntityID(2), 10)
	n.Remove(EntityID(1))
	if n.Size() != 1 {
		t.Fatalf("Size() = %d after Remove, want 1", n.Size())
	}
	n.Clear()
	if !n.IsEmpty() {
		t.Fatal("expected node empty after Clear")
	}
}

func TestNodeChildMask(t *testing.T) {
	n := newNode()
	if n.HasChildren() {
		t.Fatal("new node should not report HasChildren")
	}
	n.MarkChild(3)
	n.MarkChild(5)
	if !n.HasChild(3) || !n.HasChild(5) {
		t.Fatal("expected octants 3 and 5 marked")
	}
	if n.HasChild(0) {
		t.Fatal("octant 0 should not be marked")
	}
	if n.ChildCount() != 2 {
		t.Fatalf("ChildCount() = %d, want 2", n.ChildCount())
	}
	n.UnmarkChild(3)
	if n.ChildCount() != 1 {
		t.Fatalf("ChildCount() = %d after unmark, want 1", n.ChildCount())
	}
	n.SetHasChildren(true)
	if !n.HasChildren() {
		t.Fatal("expected HasChildren true after SetHasChildren(true)")
	}
}

func TestNodeStoreGetOrCreateIsIdempotent(t *testing.T) {
	s := newNodeStore()
	key := spatial.EncodeGrid(1, 2, 3, 4)
	n1 := s.GetOrCreate(key)
	n2 := s.GetOrCreate(key)
	if n1 != n2 {
		t.Fatal("expected GetOrCreate to return the same node for the same key")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestNodeStoreKeysAreSorted(t *testing.T) {
	s := newNodeStore()
	keys := []spatial.Key{spatial.EncodeGrid(5, 0, 0, 3), spatial.EncodeGrid(1, 0, 0, 3), spatial.EncodeGrid(3, 0, 0, 3)}
	for _, k := range keys {
		s.GetOrCreate(k)
	}
	sorted := s.Keys()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] > sorted[i] {
			t.Fatalf("Keys() not sorted: %v", sorted)
		}
	}
}

func TestNodeStoreDeleteRemovesFromSortedIndex(t *testing.T) {
	s := newNodeStore()
	key := spatial.EncodeGrid(1, 1, 1, 3)
	s.GetOrCreate(key)
	s.Delete(key)
	if s.Len() != 0 {
		t.Fatalf("Len() = %d after Delete, want 0", s.Len())
	}
	if len(s.Keys()) != 0 {
		t.Fatal("expected empty sorted key index after Delete")
	}
	if _, ok := s.Get(key); ok {
		t.Fatal("expected Get to report not found after Delete")
	}
}

func TestNodeStoreEachVisitsAllInOrder(t *testing.T) {
	s := newNodeStore()
	for i := uint32(0); i < 5; i++ {
		s.GetOrCreate(spatial.EncodeGrid(i, 0, 0, 4))
	}
	var seen []spatial.Key
	s.Each(func(key spatial.Key, n *Node) { seen = append(seen, key) })
	if len(seen) != 5 {
		t.Fatalf("Each visited %d nodes, want 5", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i-1] > seen[i] {
			t.Fatalf("Each did not visit in sorted order: %v", seen)
		}
	}
}
