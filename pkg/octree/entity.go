package octree

import (
	"sync"
	"sync/atomic"

	"github.com/cubeindex/octree/internal/spatial"
)

// EntityID is the opaque, comparable handle an Octree hands back for every
// piece of content it stores. Application code never constructs one itself;
// it always comes from Insert, or from a caller-supplied EntityIDGenerator.
type EntityID uint64

// Content is the caller-owned payload attached to an entity. The octree
// never inspects it; it only carries it alongside position and bounds.
type Content any

// ContentCodec is an external collaborator for callers that persist or
// transmit entity content (e.g. the distributed cross-partition balance
// protocol named in §1 of the spec this module implements). The core never
// calls it itself: content lives in the entity store as an opaque Content
// value for the lifetime of the process, and only a caller that needs to
// move an entity off-process reaches for a codec.
type ContentCodec interface {
	Serialize(content Content) ([]byte, error)
	Deserialize(data []byte) (Content, error)
}

// EntityIDGenerator mints EntityIDs for newly inserted entities. The default
// generator (see newAtomicGenerator) is an atomic counter owned by each
// entity store, starting at 1;
// callers that need ids stable across restarts or coordinated with an
// external system can plug in their own.
type EntityIDGenerator interface {
	Next() (EntityID, error)
}

type atomicGenerator struct {
	counter atomic.Uint64
}

func newAtomicGenerator() *atomicGenerator { return &atomicGenerator{} }

func (g *atomicGenerator) Next() (EntityID, error) {
	return EntityID(g.counter.Add(1)), nil
}

// EntityRecord is the stored state for one entity: its content, its anchor
// position, an optional bounding box for spanning entities, and the set of
// node keys it currently occupies.
type EntityRecord struct {
	ID        EntityID
	Content   Content
	Position  spatial.Point3
	Bounds    *spatial.AABB
	locations map[spatial.Key]struct{}
}

// Locations returns a snapshot of the node keys this entity currently
// occupies. A single-point entity occupies exactly one; a spanning entity
// with bounds may occupy several.
func (r *EntityRecord) Locations() []spatial.Key {
	keys := make([]spatial.Key, 0, len(r.locations))
	for k := range r.locations {
		keys = append(keys, k)
	}
	return keys
}

// EntityStore owns the authoritative record for every live entity. Reads
// (Get, Position, Bounds, Locations) may run concurrently; writes are
// serialized by the enclosing Octree's write lock, so the store itself only
// needs to protect against concurrent readers observing a torn map.
type EntityStore struct {
	mu      sync.RWMutex
	records map[EntityID]*EntityRecord
	idGen   EntityIDGenerator
}

func newEntityStore(idGen EntityIDGenerator) *EntityStore {
	if idGen == nil {
		idGen = newAtomicGenerator()
	}
	return &EntityStore{records: make(map[EntityID]*EntityRecord), idGen: idGen}
}

// Put allocates a new id and stores a fresh record for content at position,
// with optional bounds (nil for a point entity).
func (s *EntityStore) Put(content Content, pos spatial.Point3, bounds *spatial.AABB) (*EntityRecord, error) {
	id, err := s.idGen.Next()
	if err != nil {
		return nil, err
	}
	rec := &EntityRecord{
		ID:        id,
		Content:   content,
		Position:  pos,
		Bounds:    bounds,
		locations: make(map[spatial.Key]struct{}),
	}
	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()
	return rec, nil
}

// Get returns the record for id, if one exists.
func (s *EntityStore) Get(id EntityID) (*EntityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// AddLocation records that id now occupies key.
func (s *EntityStore) AddLocation(id EntityID, key spatial.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.locations[key] = struct{}{}
	}
}

// RemoveLocation records that id no longer occupies key.
func (s *EntityStore) RemoveLocation(id EntityID, key spatial.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		delete(rec.locations, key)
	}
}

// ClearLocations drops every node key recorded for id, returning the set
// that was cleared so the caller can remove id from each node in turn.
func (s *EntityStore) ClearLocations(id EntityID) []spatial.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	keys := make([]spatial.Key, 0, len(rec.locations))
	for k := range rec.locations {
		keys = append(keys, k)
	}
	rec.locations = make(map[spatial.Key]struct{})
	return keys
}

// SetBounds replaces id's stored bounds in place (used by Update when the
// entity carries a bounding box).
func (s *EntityStore) SetBounds(id EntityID, bounds *spatial.AABB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Bounds = bounds
	}
}

// SetPosition updates id's anchor position in place (used by Update).
func (s *EntityStore) SetPosition(id EntityID, pos spatial.Point3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Position = pos
	}
}

// Remove deletes id's record entirely, returning it so the caller can tear
// down its node memberships and rtree overlay entry.
func (s *EntityStore) Remove(id EntityID) (*EntityRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if ok {
		delete(s.records, id)
	}
	return rec, ok
}

// Len returns the number of live entities.
func (s *EntityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns every live record. Used by bulk statistics and full scans;
// callers must not mutate the returned records.
func (s *EntityStore) All() []*EntityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EntityRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}
