package octree

import (
	"time"

	"github.com/cubeindex/octree/internal/spatial"
)

// BulkStrategy selects the traversal order the bulk builder uses to turn a
// batch of entities into a tree in one pass.
type BulkStrategy int

const (
	// BulkTopDown partitions entities into octants starting from the root
	// and recurses only where a partition still exceeds capacity.
	BulkTopDown BulkStrategy = iota
	// BulkBottomUp buckets entities directly into their finest-level cells
	// and merges siblings upward wherever a merged parent would still fit
	// within capacity.
	BulkBottomUp
	// BulkHybrid buckets at a shallow level top-down, then finishes each
	// bucket bottom-up; a reasonable default for skewed distributions.
	BulkHybrid
)

func (s BulkStrategy) String() string {
	switch s {
	case BulkTopDown:
		return "top_down"
	case BulkBottomUp:
		return "bottom_up"
	case BulkHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Config controls every tunable aspect of an Octree: subdivision policy,
// bulk-build strategy, and the parallel executor used by queries and bulk
// loads. Build one with DefaultConfig and override only the fields a
// caller cares about.
type Config struct {
	// NodeCapacity is the number of entities a node may hold before it is
	// considered for subdivision. Must be >= 1.
	NodeCapacity int

	// MaxLevel is the deepest refinement level the tree will subdivide to.
	// Must be in [1, spatial.HardMaxLevel].
	MaxLevel uint8

	// SpanningEnabled allows entities with a bounding box to occupy every
	// node their box overlaps at the insertion level, rather than being
	// anchored to a single cell by their point position alone.
	SpanningEnabled bool

	// SingleContentMode forces NodeCapacity to 1 and disables subdivision
	// past the insertion level entirely: no node ever splits. It does not
	// cap a node's entity count; several entities inserted into the same
	// cell all stay in that one node.
	SingleContentMode bool

	// BulkStrategy selects the bulk builder's traversal order.
	BulkStrategy BulkStrategy

	// BulkSubdivisionThreshold is the bucket size above which the top-down
	// bulk builder subdivides further; a bucket of at most this many
	// entities is inserted directly even if it exceeds NodeCapacity. Zero
	// means "use NodeCapacity".
	BulkSubdivisionThreshold int

	// PreSort sorts the input batch by SFC key before a bulk build, for
	// cache locality. BulkBottomUp's merge pass scans every level whether
	// or not the batch was sorted.
	PreSort bool

	// TrackInsertedIDs has the bulk builder maintain a bitset of ids
	// already placed, so a batch containing the same id twice is
	// detected and reported rather than silently double-inserted.
	TrackInsertedIDs bool

	// MaxStackDepth bounds the explicit stack the bulk builder uses for
	// its iterative top-down descent (BulkBottomUp and BulkHybrid use no
	// stack). When more frames than this are pending, the builder drains
	// half the stack by inserting those frames' records directly instead
	// of growing further.
	MaxStackDepth int

	// AdaptiveSubdivision lowers the effective subdivision threshold for
	// buckets whose entities cluster tightly in space (a tight bounding
	// box relative to the cell size), so dense clusters split sooner than
	// NodeCapacity alone would trigger.
	AdaptiveSubdivision bool

	// ParallelThreads is the worker count the parallel executor spins up.
	// Zero means runtime.GOMAXPROCS(0).
	ParallelThreads int

	// ParallelMinSize is the smallest input size the executor will bother
	// parallelizing; smaller inputs run sequentially in the caller's
	// goroutine.
	ParallelMinSize int

	// ParallelChunkSize is the number of items each worker processes per
	// unit of work. Zero means the executor picks one based on input size
	// and thread count.
	ParallelChunkSize int

	// ParallelTimeout bounds how long the executor waits for all chunks to
	// finish before returning the completed chunks with ExecResult.TimedOut
	// set. Zero means no timeout.
	ParallelTimeout time.Duration

	// IDGenerator mints EntityIDs for newly inserted entities. Nil means
	// an atomic counter owned by the tree, starting at 1.
	IDGenerator EntityIDGenerator
}

// DefaultConfig returns the Config used when New is called with the zero
// value: capacity 10, max level 21, spanning off, single-content off, a
// top-down bulk strategy, and a parallel executor sized to the host.
func DefaultConfig() Config {
	return Config{
		NodeCapacity:        10,
		MaxLevel:            spatial.HardMaxLevel,
		SpanningEnabled:     false,
		SingleContentMode:   false,
		BulkStrategy:        BulkTopDown,
		PreSort:             true,
		TrackInsertedIDs:    true,
		MaxStackDepth:       4096,
		AdaptiveSubdivision: false,
		ParallelThreads:     0,
		ParallelMinSize:     1024,
		ParallelChunkSize:   0,
		ParallelTimeout:     0,
	}
}

// normalize applies SingleContentMode's override and fills in defaulted
// fields (BulkSubdivisionThreshold, MaxStackDepth), returning an error when
// NodeCapacity or MaxLevel is out of its valid range.
func (c Config) normalize() (Config, error) {
	if c.NodeCapacity <= 0 {
		return c, &spatial.ErrInvalidConfiguration{Reason: "NodeCapacity must be >= 1"}
	}
	if c.MaxLevel == 0 || c.MaxLevel > spatial.HardMaxLevel {
		return c, &spatial.ErrInvalidConfiguration{Reason: "MaxLevel must be in [1, spatial.HardMaxLevel]"}
	}
	if c.SingleContentMode {
		c.NodeCapacity = 1
	}
	if c.BulkSubdivisionThreshold <= 0 {
		c.BulkSubdivisionThreshold = c.NodeCapacity
	}
	if c.MaxStackDepth <= 0 {
		c.MaxStackDepth = 4096
	}
	return c, nil
}
