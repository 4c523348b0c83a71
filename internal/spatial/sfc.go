// Package spatial implements the pure building blocks of
// the octree: the space-filling-curve key codec and the geometric
// primitives and intersection kernels the public octree package builds on.
//
// Nothing in this package touches the node store, the entity store, or any
// mutable state; every function here is a total, side-effect-free
// computation over its arguments.
package spatial

import "math/bits"

// Key is a space-filling-curve key that encodes both a cubic cell's
// identity and its refinement level within the positive-octant grid.
//
// The encoding is a bit-interleaved (Morton / Z-order) locational code: the
// key's highest set bit is a sentinel marking the level, and the bits below
// it interleave the cell's grid coordinates in (x, y, z) order, three bits
// per step. This makes Parent, Child, and LevelOf simple shifts rather than
// separate bookkeeping.
type Key uint64

// HardMaxLevel is the architectural ceiling on refinement depth: 21 bits of
// grid resolution per axis, interleaved three at a time, keeps the deepest
// key within 63 payload bits plus the sentinel bit, fitting a uint64.
//
// An individual octree picks its own, usually shallower, configured max
// level (see Config.MaxLevel); HardMaxLevel only bounds what the key format
// itself can represent, and is what Child refuses to go past.
const HardMaxLevel uint8 = 21

// Root is the level-0 key: the entire positive octant as a single cell.
func Root() Key { return Key(1) }

// LengthAtLevel returns the world-space edge length of a cube at level,
// given the octree's configured maxLevel: 2^(maxLevel-level).
func LengthAtLevel(level, maxLevel uint8) float64 {
	if maxLevel > HardMaxLevel {
		maxLevel = HardMaxLevel
	}
	if level > maxLevel {
		level = maxLevel
	}
	return float64(uint64(1) << (maxLevel - level))
}

// LevelOf returns the refinement level encoded in key.
func LevelOf(key Key) uint8 {
	if key == 0 {
		return 0
	}
	msb := bits.Len64(uint64(key)) - 1
	return uint8(msb / 3)
}

// Parent returns the key one level coarser than key.
//
// Returns ErrInvalidConfiguration if key is already the root.
func Parent(key Key) (Key, error) {
	if LevelOf(key) == 0 {
		return 0, &ErrInvalidConfiguration{Reason: "root key has no parent"}
	}
	return key >> 3, nil
}

// Child returns the key of octant i (0..7) of key, one level finer.
//
// Returns ErrInvalidConfiguration if i is out of range or key is already at
// HardMaxLevel.
func Child(key Key, i uint8) (Key, error) {
	if i > 7 {
		return 0, &ErrInvalidConfiguration{Reason: "octant index must be in [0,7]"}
	}
	if LevelOf(key) >= HardMaxLevel {
		return 0, &ErrInvalidConfiguration{Reason: "key is already at max level"}
	}
	return (key << 3) | Key(i), nil
}

// EncodeGrid builds the key for the cell at integer grid coordinates
// (x, y, z) at the given level. x, y, z must each fit in `level` bits;
// callers that cannot guarantee this should go through EncodeAtLevel, which
// derives the grid coordinates from a world position and saturates them.
func EncodeGrid(x, y, z uint32, level uint8) Key {
	return (Key(1) << (3 * uint64(level))) | Key(interleave3(x, y, z, level))
}

// EncodeAtLevel computes the key of the cell at level that contains p,
// given the octree's configured maxLevel (used only to derive the
// world-space cell size; the key's own structural level is `level`).
//
// p must have all non-negative components; ErrInvalidCoordinate is returned
// otherwise. A component whose grid index would exceed the level's grid
// saturates to the last valid cell on that axis.
func EncodeAtLevel(p Point3, level, maxLevel uint8) (Key, error) {
	if p.X < 0 || p.Y < 0 || p.Z < 0 {
		return 0, &ErrInvalidCoordinate{X: p.X, Y: p.Y, Z: p.Z}
	}
	if maxLevel > HardMaxLevel {
		maxLevel = HardMaxLevel
	}
	if level > maxLevel {
		level = maxLevel
	}
	step := LengthAtLevel(level, maxLevel)
	limit := uint32(1)<<level - 1
	gx := gridIndex(p.X, step, limit)
	gy := gridIndex(p.Y, step, limit)
	gz := gridIndex(p.Z, step, limit)
	return EncodeGrid(gx, gy, gz, level), nil
}

func gridIndex(v, step float64, limit uint32) uint32 {
	g := uint32(v / step)
	if g > limit {
		g = limit
	}
	return g
}

// Encode computes the key of the finest-level (HardMaxLevel) cell
// containing integer grid coordinates x, y, z. Each axis saturates to
// 2^HardMaxLevel-1 when it exceeds the grid; a negative component is
// InvalidCoordinate.
func Encode(x, y, z int64) (Key, error) {
	if x < 0 || y < 0 || z < 0 {
		return 0, &ErrInvalidCoordinate{X: float64(x), Y: float64(y), Z: float64(z)}
	}
	const limit = uint32(1)<<HardMaxLevel - 1
	ux, uy, uz := uint32(x), uint32(y), uint32(z)
	if x > int64(limit) {
		ux = limit
	}
	if y > int64(limit) {
		uy = limit
	}
	if z > int64(limit) {
		uz = limit
	}
	return EncodeGrid(ux, uy, uz, HardMaxLevel), nil
}

// Decode is the exact inverse of EncodeGrid: it recovers the grid
// coordinates and level encoded in key.
func Decode(key Key) (x, y, z uint32, level uint8) {
	level = LevelOf(key)
	mask := Key(1)<<(3*uint64(level)) - 1
	x, y, z = deinterleave3(uint64(key&mask), level)
	return
}

// DecodePosition returns the world-space minimum corner of the cube
// addressed by key, given the octree's configured maxLevel.
func DecodePosition(key Key, maxLevel uint8) Point3 {
	x, y, z, level := Decode(key)
	step := LengthAtLevel(level, maxLevel)
	return Point3{X: float64(x) * step, Y: float64(y) * step, Z: float64(z) * step}
}

// interleave3 spreads the low `bits` bits of x, y, z into a single integer,
// placing bit i of x at position 3i, bit i of y at 3i+1, bit i of z at 3i+2.
func interleave3(x, y, z uint32, bits uint8) uint64 {
	var key uint64
	for i := uint8(0); i < bits; i++ {
		key |= uint64((x>>i)&1) << (3 * i)
		key |= uint64((y>>i)&1) << (3*i + 1)
		key |= uint64((z>>i)&1) << (3*i + 2)
	}
	return key
}

// deinterleave3 is the exact inverse of interleave3.
func deinterleave3(key uint64, bits uint8) (x, y, z uint32) {
	for i := uint8(0); i < bits; i++ {
		x |= uint32((key>>(3*i))&1) << i
		y |= uint32((key>>(3*i+1))&1) << i
		z |= uint32((key>>(3*i+2))&1) << i
	}
	return
}
