package spatial

import "fmt"

// ErrInvalidCoordinate indicates a coordinate outside the positive octant
// the SFC domain is defined over.
type ErrInvalidCoordinate struct {
	X, Y, Z float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate: (%g, %g, %g) has a negative component", e.X, e.Y, e.Z)
}

// ErrDegenerate indicates a plane or hull construction whose inputs do not
// span a valid geometric object (collinear points, zero-length normal, ...).
type ErrDegenerate struct {
	Reason string
}

func (e *ErrDegenerate) Error() string {
	return fmt.Sprintf("degenerate geometry: %s", e.Reason)
}

// ErrInvalidConfiguration indicates a construction parameter outside its
// documented valid range (capacity <= 0, level out of range, too few
// vertices, ...).
type ErrInvalidConfiguration struct {
	Reason string
}

func (e *ErrInvalidConfiguration) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// ErrHullFromVerticesNotSupported is returned by NewConvexHullStrict when
// the input vertex set would otherwise silently degrade to an AABB
// fallback. See the hull-construction open question in SPEC_FULL.md.
type ErrHullFromVerticesNotSupported struct{}

func (e *ErrHullFromVerticesNotSupported) Error() string {
	return "exact convex hull construction from this vertex set is not supported; use NewConvexHullFromPoints for the AABB fallback"
}
