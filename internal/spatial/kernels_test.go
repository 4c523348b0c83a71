package spatial

import "testing"

// Scenario 3 from the spec: convex hull of the AABB [0..10]^3.
func TestConvexHullFromAABBPointContainment(t *testing.T) {
	hull := NewConvexHullFromAABB(AABB{Min: Point3{0, 0, 0}, Max: Point3{10, 10, 10}})

	if !hull.ContainsPoint(Point3{5, 5, 5}) {
		t.Error("expected (5,5,5) to be inside the hull")
	}
	if hull.ContainsPoint(Point3{11, 5, 5}) {
		t.Error("expected (11,5,5) to be outside the hull")
	}

	if d := hull.DistanceToPoint(Point3{5, 5, 5}); d != -5 {
		t.Errorf("expected distance -5, got %v", d)
	}
	if d := hull.DistanceToPoint(Point3{11, 5, 5}); d != 1 {
		t.Errorf("expected distance +1, got %v", d)
	}
}

func TestConvexHullClassifyAABB(t *testing.T) {
	hull := NewConvexHullFromAABB(AABB{Min: Point3{0, 0, 0}, Max: Point3{10, 10, 10}})

	inside := AABB{Min: Point3{1, 1, 1}, Max: Point3{2, 2, 2}}
	if got := hull.ClassifyAABB(inside); got != Inside {
		t.Errorf("expected Inside, got %v", got)
	}

	straddling := AABB{Min: Point3{8, 8, 8}, Max: Point3{12, 12, 12}}
	if got := hull.ClassifyAABB(straddling); got != Intersecting {
		t.Errorf("expected Intersecting, got %v", got)
	}

	outside := AABB{Min: Point3{20, 20, 20}, Max: Point3{22, 22, 22}}
	if got := hull.ClassifyAABB(outside); got != Outside {
		t.Errorf("expected Outside, got %v", got)
	}
}

func TestConvexHullFromPointsDegradesToAABB(t *testing.T) {
	points := []Point3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {0, 0, 10}, {5, 5, 5}}
	hull, ok, err := NewConvexHullFromPoints(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected the AABB-fallback path to report ok=false")
	}
	if hull.Exact() {
		t.Fatal("expected Exact() to be false for the AABB fallback")
	}
}

func TestConvexHullStrictRejectsFallback(t *testing.T) {
	points := []Point3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {0, 0, 10}}
	_, err := NewConvexHullStrict(points)
	if err == nil {
		t.Fatal("expected ErrHullFromVerticesNotSupported")
	}
	if _, ok := err.(*ErrHullFromVerticesNotSupported); !ok {
		t.Fatalf("expected *ErrHullFromVerticesNotSupported, got %T", err)
	}
}

func TestConvexHullTooFewPointsFails(t *testing.T) {
	_, _, err := NewConvexHullFromPoints([]Point3{{0, 0, 0}, {1, 0, 0}})
	if err == nil {
		t.Fatal("expected ErrInvalidConfiguration for fewer than 4 points")
	}
}

func TestPenetrationDepth(t *testing.T) {
	hull := NewConvexHullFromAABB(AABB{Min: Point3{0, 0, 0}, Max: Point3{10, 10, 10}})
	// Box straddling the x=10 face by 2 units.
	straddling := AABB{Min: Point3{8, 1, 1}, Max: Point3{12, 2, 2}}
	depth := hull.PenetrationDepth(straddling)
	if depth != 2 {
		t.Errorf("expected penetration depth 2, got %v", depth)
	}
}

func TestOBBRejectsNegativeCorner(t *testing.T) {
	_, err := NewOBB(Point3{1, 1, 1}, [3]Point3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [3]float64{5, 1, 1})
	if err == nil {
		t.Fatal("expected rejection of an OBB with a negative corner")
	}
}

func TestOBBAxisAlignedEmitsAABBPlanes(t *testing.T) {
	obb, err := NewOBB(Point3{5, 5, 5}, [3]Point3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [3]float64{5, 5, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hull := obb.ToHull()
	if !hull.ContainsPoint(Point3{5, 5, 5}) {
		t.Error("expected center to be contained")
	}
	if hull.ContainsPoint(Point3{11, 5, 5}) {
		t.Error("expected point outside the box to be excluded")
	}
}

func TestSATClassifyAABBSeparated(t *testing.T) {
	tetra := Tetrahedron{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	box := AABB{Min: Point3{100, 100, 100}, Max: Point3{101, 101, 101}}
	if got := SATClassifyAABB(tetra, box); got != Outside {
		t.Errorf("expected Outside for separated shapes, got %v", got)
	}
}

func TestSATClassifyAABBOverlap(t *testing.T) {
	tetra := Tetrahedron{{0, 0, 0}, {4, 0, 0}, {0, 4, 0}, {0, 0, 4}}
	box := AABB{Min: Point3{1, 1, 1}, Max: Point3{2, 2, 2}}
	if got := SATClassifyAABB(tetra, box); got == Outside {
		t.Errorf("expected overlap classification, got %v", got)
	}
}

func TestClassificationString(t *testing.T) {
	cases := map[Classification]string{
		Outside: "Outside", Intersecting: "Intersecting", Inside: "Inside", Contains: "Contains",
	}
	for c, want := range cases {
		if c.String() != want {
			t.Errorf("Classification(%d).String() = %q, want %q", c, c.String(), want)
		}
	}
}
