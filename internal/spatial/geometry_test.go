package spatial

import "testing"

func TestAABBContainsPoint(t *testing.T) {
	b := AABB{Min: Point3{0, 0, 0}, Max: Point3{10, 10, 10}}
	tests := []struct {
		name string
		p    Point3
		want bool
	}{
		{"center", Point3{5, 5, 5}, true},
		{"on boundary", Point3{0, 5, 5}, true},
		{"outside", Point3{11, 5, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.ContainsPoint(tt.p); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestAABBStrictlyContainsIsOpen(t *testing.T) {
	b := AABB{Min: Point3{0, 0, 0}, Max: Point3{10, 10, 10}}
	if b.StrictlyContainsPoint(Point3{0, 5, 5}) {
		t.Error("boundary point should not be strictly contained")
	}
	if !b.StrictlyContainsPoint(Point3{5, 5, 5}) {
		t.Error("interior point should be strictly contained")
	}
}

func TestAABBIntersectsCube(t *testing.T) {
	a := AABB{Min: Point3{0, 0, 0}, Max: Point3{10, 10, 10}}
	overlap := AABB{Min: Point3{5, 5, 5}, Max: Point3{15, 15, 15}}
	disjoint := AABB{Min: Point3{20, 20, 20}, Max: Point3{30, 30, 30}}
	if !a.IntersectsCube(overlap) {
		t.Error("expected overlap")
	}
	if a.IntersectsCube(disjoint) {
		t.Error("expected no overlap")
	}
}

// Scenario 5 from the spec: plane x=5 vs AABB [4,6]x[0,1]x[0,1] straddles.
func TestPlaneAABBStraddle(t *testing.T) {
	pl := Plane{A: 1, B: 0, C: 0, D: -5}
	b := AABB{Min: Point3{4, 0, 0}, Max: Point3{6, 1, 1}}
	if got := b.IntersectsPlane(pl); got != Intersecting {
		t.Fatalf("expected Intersecting, got %v", got)
	}
}

func TestPlaneFromPoints(t *testing.T) {
	pl, err := NewPlaneFromPoints(Point3{0, 0, 0}, Point3{1, 0, 0}, Point3{0, 1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.SignedDistance(Point3{0, 0, 1}) <= 0 {
		t.Error("expected point above the xy-plane to have positive signed distance")
	}
}

func TestPlaneFromCollinearPointsFails(t *testing.T) {
	_, err := NewPlaneFromPoints(Point3{0, 0, 0}, Point3{1, 0, 0}, Point3{2, 0, 0})
	if err == nil {
		t.Fatal("expected ErrDegenerate for collinear points")
	}
}

// Scenario 4 from the spec: sphere vs cube closest-point distance test.
func TestSphereIntersectsCube(t *testing.T) {
	s := Sphere{Center: Point3{10, 10, 10}, Radius: 3}
	near := AABB{Min: Point3{8, 8, 8}, Max: Point3{10, 10, 10}}
	if got := s.IntersectsCube(near); got == Outside {
		t.Fatalf("expected overlap, got %v", got)
	}
	far := AABB{Min: Point3{20, 20, 20}, Max: Point3{22, 22, 22}}
	if got := s.IntersectsCube(far); got != Outside {
		t.Fatalf("expected Outside, got %v", got)
	}
}

func TestRayIntersectsAABB(t *testing.T) {
	r := Ray{Origin: Point3{-5, 0.5, 0.5}, Dir: Point3{1, 0, 0}}
	b := AABB{Min: Point3{0, 0, 0}, Max: Point3{1, 1, 1}}
	tHit, hit := r.IntersectsAABB(b, 100)
	if !hit {
		t.Fatal("expected ray to hit box")
	}
	if tHit != 5 {
		t.Errorf("expected tHit=5, got %v", tHit)
	}
}

func TestRayMissesAABB(t *testing.T) {
	r := Ray{Origin: Point3{-5, 10, 10}, Dir: Point3{1, 0, 0}}
	b := AABB{Min: Point3{0, 0, 0}, Max: Point3{1, 1, 1}}
	if _, hit := r.IntersectsAABB(b, 100); hit {
		t.Fatal("expected ray to miss box")
	}
}
