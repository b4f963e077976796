package imageio

import "testing"

func TestROIBasics(t *testing.T) {
	r := NewROI(0, 640, 0, 480)
	if r.Width() != 640 || r.Height() != 480 || r.Depth() != 1 {
		t.Fatalf("unexpected extents: %s", r)
	}
	if r.NPixels() != 640*480 {
		t.Errorf("NPixels = %d", r.NPixels())
	}
	if !r.Defined() {
		t.Error("constructed ROI should be defined")
	}
	if ROIAll().Defined() {
		t.Error("ROIAll should be undefined")
	}
}

func TestROIContains(t *testing.T) {
	r := ROI{10, 20, 10, 20, 0, 1, 0, 4}
	tests := []struct {
		x, y, z int
		in      bool
	}{
		{10, 10, 0, true},
		{19, 19, 0, true},
		{20, 10, 0, false},
		{10, 9, 0, false},
		{15, 15, 1, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y, tt.z); got != tt.in {
			t.Errorf("Contains(%d, %d, %d) = %v, want %v", tt.x, tt.y, tt.z, got, tt.in)
		}
	}
	if !r.ContainsROI(ROI{12, 18, 12, 18, 0, 1, 0, 4}) {
		t.Error("inner region should be contained")
	}
	if r.ContainsROI(ROI{12, 28, 12, 18, 0, 1, 0, 4}) {
		t.Error("overhanging region should not be contained")
	}
}

func TestROIUnionIntersection(t *testing.T) {
	a := ROI{0, 10, 0, 10, 0, 1, 0, 3}
	b := ROI{5, 15, -5, 5, 0, 1, 0, 4}
	u := Union(a, b)
	if u != (ROI{0, 15, -5, 10, 0, 1, 0, 4}) {
		t.Errorf("union = %s", u)
	}
	i := Intersection(a, b)
	if i != (ROI{5, 10, 0, 5, 0, 1, 0, 3}) {
		t.Errorf("intersection = %s", i)
	}

	// disjoint regions intersect to empty
	c := ROI{100, 110, 0, 10, 0, 1, 0, 3}
	if got := Intersection(a, c); got.NPixels() != 0 {
		t.Errorf("disjoint intersection has %d pixels", got.NPixels())
	}

	// the undefined ROI is the identity for union
	if Union(ROIAll(), a) != a || Union(a, ROIAll()) != a {
		t.Error("union with undefined should return the defined operand")
	}
}
