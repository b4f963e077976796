package imageio

import "testing"

func newTestDeep(npixels int) *DeepData {
	return NewDeepData(npixels,
		[]TypeDesc{TypeFloat, TypeFloat, TypeUInt32},
		[]string{"R", "A", "id"})
}

func TestDeepSampleCounts(t *testing.T) {
	d := newTestDeep(10)
	if d.NPixels() != 10 || d.NChannels() != 3 {
		t.Fatalf("shape %d x %d", d.NPixels(), d.NChannels())
	}
	for p := 0; p < 10; p++ {
		if d.Samples(p) != 0 {
			t.Fatalf("pixel %d starts with %d samples", p, d.Samples(p))
		}
	}
	if err := d.SetSamples(3, 3); err != nil {
		t.Fatal(err)
	}
	if d.Samples(3) != 3 || d.TotalSamples() != 3 {
		t.Errorf("samples %d total %d", d.Samples(3), d.TotalSamples())
	}
	if err := d.SetSamples(42, 1); err == nil {
		t.Error("out of range pixel accepted")
	}
}

func TestDeepValues(t *testing.T) {
	d := newTestDeep(4)
	d.SetSamples(1, 2)
	d.SetDeepValue(1, 0, 0, 0.5)
	d.SetDeepValue(1, 0, 1, 0.25)
	d.SetDeepValueUint(1, 2, 0, 7001)

	if got := d.DeepValue(1, 0, 0); got != 0.5 {
		t.Errorf("sample 0 = %v, want 0.5", got)
	}
	if got := d.DeepValue(1, 0, 1); got != 0.25 {
		t.Errorf("sample 1 = %v, want 0.25", got)
	}
	if got := d.DeepValueUint(1, 2, 0); got != 7001 {
		t.Errorf("id sample = %d, want 7001", got)
	}
	// out of range reads are zero, not panics
	if d.DeepValue(1, 0, 5) != 0 || d.DeepValue(9, 0, 0) != 0 {
		t.Error("out of range read should be zero")
	}
}

func TestDeepInsertErase(t *testing.T) {
	d := newTestDeep(2)
	d.SetSamples(0, 2)
	d.SetDeepValue(0, 0, 0, 1.0)
	d.SetDeepValue(0, 0, 1, 2.0)

	if err := d.InsertSamples(0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if d.Samples(0) != 3 {
		t.Fatalf("after insert, %d samples", d.Samples(0))
	}
	got := []float32{d.DeepValue(0, 0, 0), d.DeepValue(0, 0, 1), d.DeepValue(0, 0, 2)}
	if got[0] != 1.0 || got[1] != 0.0 || got[2] != 2.0 {
		t.Errorf("after insert: %v", got)
	}

	if err := d.EraseSamples(0, 0, 2); err != nil {
		t.Fatal(err)
	}
	if d.Samples(0) != 1 || d.DeepValue(0, 0, 0) != 2.0 {
		t.Errorf("after erase: %d samples, first %v", d.Samples(0), d.DeepValue(0, 0, 0))
	}

	if err := d.EraseSamples(0, 0, 5); err == nil {
		t.Error("erase past the end accepted")
	}
}

func TestDeepShrinkPreservesPrefix(t *testing.T) {
	d := newTestDeep(1)
	d.SetSamples(0, 3)
	for s := 0; s < 3; s++ {
		d.SetDeepValue(0, 0, s, float32(s+1))
	}
	d.SetSamples(0, 2)
	if d.DeepValue(0, 0, 0) != 1 || d.DeepValue(0, 0, 1) != 2 {
		t.Error("shrink did not keep the leading samples")
	}
}

func TestCopyDeepPixel(t *testing.T) {
	src := newTestDeep(2)
	src.SetSamples(1, 2)
	src.SetDeepValue(1, 1, 0, 0.75)
	src.SetDeepValueUint(1, 2, 1, 99)

	dst := newTestDeep(5)
	dst.SetSamples(4, 7) // will be resized by the copy
	if err := dst.CopyDeepPixel(4, src, 1); err != nil {
		t.Fatal(err)
	}
	if dst.Samples(4) != 2 {
		t.Fatalf("copied pixel has %d samples", dst.Samples(4))
	}
	if dst.DeepValue(4, 1, 0) != 0.75 || dst.DeepValueUint(4, 2, 1) != 99 {
		t.Error("copied samples differ")
	}

	other := NewDeepData(2, []TypeDesc{TypeHalf}, []string{"R"})
	if err := dst.CopyDeepPixel(0, other, 0); err == nil {
		t.Error("mismatched channel layout accepted")
	}
}

func TestDeepCopyIndependence(t *testing.T) {
	d := newTestDeep(2)
	d.SetSamples(0, 1)
	d.SetDeepValue(0, 0, 0, 0.5)
	c := d.Copy()
	c.SetDeepValue(0, 0, 0, 0.9)
	if d.DeepValue(0, 0, 0) != 0.5 {
		t.Error("copy shares storage with the original")
	}
}
