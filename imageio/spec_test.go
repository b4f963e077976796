package imageio

import "testing"

func TestImageSpecDefaults(t *testing.T) {
	s := NewImageSpec(640, 480, 4, TypeHalf)
	if s.Depth != 1 || s.FullWidth != 640 || s.FullHeight != 480 {
		t.Fatalf("bad window defaults: %+v", s)
	}
	want := []string{"R", "G", "B", "A"}
	for i, n := range want {
		if s.ChannelNames[i] != n {
			t.Errorf("channel %d named %q, want %q", i, s.ChannelNames[i], n)
		}
	}
	if s.AlphaChannel != 3 {
		t.Errorf("alpha channel = %d, want 3", s.AlphaChannel)
	}
	if s.PixelBytes() != 8 {
		t.Errorf("PixelBytes = %d, want 8", s.PixelBytes())
	}
	if s.ScanlineBytes() != 640*8 {
		t.Errorf("ScanlineBytes = %d", s.ScanlineBytes())
	}
	if s.ChannelIndex("G") != 1 || s.ChannelIndex("Q") != -1 {
		t.Error("ChannelIndex lookup failed")
	}
}

func TestImageSpecSingleChannel(t *testing.T) {
	s := NewImageSpec(8, 8, 1, TypeFloat)
	if s.ChannelNames[0] != "Y" {
		t.Errorf("single channel named %q, want Y", s.ChannelNames[0])
	}
	if s.AlphaChannel != -1 {
		t.Errorf("alpha channel = %d, want -1", s.AlphaChannel)
	}
}

func TestAttributeOrderAndReplace(t *testing.T) {
	s := NewImageSpec(4, 4, 3, TypeUInt8)
	s.Attribute("compression", "zlib")
	s.Attribute("Artist", "someone")
	s.Attribute("DateTime", "2024:01:01 00:00:00")
	s.Attribute("Artist", "someone else") // replace in place

	attrs := s.Attribs()
	if len(attrs) != 3 {
		t.Fatalf("%d attributes, want 3", len(attrs))
	}
	order := []string{"compression", "Artist", "DateTime"}
	for i, name := range order {
		if attrs[i].Name != name {
			t.Errorf("attribute %d is %q, want %q", i, attrs[i].Name, name)
		}
	}
	if s.AttribString("Artist", "") != "someone else" {
		t.Error("replace did not take the new value")
	}

	s.EraseAttribute("Artist")
	if s.Attrib("Artist") != nil {
		t.Error("erase left the attribute behind")
	}
	if len(s.Attribs()) != 2 {
		t.Error("erase did not shrink the list")
	}
}

func TestAttribTyped(t *testing.T) {
	s := NewImageSpec(4, 4, 3, TypeUInt8)
	s.Attribute("orientation", 6)
	s.Attribute("gamma", float32(2.2))
	s.Attribute("note", "42")
	if s.AttribInt("orientation", 0) != 6 {
		t.Error("int attribute")
	}
	if s.AttribFloat("gamma", 0) != 2.2 {
		t.Error("float attribute")
	}
	if s.AttribInt("note", 0) != 42 {
		t.Error("string to int coercion")
	}
	if s.AttribInt("missing", 7) != 7 {
		t.Error("default for missing attribute")
	}
}

func TestSpecROIRoundTrip(t *testing.T) {
	s := NewImageSpec(100, 50, 3, TypeUInt8)
	s.X, s.Y = -10, 5
	r := s.ROI()
	if r.XBegin != -10 || r.XEnd != 90 || r.YBegin != 5 || r.YEnd != 55 {
		t.Fatalf("ROI = %s", r)
	}
	var s2 ImageSpec
	s2.NChannels = 3
	s2.SetROI(r)
	s2.SetROIFull(r)
	if s2.X != -10 || s2.Width != 100 || s2.FullHeight != 50 {
		t.Errorf("SetROI round trip: %+v", s2)
	}
}

func TestSpecCopyIsDeep(t *testing.T) {
	s := NewImageSpec(4, 4, 3, TypeUInt8)
	s.Attribute("k", "v")
	c := s.Copy()
	c.Attribute("k", "other")
	c.ChannelNames[0] = "X"
	if s.AttribString("k", "") != "v" {
		t.Error("copy shares attributes with the original")
	}
	if s.ChannelNames[0] != "R" {
		t.Error("copy shares channel names with the original")
	}
}
