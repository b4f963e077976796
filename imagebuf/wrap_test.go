package imagebuf

import "testing"

func TestWrapModeStringRoundTrip(t *testing.T) {
	modes := []WrapMode{WrapDefault, WrapBlack, WrapClamp, WrapPeriodic, WrapMirror}
	for _, w := range modes {
		if got := WrapModeFromString(w.String()); got != w {
			t.Errorf("WrapModeFromString(%q) = %v, want %v", w.String(), got, w)
		}
	}
	if got := WrapModeFromString("bogus"); got != WrapDefault {
		t.Errorf("unknown name mapped to %v, want WrapDefault", got)
	}
}

func TestWrapCoord(t *testing.T) {
	tests := []struct {
		name  string
		w     WrapMode
		c     int
		want  int
		ok    bool
	}{
		{"inside any", WrapBlack, 3, 3, true},
		{"black outside", WrapBlack, -1, -1, false},
		{"clamp low", WrapClamp, -5, 0, true},
		{"clamp high", WrapClamp, 12, 7, true},
		{"periodic low", WrapPeriodic, -1, 7, true},
		{"periodic high", WrapPeriodic, 8, 0, true},
		{"periodic far", WrapPeriodic, -17, 7, true},
		{"mirror low", WrapMirror, -1, 0, true},
		{"mirror low two", WrapMirror, -2, 1, true},
		{"mirror high", WrapMirror, 8, 7, true},
		{"mirror high two", WrapMirror, 9, 6, true},
		{"mirror second period", WrapMirror, 16, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := wrapCoord(tt.w, tt.c, 0, 8)
			if got != tt.want || ok != tt.ok {
				t.Errorf("wrapCoord(%v, %d) = %d, %v; want %d, %v",
					tt.w, tt.c, got, ok, tt.want, tt.ok)
			}
		})
	}
}
