package imageio

import (
	"math"
	"testing"
)

func TestTypeDescSize(t *testing.T) {
	tests := []struct {
		td   TypeDesc
		size int
	}{
		{TypeUnknown, 0},
		{TypeUInt8, 1},
		{TypeInt8, 1},
		{TypeUInt16, 2},
		{TypeInt16, 2},
		{TypeUInt32, 4},
		{TypeInt32, 4},
		{TypeHalf, 2},
		{TypeFloat, 4},
		{TypeDouble, 8},
	}
	for _, tt := range tests {
		if got := tt.td.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.td, got, tt.size)
		}
	}
}

func TestTypeDescStringRoundTrip(t *testing.T) {
	for td := TypeUInt8; td <= TypeDouble; td++ {
		if got := TypeDescFromString(td.String()); got != td {
			t.Errorf("TypeDescFromString(%q) = %v, want %v", td.String(), got, td)
		}
	}
	if got := TypeDescFromString("no-such-type"); got != TypeUnknown {
		t.Errorf("TypeDescFromString(bogus) = %v, want TypeUnknown", got)
	}
}

func TestNormalizedConversion(t *testing.T) {
	tests := []struct {
		name string
		td   TypeDesc
		in   float32
		out  float32
	}{
		{"uint8 one", TypeUInt8, 1.0, 1.0},
		{"uint8 zero", TypeUInt8, 0.0, 0.0},
		{"uint8 clamp high", TypeUInt8, 2.0, 1.0},
		{"uint8 clamp low", TypeUInt8, -1.0, 0.0},
		{"uint16 one", TypeUInt16, 1.0, 1.0},
		{"uint32 one", TypeUInt32, 1.0, 1.0},
		{"int16 minus one", TypeInt16, -1.0, -1.0},
		{"int16 quarter", TypeInt16, 0.25, 8192.0 / 32767},
		{"int16 minus quarter", TypeInt16, -0.25, -8192.0 / 32767},
		{"int8 one", TypeInt8, 1.0, 1.0},
		{"int8 half", TypeInt8, 0.5, 64.0 / 127},
		{"int8 minus half", TypeInt8, -0.5, -64.0 / 127},
		{"int32 half", TypeInt32, 0.5, 0.5},
		{"float passthrough", TypeFloat, 0.25, 0.25},
		{"half value", TypeHalf, 0.5, 0.5},
		{"double passthrough", TypeDouble, -3.5, -3.5},
	}
	buf := make([]byte, 8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			FloatToNormalized(tt.td, tt.in, buf)
			got := NormalizedToFloat(tt.td, buf)
			if math.Abs(float64(got-tt.out)) > 1e-6 {
				t.Errorf("round trip through %s: %v -> %v, want %v", tt.td, tt.in, got, tt.out)
			}
		})
	}
}

func TestNormalizedMidGray(t *testing.T) {
	buf := make([]byte, 1)
	FloatToNormalized(TypeUInt8, 0.5, buf)
	if buf[0] != 128 {
		t.Fatalf("0.5 quantized to %d, want 128", buf[0])
	}
	got := NormalizedToFloat(TypeUInt8, buf)
	want := float32(128.0 / 255.0)
	if got != want {
		t.Errorf("128 normalizes to %v, want %v", got, want)
	}
}

func TestNormalizedSignedQuantization(t *testing.T) {
	buf := make([]byte, 2)
	FloatToNormalized(TypeInt8, 0.5, buf)
	if int8(buf[0]) != 64 {
		t.Errorf("int8 0.5 quantized to %d, want 64", int8(buf[0]))
	}
	FloatToNormalized(TypeInt8, -1.0, buf)
	if int8(buf[0]) != -127 {
		t.Errorf("int8 -1.0 quantized to %d, want -127", int8(buf[0]))
	}
	FloatToNormalized(TypeInt16, 0.25, buf)
	if got := int16(le16(buf)); got != 8192 {
		t.Errorf("int16 0.25 quantized to %d, want 8192", got)
	}
}

func TestHalfRoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 0.25, 2048, -0.125, 65504}
	for _, v := range values {
		h := FloatToHalf(v)
		got := HalfToFloat(h)
		if got != v {
			t.Errorf("half round trip of %v gave %v", v, got)
		}
	}
	if !math.IsInf(float64(HalfToFloat(FloatToHalf(float32(math.Inf(1))))), 1) {
		t.Error("half +Inf did not survive")
	}
	if !math.IsNaN(float64(HalfToFloat(FloatToHalf(float32(math.NaN()))))) {
		t.Error("half NaN did not survive")
	}
}

func TestConvertPixelValues(t *testing.T) {
	src := []byte{0, 128, 255}
	dst := make([]byte, 3*4)
	if err := ConvertPixelValues(TypeUInt8, src, TypeFloat, dst, 3); err != nil {
		t.Fatal(err)
	}
	got := []float32{
		NormalizedToFloat(TypeFloat, dst[0:]),
		NormalizedToFloat(TypeFloat, dst[4:]),
		NormalizedToFloat(TypeFloat, dst[8:]),
	}
	if got[0] != 0 || got[2] != 1 {
		t.Errorf("endpoints converted to %v and %v, want 0 and 1", got[0], got[2])
	}
	if math.Abs(float64(got[1])-128.0/255.0) > 1e-6 {
		t.Errorf("midpoint converted to %v", got[1])
	}

	// back again
	back := make([]byte, 3)
	if err := ConvertPixelValues(TypeFloat, dst, TypeUInt8, back, 3); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if back[i] != src[i] {
			t.Errorf("value %d round tripped to %d, want %d", i, back[i], src[i])
		}
	}
}

func TestBestFloatType(t *testing.T) {
	if TypeDouble.BestFloatType() != TypeDouble {
		t.Error("double should stay double")
	}
	if TypeHalf.BestFloatType() != TypeHalf {
		t.Error("half should stay half")
	}
	if TypeUInt8.BestFloatType() != TypeFloat {
		t.Error("uint8 should widen to float")
	}
}
