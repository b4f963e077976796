// Package imageio provides the fundamental types shared by all image
// components: pixel data types, regions of interest, image specifications
// with named metadata, deep pixel storage, and the interfaces through
// which concrete file formats plug into the library.
//
// The package deliberately contains no file-format code of its own;
// formats register themselves through RegisterFormat (see the zimage
// package for a complete implementation).
package imageio

import (
	"math"
	"strings"
)

// TypeDesc identifies the data type of a pixel channel.
type TypeDesc uint8

const (
	// TypeUnknown means the type is unspecified. Many operations accept
	// TypeUnknown to mean "use a default chosen from context".
	TypeUnknown TypeDesc = iota
	// TypeUInt8 is an unsigned 8-bit integer, normalized to [0,1].
	TypeUInt8
	// TypeInt8 is a signed 8-bit integer, normalized to [-1,1].
	TypeInt8
	// TypeUInt16 is an unsigned 16-bit integer, normalized to [0,1].
	TypeUInt16
	// TypeInt16 is a signed 16-bit integer, normalized to [-1,1].
	TypeInt16
	// TypeUInt32 is an unsigned 32-bit integer, normalized to [0,1].
	TypeUInt32
	// TypeInt32 is a signed 32-bit integer, normalized to [-1,1].
	TypeInt32
	// TypeHalf is an IEEE 754 half-precision float.
	TypeHalf
	// TypeFloat is a single-precision float.
	TypeFloat
	// TypeDouble is a double-precision float.
	TypeDouble
)

// Size returns the size in bytes of one value of this type.
// TypeUnknown has size 0.
func (t TypeDesc) Size() int {
	switch t {
	case TypeUInt8, TypeInt8:
		return 1
	case TypeUInt16, TypeInt16, TypeHalf:
		return 2
	case TypeUInt32, TypeInt32, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the type is a floating point type.
func (t TypeDesc) IsFloat() bool {
	return t == TypeHalf || t == TypeFloat || t == TypeDouble
}

// IsSigned reports whether the type can represent negative values.
func (t TypeDesc) IsSigned() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeHalf, TypeFloat, TypeDouble:
		return true
	}
	return false
}

// String returns the canonical name of the type.
func (t TypeDesc) String() string {
	switch t {
	case TypeUInt8:
		return "uint8"
	case TypeInt8:
		return "int8"
	case TypeUInt16:
		return "uint16"
	case TypeInt16:
		return "int16"
	case TypeUInt32:
		return "uint32"
	case TypeInt32:
		return "int32"
	case TypeHalf:
		return "half"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	default:
		return "unknown"
	}
}

// TypeDescFromString returns the TypeDesc for a canonical type name.
// Unrecognized names map to TypeUnknown.
func TypeDescFromString(name string) TypeDesc {
	switch strings.ToLower(name) {
	case "uint8", "uchar", "uint8_t":
		return TypeUInt8
	case "int8", "char", "int8_t":
		return TypeInt8
	case "uint16", "ushort", "uint16_t":
		return TypeUInt16
	case "int16", "short", "int16_t":
		return TypeInt16
	case "uint32", "uint", "uint32_t":
		return TypeUInt32
	case "int32", "int", "int32_t":
		return TypeInt32
	case "half", "float16":
		return TypeHalf
	case "float", "float32":
		return TypeFloat
	case "double", "float64":
		return TypeDouble
	default:
		return TypeUnknown
	}
}

// BestFloatType returns the floating point type that can hold values of t
// without loss: TypeHalf stays half, everything else widens to float.
func (t TypeDesc) BestFloatType() TypeDesc {
	if t == TypeHalf {
		return TypeHalf
	}
	if t == TypeDouble {
		return TypeDouble
	}
	return TypeFloat
}

// NormalizedToFloat converts one raw value at buf[0:t.Size()] to a float32
// using the standard numeric conversion rule: unsigned integer types map
// to [0,1], signed integer types to [-1,1], floating types pass through.
func NormalizedToFloat(t TypeDesc, buf []byte) float32 {
	switch t {
	case TypeUInt8:
		return float32(buf[0]) / 255
	case TypeInt8:
		v := float32(int8(buf[0])) / 127
		return maxf(v, -1)
	case TypeUInt16:
		return float32(le16(buf)) / 65535
	case TypeInt16:
		v := float32(int16(le16(buf))) / 32767
		return maxf(v, -1)
	case TypeUInt32:
		return float32(float64(le32(buf)) / 4294967295)
	case TypeInt32:
		v := float32(float64(int32(le32(buf))) / 2147483647)
		return maxf(v, -1)
	case TypeHalf:
		return HalfToFloat(le16(buf))
	case TypeFloat:
		return math.Float32frombits(le32(buf))
	case TypeDouble:
		return float32(math.Float64frombits(le64(buf)))
	default:
		return 0
	}
}

// FloatToNormalized converts one float32 value to the raw representation
// of type t, writing t.Size() bytes into buf. Integer targets are scaled
// from the normalized range, clamped, and rounded to nearest.
func FloatToNormalized(t TypeDesc, v float32, buf []byte) {
	switch t {
	case TypeUInt8:
		buf[0] = uint8(quantize(v, 0, 255))
	case TypeInt8:
		buf[0] = uint8(int8(quantize64(float64(v)*127, -127, 127)))
	case TypeUInt16:
		putLE16(buf, uint16(quantize(v, 0, 65535)))
	case TypeInt16:
		putLE16(buf, uint16(int16(quantize64(float64(v)*32767, -32767, 32767))))
	case TypeUInt32:
		putLE32(buf, uint32(quantize64(float64(v)*4294967295, 0, 4294967295)))
	case TypeInt32:
		putLE32(buf, uint32(int32(quantize64(float64(v)*2147483647, -2147483647, 2147483647))))
	case TypeHalf:
		putLE16(buf, FloatToHalf(v))
	case TypeFloat:
		putLE32(buf, math.Float32bits(v))
	case TypeDouble:
		putLE64(buf, math.Float64bits(float64(v)))
	}
}

// quantize scales a normalized value into [lo,hi] with round-to-nearest.
func quantize(v float32, lo, hi float64) float64 {
	return quantize64(float64(v)*hi, lo, hi)
}

func quantize64(scaled, lo, hi float64) float64 {
	r := math.Round(scaled)
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}

func putLE16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putLE64(b []byte, v uint64) {
	putLE32(b, uint32(v))
	putLE32(b[4:], uint32(v>>32))
}
