package imageio

import "math"

// IEEE 754 binary16: 1 sign bit, 5 exponent bits (bias 15), 10 mantissa
// bits. TypeHalf channels are stored as the raw uint16 bit pattern.

// HalfToFloat converts half-precision bits to a float32.
func HalfToFloat(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF

	var bits uint32
	switch {
	case exp == 0 && mant == 0:
		bits = sign << 31
	case exp == 0:
		// Subnormal half: normalize into float32 range.
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3FF
		bits = sign<<31 | e<<23 | mant<<13
	case exp == 0x1F:
		// Inf or NaN.
		bits = sign<<31 | 0xFF<<23 | mant<<13
	default:
		bits = sign<<31 | (exp+127-15)<<23 | mant<<13
	}
	return math.Float32frombits(bits)
}

// FloatToHalf converts a float32 to half-precision bits using
// round-to-nearest-even.
func FloatToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int(bits>>23) & 0xFF
	mant := bits & 0x7FFFFF

	switch {
	case exp == 0xFF: // Inf or NaN
		if mant == 0 {
			return sign | 0x7C00
		}
		return sign | 0x7C00 | uint16(mant>>13) | 0x200
	case exp == 0: // zero or float32 subnormal, far below half range
		return sign
	}

	exp = exp - 127 + 15
	if exp >= 31 {
		return sign | 0x7C00 // overflow to infinity
	}
	if exp <= 0 {
		// Subnormal half.
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint(14 - exp)
		hm := mant >> shift
		round := (mant >> (shift - 1)) & 1
		sticky := mant & ((1 << (shift - 1)) - 1)
		if round != 0 && (sticky != 0 || hm&1 != 0) {
			hm++
		}
		return sign | uint16(hm&0x3FF)
	}

	hm := mant >> 13
	round := (mant >> 12) & 1
	sticky := mant & 0xFFF
	if round != 0 && (sticky != 0 || hm&1 != 0) {
		hm++
		if hm > 0x3FF {
			hm = 0
			exp++
			if exp >= 31 {
				return sign | 0x7C00
			}
		}
	}
	return sign | uint16(exp)<<10 | uint16(hm)
}
