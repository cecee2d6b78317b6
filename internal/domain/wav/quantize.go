package wav

import "math"

// Clamp saturates s to [-1, 1]. NaN maps to silence.
func Clamp(s float32) float64 {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Quantize16 converts s to a signed 16-bit sample.
func Quantize16(s float32) int16 {
	return int16(math.Round(Clamp(s) * maxInt16))
}

// Quantize24 converts s to a signed 24-bit sample held in an int32.
func Quantize24(s float32) int32 {
	return int32(math.Round(Clamp(s) * maxInt24))
}

// Quantize32 converts s to a signed 32-bit sample.
func Quantize32(s float32) int32 {
	return int32(math.Round(Clamp(s) * maxInt32))
}
