package sonic_transport

import (
	"math"
)

// Int8ToFloat32 converts an engine-native sample to [-1, 1]. -128 maps to -1
// like -127 so that the conversion is symmetric.
func Int8ToFloat32(s int8) float32 {
	return max(-1, float32(s)/127)
}

// Float32ToInt8 converts a sample in [-1, 1] to the engine-native format.
// Values outside the range are clamped.
func Float32ToInt8(f float32) int8 {
	if f != f {
		return 0
	}
	f = min(max(f, -1), 1)
	return int8(math.Round(float64(f) * 127))
}

// Int8sToFloat32s converts a whole buffer.
func Int8sToFloat32s(in []int8) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = Int8ToFloat32(s)
	}
	return out
}

// appendFloat32sAsInt8s converts in and appends it to dst.
func appendFloat32sAsInt8s(dst []int8, in []float32) []int8 {
	for _, f := range in {
		dst = append(dst, Float32ToInt8(f))
	}
	return dst
}
