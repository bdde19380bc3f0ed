package session

import "math"

// ApplyGain scales little-endian integer PCM samples in place, clamping to
// the range of bitDepth. Unsupported depths and unity gain leave buf as is.
func ApplyGain(buf []byte, bitDepth int, gain float64) {
	if gain == 1.0 {
		return
	}

	switch bitDepth {
	case 16:
		for i := 0; i+1 < len(buf); i += 2 {
			sample := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			v := int16(clamp(float64(sample)*gain, math.MinInt16, math.MaxInt16))
			buf[i] = byte(v)
			buf[i+1] = byte(v >> 8)
		}
	case 24:
		const maxInt24, minInt24 = 1<<23 - 1, -1 << 23
		for i := 0; i+2 < len(buf); i += 3 {
			sample := int32(uint32(buf[i])<<8|uint32(buf[i+1])<<16|uint32(buf[i+2])<<24) >> 8
			v := int32(clamp(float64(sample)*gain, minInt24, maxInt24))
			buf[i] = byte(v)
			buf[i+1] = byte(v >> 8)
			buf[i+2] = byte(v >> 16)
		}
	case 32:
		for i := 0; i+3 < len(buf); i += 4 {
			sample := int32(uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2])<<16 | uint32(buf[i+3])<<24)
			v := int32(clamp(float64(sample)*gain, math.MinInt32, math.MaxInt32))
			buf[i] = byte(v)
			buf[i+1] = byte(v >> 8)
			buf[i+2] = byte(v >> 16)
			buf[i+3] = byte(v >> 24)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
