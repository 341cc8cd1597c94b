package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// ClipFrame converts a mixed frame back to int16, clipping to the int16 range.
func ClipFrame(acc []float64) []int16 {
	out := make([]int16, len(acc))
	for i, v := range acc {
		out[i] = clip(v)
	}
	return out
}

func clip(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
