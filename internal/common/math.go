package common

// Abs returns the absolute value of an integer
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Sign returns -1, 0 or 1 depending on the sign of x
func Sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

// Clamp limits x to the inclusive range [lo, hi]
func Clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 limits a float32 to [0, 1]
func Clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ClampByte limits x to the 0-255 range of a channel value
func ClampByte(x int) uint8 {
	return uint8(Clamp(x, 0, 255))
}

// UnitToByte converts a [0, 1] factor to a 0-255 weight, rounding to nearest
func UnitToByte(t float32) int {
	return int(Clamp01(t)*255 + 0.5)
}

// Lerp8 interpolates between two channel values with an integer weight in [0, 255]
func Lerp8(a, b uint8, w int) uint8 {
	ai := int(a)
	return uint8(ai + (int(b)-ai)*w/255)
}

// MaxU8 returns the larger of two channel values
func MaxU8(a, b uint8) uint8 {
	return max(a, b)
}
