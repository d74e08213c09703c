package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbs(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"positive number", 5, 5},
		{"negative number", -5, 5},
		{"zero", 0, 0},
		{"min int special case", math.MinInt32 + 1, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Abs(tt.input))
		})
	}
}

func TestSign(t *testing.T) {
	assert.Equal(t, -1, Sign(-7))
	assert.Equal(t, 0, Sign(0))
	assert.Equal(t, 1, Sign(3))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		x, lo, hi int
		expected  int
	}{
		{"below", -3, 0, 10, 0},
		{"inside", 4, 0, 10, 4},
		{"above", 11, 0, 10, 10},
		{"at upper bound", 10, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clamp(tt.x, tt.lo, tt.hi))
		})
	}
}

func TestUnitToByte(t *testing.T) {
	assert.Equal(t, 0, UnitToByte(-1))
	assert.Equal(t, 0, UnitToByte(0))
	assert.Equal(t, 128, UnitToByte(0.5))
	assert.Equal(t, 255, UnitToByte(1))
	assert.Equal(t, 255, UnitToByte(3))
}

func TestLerp8(t *testing.T) {
	t.Run("endpoints", func(t *testing.T) {
		assert.Equal(t, uint8(10), Lerp8(10, 200, 0))
		assert.Equal(t, uint8(200), Lerp8(10, 200, 255))
	})

	t.Run("downward", func(t *testing.T) {
		assert.Equal(t, uint8(0), Lerp8(255, 0, 255))
		assert.Equal(t, uint8(128), Lerp8(255, 0, 127))
	})

	t.Run("equal values are fixed points", func(t *testing.T) {
		for w := 0; w <= 255; w += 17 {
			assert.Equal(t, uint8(77), Lerp8(77, 77, w))
		}
	})
}

func TestClampByteAndMax(t *testing.T) {
	assert.Equal(t, uint8(0), ClampByte(-20))
	assert.Equal(t, uint8(255), ClampByte(300))
	assert.Equal(t, uint8(9), MaxU8(3, 9))
	assert.Equal(t, uint8(9), MaxU8(9, 3))
}
