package common

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPalette(t *testing.T) {
	assert.Equal(t, uint8(255), FogColor.A, "unexplored fog must be opaque")
	assert.Less(t, ExploredColor.A, FogColor.A, "explored tint must be lighter than fog")
}

func TestRGBAFromInts(t *testing.T) {
	c, err := RGBAFromInts([4]int{10, 20, 30, 40})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{10, 20, 30, 40}, c)

	_, err = RGBAFromInts([4]int{0, 256, 0, 0})
	assert.Error(t, err)

	_, err = RGBAFromInts([4]int{0, 0, -1, 0})
	assert.Error(t, err)
}
