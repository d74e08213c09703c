package common

import (
	"fmt"
	"image/color"
)

// Default presentation palette
var (
	// FogColor covers cells that have never been explored
	FogColor = color.RGBA{0, 0, 0, 255}
	// ExploredColor tints explored cells that are not visible right now
	ExploredColor = color.RGBA{0, 0, 0, 160}
	// BackgroundColor is drawn under the fog by the viewer
	BackgroundColor = color.RGBA{46, 84, 52, 255}
	// ObstacleColor marks baked obstacle cells in debug output
	ObstacleColor = color.RGBA{120, 110, 96, 255}
)

// RGBAFromInts converts a configured [r, g, b, a] quadruple into a color
func RGBAFromInts(c [4]int) (color.RGBA, error) {
	for i, v := range c {
		if v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("color component %d out of range: %d", i, v)
		}
	}
	return color.RGBA{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2]), A: uint8(c[3])}, nil
}
