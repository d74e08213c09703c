package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mitchelldurbincs/FogOfWar/internal/common"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
)

// RevealRadius lights every cell whose squared grid distance from the revealer's
// cell is at most radius². It returns the number of newly lit cells.
func (b *Buffers) RevealRadius(position mgl32.Vec3, radius float32) int {
	center := b.geom.WorldToGridUnclamped(b.geom.Orientation.Plane(position))
	return b.revealDisc(center, b.geom.GridRadiusSq(radius))
}

func (b *Buffers) revealDisc(center core.GridCoord, rSq int) int {
	size := b.geom.TextureSize
	reach := isqrt(rSq)

	x0, x1 := common.Clamp(center.X-reach, 0, size-1), common.Clamp(center.X+reach, 0, size-1)
	y0, y1 := common.Clamp(center.Y-reach, 0, size-1), common.Clamp(center.Y+reach, 0, size-1)
	if center.X+reach < 0 || center.Y+reach < 0 || center.X-reach >= size || center.Y-reach >= size {
		return 0
	}

	lit := 0
	for y := y0; y <= y1; y++ {
		dy := y - center.Y
		row := y * size
		for x := x0; x <= x1; x++ {
			dx := x - center.X
			if dx*dx+dy*dy <= rSq {
				lit += b.light(row + x)
			}
		}
	}
	return lit
}

// isqrt returns floor(sqrt(n)) for n >= 0
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
