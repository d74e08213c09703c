package pipeline

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mitchelldurbincs/FogOfWar/internal/common"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
)

const fovEpsilon = 1e-6

// RevealLOS lights the cells a line-of-sight revealer can see. Cells inside the
// inner radius are always lit. Cells out to the outer radius are lit when they lie
// inside the field-of-view cone and no traversed cell rises above the sight line.
// facing is the normalized ground-plane facing before ReverseFacing is applied.
func (b *Buffers) RevealLOS(position mgl32.Vec3, facing mgl32.Vec2, shape revealer.LineOfSight, s Settings) int {
	src := b.geom.WorldToGridUnclamped(b.geom.Orientation.Plane(position))
	innerSq := b.geom.GridRadiusSq(shape.InnerRadius)
	outerSq := b.geom.GridRadiusSq(shape.OuterRadius)

	if shape.ReverseFacing {
		facing = facing.Mul(-1)
	}
	fx, fy := float64(facing.X()), float64(facing.Y())
	cosFov := math.Cos(float64(shape.FieldOfView) * math.Pi / 180)
	fullCircle := shape.FieldOfView >= 180

	sight := b.sightHeight(src, position, shape.EyeHeight, s.VerticalExtent)

	size := b.geom.TextureSize
	reach := isqrt(max(innerSq, outerSq))
	if src.X+reach < 0 || src.Y+reach < 0 || src.X-reach >= size || src.Y-reach >= size {
		return 0
	}
	x0, x1 := common.Clamp(src.X-reach, 0, size-1), common.Clamp(src.X+reach, 0, size-1)
	y0, y1 := common.Clamp(src.Y-reach, 0, size-1), common.Clamp(src.Y+reach, 0, size-1)

	lit := 0
	for y := y0; y <= y1; y++ {
		dy := y - src.Y
		for x := x0; x <= x1; x++ {
			dx := x - src.X
			dSq := dx*dx + dy*dy
			i := y*size + x

			if dSq <= innerSq {
				lit += b.light(i)
				continue
			}
			if dSq > outerSq {
				continue
			}
			if !fullCircle {
				d := math.Sqrt(float64(dSq))
				if (fx*float64(dx)+fy*float64(dy))/d < cosFov-fovEpsilon {
					continue
				}
			}
			if b.lineOfSight(src, core.GridCoord{X: x, Y: y}, sight, s.OcclusionMargin) {
				lit += b.light(i)
			}
		}
	}
	return lit
}

// sightHeight is the quantized height the sight line starts from: the higher of
// the revealer's own altitude and the ground under it, raised by the eye height.
func (b *Buffers) sightHeight(src core.GridCoord, position mgl32.Vec3, eye, extent float32) int {
	base := int(core.QuantizeHeight(b.geom.Orientation.Up(position), extent))
	if src.InBounds(b.geom.TextureSize) {
		base = max(base, int(b.heights[src.ToIndex(b.geom.TextureSize)]))
	}
	return int(common.ClampByte(base + int(core.QuantizeHeight(eye, extent))))
}

// lineOfSight walks the Bresenham line from src to dst. The sight line falls
// linearly from the source's sight height to the target's ground height; any
// intermediate cell whose ground is more than margin above it blocks the view.
// The source and target cells themselves are never tested.
func (b *Buffers) lineOfSight(src, dst core.GridCoord, sight, margin int) bool {
	size := b.geom.TextureSize
	target := int(b.heights[dst.ToIndex(size)])

	dx, dy := dst.X-src.X, dst.Y-src.Y
	sx, sy := common.Sign(dx), common.Sign(dy)
	ax, ay := common.Abs(dx), common.Abs(dy)

	// walk along the major axis; the minor step is taken once the error exceeds the
	// major length so the walk is the same from either end of a transposed line
	major, minor := ax, ay
	if ay > ax {
		major, minor = ay, ax
	}
	n := major
	if n <= 1 {
		return true
	}

	x, y := src.X, src.Y
	err := 0
	for i := 1; i < n; i++ {
		err += 2 * minor
		stepMinor := err > major
		if stepMinor {
			err -= 2 * major
		}
		if ax >= ay {
			x += sx
			if stepMinor {
				y += sy
			}
		} else {
			y += sy
			if stepMinor {
				x += sx
			}
		}

		c := core.GridCoord{X: x, Y: y}
		if !c.InBounds(size) {
			continue
		}
		expected := sight + (target-sight)*i/n
		if int(b.heights[c.ToIndex(size)]) > expected+margin {
			return false
		}
	}
	return true
}
