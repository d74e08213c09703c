package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mitchelldurbincs/FogOfWar/internal/common"
)

// Geometry describes where a chunk sits in the world and how finely it is sampled.
// Cell (0,0) is centred on Origin; cell i sits i*CellSize() further along each axis.
type Geometry struct {
	Origin      mgl32.Vec2
	Size        float32
	TextureSize int
	Orientation Orientation
}

// Validate checks that the geometry can back a pixel grid
func (g Geometry) Validate() error {
	if g.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalidGeometry, g.Size)
	}
	if g.TextureSize <= 0 {
		return fmt.Errorf("%w: texture size must be positive, got %d", ErrInvalidGeometry, g.TextureSize)
	}
	if g.Orientation != OrientationXZ && g.Orientation != OrientationXY {
		return fmt.Errorf("%w: %w", ErrInvalidGeometry, ErrUnknownOrientation)
	}
	return nil
}

// Cells returns the number of cells in the grid
func (g Geometry) Cells() int {
	return g.TextureSize * g.TextureSize
}

// CellSize returns the world-space width of one cell
func (g Geometry) CellSize() float32 {
	return g.Size / float32(g.TextureSize)
}

// ToGridLength converts a world-space length into cells
func (g Geometry) ToGridLength(l float32) float32 {
	return l * float32(g.TextureSize) / g.Size
}

// WorldToGrid converts a ground-plane position to a cell, clamped into the grid
func (g Geometry) WorldToGrid(p mgl32.Vec2) GridCoord {
	c := g.WorldToGridUnclamped(p)
	last := g.TextureSize - 1
	return GridCoord{X: common.Clamp(c.X, 0, last), Y: common.Clamp(c.Y, 0, last)}
}

// WorldToGridUnclamped converts a ground-plane position to a cell that may lie outside the grid
func (g Geometry) WorldToGridUnclamped(p mgl32.Vec2) GridCoord {
	scale := float64(g.TextureSize) / float64(g.Size)
	x := math.Round(float64(p.X()-g.Origin.X()) * scale)
	y := math.Round(float64(p.Y()-g.Origin.Y()) * scale)
	return GridCoord{X: int(x), Y: int(y)}
}

// GridToWorld returns the ground-plane centre of a cell
func (g Geometry) GridToWorld(c GridCoord) mgl32.Vec2 {
	cs := g.CellSize()
	return mgl32.Vec2{g.Origin.X() + float32(c.X)*cs, g.Origin.Y() + float32(c.Y)*cs}
}

// Overlaps reports whether a ground-plane rectangle touches the chunk's area
func (g Geometry) Overlaps(min, max mgl32.Vec2) bool {
	half := g.CellSize() / 2
	lo := g.Origin.Sub(mgl32.Vec2{half, half})
	hi := g.Origin.Add(mgl32.Vec2{g.Size - half, g.Size - half})
	return min.X() <= hi.X() && max.X() >= lo.X() && min.Y() <= hi.Y() && max.Y() >= lo.Y()
}

// GridRadiusSq converts a world-space radius into an inclusive squared cell distance limit
func (g Geometry) GridRadiusSq(r float32) int {
	if r <= 0 {
		return 0
	}
	rg := float64(g.ToGridLength(r))
	return int(math.Floor(rg*rg + 1e-4))
}

// QuantizeHeight maps a height onto 0-255 relative to the vertical extent
func QuantizeHeight(h, extent float32) uint8 {
	if extent <= 0 {
		return 0
	}
	return uint8(math.Round(float64(common.Clamp01(h/extent)) * 255))
}
