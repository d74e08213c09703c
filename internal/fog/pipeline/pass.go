package pipeline

import (
	"fmt"

	"github.com/mitchelldurbincs/FogOfWar/internal/common"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
)

// Settings tune one pass
type Settings struct {
	BlurIterations  int
	OcclusionMargin int     // quantized height units a traversed cell may exceed the sight line by
	VerticalExtent  float32 // world height mapped to 255, used to quantize eye heights
}

// PassStats describes what one pass did
type PassStats struct {
	Revealers   int // views that overlapped the chunk
	Culled      int // views outside the chunk
	RadiusCount int
	LOSCount    int
	LitCells    int // cells set visible by the reveal step
}

// Pass runs seed, reveal, blur and explore. blend is the presentation blend factor
// at the moment the pass starts; the caller merges the result afterwards.
func (b *Buffers) Pass(views []revealer.View, blend float32, s Settings) PassStats {
	b.SeedBlend(blend)

	var stats PassStats
	for _, v := range views {
		if !b.overlaps(v) {
			stats.Culled++
			continue
		}
		stats.Revealers++

		switch shape := v.Shape.(type) {
		case revealer.Radius:
			stats.RadiusCount++
			stats.LitCells += b.RevealRadius(v.Pose.Position, shape.Radius)
		case revealer.LineOfSight:
			stats.LOSCount++
			facing := b.geom.Orientation.FacingVector(v.Pose.Facing)
			stats.LitCells += b.RevealLOS(v.Pose.Position, facing, shape, s)
		}
	}

	b.Blur(s.BlurIterations)
	b.Explore()
	return stats
}

func (b *Buffers) overlaps(v revealer.View) bool {
	o := b.geom.Orientation
	lo, hi := o.Plane(v.Bounds.Min), o.Plane(v.Bounds.Max)
	// XY orientation keeps X,Y as is; both corners stay ordered
	return b.geom.Overlaps(lo, hi)
}

// SeedBlend moves the old snapshot (A,B) toward the current one (C,D) by t and
// clears the instant channel so every cell must be proven visible again.
func (b *Buffers) SeedBlend(t float32) {
	w := common.UnitToByte(t)
	for i := range b.pixels {
		p := &b.pixels[i]
		p[ChannelOldInstant] = common.Lerp8(p[ChannelOldInstant], p[ChannelInstant], w)
		p[ChannelOldExplored] = common.Lerp8(p[ChannelOldExplored], p[ChannelExplored], w)
		p[ChannelInstant] = 0
	}
}

// Explore folds the instant channel into the explored channel
func (b *Buffers) Explore() {
	for i := range b.pixels {
		p := &b.pixels[i]
		p[ChannelExplored] = common.MaxU8(p[ChannelExplored], p[ChannelInstant])
	}
}

// Merge copies the packed (A,B,C,D) pixels into a presentation buffer
func (b *Buffers) Merge(dst []Pixel) error {
	if len(dst) != len(b.pixels) {
		return fmt.Errorf("%w: frame has %d cells, want %d", core.ErrBufferSizeMismatch, len(dst), len(b.pixels))
	}
	copy(dst, b.pixels)
	return nil
}

// light marks a cell visible and reports whether it was newly lit
func (b *Buffers) light(i int) int {
	if b.pixels[i][ChannelInstant] == 255 {
		return 0
	}
	b.pixels[i][ChannelInstant] = 255
	return 1
}
