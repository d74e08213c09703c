package pipeline

import (
	"github.com/mitchelldurbincs/FogOfWar/internal/common"
)

// Blur applies a 3×3 box blur to the instant channel the given number of times.
// Edges clamp. Each iteration writes into the scratch buffer and swaps.
func (b *Buffers) Blur(iterations int) {
	size := b.geom.TextureSize
	last := size - 1

	for it := 0; it < iterations; it++ {
		src, dst := b.pixels, b.scratch
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				sum := 0
				for dy := -1; dy <= 1; dy++ {
					row := common.Clamp(y+dy, 0, last) * size
					for dx := -1; dx <= 1; dx++ {
						sum += int(src[row+common.Clamp(x+dx, 0, last)][ChannelInstant])
					}
				}
				i := y*size + x
				dst[i] = src[i]
				dst[i][ChannelInstant] = uint8(sum / 9)
			}
		}
		b.pixels, b.scratch = dst, src
	}
}
