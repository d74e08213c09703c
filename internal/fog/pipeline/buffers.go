package pipeline

import (
	"fmt"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
)

// Channel indices inside a Pixel
const (
	ChannelOldInstant  = 0 // A: presented instant value being faded out
	ChannelOldExplored = 1 // B: presented explored value being faded out
	ChannelInstant     = 2 // C: visible this pass
	ChannelExplored    = 3 // D: ever visible
)

// Pixel packs the four 8-bit channels of one cell
type Pixel [4]uint8

// Buffers is the per-chunk working state of the visibility pipeline.
// All slices have exactly TextureSize² entries for their whole lifetime.
type Buffers struct {
	geom    core.Geometry
	pixels  []Pixel
	scratch []Pixel
	heights []uint8
}

// NewBuffers allocates the pipeline buffers. A nil height grid means flat ground.
func NewBuffers(geom core.Geometry, heights []uint8) (*Buffers, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	n := geom.Cells()
	if heights == nil {
		heights = make([]uint8, n)
	}
	if len(heights) != n {
		return nil, fmt.Errorf("%w: heights has %d cells, want %d", core.ErrBufferSizeMismatch, len(heights), n)
	}

	h := make([]uint8, n)
	copy(h, heights)
	return &Buffers{
		geom:    geom,
		pixels:  make([]Pixel, n),
		scratch: make([]Pixel, n),
		heights: h,
	}, nil
}

// Geometry returns the chunk geometry the buffers were sized for
func (b *Buffers) Geometry() core.Geometry {
	return b.geom
}

// Len returns the number of cells
func (b *Buffers) Len() int {
	return len(b.pixels)
}

// At returns the pixel of a cell
func (b *Buffers) At(c core.GridCoord) Pixel {
	return b.pixels[c.ToIndex(b.geom.TextureSize)]
}

// HeightAt returns the quantized ground height of a cell
func (b *Buffers) HeightAt(c core.GridCoord) uint8 {
	return b.heights[c.ToIndex(b.geom.TextureSize)]
}

// Heights returns a copy of the height grid
func (b *Buffers) Heights() []uint8 {
	out := make([]uint8, len(b.heights))
	copy(out, b.heights)
	return out
}

// SetHeights replaces the height grid in place
func (b *Buffers) SetHeights(heights []uint8) error {
	if len(heights) != len(b.heights) {
		return fmt.Errorf("%w: heights has %d cells, want %d", core.ErrBufferSizeMismatch, len(heights), len(b.heights))
	}
	copy(b.heights, heights)
	return nil
}

// SetHeightAt overwrites the quantized height of one cell
func (b *Buffers) SetHeightAt(c core.GridCoord, h uint8) {
	b.heights[c.ToIndex(b.geom.TextureSize)] = h
}

// ClearInstant zeroes the instant channel, discarding a partially revealed pass
func (b *Buffers) ClearInstant() {
	for i := range b.pixels {
		b.pixels[i][ChannelInstant] = 0
		b.scratch[i][ChannelInstant] = 0
	}
}

// ChannelSet is the persistence layout of a chunk: three single-channel planes of
// TextureSize² bytes each, row-major.
type ChannelSet struct {
	TextureSize int
	Instant     []byte
	Explored    []byte
	Blur        []byte
}

// Validate checks every plane has TextureSize² bytes
func (cs ChannelSet) Validate() error {
	if cs.TextureSize <= 0 {
		return fmt.Errorf("%w: texture size %d", core.ErrBufferSizeMismatch, cs.TextureSize)
	}
	n := cs.TextureSize * cs.TextureSize
	planes := []struct {
		name string
		data []byte
	}{
		{"instant", cs.Instant},
		{"explored", cs.Explored},
		{"blur", cs.Blur},
	}
	for _, p := range planes {
		if len(p.data) != n {
			return fmt.Errorf("%w: %s channel has %d bytes, want %d", core.ErrBufferSizeMismatch, p.name, len(p.data), n)
		}
	}
	return nil
}

// Channels copies the instant, explored and blur-scratch planes out of the buffers
func (b *Buffers) Channels() ChannelSet {
	n := len(b.pixels)
	cs := ChannelSet{
		TextureSize: b.geom.TextureSize,
		Instant:     make([]byte, n),
		Explored:    make([]byte, n),
		Blur:        make([]byte, n),
	}
	for i := range b.pixels {
		cs.Instant[i] = b.pixels[i][ChannelInstant]
		cs.Explored[i] = b.pixels[i][ChannelExplored]
		cs.Blur[i] = b.scratch[i][ChannelInstant]
	}
	return cs
}

// Restore loads planes saved by Channels. The presented snapshot is set equal to
// the restored one so no crossfade is pending.
func (b *Buffers) Restore(cs ChannelSet) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	if cs.TextureSize != b.geom.TextureSize {
		return fmt.Errorf("%w: saved texture size %d, chunk has %d", core.ErrBufferSizeMismatch, cs.TextureSize, b.geom.TextureSize)
	}
	for i := range b.pixels {
		c, d := cs.Instant[i], cs.Explored[i]
		b.pixels[i] = Pixel{c, d, c, d}
		b.scratch[i] = Pixel{0, 0, cs.Blur[i], 0}
	}
	return nil
}
