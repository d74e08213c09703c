package present

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/mitchelldurbincs/FogOfWar/internal/common"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
)

// ErrNoFrame is returned when a source has not published yet
var ErrNoFrame = errors.New("no frame published")

// Source is the presentation contract of a chunk. Presented returns the latest
// pixels together with the blend factor that belongs to them.
type Source interface {
	Presented() ([]pipeline.Pixel, float32)
	Geometry() core.Geometry
}

// Frame is everything needed to draw one chunk
type Frame struct {
	TextureSize int
	Pixels      []pipeline.Pixel
	Blend       float32
	Heights     []uint8 // optional obstacle overlay
}

// Validate checks the frame's slice lengths
func (f Frame) Validate() error {
	n := f.TextureSize * f.TextureSize
	if f.TextureSize <= 0 {
		return fmt.Errorf("%w: texture size %d", core.ErrInvalidGeometry, f.TextureSize)
	}
	if len(f.Pixels) != n {
		return fmt.Errorf("%w: %d pixels, want %d", core.ErrBufferSizeMismatch, len(f.Pixels), n)
	}
	if f.Heights != nil && len(f.Heights) != n {
		return fmt.Errorf("%w: %d heights, want %d", core.ErrBufferSizeMismatch, len(f.Heights), n)
	}
	return nil
}

// Capture reads a source's latest buffer and its blend factor
func Capture(src Source) (Frame, error) {
	px, blend := src.Presented()
	if px == nil {
		return Frame{}, ErrNoFrame
	}
	return Frame{
		TextureSize: src.Geometry().TextureSize,
		Pixels:      px,
		Blend:       blend,
	}, nil
}

// Cell returns the crossfaded (visible, explored) values of one packed pixel
func Cell(p pipeline.Pixel, blend float32) (visible, explored uint8) {
	w := common.UnitToByte(blend)
	visible = common.Lerp8(p[pipeline.ChannelOldInstant], p[pipeline.ChannelInstant], w)
	explored = common.Lerp8(p[pipeline.ChannelOldExplored], p[pipeline.ChannelExplored], w)
	return visible, explored
}

// Overlay returns the fog layer alone: fog color where unexplored, the explored tint
// where explored, transparent where visible. Row y of the image is grid row y.
func Overlay(f Frame, pal Palette) (*image.NRGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	size := f.TextureSize
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i, p := range f.Pixels {
		img.SetNRGBA(i%size, i/size, fogColor(p, f.Blend, pal))
	}
	return img, nil
}

func fogColor(p pipeline.Pixel, blend float32, pal Palette) color.NRGBA {
	vis, exp := Cell(p, blend)
	e := int(exp)
	c := color.NRGBA{
		R: common.Lerp8(pal.Fog.R, pal.Explored.R, e),
		G: common.Lerp8(pal.Fog.G, pal.Explored.G, e),
		B: common.Lerp8(pal.Fog.B, pal.Explored.B, e),
		A: common.Lerp8(pal.Fog.A, pal.Explored.A, e),
	}
	c.A = common.Lerp8(c.A, 0, int(vis))
	return c
}

// Compose draws the fog over the background (tinted by heights when present)
// and returns an opaque image
func Compose(f Frame, pal Palette) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	size := f.TextureSize
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i, p := range f.Pixels {
		base := pal.Background
		if f.Heights != nil {
			h := int(f.Heights[i])
			base = color.RGBA{
				R: common.Lerp8(base.R, pal.Obstacle.R, h),
				G: common.Lerp8(base.G, pal.Obstacle.G, h),
				B: common.Lerp8(base.B, pal.Obstacle.B, h),
			}
		}
		fog := fogColor(p, f.Blend, pal)
		a := int(fog.A)
		img.SetRGBA(i%size, i/size, color.RGBA{
			R: common.Lerp8(base.R, fog.R, a),
			G: common.Lerp8(base.G, fog.G, a),
			B: common.Lerp8(base.B, fog.B, a),
			A: 255,
		})
	}
	return img, nil
}

// Mosaic composes grid×grid frames ordered row by row into one image
func Mosaic(frames []Frame, grid int, pal Palette) (*image.RGBA, error) {
	if grid <= 0 || len(frames) != grid*grid {
		return nil, fmt.Errorf("%w: %d frames for a %dx%d grid", core.ErrUnsupportedConfiguration, len(frames), grid, grid)
	}
	size := frames[0].TextureSize
	out := image.NewRGBA(image.Rect(0, 0, size*grid, size*grid))
	for i, f := range frames {
		if f.TextureSize != size {
			return nil, fmt.Errorf("%w: frame %d has texture size %d, want %d", core.ErrBufferSizeMismatch, i, f.TextureSize, size)
		}
		img, err := Compose(f, pal)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		at := image.Pt((i%grid)*size, (i/grid)*size)
		draw.Draw(out, img.Bounds().Add(at), img, image.Point{}, draw.Src)
	}
	return out, nil
}

// Scale resizes an image, nearest-neighbour unless smooth is set
func Scale(src image.Image, width, height int, smooth bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	var s draw.Scaler = draw.NearestNeighbor
	if smooth {
		s = draw.ApproxBiLinear
	}
	s.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// WritePNG encodes an image as PNG
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
