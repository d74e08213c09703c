package present

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/FogOfWar/internal/config"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
)

var testPalette = Palette{
	Fog:        color.RGBA{0, 0, 0, 255},
	Explored:   color.RGBA{0, 0, 0, 128},
	Background: color.RGBA{200, 100, 50, 255},
	Obstacle:   color.RGBA{0, 0, 0, 255},
}

type fakeSource struct {
	pixels []pipeline.Pixel
	blend  float32
	size   int
}

func (s fakeSource) Presented() ([]pipeline.Pixel, float32) { return s.pixels, s.blend }
func (s fakeSource) Geometry() core.Geometry {
	return core.Geometry{Size: 1, TextureSize: s.size}
}

// frame2x2 holds one cell per state: unexplored, visible, explored, fading in
func frame2x2(blend float32) Frame {
	return Frame{
		TextureSize: 2,
		Blend:       blend,
		Pixels: []pipeline.Pixel{
			{0, 0, 0, 0},
			{255, 255, 255, 255},
			{0, 255, 0, 255},
			{0, 0, 255, 255},
		},
	}
}

func TestCell(t *testing.T) {
	p := pipeline.Pixel{0, 100, 255, 200}

	vis, exp := Cell(p, 0)
	assert.Equal(t, uint8(0), vis)
	assert.Equal(t, uint8(100), exp)

	vis, exp = Cell(p, 1)
	assert.Equal(t, uint8(255), vis)
	assert.Equal(t, uint8(200), exp)

	vis, _ = Cell(p, 0.5)
	assert.InDelta(t, 128, int(vis), 1)
}

func TestCompose(t *testing.T) {
	img, err := Compose(frame2x2(1), testPalette)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0), "unexplored is opaque fog")
	assert.Equal(t, color.RGBA{200, 100, 50, 255}, img.RGBAAt(1, 0), "visible shows the background")
	assert.Equal(t, color.RGBA{100, 50, 25, 255}, img.RGBAAt(0, 1), "explored is tinted")
	assert.Equal(t, color.RGBA{200, 100, 50, 255}, img.RGBAAt(1, 1))
}

func TestCompose_BlendStart(t *testing.T) {
	img, err := Compose(frame2x2(0), testPalette)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(1, 1), "new reveal not shown before the blend starts")
	assert.Equal(t, color.RGBA{200, 100, 50, 255}, img.RGBAAt(1, 0))
}

func TestCompose_Heights(t *testing.T) {
	f := Frame{
		TextureSize: 2,
		Blend:       1,
		Pixels:      []pipeline.Pixel{{0, 0, 255, 255}, {0, 0, 255, 255}, {0, 0, 255, 255}, {0, 0, 255, 255}},
		Heights:     []uint8{0, 255, 0, 0},
	}
	img, err := Compose(f, testPalette)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{200, 100, 50, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(1, 0), "full height draws the obstacle color")
}

func TestOverlay(t *testing.T) {
	img, err := Overlay(frame2x2(1), testPalette)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(1, 0).A)
	assert.Equal(t, uint8(128), img.NRGBAAt(0, 1).A)
}

func TestFrame_Validate(t *testing.T) {
	f := frame2x2(1)
	f.Pixels = f.Pixels[:3]
	_, err := Compose(f, testPalette)
	assert.ErrorIs(t, err, core.ErrBufferSizeMismatch)

	f = frame2x2(1)
	f.Heights = []uint8{1}
	_, err = Overlay(f, testPalette)
	assert.ErrorIs(t, err, core.ErrBufferSizeMismatch)

	_, err = Compose(Frame{}, testPalette)
	assert.ErrorIs(t, err, core.ErrInvalidGeometry)
}

func TestCapture(t *testing.T) {
	_, err := Capture(fakeSource{size: 2})
	assert.ErrorIs(t, err, ErrNoFrame)

	src := fakeSource{pixels: frame2x2(0).Pixels, blend: 0.25, size: 2}
	f, err := Capture(src)
	require.NoError(t, err)
	assert.Equal(t, 2, f.TextureSize)
	assert.Equal(t, float32(0.25), f.Blend)
	require.NoError(t, f.Validate())
}

func TestMosaic(t *testing.T) {
	visible := Frame{TextureSize: 2, Blend: 1, Pixels: make([]pipeline.Pixel, 4)}
	for i := range visible.Pixels {
		visible.Pixels[i] = pipeline.Pixel{255, 255, 255, 255}
	}
	hidden := Frame{TextureSize: 2, Blend: 1, Pixels: make([]pipeline.Pixel, 4)}

	img, err := Mosaic([]Frame{visible, hidden, hidden, visible}, 2, testPalette)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	assert.Equal(t, testPalette.Background, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 3))
	assert.Equal(t, testPalette.Background, img.RGBAAt(3, 3))

	_, err = Mosaic([]Frame{visible}, 2, testPalette)
	assert.ErrorIs(t, err, core.ErrUnsupportedConfiguration)

	small := Frame{TextureSize: 1, Blend: 1, Pixels: make([]pipeline.Pixel, 1)}
	_, err = Mosaic([]Frame{visible, small, hidden, hidden}, 2, testPalette)
	assert.ErrorIs(t, err, core.ErrBufferSizeMismatch)
}

func TestScaleAndWritePNG(t *testing.T) {
	img, err := Compose(frame2x2(1), testPalette)
	require.NoError(t, err)

	big := Scale(img, 8, 8, false)
	assert.Equal(t, image.Rect(0, 0, 8, 8), big.Bounds())
	assert.Equal(t, img.RGBAAt(0, 0), big.RGBAAt(1, 1))
	assert.Equal(t, img.RGBAAt(1, 0), big.RGBAAt(6, 1))

	smooth := Scale(img, 4, 4, true)
	assert.Equal(t, image.Rect(0, 0, 4, 4), smooth.Bounds())

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, big))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, big.Bounds(), decoded.Bounds())
}

func TestPaletteFromConfig(t *testing.T) {
	p, err := PaletteFromConfig(config.ColorsConfig{
		Fog:        [4]int{1, 2, 3, 255},
		Explored:   [4]int{4, 5, 6, 100},
		Background: [4]int{7, 8, 9, 255},
	})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, p.Fog)
	assert.Equal(t, color.RGBA{4, 5, 6, 100}, p.Explored)
	assert.Equal(t, DefaultPalette().Obstacle, p.Obstacle)

	_, err = PaletteFromConfig(config.ColorsConfig{Fog: [4]int{0, 0, 0, 300}})
	assert.Error(t, err)
}

func TestFitGrid(t *testing.T) {
	f := FitGrid(8, 800, 400)
	assert.Equal(t, 50.0, f.Scale)
	assert.Equal(t, 200.0, f.OffsetX)
	assert.Equal(t, 0.0, f.OffsetY)

	x, y, ok := f.CellAt(200, 0)
	require.True(t, ok)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)

	x, y, ok = f.CellAt(599, 399)
	require.True(t, ok)
	assert.Equal(t, 7, x)
	assert.Equal(t, 7, y)

	_, _, ok = f.CellAt(199, 10)
	assert.False(t, ok)
	_, _, ok = f.CellAt(600, 10)
	assert.False(t, ok)

	_, _, ok = FitGrid(0, 10, 10).CellAt(1, 1)
	assert.False(t, ok)
}
