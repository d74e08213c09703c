package renderer

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"

	"github.com/mitchelldurbincs/FogOfWar/internal/present"
)

// HUDTextColor is the color of overlay text
var HUDTextColor = color.RGBA{230, 230, 230, 255}

// FogRenderer draws composed fog frames onto an ebiten screen
type FogRenderer struct {
	palette present.Palette
	font    font.Face

	texture *ebiten.Image
	size    int
}

// NewFogRenderer returns a renderer ready to use
func NewFogRenderer(palette present.Palette, f font.Face) *FogRenderer {
	return &FogRenderer{palette: palette, font: f}
}

// Draw composes the frame and scales it to fit the screen. It returns the
// placement so callers can map the cursor back to cells.
func (r *FogRenderer) Draw(screen *ebiten.Image, frame present.Frame, smooth bool) (present.Fit, error) {
	img, err := present.Compose(frame, r.palette)
	if err != nil {
		return present.Fit{}, err
	}

	if r.texture == nil || r.size != frame.TextureSize {
		if r.texture != nil {
			r.texture.Deallocate()
		}
		r.texture = ebiten.NewImage(frame.TextureSize, frame.TextureSize)
		r.size = frame.TextureSize
	}
	r.texture.WritePixels(img.Pix)

	b := screen.Bounds()
	fit := present.FitGrid(frame.TextureSize, b.Dx(), b.Dy())

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(fit.Scale, fit.Scale)
	op.GeoM.Translate(fit.OffsetX, fit.OffsetY)
	if smooth {
		op.Filter = ebiten.FilterLinear
	}
	screen.DrawImage(r.texture, op)
	return fit, nil
}

// DrawLines draws HUD lines from the top-left corner
func (r *FogRenderer) DrawLines(screen *ebiten.Image, lines []string) {
	if r.font == nil {
		return
	}
	lineHeight := r.font.Metrics().Height.Ceil() + 2
	for i, line := range lines {
		text.Draw(screen, line, r.font, 6, 16+i*lineHeight, HUDTextColor)
	}
}
