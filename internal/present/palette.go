package present

import (
	"fmt"
	"image/color"

	"github.com/mitchelldurbincs/FogOfWar/internal/common"
	"github.com/mitchelldurbincs/FogOfWar/internal/config"
)

// Palette holds the colors the compositor mixes
type Palette struct {
	Fog        color.RGBA
	Explored   color.RGBA
	Background color.RGBA
	Obstacle   color.RGBA
}

// DefaultPalette returns the built-in colors
func DefaultPalette() Palette {
	return Palette{
		Fog:        common.FogColor,
		Explored:   common.ExploredColor,
		Background: common.BackgroundColor,
		Obstacle:   common.ObstacleColor,
	}
}

// PaletteFromConfig reads the configured colors; the obstacle color keeps its default
func PaletteFromConfig(c config.ColorsConfig) (Palette, error) {
	p := DefaultPalette()
	var err error
	if p.Fog, err = common.RGBAFromInts(c.Fog); err != nil {
		return Palette{}, fmt.Errorf("colors.fog: %w", err)
	}
	if p.Explored, err = common.RGBAFromInts(c.Explored); err != nil {
		return Palette{}, fmt.Errorf("colors.explored: %w", err)
	}
	if p.Background, err = common.RGBAFromInts(c.Background); err != nil {
		return Palette{}, fmt.Errorf("colors.background: %w", err)
	}
	return p, nil
}
