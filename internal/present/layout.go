package present

// Fit is the placement of a square grid image inside a screen, scaled
// uniformly and centred
type Fit struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	cells   int
}

// FitGrid places a grid of cells×cells inside a width×height screen
func FitGrid(cells, width, height int) Fit {
	if cells <= 0 || width <= 0 || height <= 0 {
		return Fit{}
	}
	side := width
	if height < side {
		side = height
	}
	scale := float64(side) / float64(cells)
	return Fit{
		Scale:   scale,
		OffsetX: (float64(width) - scale*float64(cells)) / 2,
		OffsetY: (float64(height) - scale*float64(cells)) / 2,
		cells:   cells,
	}
}

// CellAt maps a screen point to the grid cell under it
func (f Fit) CellAt(x, y int) (cx, cy int, ok bool) {
	if f.Scale <= 0 {
		return 0, 0, false
	}
	gx := (float64(x) - f.OffsetX) / f.Scale
	gy := (float64(y) - f.OffsetY) / f.Scale
	if gx < 0 || gy < 0 {
		return 0, 0, false
	}
	cx, cy = int(gx), int(gy)
	if cx >= f.cells || cy >= f.cells {
		return 0, 0, false
	}
	return cx, cy, true
}
