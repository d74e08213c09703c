package core

import "fmt"

// GridCoord addresses a cell of a chunk's texture grid
type GridCoord struct {
	X, Y int
}

// FromIndex creates a coordinate from a row-major buffer index
func FromIndex(idx, width int) GridCoord {
	return GridCoord{X: idx % width, Y: idx / width}
}

// ToIndex converts the coordinate to a row-major buffer index
func (c GridCoord) ToIndex(width int) int {
	return c.Y*width + c.X
}

// InBounds reports whether the coordinate lies inside a size×size grid
func (c GridCoord) InBounds(size int) bool {
	return c.X >= 0 && c.X < size && c.Y >= 0 && c.Y < size
}

// DistSq returns the squared euclidean distance in cells
func (c GridCoord) DistSq(other GridCoord) int {
	dx := c.X - other.X
	dy := c.Y - other.Y
	return dx*dx + dy*dy
}

// Sub returns the component-wise difference c - other
func (c GridCoord) Sub(other GridCoord) GridCoord {
	return GridCoord{X: c.X - other.X, Y: c.Y - other.Y}
}

// String returns a string representation of the coordinate
func (c GridCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
