package heightmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Box is an axis-aligned obstacle volume
type Box struct {
	Min, Max mgl32.Vec3
}

// Field is an analytic obstacle world made of boxes. It answers height queries with
// slab ray/box intersection and reports the nearest hit.
type Field struct {
	Boxes []Box
}

// NewField creates a field from boxes, normalizing inverted corners
func NewField(boxes ...Box) *Field {
	f := &Field{Boxes: make([]Box, 0, len(boxes))}
	for _, b := range boxes {
		f.Add(b)
	}
	return f
}

// Add appends an obstacle
func (f *Field) Add(b Box) {
	lo := mgl32.Vec3{min(b.Min.X(), b.Max.X()), min(b.Min.Y(), b.Max.Y()), min(b.Min.Z(), b.Max.Z())}
	hi := mgl32.Vec3{max(b.Min.X(), b.Max.X()), max(b.Min.Y(), b.Max.Y()), max(b.Min.Z(), b.Max.Z())}
	f.Boxes = append(f.Boxes, Box{Min: lo, Max: hi})
}

// Query implements Query
func (f *Field) Query(origin, direction mgl32.Vec3, maxDistance float32) (Hit, bool, error) {
	best := float32(math.MaxFloat32)
	found := false
	for _, b := range f.Boxes {
		if t, ok := intersect(origin, direction, b); ok && t <= maxDistance && t < best {
			best = t
			found = true
		}
	}
	if !found {
		return Hit{}, false, nil
	}
	return Hit{Distance: best, LayerMatch: true}, true, nil
}

// intersect returns the entry distance of a ray into a box
func intersect(origin, dir mgl32.Vec3, b Box) (float32, bool) {
	tmin := float32(0)
	tmax := float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		o, d := origin[axis], dir[axis]
		lo, hi := b.Min[axis], b.Max[axis]
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
