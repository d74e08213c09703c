package core

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGeometry() Geometry {
	return Geometry{Origin: mgl32.Vec2{10, 20}, Size: 32, TextureSize: 64, Orientation: OrientationXZ}
}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name string
		geom Geometry
		ok   bool
	}{
		{"valid", testGeometry(), true},
		{"zero size", Geometry{Size: 0, TextureSize: 8}, false},
		{"zero texture", Geometry{Size: 8, TextureSize: 0}, false},
		{"bad orientation", Geometry{Size: 8, TextureSize: 8, Orientation: Orientation(7)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidGeometry))
			}
		})
	}
}

func TestGeometry_WorldToGrid(t *testing.T) {
	g := testGeometry() // 2 cells per world unit

	tests := []struct {
		name     string
		world    mgl32.Vec2
		expected GridCoord
	}{
		{"origin", mgl32.Vec2{10, 20}, GridCoord{0, 0}},
		{"exact cell", mgl32.Vec2{12, 21}, GridCoord{4, 2}},
		{"rounds half away from zero", mgl32.Vec2{10.25, 20.75}, GridCoord{1, 2}},
		{"clamped low", mgl32.Vec2{-100, -100}, GridCoord{0, 0}},
		{"clamped high", mgl32.Vec2{100, 100}, GridCoord{63, 63}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.WorldToGrid(tt.world))
		})
	}

	t.Run("unclamped keeps outside cells", func(t *testing.T) {
		assert.Equal(t, GridCoord{-2, 66}, g.WorldToGridUnclamped(mgl32.Vec2{9, 53}))
	})
}

func TestGeometry_GridToWorldRoundTrip(t *testing.T) {
	g := testGeometry()
	for _, c := range []GridCoord{{0, 0}, {5, 9}, {63, 63}, {31, 2}} {
		assert.Equal(t, c, g.WorldToGrid(g.GridToWorld(c)))
	}
}

func TestGeometry_Overlaps(t *testing.T) {
	g := Geometry{Origin: mgl32.Vec2{0, 0}, Size: 8, TextureSize: 8}

	assert.True(t, g.Overlaps(mgl32.Vec2{1, 1}, mgl32.Vec2{2, 2}))
	assert.True(t, g.Overlaps(mgl32.Vec2{-5, -5}, mgl32.Vec2{0, 0}))
	assert.False(t, g.Overlaps(mgl32.Vec2{-5, -5}, mgl32.Vec2{-1, -1}))
	assert.False(t, g.Overlaps(mgl32.Vec2{9, 0}, mgl32.Vec2{12, 3}))
}

func TestGeometry_GridRadiusSq(t *testing.T) {
	g := Geometry{Size: 8, TextureSize: 8}
	assert.Equal(t, 4, g.GridRadiusSq(2))
	assert.Equal(t, 6, g.GridRadiusSq(2.5))
	assert.Equal(t, 0, g.GridRadiusSq(-1))

	half := Geometry{Size: 16, TextureSize: 8}
	assert.Equal(t, 4, half.GridRadiusSq(4))
}

func TestQuantizeHeight(t *testing.T) {
	tests := []struct {
		h, extent float32
		expected  uint8
	}{
		{0, 10, 0},
		{10, 10, 255},
		{5, 10, 128},
		{-3, 10, 0},
		{20, 10, 255},
		{4, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, QuantizeHeight(tt.h, tt.extent), "h=%v extent=%v", tt.h, tt.extent)
	}
}

func TestGridCoord(t *testing.T) {
	c := GridCoord{X: 3, Y: 2}
	assert.Equal(t, 19, c.ToIndex(8))
	assert.Equal(t, c, FromIndex(19, 8))
	assert.True(t, c.InBounds(4))
	assert.False(t, c.InBounds(3))
	assert.Equal(t, 13, c.DistSq(GridCoord{0, 0}))
	assert.Equal(t, GridCoord{2, -1}, c.Sub(GridCoord{1, 3}))
	assert.Equal(t, "(3,2)", c.String())
}

func TestOrientation(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		o, err := ParseOrientation("XY")
		require.NoError(t, err)
		assert.Equal(t, OrientationXY, o)

		o, err = ParseOrientation("3d")
		require.NoError(t, err)
		assert.Equal(t, OrientationXZ, o)

		_, err = ParseOrientation("polar")
		assert.True(t, errors.Is(err, ErrUnknownOrientation))
	})

	t.Run("plane and lift are inverse", func(t *testing.T) {
		for _, o := range []Orientation{OrientationXZ, OrientationXY} {
			p := mgl32.Vec2{3, -4}
			w := o.Lift(p, 7)
			assert.Equal(t, p, o.Plane(w), o.String())
			assert.InDelta(t, 7, o.Up(w), 1e-6, o.String())
		}
	})

	t.Run("facing", func(t *testing.T) {
		f := OrientationXZ.FacingVector(mgl32.QuatIdent())
		assert.InDelta(t, 0, f.X(), 1e-6)
		assert.InDelta(t, 1, f.Y(), 1e-6)

		// 90 degrees around +Y turns +Z into +X
		f = OrientationXZ.FacingVector(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
		assert.InDelta(t, 1, f.X(), 1e-5)
		assert.InDelta(t, 0, f.Y(), 1e-5)

		// 2D: rotation around Z
		f = OrientationXY.FacingVector(mgl32.QuatRotate(mgl32.DegToRad(180), mgl32.Vec3{0, 0, 1}))
		assert.InDelta(t, 0, f.X(), 1e-5)
		assert.InDelta(t, -1, f.Y(), 1e-5)
	})

	assert.Equal(t, "Unknown(9)", Orientation(9).String())
}
