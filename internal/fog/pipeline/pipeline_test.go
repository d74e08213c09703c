package pipeline

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
)

func testGeometry(size int) core.Geometry {
	return core.Geometry{Size: float32(size), TextureSize: size, Orientation: core.OrientationXZ}
}

func newTestBuffers(t *testing.T, size int, heights []uint8) *Buffers {
	t.Helper()
	b, err := NewBuffers(testGeometry(size), heights)
	require.NoError(t, err)
	return b
}

func at(x, y float32) mgl32.Vec3 {
	return mgl32.Vec3{x, 0, y}
}

func radiusView(x, y, r float32) revealer.View {
	return revealer.View{
		Shape: revealer.Radius{Radius: r},
		Pose:  revealer.Pose{Position: at(x, y), Facing: mgl32.QuatIdent()},
		Bounds: revealer.Bounds{
			Min: mgl32.Vec3{x - r, -r, y - r},
			Max: mgl32.Vec3{x + r, r, y + r},
		},
	}
}

func instant(b *Buffers, x, y int) uint8 {
	return b.At(core.GridCoord{X: x, Y: y})[ChannelInstant]
}

func TestNewBuffers(t *testing.T) {
	t.Run("nil heights means flat ground", func(t *testing.T) {
		b := newTestBuffers(t, 4, nil)
		assert.Equal(t, 16, b.Len())
		assert.Equal(t, make([]uint8, 16), b.Heights())
	})

	t.Run("height grid size mismatch", func(t *testing.T) {
		_, err := NewBuffers(testGeometry(4), make([]uint8, 15))
		assert.ErrorIs(t, err, core.ErrBufferSizeMismatch)
	})

	t.Run("invalid geometry", func(t *testing.T) {
		_, err := NewBuffers(core.Geometry{Size: 0, TextureSize: 4}, nil)
		assert.ErrorIs(t, err, core.ErrInvalidGeometry)
	})

	t.Run("heights are copied", func(t *testing.T) {
		h := make([]uint8, 4)
		b := newTestBuffers(t, 2, h)
		h[0] = 99
		assert.Equal(t, uint8(0), b.HeightAt(core.GridCoord{}))
	})
}

func TestPass_RadiusScenario(t *testing.T) {
	b := newTestBuffers(t, 8, nil)

	stats := b.Pass([]revealer.View{radiusView(4, 4, 2)}, 1, Settings{})

	assert.Equal(t, 1, stats.Revealers)
	assert.Equal(t, 1, stats.RadiusCount)
	assert.Equal(t, 13, stats.LitCells)

	assert.Equal(t, uint8(255), instant(b, 4, 4))
	assert.Equal(t, uint8(255), instant(b, 6, 4))
	assert.Equal(t, uint8(255), instant(b, 4, 2))
	assert.Equal(t, uint8(0), instant(b, 7, 4))
	assert.Equal(t, uint8(0), instant(b, 6, 6))

	assert.Equal(t, uint8(255), b.At(core.GridCoord{X: 6, Y: 4})[ChannelExplored])
	assert.Equal(t, uint8(0), b.At(core.GridCoord{X: 7, Y: 4})[ChannelExplored])
}

func TestPass_CullsViewsOutsideChunk(t *testing.T) {
	b := newTestBuffers(t, 8, nil)

	stats := b.Pass([]revealer.View{radiusView(40, 40, 2), radiusView(1, 1, 1)}, 1, Settings{})

	assert.Equal(t, 1, stats.Culled)
	assert.Equal(t, 1, stats.Revealers)
}

func TestRevealRadius_CenterOutsideGrid(t *testing.T) {
	b := newTestBuffers(t, 8, nil)

	lit := b.RevealRadius(at(-1, 4), 2)

	// only the part of the disc inside the grid is lit
	assert.Equal(t, 4, lit)
	assert.Equal(t, uint8(255), instant(b, 0, 4))
	assert.Equal(t, uint8(255), instant(b, 1, 4))
	assert.Equal(t, uint8(255), instant(b, 0, 3))
	assert.Equal(t, uint8(0), instant(b, 1, 3))
	assert.Equal(t, uint8(0), instant(b, 2, 4))
}

func TestRevealRadius_FarOutsideGrid(t *testing.T) {
	b := newTestBuffers(t, 8, nil)
	assert.Zero(t, b.RevealRadius(at(-50, -50), 3))
}

func TestRevealRadius_ZeroRadiusLightsOwnCell(t *testing.T) {
	b := newTestBuffers(t, 8, nil)
	assert.Equal(t, 1, b.RevealRadius(at(3, 3), 0))
	assert.Equal(t, uint8(255), instant(b, 3, 3))
}

func TestLineOfSight_WallBoundary(t *testing.T) {
	tests := []struct {
		name    string
		wall    uint8
		target  uint8
		visible bool
	}{
		{"flat target wall within margin", 10, 0, true},
		{"flat target wall above margin", 11, 0, false},
		{"raised target wall within margin", 60, 100, true},
		{"raised target wall above margin", 61, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := 16
			heights := make([]uint8, size*size)
			heights[8*size+4] = tt.wall
			heights[8*size+6] = tt.target
			b := newTestBuffers(t, size, heights)

			shape := revealer.LineOfSight{OuterRadius: 10, FieldOfView: 180}
			b.RevealLOS(at(2, 8), mgl32.Vec2{1, 0}, shape, Settings{OcclusionMargin: 10, VerticalExtent: 10})

			got := instant(b, 6, 8) == 255
			assert.Equal(t, tt.visible, got)
		})
	}
}

func TestLineOfSight_EyeHeightSeesOverWall(t *testing.T) {
	size := 16
	heights := make([]uint8, size*size)
	heights[8*size+4] = 100
	b := newTestBuffers(t, size, heights)

	low := revealer.LineOfSight{OuterRadius: 10, FieldOfView: 180}
	b.RevealLOS(at(2, 8), mgl32.Vec2{1, 0}, low, Settings{VerticalExtent: 10})
	assert.Equal(t, uint8(0), instant(b, 6, 8))

	// eye at full vertical extent quantizes to 255; the sight line at the wall is 128
	high := low
	high.EyeHeight = 10
	b.RevealLOS(at(2, 8), mgl32.Vec2{1, 0}, high, Settings{VerticalExtent: 10})
	assert.Equal(t, uint8(255), instant(b, 6, 8))
}

func TestLineOfSight_RaisedRevealerSeesOverWall(t *testing.T) {
	size := 16
	heights := make([]uint8, size*size)
	heights[8*size+4] = 100
	shape := revealer.LineOfSight{OuterRadius: 10, FieldOfView: 180}
	settings := Settings{VerticalExtent: 10}

	grounded := newTestBuffers(t, size, heights)
	grounded.RevealLOS(at(2, 8), mgl32.Vec2{1, 0}, shape, settings)
	assert.Equal(t, uint8(0), instant(grounded, 6, 8))

	// hovering at the full vertical extent puts the sight line at 255
	raised := newTestBuffers(t, size, heights)
	raised.RevealLOS(mgl32.Vec3{2, 10, 8}, mgl32.Vec2{1, 0}, shape, settings)
	assert.Equal(t, uint8(255), instant(raised, 6, 8))
}

func TestLineOfSight_SightHeight(t *testing.T) {
	size := 8
	heights := make([]uint8, size*size)
	heights[2*size+2] = 200
	b := newTestBuffers(t, size, heights)
	src := core.GridCoord{X: 2, Y: 2}

	tests := []struct {
		name     string
		position mgl32.Vec3
		eye      float32
		want     int
	}{
		{"ground under revealer", mgl32.Vec3{2, 0, 2}, 0, 200},
		{"altitude above ground", mgl32.Vec3{2, 8, 2}, 0, 204},
		{"altitude below ground", mgl32.Vec3{2, 1, 2}, 0, 200},
		{"eye height added", mgl32.Vec3{2, 0, 2}, 2, 251},
		{"clamped", mgl32.Vec3{2, 10, 2}, 5, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.sightHeight(src, tt.position, tt.eye, 10))
		})
	}

	xy := core.Geometry{Size: 8, TextureSize: 8, Orientation: core.OrientationXY}
	flat, err := NewBuffers(xy, nil)
	require.NoError(t, err)
	assert.Equal(t, 128, flat.sightHeight(core.GridCoord{X: 1, Y: 1}, mgl32.Vec3{1, 1, -5}, 0, 10),
		"height runs along -Z in the 2D layout")
}

func TestLineOfSight_AdjacentAlwaysVisible(t *testing.T) {
	heights := make([]uint8, 16)
	for i := range heights {
		heights[i] = 255
	}
	b := newTestBuffers(t, 4, heights)
	assert.True(t, b.lineOfSight(core.GridCoord{X: 1, Y: 1}, core.GridCoord{X: 2, Y: 2}, 0, 0))
	assert.True(t, b.lineOfSight(core.GridCoord{X: 1, Y: 1}, core.GridCoord{X: 1, Y: 1}, 0, 0))
}

func TestLineOfSight_TransposeAndMirrorSymmetry(t *testing.T) {
	size := 12
	rng := rand.New(rand.NewSource(7))
	heights := make([]uint8, size*size)
	for i := range heights {
		heights[i] = uint8(rng.Intn(80))
	}

	transposed := make([]uint8, len(heights))
	mirrored := make([]uint8, len(heights))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			transposed[x*size+y] = heights[y*size+x]
			mirrored[y*size+(size-1-x)] = heights[y*size+x]
		}
	}

	b := newTestBuffers(t, size, heights)
	bt := newTestBuffers(t, size, transposed)
	bm := newTestBuffers(t, size, mirrored)

	for i := 0; i < 400; i++ {
		src := core.GridCoord{X: rng.Intn(size), Y: rng.Intn(size)}
		dst := core.GridCoord{X: rng.Intn(size), Y: rng.Intn(size)}
		sight := rng.Intn(100)
		margin := rng.Intn(5)

		want := b.lineOfSight(src, dst, sight, margin)

		gotT := bt.lineOfSight(core.GridCoord{X: src.Y, Y: src.X}, core.GridCoord{X: dst.Y, Y: dst.X}, sight, margin)
		require.Equal(t, want, gotT, "transpose %v -> %v", src, dst)

		gotM := bm.lineOfSight(
			core.GridCoord{X: size - 1 - src.X, Y: src.Y},
			core.GridCoord{X: size - 1 - dst.X, Y: dst.Y},
			sight, margin)
		require.Equal(t, want, gotM, "mirror %v -> %v", src, dst)
	}
}

func TestRevealLOS_FieldOfView(t *testing.T) {
	shape := revealer.LineOfSight{InnerRadius: 1, OuterRadius: 6, FieldOfView: 45}
	forward := mgl32.Vec2{0, 1}

	t.Run("cone", func(t *testing.T) {
		b := newTestBuffers(t, 16, nil)
		b.RevealLOS(at(8, 8), forward, shape, Settings{VerticalExtent: 10})

		assert.Equal(t, uint8(255), instant(b, 8, 12), "ahead")
		assert.Equal(t, uint8(255), instant(b, 10, 12), "inside cone edge")
		assert.Equal(t, uint8(0), instant(b, 8, 4), "behind")
		assert.Equal(t, uint8(0), instant(b, 12, 8), "beside")
		assert.Equal(t, uint8(0), instant(b, 8, 15), "beyond outer radius")
		assert.Equal(t, uint8(255), instant(b, 8, 7), "inner radius behind")
		assert.Equal(t, uint8(255), instant(b, 9, 8), "inner radius beside")
	})

	t.Run("reverse facing", func(t *testing.T) {
		b := newTestBuffers(t, 16, nil)
		reversed := shape
		reversed.ReverseFacing = true
		b.RevealLOS(at(8, 8), forward, reversed, Settings{VerticalExtent: 10})

		assert.Equal(t, uint8(0), instant(b, 8, 12))
		assert.Equal(t, uint8(255), instant(b, 8, 4))
	})

	t.Run("outside cone is never lit even without occluders", func(t *testing.T) {
		b := newTestBuffers(t, 16, nil)
		b.RevealLOS(at(8, 8), forward, shape, Settings{VerticalExtent: 10})
		for y := 0; y < 8; y++ {
			for x := 0; x < 16; x++ {
				dx, dy := x-8, y-8
				if dx*dx+dy*dy <= 1 {
					continue
				}
				assert.Equal(t, uint8(0), instant(b, x, y), "cell %d,%d", x, y)
			}
		}
	})
}

func TestRevealLOS_InnerRadiusIgnoresTerrain(t *testing.T) {
	size := 8
	heights := make([]uint8, size*size)
	for i := range heights {
		heights[i] = 255
	}
	heights[4*size+4] = 0
	b := newTestBuffers(t, size, heights)

	shape := revealer.LineOfSight{InnerRadius: 2, OuterRadius: 2, FieldOfView: 10}
	b.RevealLOS(at(4, 4), mgl32.Vec2{0, 1}, shape, Settings{VerticalExtent: 10})

	assert.Equal(t, uint8(255), instant(b, 4, 2))
	assert.Equal(t, uint8(255), instant(b, 6, 4))
}

func TestPass_LineOfSightView(t *testing.T) {
	b := newTestBuffers(t, 16, nil)
	view := revealer.View{
		Shape: revealer.LineOfSight{OuterRadius: 4, FieldOfView: 30},
		Pose:  revealer.Pose{Position: at(8, 8), Facing: mgl32.QuatIdent()},
		Bounds: revealer.Bounds{
			Min: mgl32.Vec3{4, -4, 4},
			Max: mgl32.Vec3{12, 4, 12},
		},
	}

	stats := b.Pass([]revealer.View{view}, 1, Settings{VerticalExtent: 10})

	assert.Equal(t, 1, stats.LOSCount)
	// identity rotation faces +Z, which is grid +Y in the XZ orientation
	assert.Equal(t, uint8(255), instant(b, 8, 11))
	assert.Equal(t, uint8(0), instant(b, 8, 5))
}

func TestBlur_UniformFieldIsUnchanged(t *testing.T) {
	b := newTestBuffers(t, 6, nil)
	for i := range b.pixels {
		b.pixels[i][ChannelInstant] = 200
	}

	b.Blur(3)

	for i := range b.pixels {
		assert.Equal(t, uint8(200), b.pixels[i][ChannelInstant])
	}
}

func TestBlur_SpreadsSinglePoint(t *testing.T) {
	b := newTestBuffers(t, 5, nil)
	b.light(2*5 + 2)

	b.Blur(1)

	assert.Equal(t, uint8(28), instant(b, 2, 2))
	assert.Equal(t, uint8(28), instant(b, 1, 1))
	assert.Equal(t, uint8(28), instant(b, 3, 2))
	assert.Equal(t, uint8(0), instant(b, 0, 0))
	assert.Equal(t, uint8(0), instant(b, 4, 2))
}

func TestBlur_ZeroIterationsIsNoop(t *testing.T) {
	b := newTestBuffers(t, 4, nil)
	b.light(5)
	b.Blur(0)
	assert.Equal(t, uint8(255), instant(b, 1, 1))
	assert.Equal(t, uint8(0), instant(b, 0, 0))
}

func TestBlur_PreservesOtherChannels(t *testing.T) {
	b := newTestBuffers(t, 4, nil)
	for i := range b.pixels {
		b.pixels[i] = Pixel{10, 20, 0, 40}
	}
	b.Blur(2)
	for i := range b.pixels {
		assert.Equal(t, Pixel{10, 20, 0, 40}, b.pixels[i])
	}
}

func TestExplored_IsMonotonic(t *testing.T) {
	b := newTestBuffers(t, 8, nil)
	s := Settings{BlurIterations: 1}

	b.Pass([]revealer.View{radiusView(2, 2, 1)}, 1, s)
	first := b.Channels().Explored

	b.Pass([]revealer.View{radiusView(6, 6, 1)}, 1, s)
	second := b.Channels().Explored

	b.Pass(nil, 1, s)
	third := b.Channels().Explored

	for i := range first {
		assert.GreaterOrEqual(t, second[i], first[i])
		assert.GreaterOrEqual(t, third[i], second[i])
	}
	assert.NotZero(t, b.At(core.GridCoord{X: 2, Y: 2})[ChannelExplored])
	assert.Equal(t, uint8(0), instant(b, 2, 2))
}

func TestSeedBlend(t *testing.T) {
	b := newTestBuffers(t, 2, nil)
	for i := range b.pixels {
		b.pixels[i] = Pixel{0, 0, 255, 200}
	}

	b.SeedBlend(0)
	assert.Equal(t, Pixel{0, 0, 0, 200}, b.pixels[0])

	for i := range b.pixels {
		b.pixels[i] = Pixel{0, 0, 255, 200}
	}
	b.SeedBlend(1)
	assert.Equal(t, Pixel{255, 200, 0, 200}, b.pixels[0])

	for i := range b.pixels {
		b.pixels[i] = Pixel{0, 100, 255, 200}
	}
	b.SeedBlend(0.5)
	p := b.pixels[0]
	assert.InDelta(t, 128, int(p[ChannelOldInstant]), 1)
	assert.InDelta(t, 150, int(p[ChannelOldExplored]), 1)
}

func TestMerge(t *testing.T) {
	b := newTestBuffers(t, 4, nil)
	b.Pass([]revealer.View{radiusView(1, 1, 1)}, 1, Settings{})

	dst := make([]Pixel, 16)
	require.NoError(t, b.Merge(dst))
	assert.Equal(t, b.pixels, dst)

	assert.ErrorIs(t, b.Merge(make([]Pixel, 3)), core.ErrBufferSizeMismatch)
}

func TestChannels_RoundTrip(t *testing.T) {
	src := newTestBuffers(t, 8, nil)
	s := Settings{BlurIterations: 1}
	src.Pass([]revealer.View{radiusView(3, 3, 2)}, 1, s)
	src.Pass([]revealer.View{radiusView(5, 4, 1)}, 0.5, s)
	saved := src.Channels()
	require.NoError(t, saved.Validate())

	dst := newTestBuffers(t, 8, nil)
	require.NoError(t, dst.Restore(saved))

	restored := dst.Channels()
	assert.Equal(t, saved.Instant, restored.Instant)
	assert.Equal(t, saved.Explored, restored.Explored)
	assert.Equal(t, saved.Blur, restored.Blur)

	p := dst.At(core.GridCoord{X: 5, Y: 4})
	assert.Equal(t, p[ChannelInstant], p[ChannelOldInstant])
	assert.Equal(t, p[ChannelExplored], p[ChannelOldExplored])
}

func TestRestore_SizeMismatch(t *testing.T) {
	b := newTestBuffers(t, 8, nil)

	other := newTestBuffers(t, 4, nil).Channels()
	assert.ErrorIs(t, b.Restore(other), core.ErrBufferSizeMismatch)

	short := b.Channels()
	short.Blur = short.Blur[:10]
	assert.ErrorIs(t, b.Restore(short), core.ErrBufferSizeMismatch)
}

func TestClearInstant(t *testing.T) {
	b := newTestBuffers(t, 4, nil)
	b.Pass([]revealer.View{radiusView(1, 1, 1)}, 1, Settings{BlurIterations: 1})
	b.ClearInstant()

	cs := b.Channels()
	for i := range cs.Instant {
		assert.Zero(t, cs.Instant[i])
		assert.Zero(t, cs.Blur[i])
	}
	assert.Equal(t, uint8(255), cs.Explored[1*4+1], "explored survives")
}

func TestSetHeightAt(t *testing.T) {
	b := newTestBuffers(t, 4, nil)
	b.SetHeightAt(core.GridCoord{X: 2, Y: 3}, 77)
	assert.Equal(t, uint8(77), b.HeightAt(core.GridCoord{X: 2, Y: 3}))
	assert.Equal(t, uint8(0), b.HeightAt(core.GridCoord{X: 3, Y: 2}))
}

func TestIsqrt(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 1, 3: 1, 4: 2, 8: 2, 9: 3, 99: 9, 100: 10} {
		assert.Equal(t, want, isqrt(n), "isqrt(%d)", n)
	}
}
