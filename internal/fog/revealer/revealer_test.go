package revealer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/testutil"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Radius", KindRadius.String())
	assert.Equal(t, "LineOfSight", KindLineOfSight.String())
	assert.Equal(t, "Unknown(5)", Kind(5).String())
}

func TestShapes(t *testing.T) {
	var s Shape = Radius{Radius: 3}
	assert.Equal(t, KindRadius, s.Kind())
	assert.Equal(t, float32(3), s.Reach())

	s = LineOfSight{InnerRadius: 2, OuterRadius: 9, FieldOfView: 45}
	assert.Equal(t, KindLineOfSight, s.Kind())
	assert.Equal(t, float32(9), s.Reach())

	assert.Equal(t, float32(4), LineOfSight{InnerRadius: 4, OuterRadius: 1}.Reach())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		ok    bool
	}{
		{"radius", Radius{Radius: 2}, true},
		{"negative radius", Radius{Radius: -1}, false},
		{"los", LineOfSight{InnerRadius: 1, OuterRadius: 5, FieldOfView: 60}, true},
		{"negative los radius", LineOfSight{InnerRadius: -1, OuterRadius: 5}, false},
		{"fov too wide", LineOfSight{OuterRadius: 5, FieldOfView: 181}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.shape)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil, Radius{Radius: 1})
	assert.True(t, errors.Is(err, core.ErrNilResource))

	owner := testutil.NewStaticOwner(mgl32.Vec3{1, 2, 3})
	r, err := New(owner, Radius{Radius: 2})
	require.NoError(t, err)

	assert.NotEqual(t, r.ID().String(), "")
	assert.True(t, r.Valid())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, r.Pose().Position)

	b := r.Bounds()
	assert.Equal(t, mgl32.Vec3{-1, 0, 1}, b.Min)
	assert.Equal(t, mgl32.Vec3{3, 4, 5}, b.Max)

	other, err := New(owner, Radius{Radius: 2})
	require.NoError(t, err)
	assert.NotEqual(t, r.ID(), other.ID())
}

func TestRevealer_RefreshSwapsPose(t *testing.T) {
	owner := testutil.NewStaticOwner(mgl32.Vec3{0, 0, 0})
	r, err := New(owner, Radius{Radius: 1})
	require.NoError(t, err)

	before := r.Pose()
	owner.MoveTo(mgl32.Vec3{5, 0, 5})
	owner.Yaw(90)

	assert.Equal(t, before, r.Pose(), "pose only changes on refresh")
	require.True(t, r.refresh())
	assert.Equal(t, mgl32.Vec3{5, 0, 5}, r.Pose().Position)

	owner.Invalidate()
	assert.False(t, r.refresh())
	assert.False(t, r.Valid())

	// stays invalid even if the owner comes back
	assert.False(t, r.refresh())
}
