package testutil

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// StaticOwner is a revealer owner whose pose is set directly by the test
type StaticOwner struct {
	mu       sync.Mutex
	position mgl32.Vec3
	facing   mgl32.Quat
	valid    bool
}

// NewStaticOwner creates a valid owner at a position facing the identity rotation
func NewStaticOwner(position mgl32.Vec3) *StaticOwner {
	return &StaticOwner{position: position, facing: mgl32.QuatIdent(), valid: true}
}

// Position implements revealer.Owner
func (o *StaticOwner) Position() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.position
}

// Facing implements revealer.Owner
func (o *StaticOwner) Facing() mgl32.Quat {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.facing
}

// Valid implements revealer.Owner
func (o *StaticOwner) Valid() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.valid
}

// MoveTo sets a new position
func (o *StaticOwner) MoveTo(p mgl32.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.position = p
}

// Face sets a new rotation
func (o *StaticOwner) Face(q mgl32.Quat) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.facing = q
}

// Yaw faces the owner by degrees around +Y; 0 looks along +Z
func (o *StaticOwner) Yaw(degrees float32) {
	o.Face(mgl32.QuatRotate(mgl32.DegToRad(degrees), mgl32.Vec3{0, 1, 0}))
}

// Invalidate makes the owner stop revealing
func (o *StaticOwner) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.valid = false
}

// FlatHeights returns a size×size height grid filled with h
func FlatHeights(size int, h uint8) []uint8 {
	heights := make([]uint8, size*size)
	for i := range heights {
		heights[i] = h
	}
	return heights
}

// CellPosition returns the XZ world position of a grid cell for a chunk at the origin
// whose size equals its texture size
func CellPosition(x, y int) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), 0, float32(y)}
}
