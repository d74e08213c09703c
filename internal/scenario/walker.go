package scenario

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
)

// Walker is a revealer owner that moves along waypoints at a constant speed and
// faces its direction of travel. Advance is called by the player; the pose
// accessors may be called from the registry's goroutine.
type Walker struct {
	name        string
	orientation core.Orientation
	waypoints   []mgl32.Vec3
	speed       float32
	loop        bool
	lifetime    time.Duration

	mu       sync.Mutex
	position mgl32.Vec3
	facing   mgl32.Quat
	target   int
	age      time.Duration
	valid    bool
}

// NewWalker starts at the first waypoint, facing the second one if there is one
func NewWalker(name string, orientation core.Orientation, waypoints []mgl32.Vec3, speed float32, loop bool, lifetime time.Duration) *Walker {
	w := &Walker{
		name:        name,
		orientation: orientation,
		waypoints:   waypoints,
		speed:       speed,
		loop:        loop,
		lifetime:    lifetime,
		position:    waypoints[0],
		facing:      mgl32.QuatIdent(),
		target:      1,
		valid:       true,
	}
	if len(waypoints) > 1 {
		w.face(waypoints[1].Sub(waypoints[0]))
	}
	return w
}

// Name returns the scripted name
func (w *Walker) Name() string { return w.name }

// Position implements revealer.Owner
func (w *Walker) Position() mgl32.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position
}

// Facing implements revealer.Owner
func (w *Walker) Facing() mgl32.Quat {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.facing
}

// Valid implements revealer.Owner
func (w *Walker) Valid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.valid
}

// Expire stops the walker from revealing
func (w *Walker) Expire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.valid = false
}

// Advance moves the walker by speed*dt along its path
func (w *Walker) Advance(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.valid {
		return
	}

	w.age += dt
	if w.lifetime > 0 && w.age >= w.lifetime {
		w.valid = false
		return
	}

	step := w.speed * float32(dt.Seconds())
	for step > 0 && w.target < len(w.waypoints) {
		to := w.waypoints[w.target]
		delta := to.Sub(w.position)
		dist := delta.Len()
		if dist > 0 {
			w.face(delta)
		}
		if dist > step {
			w.position = w.position.Add(delta.Mul(step / dist))
			return
		}
		w.position = to
		step -= dist
		w.target++
		if w.target == len(w.waypoints) && w.loop && len(w.waypoints) > 1 {
			w.target = 0
		}
	}
}

// face rotates the walker's forward axis onto dir, ignoring the height component
func (w *Walker) face(dir mgl32.Vec3) {
	o := w.orientation
	flat := o.Lift(o.Plane(dir), 0)
	if flat.LenSqr() < 1e-12 {
		return
	}
	w.facing = mgl32.QuatBetweenVectors(o.Forward(), flat.Normalize())
}
