package core

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Orientation selects which world plane is the ground plane
type Orientation int

const (
	// OrientationXZ is the 3D layout: ground on XZ, height along +Y
	OrientationXZ Orientation = iota
	// OrientationXY is the 2D layout: ground on XY, height toward the camera along -Z
	OrientationXY
)

// ParseOrientation parses the configuration spelling of an orientation
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xz", "3d", "":
		return OrientationXZ, nil
	case "xy", "2d":
		return OrientationXY, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOrientation, s)
	}
}

// String returns the string representation of an Orientation
func (o Orientation) String() string {
	switch o {
	case OrientationXZ:
		return "xz"
	case OrientationXY:
		return "xy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// Plane projects a world position onto the ground plane
func (o Orientation) Plane(p mgl32.Vec3) mgl32.Vec2 {
	if o == OrientationXY {
		return mgl32.Vec2{p.X(), p.Y()}
	}
	return mgl32.Vec2{p.X(), p.Z()}
}

// Up returns the height component of a world position
func (o Orientation) Up(p mgl32.Vec3) float32 {
	if o == OrientationXY {
		return -p.Z()
	}
	return p.Y()
}

// Lift places a ground-plane point at the given height
func (o Orientation) Lift(p mgl32.Vec2, up float32) mgl32.Vec3 {
	if o == OrientationXY {
		return mgl32.Vec3{p.X(), p.Y(), -up}
	}
	return mgl32.Vec3{p.X(), up, p.Y()}
}

// ProbeDirection is the direction height queries are cast in: down for XZ, forward for XY
func (o Orientation) ProbeDirection() mgl32.Vec3 {
	if o == OrientationXY {
		return mgl32.Vec3{0, 0, 1}
	}
	return mgl32.Vec3{0, -1, 0}
}

// Forward is the local axis a revealer's rotation is applied to
func (o Orientation) Forward() mgl32.Vec3 {
	if o == OrientationXY {
		return mgl32.Vec3{0, 1, 0}
	}
	return mgl32.Vec3{0, 0, 1}
}

// FacingVector returns the normalized ground-plane facing of a rotation.
// A rotation that points straight along the height axis falls back to Forward.
func (o Orientation) FacingVector(q mgl32.Quat) mgl32.Vec2 {
	f := o.Plane(q.Rotate(o.Forward()))
	if f.LenSqr() < 1e-12 {
		f = o.Plane(o.Forward())
	}
	return f.Normalize()
}
