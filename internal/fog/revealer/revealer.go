package revealer

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
)

// Kind identifies the reveal algorithm of a revealer
type Kind int

const (
	KindRadius Kind = iota
	KindLineOfSight
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindRadius:
		return "Radius"
	case KindLineOfSight:
		return "LineOfSight"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Shape is the tagged variant of reveal parameters: Radius or LineOfSight.
// Consumers dispatch with a type switch.
type Shape interface {
	Kind() Kind
	// Reach is the largest world distance the shape can reveal
	Reach() float32
}

// Radius reveals every cell within a distance, ignoring terrain
type Radius struct {
	Radius float32
}

// Kind implements Shape
func (Radius) Kind() Kind { return KindRadius }

// Reach implements Shape
func (r Radius) Reach() float32 { return r.Radius }

// LineOfSight reveals a cone with height-aware occlusion. FieldOfView is the
// half-angle in degrees between the facing and the cone edge.
type LineOfSight struct {
	InnerRadius   float32
	OuterRadius   float32
	FieldOfView   float32
	ReverseFacing bool
	EyeHeight     float32 // above the ground under the revealer
}

// Kind implements Shape
func (LineOfSight) Kind() Kind { return KindLineOfSight }

// Reach implements Shape
func (l LineOfSight) Reach() float32 {
	if l.InnerRadius > l.OuterRadius {
		return l.InnerRadius
	}
	return l.OuterRadius
}

// Validate checks the shape's parameters
func Validate(s Shape) error {
	switch sh := s.(type) {
	case Radius:
		if sh.Radius < 0 {
			return fmt.Errorf("radius must be non-negative, got %v", sh.Radius)
		}
	case LineOfSight:
		if sh.InnerRadius < 0 || sh.OuterRadius < 0 {
			return fmt.Errorf("line of sight radii must be non-negative")
		}
		if sh.FieldOfView < 0 || sh.FieldOfView > 180 {
			return fmt.Errorf("field of view must be within [0, 180], got %v", sh.FieldOfView)
		}
	case nil:
		return fmt.Errorf("shape: %w", core.ErrNilResource)
	default:
		return fmt.Errorf("unsupported shape %T", s)
	}
	return nil
}

// Pose is a position and rotation, replaced as a whole value on every refresh
type Pose struct {
	Position mgl32.Vec3
	Facing   mgl32.Quat
}

// Bounds is an axis-aligned box around everything a revealer can reach
type Bounds struct {
	Min, Max mgl32.Vec3
}

// Owner is the game object that drives a revealer
type Owner interface {
	Position() mgl32.Vec3
	Facing() mgl32.Quat
	Valid() bool
}

// Revealer is one observer. Its pose is swapped atomically so readers never see
// a half-written position.
type Revealer struct {
	id    uuid.UUID
	shape Shape
	owner Owner

	pose  atomic.Pointer[Pose]
	valid atomic.Bool
}

// New creates a revealer bound to an owner, seeded with the owner's current pose
func New(owner Owner, shape Shape) (*Revealer, error) {
	if owner == nil {
		return nil, fmt.Errorf("revealer owner: %w", core.ErrNilResource)
	}
	if err := Validate(shape); err != nil {
		return nil, err
	}

	r := &Revealer{id: uuid.New(), shape: shape, owner: owner}
	r.pose.Store(&Pose{Position: owner.Position(), Facing: owner.Facing()})
	r.valid.Store(owner.Valid())
	return r, nil
}

// ID returns the unique id
func (r *Revealer) ID() uuid.UUID { return r.id }

// Shape returns the reveal parameters
func (r *Revealer) Shape() Shape { return r.shape }

// Pose returns the last refreshed pose
func (r *Revealer) Pose() Pose { return *r.pose.Load() }

// Valid reports whether the revealer still reveals
func (r *Revealer) Valid() bool { return r.valid.Load() }

// Invalidate marks the revealer for release at the next reconciliation
func (r *Revealer) Invalidate() { r.valid.Store(false) }

// Bounds returns the reach box around the current position
func (r *Revealer) Bounds() Bounds {
	return boundsAround(r.Pose().Position, r.shape.Reach())
}

// refresh copies the owner's pose; returns false once the revealer is invalid
func (r *Revealer) refresh() bool {
	if !r.valid.Load() || !r.owner.Valid() {
		r.valid.Store(false)
		return false
	}
	r.pose.Store(&Pose{Position: r.owner.Position(), Facing: r.owner.Facing()})
	return true
}

// view captures an immutable copy for workers
func (r *Revealer) view() View {
	p := r.Pose()
	return View{ID: r.id, Shape: r.shape, Pose: p, Bounds: boundsAround(p.Position, r.shape.Reach())}
}

func boundsAround(p mgl32.Vec3, reach float32) Bounds {
	ext := mgl32.Vec3{reach, reach, reach}
	return Bounds{Min: p.Sub(ext), Max: p.Add(ext)}
}
