package scenario

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
)

// Host accepts revealers; satisfied by the fog world
type Host interface {
	AddRevealer(owner revealer.Owner, shape revealer.Shape) (*revealer.Revealer, error)
}

// Defaults fill shape parameters the scenario leaves unset
type Defaults struct {
	Radius revealer.Radius
	LOS    revealer.LineOfSight
}

type actor struct {
	spec    RevealerSpec
	walker  *Walker
	spawned bool
}

// Player spawns and moves a scenario's revealers in step with the world tick
type Player struct {
	scenario    *Scenario
	host        Host
	orientation core.Orientation
	defaults    Defaults
	logger      zerolog.Logger

	actors  []*actor
	elapsed time.Duration
}

// NewPlayer prepares a scenario for playback; nothing spawns until the first Advance
func NewPlayer(sc *Scenario, host Host, orientation core.Orientation, defaults Defaults, logger zerolog.Logger) *Player {
	p := &Player{
		scenario:    sc,
		host:        host,
		orientation: orientation,
		defaults:    defaults,
		logger:      logger.With().Str("component", "scenario").Str("scenario", sc.Name).Logger(),
	}
	for _, spec := range sc.Revealers {
		p.actors = append(p.actors, &actor{spec: spec})
	}
	return p
}

// Elapsed returns the playback time
func (p *Player) Elapsed() time.Duration { return p.elapsed }

// Done reports whether the scenario duration has passed
func (p *Player) Done() bool {
	return p.scenario.Duration > 0 && p.elapsed.Seconds() >= p.scenario.Duration
}

// Walkers returns the spawned walkers
func (p *Player) Walkers() []*Walker {
	var out []*Walker
	for _, a := range p.actors {
		if a.spawned {
			out = append(out, a.walker)
		}
	}
	return out
}

// Advance spawns due revealers and moves every spawned one by dt
func (p *Player) Advance(dt time.Duration) error {
	p.elapsed += dt
	for _, a := range p.actors {
		if !a.spawned {
			if p.elapsed.Seconds() < a.spec.SpawnAt {
				continue
			}
			if err := p.spawn(a); err != nil {
				return err
			}
			continue
		}
		a.walker.Advance(dt)
	}
	return nil
}

func (p *Player) spawn(a *actor) error {
	waypoints := make([]mgl32.Vec3, len(a.spec.Waypoints))
	for i, wp := range a.spec.Waypoints {
		waypoints[i] = mgl32.Vec3(wp)
	}
	lifetime := time.Duration(a.spec.Lifetime * float64(time.Second))
	a.walker = NewWalker(a.spec.Name, p.orientation, waypoints, a.spec.Speed, a.spec.Loop, lifetime)

	shape := p.shape(a.spec)
	r, err := p.host.AddRevealer(a.walker, shape)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", a.spec.Name, err)
	}
	a.spawned = true

	p.logger.Debug().
		Str("revealer", a.spec.Name).
		Str("revealer_id", r.ID().String()).
		Str("kind", shape.Kind().String()).
		Dur("at", p.elapsed).
		Msg("Spawned scripted revealer")
	return nil
}

func (p *Player) shape(spec RevealerSpec) revealer.Shape {
	if spec.Kind == "los" {
		los := p.defaults.LOS
		if o := spec.LOS; o != nil {
			if o.InnerRadius > 0 {
				los.InnerRadius = o.InnerRadius
			}
			if o.OuterRadius > 0 {
				los.OuterRadius = o.OuterRadius
			}
			if o.FieldOfView > 0 {
				los.FieldOfView = o.FieldOfView
			}
			if o.EyeHeight > 0 {
				los.EyeHeight = o.EyeHeight
			}
			los.ReverseFacing = los.ReverseFacing || o.ReverseFacing
		}
		return los
	}

	r := p.defaults.Radius
	if spec.Radius > 0 {
		r.Radius = spec.Radius
	}
	return r
}
