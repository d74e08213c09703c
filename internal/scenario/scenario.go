package scenario

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/heightmap"
)

// Scenario is a scripted set of obstacles and moving revealers
type Scenario struct {
	Name      string         `yaml:"name"`
	Duration  float64        `yaml:"duration"` // seconds; 0 runs until stopped
	Obstacles []ObstacleSpec `yaml:"obstacles,omitempty"`
	Revealers []RevealerSpec `yaml:"revealers"`
}

// ObstacleSpec is an axis-aligned box in world space
type ObstacleSpec struct {
	Name string     `yaml:"name,omitempty"`
	Min  [3]float32 `yaml:"min"`
	Max  [3]float32 `yaml:"max"`
}

// RevealerSpec scripts one revealer walking a waypoint path
type RevealerSpec struct {
	Name      string       `yaml:"name"`
	Kind      string       `yaml:"kind"` // radius or los
	Radius    float32      `yaml:"radius,omitempty"`
	LOS       *LOSSpec     `yaml:"los,omitempty"`
	Speed     float32      `yaml:"speed"`
	Loop      bool         `yaml:"loop"`
	SpawnAt   float64      `yaml:"spawn_at,omitempty"` // seconds after start
	Lifetime  float64      `yaml:"lifetime,omitempty"` // seconds alive; 0 is forever
	Waypoints [][3]float32 `yaml:"waypoints"`
}

// LOSSpec overrides line-of-sight defaults; zero fields keep the default
type LOSSpec struct {
	InnerRadius   float32 `yaml:"inner_radius,omitempty"`
	OuterRadius   float32 `yaml:"outer_radius,omitempty"`
	FieldOfView   float32 `yaml:"field_of_view,omitempty"`
	ReverseFacing bool    `yaml:"reverse_facing,omitempty"`
	EyeHeight     float32 `yaml:"eye_height,omitempty"`
}

// Load reads and validates a scenario file
func Load(path string) (*Scenario, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("scenario path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates scenario yaml
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario yaml: %w", err)
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Normalize fills names and lower-cases kinds
func (sc *Scenario) Normalize() {
	for i := range sc.Revealers {
		r := &sc.Revealers[i]
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		if r.Kind == "" {
			r.Kind = "radius"
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("revealer-%d", i)
		}
	}
}

// Validate checks the scenario can be played
func (sc *Scenario) Validate() error {
	if sc.Duration < 0 {
		return fmt.Errorf("duration must be non-negative")
	}
	for i, o := range sc.Obstacles {
		for axis := 0; axis < 3; axis++ {
			if o.Min[axis] == o.Max[axis] {
				return fmt.Errorf("obstacles[%d]: box is flat on axis %d", i, axis)
			}
		}
	}
	seen := make(map[string]bool, len(sc.Revealers))
	for i, r := range sc.Revealers {
		if seen[r.Name] {
			return fmt.Errorf("revealers[%d]: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true

		switch r.Kind {
		case "radius", "los":
		default:
			return fmt.Errorf("revealers[%d]: unknown kind %q", i, r.Kind)
		}
		if len(r.Waypoints) == 0 {
			return fmt.Errorf("revealers[%d]: at least one waypoint is required", i)
		}
		if r.Speed < 0 {
			return fmt.Errorf("revealers[%d]: speed must be non-negative", i)
		}
		if r.SpawnAt < 0 || r.Lifetime < 0 {
			return fmt.Errorf("revealers[%d]: spawn_at and lifetime must be non-negative", i)
		}
		if r.Radius < 0 {
			return fmt.Errorf("revealers[%d]: radius must be non-negative", i)
		}
		if r.LOS != nil && (r.LOS.FieldOfView < 0 || r.LOS.FieldOfView > 180) {
			return fmt.Errorf("revealers[%d]: field_of_view must be between 0 and 180", i)
		}
	}
	return nil
}

// Field builds the obstacle query for height baking
func (sc *Scenario) Field() *heightmap.Field {
	f := heightmap.NewField()
	for _, o := range sc.Obstacles {
		f.Add(heightmap.Box{Min: mgl32.Vec3(o.Min), Max: mgl32.Vec3(o.Max)})
	}
	return f
}
