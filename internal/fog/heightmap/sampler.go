package heightmap

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
)

// Hit is the result of a successful height query
type Hit struct {
	Distance   float32
	LayerMatch bool // the hit collider belongs to an obstacle layer
}

// Query is the external world-query service the sampler queries once per cell
type Query interface {
	Query(origin, direction mgl32.Vec3, maxDistance float32) (Hit, bool, error)
}

// QueryFunc adapts a plain function to the Query interface
type QueryFunc func(origin, direction mgl32.Vec3, maxDistance float32) (Hit, bool, error)

// Query implements Query
func (f QueryFunc) Query(origin, direction mgl32.Vec3, maxDistance float32) (Hit, bool, error) {
	return f(origin, direction, maxDistance)
}

// BakeStats summarizes one bake
type BakeStats struct {
	Cells         int
	ObstacleCells int
	FailedQueries int
	Duration      time.Duration
}

// Sampler precomputes the quantized height grid of a chunk
type Sampler struct {
	query          Query
	verticalExtent float32
	logger         zerolog.Logger
}

// NewSampler creates a sampler over the given query service
func NewSampler(query Query, verticalExtent float32, logger zerolog.Logger) (*Sampler, error) {
	if query == nil {
		return nil, fmt.Errorf("height query: %w", core.ErrNilResource)
	}
	if verticalExtent <= 0 {
		return nil, fmt.Errorf("vertical extent must be positive, got %v", verticalExtent)
	}
	return &Sampler{
		query:          query,
		verticalExtent: verticalExtent,
		logger:         logger.With().Str("component", "height_sampler").Logger(),
	}, nil
}

// VerticalExtent returns the height that quantizes to 255
func (s *Sampler) VerticalExtent() float32 {
	return s.verticalExtent
}

// Bake samples every cell of the geometry. Cells whose query fails are left at 0.
func (s *Sampler) Bake(geom core.Geometry) ([]uint8, BakeStats, error) {
	if err := geom.Validate(); err != nil {
		return nil, BakeStats{}, err
	}

	start := time.Now()
	heights := make([]uint8, geom.Cells())
	stats := BakeStats{Cells: len(heights)}
	dir := geom.Orientation.ProbeDirection()

	for i := range heights {
		cell := core.FromIndex(i, geom.TextureSize)
		origin := geom.Orientation.Lift(geom.GridToWorld(cell), s.verticalExtent)

		h, err := s.sample(origin, dir)
		if err != nil {
			stats.FailedQueries++
			continue
		}
		heights[i] = h
		if h > 0 {
			stats.ObstacleCells++
		}
	}
	stats.Duration = time.Since(start)

	s.logger.Debug().
		Int("cells", stats.Cells).
		Int("obstacle_cells", stats.ObstacleCells).
		Int("failed_queries", stats.FailedQueries).
		Dur("duration", stats.Duration).
		Msg("Baked heightmap")

	return heights, stats, nil
}

// sample issues one query; a panicking query counts as a failure
func (s *Sampler) sample(origin, dir mgl32.Vec3) (h uint8, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("height query panicked: %v", r)
		}
	}()

	hit, ok, err := s.query.Query(origin, dir, s.verticalExtent)
	if err != nil {
		return 0, err
	}
	if !ok || !hit.LayerMatch {
		return 0, nil
	}
	return core.QuantizeHeight(s.verticalExtent-hit.Distance, s.verticalExtent), nil
}
