package world

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/chunk"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/events"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/heightmap"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
)

// ManagerOptions configure a chunk manager
type ManagerOptions struct {
	WorldID string

	// Region is the whole fog area. TextureSize is the resolution of each chunk.
	Region         core.Geometry
	Grid           int
	VerticalExtent float32
	Tuning         chunk.Tuning

	// Query samples obstacle heights; nil means flat ground
	Query heightmap.Query

	Registry  *revealer.Registry
	Publisher events.Publisher
	Logger    zerolog.Logger
}

// Manager tiles a region into Grid×Grid chunks and runs them as a unit
type Manager struct {
	opts    ManagerOptions
	sampler *heightmap.Sampler
	logger  zerolog.Logger

	mu      sync.RWMutex
	chunks  []*chunk.Chunk
	running bool
	runCtx  context.Context
}

// NewManager bakes heights and creates stopped chunks
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("chunk manager registry: %w", core.ErrNilResource)
	}
	if opts.Grid < 1 {
		opts.Grid = 1
	}
	if err := opts.Region.Validate(); err != nil {
		return nil, err
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}

	m := &Manager{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "chunk_manager").Logger(),
	}
	if opts.Query != nil {
		sampler, err := heightmap.NewSampler(opts.Query, opts.VerticalExtent, opts.Logger)
		if err != nil {
			return nil, err
		}
		m.sampler = sampler
	}

	chunks, err := m.build()
	if err != nil {
		return nil, err
	}
	m.chunks = chunks
	return m, nil
}

// Grid returns the number of chunks along each axis
func (m *Manager) Grid() int { return m.opts.Grid }

// Region returns the whole fog area
func (m *Manager) Region() core.Geometry { return m.opts.Region }

// ChunkGeometry returns the geometry of the chunk at grid position (x, y)
func (m *Manager) ChunkGeometry(x, y int) core.Geometry {
	r := m.opts.Region
	size := r.Size / float32(m.opts.Grid)
	return core.Geometry{
		Origin:      r.Origin.Add(mgl32.Vec2{float32(x) * size, float32(y) * size}),
		Size:        size,
		TextureSize: r.TextureSize,
		Orientation: r.Orientation,
	}
}

func (m *Manager) build() ([]*chunk.Chunk, error) {
	n := m.opts.Grid
	chunks := make([]*chunk.Chunk, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			id := y*n + x
			geom := m.ChunkGeometry(x, y)

			heights, err := m.bake(id, geom)
			if err != nil {
				return nil, err
			}

			c, err := chunk.New(chunk.Options{
				ID:             id,
				WorldID:        m.opts.WorldID,
				Geometry:       geom,
				Heights:        heights,
				VerticalExtent: m.opts.VerticalExtent,
				Tuning:         m.opts.Tuning,
				Source:         m.opts.Registry,
				Publisher:      m.opts.Publisher,
				Logger:         m.opts.Logger,
			})
			if err != nil {
				m.logger.Error().Err(err).Int("chunk_id", id).Msg("Failed to create chunk")
				return nil, err
			}
			chunks = append(chunks, c)
		}
	}
	m.logger.Info().Int("grid", n).Int("chunks", len(chunks)).Int("texture_size", m.opts.Region.TextureSize).Msg("Chunks created")
	return chunks, nil
}

// bake returns nil (flat ground) when no height query is configured
func (m *Manager) bake(id int, geom core.Geometry) ([]uint8, error) {
	if m.sampler == nil {
		return nil, nil
	}
	heights, stats, err := m.sampler.Bake(geom)
	if err != nil {
		return nil, fmt.Errorf("bake chunk %d: %w", id, err)
	}
	if stats.FailedQueries > 0 {
		m.logger.Warn().Int("chunk_id", id).Int("failed_queries", stats.FailedQueries).Msg("Height queries failed, cells treated as open ground")
	}
	m.opts.Publisher.Publish(events.NewHeightmapBakedEvent(m.opts.WorldID, id, stats.ObstacleCells, stats.FailedQueries, stats.Duration))
	return heights, nil
}

// Len returns the number of chunks
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Chunks returns the chunks ordered by id
func (m *Manager) Chunks() []*chunk.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*chunk.Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// Chunk returns the chunk with the given id
func (m *Manager) Chunk(id int) (*chunk.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= len(m.chunks) {
		return nil, fmt.Errorf("%w: id %d", core.ErrChunkNotFound, id)
	}
	return m.chunks[id], nil
}

// ChunkAt returns the chunk covering a ground-plane position
func (m *Manager) ChunkAt(p mgl32.Vec2) (*chunk.Chunk, error) {
	r := m.opts.Region
	size := float64(r.Size) / float64(m.opts.Grid)
	x := int(math.Floor(float64(p.X()-r.Origin.X()) / size))
	y := int(math.Floor(float64(p.Y()-r.Origin.Y()) / size))
	if x < 0 || y < 0 || x >= m.opts.Grid || y >= m.opts.Grid {
		return nil, fmt.Errorf("%w: position %v outside region", core.ErrChunkNotFound, p)
	}
	return m.Chunk(y*m.opts.Grid + x)
}

// PointState is what the presented fog says about one world position
type PointState struct {
	ChunkID  int
	Visible  bool
	Explored bool
}

// PointState looks up the chunk under a world position and reads its presented frame
func (m *Manager) PointState(pos mgl32.Vec3) (PointState, error) {
	c, err := m.ChunkAt(m.opts.Region.Orientation.Plane(pos))
	if err != nil {
		return PointState{}, err
	}
	return PointState{ChunkID: c.ID(), Visible: c.IsVisible(pos), Explored: c.IsExplored(pos)}, nil
}

// IsVisible reports whether a world position is visible in the presented fog
func (m *Manager) IsVisible(pos mgl32.Vec3) (bool, error) {
	ps, err := m.PointState(pos)
	return ps.Visible, err
}

// IsExplored reports whether a world position has ever been visible
func (m *Manager) IsExplored(pos mgl32.Vec3) (bool, error) {
	ps, err := m.PointState(pos)
	return ps.Explored, err
}

// SetHeight overwrites the quantized ground height under a world position.
// Workers must be stopped.
func (m *Manager) SetHeight(pos mgl32.Vec3, h uint8) error {
	if m.IsRunning() {
		return fmt.Errorf("set height: %w", core.ErrWorkerRunning)
	}
	c, err := m.ChunkAt(m.opts.Region.Orientation.Plane(pos))
	if err != nil {
		return err
	}
	return c.SetHeight(pos, h)
}

// IsRunning reports whether the workers were started
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Start launches every chunk worker. If one fails the started ones are stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("chunk manager: %w", core.ErrWorkerRunning)
	}
	if err := startAll(ctx, m.chunks); err != nil {
		return err
	}
	m.running = true
	m.runCtx = ctx
	return nil
}

func startAll(ctx context.Context, chunks []*chunk.Chunk) error {
	for i, c := range chunks {
		if err := c.Start(ctx); err != nil {
			for _, started := range chunks[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops and joins every worker
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	start := time.Now()
	for _, c := range m.chunks {
		c.Stop()
	}
	if m.running {
		m.logger.Info().Dur("duration", time.Since(start)).Msg("All chunk workers stopped")
	}
	m.running = false
}

// Tick reconciles the revealer registry then ticks every chunk
func (m *Manager) Tick(dt time.Duration) {
	m.opts.Registry.Reconcile()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.chunks {
		c.Tick(dt)
	}
}

// Step reconciles the registry, runs one synchronous pass on every chunk and
// advances their blend ramps by dt. Used for offline runs; workers must be stopped.
func (m *Manager) Step(dt time.Duration) ([]pipeline.PassStats, error) {
	m.opts.Registry.Reconcile()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.running {
		return nil, fmt.Errorf("step: %w", core.ErrWorkerRunning)
	}
	stats := make([]pipeline.PassStats, len(m.chunks))
	for i, c := range m.chunks {
		s, err := c.RunPassSync()
		if err != nil {
			return nil, err
		}
		stats[i] = s
		c.Tick(dt)
	}
	return stats, nil
}

// SetTuning applies new tuning to every chunk and to chunks created later
func (m *Manager) SetTuning(t chunk.Tuning) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts.Tuning = t
	for _, c := range m.chunks {
		c.SetTuning(t)
	}
}

// Rebake resamples heights into the existing chunks. Workers must be stopped.
func (m *Manager) Rebake() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("rebake: %w", core.ErrWorkerRunning)
	}
	for _, c := range m.chunks {
		heights, err := m.bake(c.ID(), c.Geometry())
		if err != nil {
			return err
		}
		if heights == nil {
			heights = make([]uint8, c.Geometry().Cells())
		}
		if err := c.Rebake(heights); err != nil {
			return err
		}
	}
	m.logger.Info().Int("chunks", len(m.chunks)).Bool("flat", m.sampler == nil).Msg("Heights rebaked")
	return nil
}

// Reset stops the workers, rebakes heights and replaces every chunk with a fresh
// one. Workers are restarted if they were running.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasRunning := m.running
	m.stopLocked()

	chunks, err := m.build()
	if err != nil {
		return err
	}
	m.chunks = chunks
	m.logger.Info().Bool("restart", wasRunning).Msg("Chunks reset")

	if wasRunning {
		if err := startAll(m.runCtx, m.chunks); err != nil {
			return err
		}
		m.running = true
	}
	return nil
}

func (m *Manager) single() (*chunk.Chunk, error) {
	if len(m.chunks) != 1 {
		return nil, fmt.Errorf("%w: save/restore needs exactly one chunk, have %d", core.ErrUnsupportedConfiguration, len(m.chunks))
	}
	return m.chunks[0], nil
}

// Save copies the channels of the single chunk
func (m *Manager) Save() (pipeline.ChannelSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.single()
	if err != nil {
		return pipeline.ChannelSet{}, err
	}
	return c.Save()
}

// Restore loads channels into the single chunk
func (m *Manager) Restore(cs pipeline.ChannelSet) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.single()
	if err != nil {
		return err
	}
	return c.Restore(cs)
}

// Stats returns every chunk's counters ordered by id
func (m *Manager) Stats() []chunk.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chunk.Stats, len(m.chunks))
	for i, c := range m.chunks {
		out[i] = c.Stats()
	}
	return out
}

// ActiveWorkers returns the number of running chunk workers
func (m *Manager) ActiveWorkers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.chunks {
		if c.IsActive() {
			n++
		}
	}
	return n
}

// SingleChunk returns the only chunk, or ErrUnsupportedConfiguration when the region is tiled
func (m *Manager) SingleChunk() (*chunk.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.single()
}
