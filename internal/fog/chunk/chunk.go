package chunk

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/events"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
)

// SnapshotSource supplies the immutable revealer set a pass reads
type SnapshotSource interface {
	Snapshot() *revealer.Snapshot
}

// VisibleThreshold is the instant value above which a cell counts as visible to
// point queries
const VisibleThreshold = 64

// Options configure a new chunk
type Options struct {
	ID             int
	WorldID        string
	Geometry       core.Geometry
	Heights        []uint8 // nil means flat ground
	VerticalExtent float32
	Tuning         Tuning
	Source         SnapshotSource
	Publisher      events.Publisher
	Logger         zerolog.Logger
}

// Stats is a point-in-time view of a chunk's counters
type Stats struct {
	ID             int
	Phase          Phase
	Active         bool
	Passes         uint64
	FailedPasses   uint64
	Published      uint64
	Dropped        uint64
	LastPass       time.Duration
	LastLitCells   int
	LastRevealers  int
	BlendFactor    float32
	PresentedSeq   uint64
	PresentedTick  uint64
	PendingPublish bool
}

// Chunk owns the visibility buffers of one square region and the worker
// goroutine that recomputes them. Tick must be called from a single goroutine.
type Chunk struct {
	id             int
	worldID        string
	geom           core.Geometry
	verticalExtent float32
	buffers        *pipeline.Buffers
	source         SnapshotSource
	publisher      events.Publisher
	logger         zerolog.Logger

	tuning atomic.Pointer[Tuning]
	phase  atomic.Int32
	slot   frameSlot

	// presentation, written by Tick, read from anywhere
	view atomic.Pointer[presentation]

	// owned by the Tick goroutine
	elapsed      time.Duration
	blendElapsed time.Duration

	// lifecycle
	mu       sync.Mutex
	running  atomic.Bool
	stopping atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}

	seq           atomic.Uint64
	passes        atomic.Uint64
	failed        atomic.Uint64
	published     atomic.Uint64
	dropped       atomic.Uint64
	lastPassNanos atomic.Int64
	lastLit       atomic.Int64
	lastRevealers atomic.Int64
}

// New creates a stopped chunk. The first Tick after Start runs a pass immediately.
func New(opts Options) (*Chunk, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: chunk %d has no snapshot source", core.ErrNilResource, opts.ID)
	}
	buffers, err := pipeline.NewBuffers(opts.Geometry, opts.Heights)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", opts.ID, err)
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}

	c := &Chunk{
		id:             opts.ID,
		worldID:        opts.WorldID,
		geom:           opts.Geometry,
		verticalExtent: opts.VerticalExtent,
		buffers:        buffers,
		source:         opts.Source,
		publisher:      publisher,
		logger:         opts.Logger.With().Str("component", "chunk").Int("chunk_id", opts.ID).Logger(),
	}
	c.SetTuning(opts.Tuning)
	c.phase.Store(int32(PhaseNeedsUpdate))
	c.view.Store(&presentation{blend: 1})
	return c, nil
}

// ID returns the chunk's stable id
func (c *Chunk) ID() int { return c.id }

// Geometry returns the chunk's region and resolution
func (c *Chunk) Geometry() core.Geometry { return c.geom }

// Phase returns the current scheduling phase
func (c *Chunk) Phase() Phase { return Phase(c.phase.Load()) }

// Tuning returns the active tuning
func (c *Chunk) Tuning() Tuning { return *c.tuning.Load() }

// SetTuning replaces the tuning. Safe while the worker runs; the next pass picks it up.
func (c *Chunk) SetTuning(t Tuning) {
	t = t.normalized()
	c.tuning.Store(&t)
}

// IsActive reports whether the worker goroutine is running
func (c *Chunk) IsActive() bool { return c.running.Load() }

// presentation pairs the presented frame with its blend factor so readers never
// see a new frame with the previous frame's ramp
type presentation struct {
	frame *Frame
	blend float32
}

// BlendFactor returns the crossfade weight from (A,B) to (C,D) of the latest frame
func (c *Chunk) BlendFactor() float32 {
	return c.view.Load().blend
}

// setBlend is only called from the goroutine that owns Tick
func (c *Chunk) setBlend(t float32) {
	c.view.Store(&presentation{frame: c.view.Load().frame, blend: t})
}

// LatestBuffer returns the packed pixels of the most recently published frame,
// or nil before the first publish. The slice must not be modified.
func (c *Chunk) LatestBuffer() []pipeline.Pixel {
	if f := c.view.Load().frame; f != nil {
		return f.Pixels
	}
	return nil
}

// LatestFrame returns the most recently published frame or nil
func (c *Chunk) LatestFrame() *Frame {
	return c.view.Load().frame
}

// Presented returns the latest pixels and the blend factor that goes with them,
// read in one load. Pixels are nil before the first publish.
func (c *Chunk) Presented() ([]pipeline.Pixel, float32) {
	v := c.view.Load()
	if v.frame == nil {
		return nil, v.blend
	}
	return v.frame.Pixels, v.blend
}

// IsVisible reports whether the cell under a world position is visible in the
// presented frame. A cell still fading out of view counts until the crossfade ends.
// Positions outside the chunk are clamped to its edge.
func (c *Chunk) IsVisible(pos mgl32.Vec3) bool {
	v := c.view.Load()
	if v.frame == nil {
		return false
	}
	p := v.frame.Pixels[c.cellIndex(pos)]
	if p[pipeline.ChannelInstant] > VisibleThreshold {
		return true
	}
	return v.blend < 1 && p[pipeline.ChannelOldInstant] > 0
}

// IsExplored reports whether the cell under a world position has ever been visible
func (c *Chunk) IsExplored(pos mgl32.Vec3) bool {
	v := c.view.Load()
	if v.frame == nil {
		return false
	}
	return v.frame.Pixels[c.cellIndex(pos)][pipeline.ChannelExplored] > 0
}

func (c *Chunk) cellIndex(pos mgl32.Vec3) int {
	return c.geom.WorldToGrid(c.geom.Orientation.Plane(pos)).ToIndex(c.geom.TextureSize)
}

// Start launches the worker goroutine
func (c *Chunk) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		return fmt.Errorf("chunk %d: %w", c.id, core.ErrWorkerRunning)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.stopping.Store(false)
	c.running.Store(true)

	go c.run(workerCtx, c.done)

	c.logger.Info().Str("phase", c.Phase().String()).Msg("Chunk worker started")
	c.publisher.Publish(events.NewChunkStartedEvent(c.worldID, c.id))
	return nil
}

// Stop signals the worker and waits for it to exit. Stopping a stopped chunk is a no-op.
func (c *Chunk) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return
	}

	start := time.Now()
	c.stopping.Store(true)
	c.cancel()
	<-c.done
	joined := time.Since(start)

	c.done = nil
	c.cancel = nil
	c.running.Store(false)

	c.logger.Info().Dur("join_duration", joined).Msg("Chunk worker stopped")
	c.publisher.Publish(events.NewChunkStoppedEvent(c.worldID, c.id, joined))
}

// Tick advances the blend ramp and drives the main side of the phase machine
func (c *Chunk) Tick(dt time.Duration) {
	t := c.tuning.Load()

	c.blendElapsed += dt
	c.setBlend(ramp(c.blendElapsed, t.BlendDuration))

	switch c.Phase() {
	case PhaseBlending:
		c.elapsed += dt
		if c.elapsed >= t.UpdateInterval {
			c.transition(PhaseBlending, PhaseNeedsUpdate)
		}

	case PhasePublishPending:
		f := c.slot.take()
		if f == nil {
			c.logger.Warn().Msg("Publish pending with empty frame slot, resuming blend")
			c.elapsed = 0
			c.transition(PhasePublishPending, PhaseBlending)
			return
		}
		c.present(f, t.BlendDuration)
		c.elapsed = 0
		c.transition(PhasePublishPending, PhaseBlending)
	}
}

func (c *Chunk) present(f *Frame, blendDuration time.Duration) {
	c.blendElapsed = 0
	c.view.Store(&presentation{frame: f, blend: ramp(0, blendDuration)})
	c.published.Add(1)

	c.publisher.Publish(events.NewFramePublishedEvent(c.worldID, c.id, f.Seq, c.dropped.Load()))
}

func ramp(elapsed, duration time.Duration) float32 {
	if duration <= 0 {
		return 1
	}
	t := float32(elapsed) / float32(duration)
	if t > 1 {
		return 1
	}
	return t
}

func (c *Chunk) transition(from, to Phase) bool {
	if !from.CanTransitionTo(to) {
		c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Illegal phase transition")
		return false
	}
	if !c.phase.CompareAndSwap(int32(from), int32(to)) {
		c.logger.Warn().
			Str("from", from.String()).
			Str("to", to.String()).
			Str("actual", c.Phase().String()).
			Msg("Phase changed concurrently, transition skipped")
		return false
	}
	return true
}

func (c *Chunk) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.running.Store(false)

	for {
		if c.stopping.Load() || ctx.Err() != nil {
			return
		}

		if c.phase.CompareAndSwap(int32(PhaseNeedsUpdate), int32(PhaseUpdating)) {
			c.update()
			continue
		}

		idle := time.NewTimer(c.tuning.Load().IdleSleep)
		select {
		case <-ctx.Done():
			idle.Stop()
			return
		case <-idle.C:
		}
	}
}

// update runs one pass and hands the frame to the main side. Only called in PhaseUpdating.
// A pass that panics leaves no frame; the instant channel is cleared and the chunk
// goes back to blending so the next interval retries.
func (c *Chunk) update() {
	defer func() {
		if r := recover(); r != nil {
			c.failed.Add(1)
			c.buffers.ClearInstant()
			c.phase.Store(int32(PhaseBlending))
			c.logger.Error().Interface("panic", r).Uint64("failed_passes", c.failed.Load()).Msg("Visibility pass panicked")
		}
	}()

	f := c.runPass()
	if c.slot.put(f) {
		c.dropped.Add(1)
		c.logger.Debug().Uint64("seq", f.Seq).Msg("Unconsumed frame replaced")
	}
	c.transition(PhaseUpdating, PhasePublishPending)
}

func (c *Chunk) runPass() *Frame {
	t := c.tuning.Load()
	snap := c.source.Snapshot()
	if snap == nil {
		snap = &revealer.Snapshot{}
	}

	start := time.Now()
	stats := c.buffers.Pass(snap.Views, c.BlendFactor(), pipeline.Settings{
		BlurIterations:  t.BlurIterations,
		OcclusionMargin: t.OcclusionMargin,
		VerticalExtent:  c.verticalExtent,
	})

	f := &Frame{
		Seq:    c.seq.Add(1),
		Tick:   snap.Tick,
		Pixels: make([]pipeline.Pixel, c.buffers.Len()),
		Stats:  stats,
	}
	if err := c.buffers.Merge(f.Pixels); err != nil {
		c.logger.Error().Err(err).Msg("Failed to merge frame")
	}
	f.Duration = time.Since(start)

	c.passes.Add(1)
	c.lastPassNanos.Store(int64(f.Duration))
	c.lastLit.Store(int64(stats.LitCells))
	c.lastRevealers.Store(int64(stats.Revealers))

	c.logger.Debug().
		Uint64("seq", f.Seq).
		Uint64("tick", f.Tick).
		Dur("duration", f.Duration).
		Int("revealers", stats.Revealers).
		Int("culled", stats.Culled).
		Int("lit_cells", stats.LitCells).
		Msg("Visibility pass complete")
	c.publisher.Publish(events.NewPassCompletedEvent(c.worldID, c.id, f.Seq, f.Duration, stats.Revealers, stats.LitCells))
	return f
}

// RunPassSync runs one pass on the calling goroutine and presents the result
// immediately. Used by offline tools; rejected while the worker runs.
func (c *Chunk) RunPassSync() (pipeline.PassStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return pipeline.PassStats{}, fmt.Errorf("chunk %d: %w", c.id, core.ErrWorkerRunning)
	}

	f := c.runPass()
	c.present(f, c.tuning.Load().BlendDuration)
	return f.Stats, nil
}

// Save copies the persistent channels out of the working buffers
func (c *Chunk) Save() (pipeline.ChannelSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return pipeline.ChannelSet{}, fmt.Errorf("chunk %d: save: %w", c.id, core.ErrWorkerRunning)
	}
	return c.buffers.Channels(), nil
}

// Restore loads persistent channels and presents them with no pending crossfade
func (c *Chunk) Restore(cs pipeline.ChannelSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return fmt.Errorf("chunk %d: restore: %w", c.id, core.ErrWorkerRunning)
	}
	if err := c.buffers.Restore(cs); err != nil {
		c.logger.Error().Err(err).Msg("Failed to restore chunk channels")
		return fmt.Errorf("chunk %d: %w", c.id, err)
	}

	f := &Frame{Seq: c.seq.Add(1), Pixels: make([]pipeline.Pixel, c.buffers.Len())}
	_ = c.buffers.Merge(f.Pixels)
	c.slot.take()
	c.blendElapsed = 0
	c.view.Store(&presentation{frame: f, blend: 1})
	c.phase.Store(int32(PhaseNeedsUpdate))
	return nil
}

// Rebake replaces the height grid
func (c *Chunk) Rebake(heights []uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return fmt.Errorf("chunk %d: rebake: %w", c.id, core.ErrWorkerRunning)
	}
	if err := c.buffers.SetHeights(heights); err != nil {
		return fmt.Errorf("chunk %d: %w", c.id, err)
	}
	return nil
}

// SetHeight overwrites the quantized height of the cell under a world position.
// Positions outside the chunk are clamped to its edge.
func (c *Chunk) SetHeight(pos mgl32.Vec3, h uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return fmt.Errorf("chunk %d: set height: %w", c.id, core.ErrWorkerRunning)
	}
	cell := c.geom.WorldToGrid(c.geom.Orientation.Plane(pos))
	c.buffers.SetHeightAt(cell, h)
	c.logger.Debug().Int("x", cell.X).Int("y", cell.Y).Uint8("height", h).Msg("Cell height set")
	return nil
}

// Heights returns a copy of the chunk's quantized height grid
func (c *Chunk) Heights() []uint8 {
	return c.buffers.Heights()
}

// Stats returns the chunk's counters
func (c *Chunk) Stats() Stats {
	s := Stats{
		ID:             c.id,
		Phase:          c.Phase(),
		Active:         c.IsActive(),
		Passes:         c.passes.Load(),
		FailedPasses:   c.failed.Load(),
		Published:      c.published.Load(),
		Dropped:        c.dropped.Load(),
		LastPass:       time.Duration(c.lastPassNanos.Load()),
		LastLitCells:   int(c.lastLit.Load()),
		LastRevealers:  int(c.lastRevealers.Load()),
		BlendFactor:    c.BlendFactor(),
		PendingPublish: c.slot.pending(),
	}
	if f := c.LatestFrame(); f != nil {
		s.PresentedSeq = f.Seq
		s.PresentedTick = f.Tick
	}
	return s
}
