package world

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/chunk"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/events"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/events/subscribers"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/heightmap"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
	"github.com/mitchelldurbincs/FogOfWar/internal/persist"
)

// Options configure a World
type Options struct {
	ID             string // generated when empty
	Region         core.Geometry
	Grid           int
	VerticalExtent float32
	Tuning         chunk.Tuning
	Query          heightmap.Query
	Store          persist.Store
	EventLogLevel  zerolog.Level
	Logger         zerolog.Logger
}

// World is the fog-of-war context: it owns the revealer registry, the chunk
// manager and the event bus. Tick, Save and Load belong to one update goroutine;
// AddRevealer and RemoveRevealer may be called from anywhere.
type World struct {
	id       string
	bus      *events.EventBus
	registry *revealer.Registry
	manager  *Manager
	store    persist.Store
	logger   zerolog.Logger

	verticalExtent float32
}

// New creates a stopped world
func New(opts Options) (*World, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger.With().Str("world_id", id).Logger()

	bus := events.NewEventBus(logger)
	bus.Subscribe(subscribers.NewLoggerSubscriber("event-log", logger, opts.EventLogLevel))

	registry := revealer.NewRegistry(id, bus, logger)
	manager, err := NewManager(ManagerOptions{
		WorldID:        id,
		Region:         opts.Region,
		Grid:           opts.Grid,
		VerticalExtent: opts.VerticalExtent,
		Tuning:         opts.Tuning,
		Query:          opts.Query,
		Registry:       registry,
		Publisher:      bus,
		Logger:         logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create fog world")
		return nil, err
	}

	return &World{
		id:       id,
		bus:      bus,
		registry: registry,
		manager:  manager,
		store:    opts.Store,
		logger:   logger.With().Str("component", "fog_world").Logger(),

		verticalExtent: opts.VerticalExtent,
	}, nil
}

// ID returns the world id
func (w *World) ID() string { return w.id }

// Events returns the world's event bus
func (w *World) Events() *events.EventBus { return w.bus }

// Registry returns the revealer registry
func (w *World) Registry() *revealer.Registry { return w.registry }

// Manager returns the chunk manager
func (w *World) Manager() *Manager { return w.manager }

// Start reconciles once so the first passes see the initial revealers, then
// starts every worker
func (w *World) Start(ctx context.Context) error {
	w.registry.Reconcile()
	if err := w.manager.Start(ctx); err != nil {
		return err
	}
	w.logger.Info().Int("chunks", w.manager.Len()).Msg("Fog world started")
	return nil
}

// Stop stops every worker
func (w *World) Stop() {
	w.manager.Stop()
	w.logger.Info().Msg("Fog world stopped")
}

// Tick advances the world by dt
func (w *World) Tick(dt time.Duration) {
	w.manager.Tick(dt)
}

// Step advances the world offline by one synchronous pass per chunk
func (w *World) Step(dt time.Duration) ([]pipeline.PassStats, error) {
	return w.manager.Step(dt)
}

// AddRevealer creates a revealer for an owner and stages it for the next tick
func (w *World) AddRevealer(owner revealer.Owner, shape revealer.Shape) (*revealer.Revealer, error) {
	r, err := revealer.New(owner, shape)
	if err != nil {
		return nil, err
	}
	w.registry.Add(r)
	return r, nil
}

// RemoveRevealer stages a revealer for removal
func (w *World) RemoveRevealer(id uuid.UUID) {
	w.registry.Remove(id)
}

// ApplyTuning updates scheduling and pass parameters of every chunk
func (w *World) ApplyTuning(t chunk.Tuning) {
	w.manager.SetTuning(t)
	w.logger.Info().
		Dur("update_interval", t.UpdateInterval).
		Dur("blend_duration", t.BlendDuration).
		Int("blur_iterations", t.BlurIterations).
		Int("occlusion_margin", t.OcclusionMargin).
		Msg("Tuning applied")
	w.bus.Publish(events.NewTuningAppliedEvent(w.id, t.UpdateInterval, t.BlendDuration, t.BlurIterations))
}

// Reset discards all visibility state and rebakes heights
func (w *World) Reset() error {
	return w.manager.Reset()
}

// Rebake resamples obstacle heights into every chunk. Workers must be stopped.
func (w *World) Rebake() error {
	return w.manager.Rebake()
}

// SetHeight overwrites the ground height under a world position, in world units.
// Workers must be stopped.
func (w *World) SetHeight(pos mgl32.Vec3, height float32) error {
	q := core.QuantizeHeight(height, w.verticalExtent)
	if err := w.manager.SetHeight(pos, q); err != nil {
		w.logger.Error().Err(err).Msg("Set height rejected")
		return err
	}
	return nil
}

// PointState reports the presented visibility of a world position
func (w *World) PointState(pos mgl32.Vec3) (PointState, error) {
	return w.manager.PointState(pos)
}

// IsVisible reports whether a world position is visible in the presented fog
func (w *World) IsVisible(pos mgl32.Vec3) (bool, error) {
	return w.manager.IsVisible(pos)
}

// IsExplored reports whether a world position has ever been visible
func (w *World) IsExplored(pos mgl32.Vec3) (bool, error) {
	return w.manager.IsExplored(pos)
}

// SaveSlot writes the single chunk's channels to the configured store.
// Workers must be stopped.
func (w *World) SaveSlot(ctx context.Context, name string) error {
	if w.store == nil {
		return fmt.Errorf("save slot store: %w", core.ErrNilResource)
	}
	cs, err := w.manager.Save()
	if err != nil {
		w.logger.Error().Err(err).Str("slot", name).Msg("Save rejected")
		return err
	}

	slot := persist.Slot{
		Header: persist.Header{
			WorldID: w.id,
			ChunkID: 0,
			Tick:    w.registry.Snapshot().Tick,
			SavedAt: time.Now().UTC(),
		},
		Channels: cs,
	}
	if err := w.store.Save(ctx, name, slot); err != nil {
		w.logger.Error().Err(err).Str("slot", name).Msg("Failed to save slot")
		return err
	}
	w.logger.Info().Str("slot", name).Msg("Saved slot")
	return nil
}

// LoadSlot restores the single chunk's channels from the configured store.
// Workers must be stopped.
func (w *World) LoadSlot(ctx context.Context, name string) error {
	if w.store == nil {
		return fmt.Errorf("save slot store: %w", core.ErrNilResource)
	}
	if _, err := w.manager.SingleChunk(); err != nil {
		return err
	}

	slot, err := w.store.Load(ctx, name)
	if err != nil {
		w.logger.Error().Err(err).Str("slot", name).Msg("Failed to load slot")
		return err
	}
	if err := w.manager.Restore(slot.Channels); err != nil {
		w.logger.Error().Err(err).Str("slot", name).Msg("Restore rejected")
		return err
	}
	w.logger.Info().Str("slot", name).Str("saved_by", slot.Header.WorldID).Msg("Loaded slot")
	return nil
}

// ListSlots returns the names saved in the configured store
func (w *World) ListSlots(ctx context.Context) ([]string, error) {
	if w.store == nil {
		return nil, fmt.Errorf("save slot store: %w", core.ErrNilResource)
	}
	return w.store.List(ctx)
}
