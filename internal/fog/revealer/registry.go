package revealer

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/events"
)

// View is the immutable per-tick copy of a revealer handed to chunk workers
type View struct {
	ID     uuid.UUID
	Shape  Shape
	Pose   Pose
	Bounds Bounds
}

// Snapshot is the active set as of one reconciliation
type Snapshot struct {
	Tick  uint64
	Views []View
}

// Registry holds the active revealers. Add and Remove may be called from any goroutine;
// Reconcile must only be called from the update goroutine.
type Registry struct {
	addMu      sync.Mutex
	pendingAdd []*Revealer

	removeMu      sync.Mutex
	pendingRemove []uuid.UUID

	// owned by the reconciling goroutine
	active map[uuid.UUID]*Revealer
	order  []uuid.UUID
	tick   uint64

	snapshot atomic.Pointer[Snapshot]

	worldID   string
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(worldID string, publisher events.Publisher, logger zerolog.Logger) *Registry {
	if publisher == nil {
		publisher = events.Nop{}
	}
	reg := &Registry{
		active:    make(map[uuid.UUID]*Revealer),
		worldID:   worldID,
		publisher: publisher,
		logger:    logger.With().Str("component", "revealer_registry").Logger(),
	}
	reg.snapshot.Store(&Snapshot{})
	return reg
}

// Add stages a revealer for addition. Adding the same revealer twice is a no-op.
func (reg *Registry) Add(r *Revealer) {
	if r == nil {
		return
	}
	reg.addMu.Lock()
	defer reg.addMu.Unlock()

	for _, p := range reg.pendingAdd {
		if p.id == r.id {
			return
		}
	}
	reg.pendingAdd = append(reg.pendingAdd, r)
}

// Remove stages a revealer for removal by id. Removing twice is a no-op.
func (reg *Registry) Remove(id uuid.UUID) {
	reg.removeMu.Lock()
	defer reg.removeMu.Unlock()

	for _, p := range reg.pendingRemove {
		if p == id {
			return
		}
	}
	reg.pendingRemove = append(reg.pendingRemove, id)
}

// Reconcile applies staged additions then removals, refreshes every active revealer
// from its owner, releases invalidated ones and publishes a new snapshot.
func (reg *Registry) Reconcile() *Snapshot {
	reg.addMu.Lock()
	adds := reg.pendingAdd
	reg.pendingAdd = nil
	reg.addMu.Unlock()

	reg.removeMu.Lock()
	removes := reg.pendingRemove
	reg.pendingRemove = nil
	reg.removeMu.Unlock()

	for _, r := range adds {
		if _, exists := reg.active[r.id]; exists {
			continue
		}
		reg.active[r.id] = r
		reg.order = append(reg.order, r.id)
		reg.publisher.Publish(events.NewRevealerAddedEvent(reg.worldID, r.id.String(), r.shape.Kind().String()))
	}

	for _, id := range removes {
		reg.release(id, "removed")
	}

	reg.tick++
	views := make([]View, 0, len(reg.order))
	kept := reg.order[:0]
	for _, id := range reg.order {
		r, ok := reg.active[id]
		if !ok {
			continue
		}
		if !r.refresh() {
			delete(reg.active, id)
			reg.logger.Debug().Str("revealer_id", id.String()).Msg("Released invalidated revealer")
			reg.publisher.Publish(events.NewRevealerRemovedEvent(reg.worldID, id.String(), "invalidated"))
			continue
		}
		kept = append(kept, id)
		views = append(views, r.view())
	}
	reg.order = kept

	snap := &Snapshot{Tick: reg.tick, Views: views}
	reg.snapshot.Store(snap)
	return snap
}

// release drops a revealer from the active set; order is compacted during the refresh sweep
func (reg *Registry) release(id uuid.UUID, reason string) {
	if _, ok := reg.active[id]; !ok {
		return
	}
	delete(reg.active, id)
	reg.publisher.Publish(events.NewRevealerRemovedEvent(reg.worldID, id.String(), reason))
}

// Snapshot returns the latest published snapshot. Safe from any goroutine.
func (reg *Registry) Snapshot() *Snapshot {
	return reg.snapshot.Load()
}

// Active returns the number of revealers in the latest snapshot
func (reg *Registry) Active() int {
	return len(reg.Snapshot().Views)
}

// Pending returns the number of staged additions and removals
func (reg *Registry) Pending() (adds, removes int) {
	reg.addMu.Lock()
	adds = len(reg.pendingAdd)
	reg.addMu.Unlock()

	reg.removeMu.Lock()
	removes = len(reg.pendingRemove)
	reg.removeMu.Unlock()
	return adds, removes
}
