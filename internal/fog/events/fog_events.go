package events

import (
	"time"
)

// Event type constants
const (
	TypeRevealerAdded   = "revealer.added"
	TypeRevealerRemoved = "revealer.removed"
	TypePassCompleted   = "pass.completed"
	TypeFramePublished  = "frame.published"
	TypeChunkStarted    = "chunk.started"
	TypeChunkStopped    = "chunk.stopped"
	TypeHeightmapBaked  = "heightmap.baked"
	TypeTuningApplied   = "tuning.applied"
)

// RevealerAddedEvent is published when a revealer joins the active set
type RevealerAddedEvent struct {
	BaseEvent
	RevealerID string
	Kind       string
}

// NewRevealerAddedEvent creates a new RevealerAddedEvent
func NewRevealerAddedEvent(worldID, revealerID, kind string) *RevealerAddedEvent {
	return &RevealerAddedEvent{
		BaseEvent:  newBase(TypeRevealerAdded, worldID),
		RevealerID: revealerID,
		Kind:       kind,
	}
}

// RevealerRemovedEvent is published when a revealer leaves the active set
type RevealerRemovedEvent struct {
	BaseEvent
	RevealerID string
	Reason     string
}

// NewRevealerRemovedEvent creates a new RevealerRemovedEvent
func NewRevealerRemovedEvent(worldID, revealerID, reason string) *RevealerRemovedEvent {
	return &RevealerRemovedEvent{
		BaseEvent:  newBase(TypeRevealerRemoved, worldID),
		RevealerID: revealerID,
		Reason:     reason,
	}
}

// PassCompletedEvent is published by a chunk worker after each visibility pass
type PassCompletedEvent struct {
	BaseEvent
	ChunkID   int
	Seq       uint64
	Duration  time.Duration
	Revealers int
	LitCells  int
}

// NewPassCompletedEvent creates a new PassCompletedEvent
func NewPassCompletedEvent(worldID string, chunkID int, seq uint64, duration time.Duration, revealers, litCells int) *PassCompletedEvent {
	return &PassCompletedEvent{
		BaseEvent: newBase(TypePassCompleted, worldID),
		ChunkID:   chunkID,
		Seq:       seq,
		Duration:  duration,
		Revealers: revealers,
		LitCells:  litCells,
	}
}

// FramePublishedEvent is published when the update goroutine takes a new frame
type FramePublishedEvent struct {
	BaseEvent
	ChunkID int
	Seq     uint64
	Dropped uint64
}

// NewFramePublishedEvent creates a new FramePublishedEvent
func NewFramePublishedEvent(worldID string, chunkID int, seq, dropped uint64) *FramePublishedEvent {
	return &FramePublishedEvent{
		BaseEvent: newBase(TypeFramePublished, worldID),
		ChunkID:   chunkID,
		Seq:       seq,
		Dropped:   dropped,
	}
}

// ChunkLifecycleEvent is published when a chunk worker starts or stops
type ChunkLifecycleEvent struct {
	BaseEvent
	ChunkID int
	Elapsed time.Duration // join time for stops
}

// NewChunkStartedEvent creates a chunk start event
func NewChunkStartedEvent(worldID string, chunkID int) *ChunkLifecycleEvent {
	return &ChunkLifecycleEvent{BaseEvent: newBase(TypeChunkStarted, worldID), ChunkID: chunkID}
}

// NewChunkStoppedEvent creates a chunk stop event
func NewChunkStoppedEvent(worldID string, chunkID int, joined time.Duration) *ChunkLifecycleEvent {
	return &ChunkLifecycleEvent{BaseEvent: newBase(TypeChunkStopped, worldID), ChunkID: chunkID, Elapsed: joined}
}

// HeightmapBakedEvent is published after a chunk's heightmap is sampled
type HeightmapBakedEvent struct {
	BaseEvent
	ChunkID       int
	ObstacleCells int
	FailedQueries int
	Duration      time.Duration
}

// NewHeightmapBakedEvent creates a new HeightmapBakedEvent
func NewHeightmapBakedEvent(worldID string, chunkID, obstacles, failed int, d time.Duration) *HeightmapBakedEvent {
	return &HeightmapBakedEvent{
		BaseEvent:     newBase(TypeHeightmapBaked, worldID),
		ChunkID:       chunkID,
		ObstacleCells: obstacles,
		FailedQueries: failed,
		Duration:      d,
	}
}

// TuningAppliedEvent is published when runtime settings change
type TuningAppliedEvent struct {
	BaseEvent
	UpdateInterval time.Duration
	BlendDuration  time.Duration
	BlurIterations int
}

// NewTuningAppliedEvent creates a new TuningAppliedEvent
func NewTuningAppliedEvent(worldID string, interval, blend time.Duration, blur int) *TuningAppliedEvent {
	return &TuningAppliedEvent{
		BaseEvent:      newBase(TypeTuningApplied, worldID),
		UpdateInterval: interval,
		BlendDuration:  blend,
		BlurIterations: blur,
	}
}
