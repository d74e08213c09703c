package subscribers

import (
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/events"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // If non-nil, only log these event types
}

// NewLoggerSubscriber creates a new logger subscriber
func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

// ID returns the subscriber's unique identifier
func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

// InterestedIn returns true if the subscriber wants to receive this event type
func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent processes an event by logging it
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	logEvent := ls.logger.WithLevel(ls.logLevel).
		Str("event_type", event.Type()).
		Str("world_id", event.WorldID())

	switch e := event.(type) {
	case *events.RevealerAddedEvent:
		logEvent.Str("revealer_id", e.RevealerID).Str("kind", e.Kind)
	case *events.RevealerRemovedEvent:
		logEvent.Str("revealer_id", e.RevealerID).Str("reason", e.Reason)
	case *events.PassCompletedEvent:
		logEvent.
			Int("chunk_id", e.ChunkID).
			Uint64("seq", e.Seq).
			Dur("duration", e.Duration).
			Int("revealers", e.Revealers).
			Int("lit_cells", e.LitCells)
	case *events.FramePublishedEvent:
		logEvent.Int("chunk_id", e.ChunkID).Uint64("seq", e.Seq).Uint64("dropped", e.Dropped)
	case *events.ChunkLifecycleEvent:
		logEvent.Int("chunk_id", e.ChunkID).Dur("elapsed", e.Elapsed)
	case *events.HeightmapBakedEvent:
		logEvent.
			Int("chunk_id", e.ChunkID).
			Int("obstacle_cells", e.ObstacleCells).
			Int("failed_queries", e.FailedQueries).
			Dur("duration", e.Duration)
	case *events.TuningAppliedEvent:
		logEvent.
			Dur("update_interval", e.UpdateInterval).
			Dur("blend_duration", e.BlendDuration).
			Int("blur_iterations", e.BlurIterations)
	}

	logEvent.Msg("Fog event")
}
