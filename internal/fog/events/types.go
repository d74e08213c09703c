package events

import (
	"time"
)

// Event is the base interface for all fog events
type Event interface {
	// Type returns the event type as a string for filtering and logging
	Type() string
	// Timestamp returns when the event occurred
	Timestamp() time.Time
	// WorldID returns the ID of the fog world that raised the event
	WorldID() string
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	EventType string    `json:"type"`
	Time      time.Time `json:"timestamp"`
	World     string    `json:"world_id"`
}

// Type implements Event interface
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp implements Event interface
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// WorldID implements Event interface
func (e BaseEvent) WorldID() string {
	return e.World
}

func newBase(eventType, worldID string) BaseEvent {
	return BaseEvent{EventType: eventType, Time: time.Now(), World: worldID}
}

// EventHandler is a function that processes events
type EventHandler func(Event)

// Subscriber represents an entity that can receive events
type Subscriber interface {
	// ID returns a unique identifier for this subscriber
	ID() string
	// HandleEvent processes an event
	HandleEvent(Event)
	// InterestedIn returns true if the subscriber wants to receive this event type
	InterestedIn(eventType string) bool
}

// Publisher is the interface for publishing events
type Publisher interface {
	Publish(Event)
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(Event) {}
