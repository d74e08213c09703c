package events

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// EventBus is a synchronous event bus. Publish may be called from chunk workers
// concurrently with the update goroutine; handlers must be safe for that.
type EventBus struct {
	subscribers  map[string]Subscriber
	funcHandlers map[string][]EventHandler
	mu           sync.RWMutex
	logger       zerolog.Logger
}

// NewEventBus creates a new event bus instance
func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers:  make(map[string]Subscriber),
		funcHandlers: make(map[string][]EventHandler),
		logger:       logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe adds a new subscriber to the event bus
func (eb *EventBus) Subscribe(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[subscriber.ID()] = subscriber
	eb.logger.Debug().
		Str("subscriber_id", subscriber.ID()).
		Msg("Subscriber added to event bus")
}

// Unsubscribe removes a subscriber from the event bus
func (eb *EventBus) Unsubscribe(subscriberID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.subscribers, subscriberID)
}

// SubscribeFunc adds a function handler for a specific event type
func (eb *EventBus) SubscribeFunc(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.funcHandlers[eventType] = append(eb.funcHandlers[eventType], handler)
	return eventType + "_func_" + strconv.Itoa(len(eb.funcHandlers[eventType]))
}

// Publish sends an event to all interested subscribers synchronously
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	eventType := event.Type()

	for id, subscriber := range eb.subscribers {
		if subscriber.InterestedIn(eventType) {
			eb.deliver(eventType, id, func() { subscriber.HandleEvent(event) })
		}
	}

	for i, handler := range eb.funcHandlers[eventType] {
		eb.deliver(eventType, "func_"+strconv.Itoa(i), func() { handler(event) })
	}
}

// deliver runs one handler, keeping a panicking handler from breaking the others
func (eb *EventBus) deliver(eventType, handlerID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str("handler_id", handlerID).
				Str("event_type", eventType).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	fn()
}

// GetSubscriberCount returns the number of subscribers for debugging
func (eb *EventBus) GetSubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// GetFuncHandlerCount returns the number of function handlers for a specific event type
func (eb *EventBus) GetFuncHandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.funcHandlers[eventType])
}
