package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Gamification events. All of them are published only after the unit of work
// that produced them has committed.
const (
	EventPointsChanged       EventType = "points.changed"
	EventTierChanged         EventType = "tier.changed"
	EventAchievementUnlocked EventType = "achievement.unlocked"
	EventCatalogueReloaded   EventType = "catalogue.reloaded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsChangedEvent is emitted once per committed point event.
type PointsChangedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	Delta      int    `json:"delta"`
	NewBalance int    `json:"new_balance"`
	Reason     string `json:"reason"`
	ActorID    string `json:"actor_id"`
}

// Payload implements Event interface.
func (e PointsChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"delta":       e.Delta,
		"new_balance": e.NewBalance,
		"reason":      e.Reason,
		"actor_id":    e.ActorID,
	}
}

// NewPointsChangedEvent creates a new PointsChangedEvent.
func NewPointsChangedEvent(userID string, delta, newBalance int, reason, actorID string, at time.Time) PointsChangedEvent {
	return PointsChangedEvent{
		BaseEvent:  NewBaseEvent(EventPointsChanged, userID, at),
		UserID:     userID,
		Delta:      delta,
		NewBalance: newBalance,
		Reason:     reason,
		ActorID:    actorID,
	}
}

// TierChangedEvent is emitted when the committed tier differs from the one
// the user had before the event.
type TierChangedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	OldTier string `json:"old_tier"`
	NewTier string `json:"new_tier"`
}

// Payload implements Event interface.
func (e TierChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"old_tier": e.OldTier,
		"new_tier": e.NewTier,
	}
}

// NewTierChangedEvent creates a new TierChangedEvent.
func NewTierChangedEvent(userID, oldTier, newTier string, at time.Time) TierChangedEvent {
	return TierChangedEvent{
		BaseEvent: NewBaseEvent(EventTierChanged, userID, at),
		UserID:    userID,
		OldTier:   oldTier,
		NewTier:   newTier,
	}
}

// AchievementUnlockedEvent is emitted for every newly recorded unlock.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	AchievementID   string `json:"achievement_id"`
	AchievementName string `json:"achievement_name"`
	BonusPoints     int    `json:"bonus_points"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"achievement_id":   e.AchievementID,
		"achievement_name": e.AchievementName,
		"bonus_points":     e.BonusPoints,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, name string, bonus int, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:       NewBaseEvent(EventAchievementUnlocked, userID, at),
		UserID:          userID,
		AchievementID:   achievementID,
		AchievementName: name,
		BonusPoints:     bonus,
	}
}

// CatalogueReloadedEvent is emitted after tiers and achievements were reloaded.
type CatalogueReloadedEvent struct {
	BaseEvent
	Tiers        int `json:"tiers"`
	Achievements int `json:"achievements"`
}

// Payload implements Event interface.
func (e CatalogueReloadedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tiers":        e.Tiers,
		"achievements": e.Achievements,
	}
}

// NewCatalogueReloadedEvent creates a new CatalogueReloadedEvent.
func NewCatalogueReloadedEvent(tiers, achievements int, at time.Time) CatalogueReloadedEvent {
	return CatalogueReloadedEvent{
		BaseEvent:    NewBaseEvent(EventCatalogueReloaded, "catalogue", at),
		Tiers:        tiers,
		Achievements: achievements,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ports
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
