package events

import (
	"context"
)

// Publisher provides convenient methods for publishing typed events.
type Publisher struct {
	bus    EventBus
	source string
}

// NewPublisher creates a new Publisher with the given source identifier.
func NewPublisher(bus EventBus, source string) *Publisher {
	return &Publisher{
		bus:    bus,
		source: source,
	}
}

// PublishSessionStatusChanged publishes a session status transition.
func (p *Publisher) PublishSessionStatusChanged(ctx context.Context, sessionID, graphID string, status, previous SessionStatus) error {
	event := NewSessionStatusChangedEvent(sessionID, graphID, status, previous, p.source)
	return p.bus.Publish(ctx, event)
}

// PublishSessionError publishes a session status transition into the error state.
func (p *Publisher) PublishSessionError(ctx context.Context, sessionID, graphID string, previous SessionStatus, errMessage string) error {
	event := NewSessionStatusChangedEvent(sessionID, graphID, SessionStatusError, previous, p.source)
	event.ErrorMessage = errMessage
	return p.bus.Publish(ctx, event)
}

// PublishGraphRealised publishes the outcome of a realisation attempt.
func (p *Publisher) PublishGraphRealised(ctx context.Context, sessionID, graphID string, flowRules, externals int, succeeded bool, failureKind string, durationMillis int64) error {
	event := NewGraphRealisedEvent(sessionID, graphID, flowRules, externals, succeeded, failureKind, durationMillis, p.source)
	return p.bus.Publish(ctx, event)
}

// PublishDomainDescriptionPublished publishes notice that the domain
// description document was rewritten to disk.
func (p *Publisher) PublishDomainDescriptionPublished(ctx context.Context, capabilityCount int, filePath string) error {
	event := NewDomainDescriptionPublishedEvent(capabilityCount, filePath, p.source)
	return p.bus.Publish(ctx, event)
}

// PublishControllerReachabilityChanged publishes a controller circuit-breaker
// state transition.
func (p *Publisher) PublishControllerReachabilityChanged(ctx context.Context, controllerName string, reachable bool, reason string) error {
	event := NewControllerReachabilityChangedEvent(controllerName, reachable, reason, p.source)
	return p.bus.Publish(ctx, event)
}
