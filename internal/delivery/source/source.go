// Package source defines the event source contract consumed by the
// event processor.
package source

import (
	"context"

	"github.com/vietddude/relay/internal/core/domain"
)

// Handler receives events and lifecycle signals from a source. All callbacks
// are invoked serially.
type Handler interface {
	// OnEvent delivers one event for a subscription id.
	OnEvent(subscriptionID string, e *domain.Event)

	// OnStarted signals the source began listening.
	OnStarted()

	// OnStopped signals the source stopped listening.
	OnStopped()

	// OnError signals a source-level error. The source keeps running.
	OnError(err error)
}

// Source is the blockchain event source contract. Implementations emit
// events for registered subscriptions to a Handler.
type Source interface {
	// Start begins listening and emitting events.
	Start(ctx context.Context) error

	// Stop stops listening.
	Stop() error

	// AddSubscription registers interest in a subscription's events.
	AddSubscription(sub *domain.Subscription) error

	// RemoveSubscription drops a subscription by id.
	RemoveSubscription(id string) error

	// Listening reports whether the source is running.
	Listening() bool

	// SetHandler installs the event consumer. Must be called before Start.
	SetHandler(h Handler)
}
