package http

import (
	"context"

	"github.com/samirrijal/poonyc/internal/core/usecases"
)

// Pinger is a backing store that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports the message broker connection state.
type BrokerStatus interface {
	Connected() bool
}

// Dependencies holds all services needed by HTTP handlers.
// DB, Cache and Broker are optional and only feed the readiness check.
type Dependencies struct {
	Restrooms *usecases.RestroomService
	Pins      *usecases.PinResolver
	Search    *usecases.SearchService
	Sessions  *usecases.SessionRegistry

	DB     Pinger
	Cache  Pinger
	Broker BrokerStatus
}
