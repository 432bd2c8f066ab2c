// Package execclient implements the Execution Client registry (spec
// §4.E): the narrow per-venue outbound capability surface the engine
// routes commands through, plus the reference SIM adapter.
package execclient

import (
	"context"
	"errors"
	"sync"

	"execengine/pkg/model"
)

// Client is the capability surface every venue adapter implements, per
// §4.E. submit_order/amend_order/cancel_order each return immediately;
// the venue's actual response arrives asynchronously as an Event on the
// channel returned by Events.
type Client interface {
	// Connect establishes the venue connection. Idempotent; a second
	// call while already connected is a no-op.
	Connect(ctx context.Context) error
	// Disconnect tears down the venue connection. Idempotent.
	Disconnect(ctx context.Context) error

	SubmitOrder(ctx context.Context, o *model.Order) error
	AmendOrder(ctx context.Context, orderID model.OrderID, newQty model.Quantity, newPrice model.Price) error
	CancelOrder(ctx context.Context, orderID model.OrderID) error

	// AccountInquiry requests an account snapshot; the response, too,
	// arrives asynchronously as an AccountStateUpdated event.
	AccountInquiry(ctx context.Context, accountID model.AccountID) error

	// Events returns the channel the engine drains venue-originated
	// events from. The same channel for the lifetime of the client.
	Events() <-chan model.Event
}

// ErrVenueNotRegistered is returned by Lookup for a venue with no client.
var ErrVenueNotRegistered = errors.New("execclient: venue has no registered client")

// ErrAlreadyRegistered is returned by Register when a client is already
// registered for the venue — at most one client per venue (§4.E).
var ErrAlreadyRegistered = errors.New("execclient: venue already has a registered client")

// Registry is the engine's venue → client map (§4.E: "clients are
// registered with the engine under their venue identifier; at most one
// client per venue"), grounded on the teacher's single-client-per-venue
// assumption generalized to N venues.
type Registry struct {
	mu      sync.RWMutex
	clients map[model.Venue]Client
}

// NewRegistry constructs an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[model.Venue]Client)}
}

// Register adds a client for a venue. Re-registering the same venue
// without first deregistering is rejected — the engine must call
// Deregister before replacing a venue's client.
func (r *Registry) Register(venue model.Venue, c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[venue]; exists {
		return ErrAlreadyRegistered
	}
	r.clients[venue] = c
	return nil
}

// Deregister removes the client registered for venue, if any.
func (r *Registry) Deregister(venue model.Venue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, venue)
}

// Lookup returns the client registered for venue.
func (r *Registry) Lookup(venue model.Venue) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[venue]
	if !ok {
		return nil, ErrVenueNotRegistered
	}
	return c, nil
}

// Venues returns every venue currently registered.
func (r *Registry) Venues() []model.Venue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Venue, 0, len(r.clients))
	for v := range r.clients {
		out = append(out, v)
	}
	return out
}
