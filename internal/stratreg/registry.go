// Package stratreg implements the strategy registry (§4.F): the engine's
// map from a strategy id to the callback it notifies as events arrive,
// grounded on the teacher's risk.Manager — a single RWMutex-guarded map
// reached concurrently from the engine's worker goroutines.
package stratreg

import (
	"log/slog"
	"sync"

	"execengine/pkg/model"
)

// Handle is the callback contract a strategy registers (§6): OnEvent is
// invoked once per event that pertains to the strategy. It must not
// block — any heavy lifting is the strategy's own responsibility, not
// the engine's.
type Handle struct {
	OnEvent func(model.Event)
}

// Registry is the engine's strategy-id → Handle map.
type Registry struct {
	mu      sync.RWMutex
	handles map[model.StrategyID]*Handle
	logger  *slog.Logger
}

// New constructs an empty strategy registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		handles: make(map[model.StrategyID]*Handle),
		logger:  logger.With("component", "stratreg"),
	}
}

// Register installs handle for id, replacing any existing registration —
// re-registering a live strategy id is idempotent, not an error (§4.F).
func (r *Registry) Register(id model.StrategyID, handle *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[id] = handle
}

// Deregister removes the handle for id, if any. Orders and positions
// already attributed to id in the cache are left untouched — deregistering
// a strategy stops future notifications, it does not unwind history
// (§4.F).
func (r *Registry) Deregister(id model.StrategyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Notify looks up the handle for id and invokes its OnEvent callback in
// the calling goroutine. A strategy with no registered handle, or a nil
// OnEvent, is silently skipped: the engine does not treat a missing
// strategy as an error, since a strategy may deregister while events
// attributed to it are still in flight.
func (r *Registry) Notify(id model.StrategyID, evt model.Event) {
	r.mu.RLock()
	handle, ok := r.handles[id]
	r.mu.RUnlock()
	if !ok || handle.OnEvent == nil {
		return
	}
	handle.OnEvent(evt)
}

// Registered reports whether id currently has a handle.
func (r *Registry) Registered(id model.StrategyID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[id]
	return ok
}

// Clear removes every registered handle, used when the engine disposes.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = make(map[model.StrategyID]*Handle)
}
