package execengine

import "errors"

// Errors returned by Engine's synchronous API, per the error taxonomy in
// spec §7.
var (
	// ErrQueueFull is returned by Execute/Process when the bounded command
	// or event channel has no room (§7: QueueFull — "local, returned
	// synchronously to the caller; the command/event is not queued").
	ErrQueueFull = errors.New("execengine: queue is full")

	// ErrDisposed is returned by Execute, Process, RegisterClient and
	// RegisterStrategy once the engine has been disposed. Start, Stop and
	// Dispose on a disposed engine return a state error instead, and
	// DeregisterClient/DeregisterStrategy have no error result.
	ErrDisposed = errors.New("execengine: engine is disposed")

	// ErrUnknownStrategy is returned by Execute when a command names a
	// strategy with no registered handle.
	ErrUnknownStrategy = errors.New("execengine: strategy not registered")

	// ErrUnknownAccount is returned by Execute when a command names an
	// account the cache has never seen.
	ErrUnknownAccount = errors.New("execengine: account not known")

	// ErrUnknownVenue is returned by Execute when a command names a venue
	// with no registered client.
	ErrUnknownVenue = errors.New("execengine: venue has no registered client")

	// ErrOrderKnown is returned by Execute for a SubmitOrder/
	// SubmitBracketOrder command whose order-id the cache already has.
	ErrOrderKnown = errors.New("execengine: order-id already known")

	// ErrOrderUnknown is returned by Execute for an AmendOrder/CancelOrder
	// command naming an order-id the cache has never seen.
	ErrOrderUnknown = errors.New("execengine: unknown order")
)
