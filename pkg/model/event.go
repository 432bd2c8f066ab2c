package model

import (
	"time"

	"github.com/google/uuid"
)

// EventHeader carries the fields common to every event, per spec §3. Seq
// is zero until the engine assigns it on ingress (§4.G: "Assign a
// monotonic sequence number on ingress") — producers never set it.
type EventHeader struct {
	EventID   uuid.UUID
	Timestamp time.Time
	Seq       uint64
}

// Event is the sealed interface implemented by every event kind.
type Event interface {
	isEvent()
	Header() EventHeader
	WithSeq(seq uint64) Event
	// AffectedOrder returns the order this event pertains to, and true,
	// for every event kind that pertains to an order. Used by the engine
	// to preserve per-order arrival ordering and route notifications.
	AffectedOrder() (OrderID, bool)
}

// OrderSubmitted confirms a command was accepted onto the engine's
// command path and forwarded to a venue.
type OrderSubmitted struct {
	EventHeader
	OrderID    OrderID
	StrategyID StrategyID
}

func (e OrderSubmitted) isEvent()                    {}
func (e OrderSubmitted) Header() EventHeader         { return e.EventHeader }
func (e OrderSubmitted) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderSubmitted) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderAccepted confirms the venue accepted the order.
type OrderAccepted struct {
	EventHeader
	OrderID      OrderID
	VenueOrderID VenueOrderID
}

func (e OrderAccepted) isEvent()                       {}
func (e OrderAccepted) Header() EventHeader            { return e.EventHeader }
func (e OrderAccepted) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderAccepted) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderRejected reports the venue refused the order.
type OrderRejected struct {
	EventHeader
	OrderID OrderID
	Reason  string
}

func (e OrderRejected) isEvent()                       {}
func (e OrderRejected) Header() EventHeader            { return e.EventHeader }
func (e OrderRejected) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderRejected) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderDenied reports a local, pre-venue rejection (validation failure or
// synchronous client error).
type OrderDenied struct {
	EventHeader
	OrderID OrderID
	Reason  string
}

func (e OrderDenied) isEvent()                       {}
func (e OrderDenied) Header() EventHeader            { return e.EventHeader }
func (e OrderDenied) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderDenied) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderWorking reports the order is live on the venue's book.
type OrderWorking struct {
	EventHeader
	OrderID OrderID
}

func (e OrderWorking) isEvent()                       {}
func (e OrderWorking) Header() EventHeader            { return e.EventHeader }
func (e OrderWorking) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderWorking) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderCancelled reports the venue cancelled the order.
type OrderCancelled struct {
	EventHeader
	OrderID OrderID
}

func (e OrderCancelled) isEvent()                       {}
func (e OrderCancelled) Header() EventHeader            { return e.EventHeader }
func (e OrderCancelled) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderCancelled) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderAmended reports the venue applied an amendment.
type OrderAmended struct {
	EventHeader
	OrderID  OrderID
	NewQty   Quantity
	NewPrice Price
}

func (e OrderAmended) isEvent()                       {}
func (e OrderAmended) Header() EventHeader            { return e.EventHeader }
func (e OrderAmended) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderAmended) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderExpired reports the venue expired the order (time-in-force lapsed).
type OrderExpired struct {
	EventHeader
	OrderID OrderID
}

func (e OrderExpired) isEvent()                       {}
func (e OrderExpired) Header() EventHeader            { return e.EventHeader }
func (e OrderExpired) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderExpired) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderFilled reports the order filled completely.
type OrderFilled struct {
	EventHeader
	OrderID      OrderID
	VenueOrderID VenueOrderID
	Instrument   string
	Side         Side
	FillQty      Quantity
	FillPrice    Price
	PositionID   PositionID
}

func (e OrderFilled) isEvent()                       {}
func (e OrderFilled) Header() EventHeader            { return e.EventHeader }
func (e OrderFilled) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderFilled) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// OrderPartiallyFilled reports a partial fill.
type OrderPartiallyFilled struct {
	EventHeader
	OrderID      OrderID
	VenueOrderID VenueOrderID
	Instrument   string
	Side         Side
	FillQty      Quantity
	FillPrice    Price
	PositionID   PositionID
}

func (e OrderPartiallyFilled) isEvent()                       {}
func (e OrderPartiallyFilled) Header() EventHeader            { return e.EventHeader }
func (e OrderPartiallyFilled) AffectedOrder() (OrderID, bool) { return e.OrderID, true }
func (e OrderPartiallyFilled) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// PositionOpened reports a new position was allocated (§4.D).
type PositionOpened struct {
	EventHeader
	PositionID PositionID
	StrategyID StrategyID
	Instrument string
}

func (e PositionOpened) isEvent()                       {}
func (e PositionOpened) Header() EventHeader            { return e.EventHeader }
func (e PositionOpened) AffectedOrder() (OrderID, bool) { return OrderID{}, false }
func (e PositionOpened) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// PositionModified reports a change in an open position's net quantity.
type PositionModified struct {
	EventHeader
	PositionID PositionID
}

func (e PositionModified) isEvent()                       {}
func (e PositionModified) Header() EventHeader            { return e.EventHeader }
func (e PositionModified) AffectedOrder() (OrderID, bool) { return OrderID{}, false }
func (e PositionModified) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// PositionClosed reports a position's net quantity returned to zero.
type PositionClosed struct {
	EventHeader
	PositionID PositionID
}

func (e PositionClosed) isEvent()                       {}
func (e PositionClosed) Header() EventHeader            { return e.EventHeader }
func (e PositionClosed) AffectedOrder() (OrderID, bool) { return OrderID{}, false }
func (e PositionClosed) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}

// AccountStateUpdated reports a change in account balances.
type AccountStateUpdated struct {
	EventHeader
	AccountID AccountID
}

func (e AccountStateUpdated) isEvent()                       {}
func (e AccountStateUpdated) Header() EventHeader            { return e.EventHeader }
func (e AccountStateUpdated) AffectedOrder() (OrderID, bool) { return OrderID{}, false }
func (e AccountStateUpdated) WithSeq(seq uint64) Event {
	e.Seq = seq
	return e
}
