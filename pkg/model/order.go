package model

import "time"

// Side is the direction of an order: BUY or SELL.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType enumerates the order lifecycles the engine supports.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// OrderState is a position in the order state machine (spec §4.D):
//
//	INITIALIZED → SUBMITTED → ACCEPTED → WORKING → {PARTIALLY_FILLED ↔ WORKING} → FILLED
//	                       ↘ REJECTED                                          ↘ CANCELLED
//	                                                                           ↘ EXPIRED
//	             ↘ DENIED
type OrderState string

const (
	StateInitialized     OrderState = "INITIALIZED"
	StateSubmitted       OrderState = "SUBMITTED"
	StateAccepted        OrderState = "ACCEPTED"
	StateWorking         OrderState = "WORKING"
	StatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	StateFilled          OrderState = "FILLED"
	StateRejected        OrderState = "REJECTED"
	StateCancelled       OrderState = "CANCELLED"
	StateExpired         OrderState = "EXPIRED"
	StateDenied          OrderState = "DENIED"
)

// terminalStates are states from which no further mutation is legal.
var terminalStates = map[OrderState]bool{
	StateFilled:    true,
	StateCancelled: true,
	StateExpired:   true,
	StateRejected:  true,
	StateDenied:    true,
}

// IsTerminal reports whether s is a terminal state (§4.D, glossary).
func (s OrderState) IsTerminal() bool { return terminalStates[s] }

// WorkingStates are the states an order is eligible for matching in
// (glossary: "working order").
var workingStates = map[OrderState]bool{
	StateWorking:         true,
	StatePartiallyFilled: true,
}

// IsWorking reports whether s is WORKING or PARTIALLY_FILLED.
func (s OrderState) IsWorking() bool { return workingStates[s] }

// Fill is a single execution against an order.
type Fill struct {
	Price     Price
	Quantity  Quantity
	Timestamp time.Time
}

// Order is the authoritative record of a single client order, per spec §3.
type Order struct {
	OrderID         OrderID
	VenueOrderID    *VenueOrderID // nil until assigned by the venue
	Venue           Venue
	Symbol          string
	Side            Side
	Type            OrderType
	Quantity        Quantity
	FilledQuantity  Quantity
	AvgFillPrice    *Price // nil until the first fill
	State           OrderState
	StrategyID      StrategyID
	PositionID      PositionID // may be the NULL sentinel
	StateEnteredAt  map[OrderState]time.Time
	Fills           []Fill
}

// NewOrder constructs an order in its initial state, per spec §4.G
// command handling ("insert order with state INITIALIZED").
func NewOrder(orderID OrderID, venue Venue, symbol string, side Side, typ OrderType, qty Quantity, strategyID StrategyID, positionID PositionID, now time.Time) *Order {
	o := &Order{
		OrderID:        orderID,
		Venue:          venue,
		Symbol:         symbol,
		Side:           side,
		Type:           typ,
		Quantity:       qty,
		FilledQuantity: ZeroQuantity,
		State:          StateInitialized,
		StrategyID:     strategyID,
		PositionID:     positionID,
		StateEnteredAt: map[OrderState]time.Time{StateInitialized: now},
	}
	return o
}

// legalTransitions maps each state to the set of states it may forward-
// transition into. Only forward transitions are legal (§4.D).
var legalTransitions = map[OrderState]map[OrderState]bool{
	StateInitialized:     {StateSubmitted: true, StateDenied: true},
	StateSubmitted:       {StateAccepted: true, StateRejected: true},
	StateAccepted:        {StateWorking: true},
	StateWorking:         {StatePartiallyFilled: true, StateFilled: true, StateCancelled: true, StateExpired: true},
	StatePartiallyFilled: {StateWorking: true, StatePartiallyFilled: true, StateFilled: true, StateCancelled: true, StateExpired: true},
}

// CanTransition reports whether moving from s's current state to `to` is
// a legal forward transition. Terminal states accept no further moves.
func (s OrderState) CanTransition(to OrderState) bool {
	if s.IsTerminal() {
		return false
	}
	return legalTransitions[s][to]
}

// ApplyFillQuantity returns the order's filled-quantity invariant check:
// sum(fills) == filled_quantity <= quantity (spec §8 testable property).
func (o *Order) ApplyFillQuantity(q Quantity) error {
	next := o.FilledQuantity.Add(q)
	if !next.LessThanOrEqual(o.Quantity) {
		return errFillExceedsOrder
	}
	o.FilledQuantity = next
	return nil
}
