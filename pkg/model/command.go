package model

import (
	"time"

	"github.com/google/uuid"
)

// CommandHeader carries the fields common to every command, per spec §3.
type CommandHeader struct {
	TraderID   TraderID
	StrategyID StrategyID
	AccountID  AccountID
	Venue      Venue
	CommandID  uuid.UUID
	Timestamp  time.Time
}

// Command is the sealed interface implemented by every command kind.
// The unexported marker method prevents other packages from implementing
// new command kinds outside this package, matching the closed sum type
// the spec describes in §3.
type Command interface {
	isCommand()
	Header() CommandHeader
}

// SubmitOrder requests that a new order be routed to a venue.
type SubmitOrder struct {
	CommandHeader
	Order      *Order
	PositionID PositionID
}

func (SubmitOrder) isCommand()              {}
func (c SubmitOrder) Header() CommandHeader { return c.CommandHeader }

// SubmitBracketOrder requests an entry order plus attached take-profit
// and stop-loss orders.
type SubmitBracketOrder struct {
	CommandHeader
	Entry      *Order
	TakeProfit *Order
	StopLoss   *Order
	PositionID PositionID
}

func (SubmitBracketOrder) isCommand()              {}
func (c SubmitBracketOrder) Header() CommandHeader { return c.CommandHeader }

// AmendOrder requests a quantity/price change to a resting order.
type AmendOrder struct {
	CommandHeader
	OrderID  OrderID
	NewQty   Quantity
	NewPrice Price
}

func (AmendOrder) isCommand()              {}
func (c AmendOrder) Header() CommandHeader { return c.CommandHeader }

// CancelOrder requests cancellation of a resting order.
type CancelOrder struct {
	CommandHeader
	OrderID OrderID
}

func (CancelOrder) isCommand()              {}
func (c CancelOrder) Header() CommandHeader { return c.CommandHeader }
