package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the authoritative record of net exposure in one instrument
// for one strategy, per spec §3.
type Position struct {
	PositionID    PositionID
	StrategyID    StrategyID
	Instrument    string
	NetQuantity   decimal.Decimal // signed: positive = long, negative = short
	AvgEntryPrice Price
	RealizedPnL   Money
	Open          bool
	OrderIDs      []OrderID
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

// NewPosition opens a fresh position from its first contributing order,
// per spec §4.D ("allocate a fresh PositionId and emit PositionOpened").
func NewPosition(positionID PositionID, strategyID StrategyID, instrument string, signedQty decimal.Decimal, entryPrice Price, orderID OrderID, now time.Time) *Position {
	return &Position{
		PositionID:    positionID,
		StrategyID:    strategyID,
		Instrument:    instrument,
		NetQuantity:   signedQty,
		AvgEntryPrice: entryPrice,
		RealizedPnL:   ZeroMoney,
		Open:          true,
		OrderIDs:      []OrderID{orderID},
		OpenedAt:      now,
	}
}

// IsClosed reports the spec §4.D invariant: "p is CLOSED iff net_quantity == 0".
func (p *Position) IsClosed() bool { return p.NetQuantity.IsZero() }

// ApplyFill updates net quantity and average entry price for a new fill
// in the given signed direction (positive for buys, negative for sells),
// following the same weighted-average-entry update the teacher's
// strategy/inventory.go performs for YES/NO fills, generalized to a
// single signed instrument quantity.
func (p *Position) ApplyFill(signedQty decimal.Decimal, price Price, orderID OrderID, now time.Time) {
	sameSign := p.NetQuantity.Sign() == 0 || p.NetQuantity.Sign() == signedQty.Sign()

	if sameSign {
		totalCost := p.AvgEntryPrice.Decimal().Mul(p.NetQuantity.Abs()).
			Add(price.Decimal().Mul(signedQty.Abs()))
		newAbs := p.NetQuantity.Abs().Add(signedQty.Abs())
		if !newAbs.IsZero() {
			avg, _ := NewPrice(totalCost.Div(newAbs))
			p.AvgEntryPrice = avg
		}
		p.NetQuantity = p.NetQuantity.Add(signedQty)
	} else {
		// Reducing or flipping: realize P&L on the closed portion.
		closing := decimal.Min(p.NetQuantity.Abs(), signedQty.Abs())
		pnlPerUnit := price.Decimal().Sub(p.AvgEntryPrice.Decimal())
		if p.NetQuantity.Sign() < 0 {
			pnlPerUnit = pnlPerUnit.Neg()
		}
		p.RealizedPnL = p.RealizedPnL.Add(NewMoney(pnlPerUnit.Mul(closing)))
		p.NetQuantity = p.NetQuantity.Add(signedQty)
		if signedQty.Abs().GreaterThan(closing) {
			// Flipped through zero: the remainder opens a fresh position
			// in the new direction at this fill's price.
			p.AvgEntryPrice = price
		}
	}

	p.OrderIDs = append(p.OrderIDs, orderID)
	if p.IsClosed() {
		p.Open = false
		p.ClosedAt = &now
	} else {
		p.Open = true
		p.ClosedAt = nil
	}
}

// Account is the per-venue balance record, per spec §3.
type Account struct {
	AccountID  AccountID
	Venue      Venue
	Balances   map[string]Money // currency -> amount
	LastUpdate time.Time
}

// NewAccount constructs an empty account for a venue.
func NewAccount(accountID AccountID, venue Venue, now time.Time) *Account {
	return &Account{
		AccountID:  accountID,
		Venue:      venue,
		Balances:   make(map[string]Money),
		LastUpdate: now,
	}
}
