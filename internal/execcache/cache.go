// Package execcache implements the in-memory projection that sits in
// front of the execution database: the order state machine, position
// lifecycle, and the lookup indexes the engine needs on its hot path.
//
// Grounded on the teacher's engine.slots/tokenMap pattern in
// internal/engine/engine.go (plain maps behind a single RWMutex), but
// collapsed to one lock for the whole cache rather than one per index —
// the engine's two worker goroutines are the only mutators (§5: "the
// command worker and the event worker... cache mutations are serialized
// and require no locks" in spirit; the lock here exists only so
// strategies/portfolio can take a consistent read-only snapshot
// concurrently with worker mutation).
package execcache

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"execengine/pkg/model"
)

// ErrUnknownOrder is returned when an event or command refers to an
// order-id the cache has never seen.
var ErrUnknownOrder = errors.New("execcache: unknown order")

// ErrDuplicateOrder is returned by AddOrder when the order-id is already
// present, preserving the invariant that an order-id is unique within a
// trader (spec §3).
var ErrDuplicateOrder = errors.New("execcache: duplicate order")

type strategyInstrumentKey struct {
	strategyID model.StrategyID
	instrument string
}

// Cache is the Execution Cache (spec §4.D).
type Cache struct {
	mu sync.RWMutex

	orders         map[model.OrderID]*model.Order
	positions      map[model.PositionID]*model.Position
	accounts       map[model.AccountID]*model.Account
	byVenueOrderID map[model.VenueOrderID]model.OrderID
	byStrategy     map[model.StrategyID]map[model.OrderID]struct{}
	openPosition   map[strategyInstrumentKey]model.PositionID
	working        map[model.OrderID]struct{}
}

// New constructs an empty cache.
func New() *Cache {
	return &Cache{
		orders:         make(map[model.OrderID]*model.Order),
		positions:      make(map[model.PositionID]*model.Position),
		accounts:       make(map[model.AccountID]*model.Account),
		byVenueOrderID: make(map[model.VenueOrderID]model.OrderID),
		byStrategy:     make(map[model.StrategyID]map[model.OrderID]struct{}),
		openPosition:   make(map[strategyInstrumentKey]model.PositionID),
		working:        make(map[model.OrderID]struct{}),
	}
}

// AddOrder inserts a brand-new order (typically INITIALIZED), per the
// SubmitOrder command handler in §4.G.
func (c *Cache) AddOrder(o *model.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.orders[o.OrderID]; exists {
		return ErrDuplicateOrder
	}
	c.orders[o.OrderID] = o
	if c.byStrategy[o.StrategyID] == nil {
		c.byStrategy[o.StrategyID] = make(map[model.OrderID]struct{})
	}
	c.byStrategy[o.StrategyID][o.OrderID] = struct{}{}
	if o.State.IsWorking() {
		c.working[o.OrderID] = struct{}{}
	}
	return nil
}

// AddAccount inserts or replaces an account record. Restore fills the
// account map directly and does not go through it.
func (c *Cache) AddAccount(a *model.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[a.AccountID] = a
}

// OrderByID looks up an order by its client-assigned identifier.
func (c *Cache) OrderByID(id model.OrderID) (*model.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

// OrderByVenueOrderID looks up an order by the id the venue assigned it.
func (c *Cache) OrderByVenueOrderID(id model.VenueOrderID) (*model.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	orderID, ok := c.byVenueOrderID[id]
	if !ok {
		return nil, false
	}
	return c.orders[orderID], true
}

// OrdersByStrategy returns every order (in no particular order) belonging
// to the given strategy.
func (c *Cache) OrdersByStrategy(id model.StrategyID) []*model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.byStrategy[id]
	out := make([]*model.Order, 0, len(ids))
	for oid := range ids {
		out = append(out, c.orders[oid])
	}
	return out
}

// OpenPositionFor returns the open position for a (strategy, instrument)
// pair, if one exists.
func (c *Cache) OpenPositionFor(strategyID model.StrategyID, instrument string) (*model.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	posID, ok := c.openPosition[strategyInstrumentKey{strategyID, instrument}]
	if !ok {
		return nil, false
	}
	return c.positions[posID], true
}

// PositionByID looks up a position by its identifier.
func (c *Cache) PositionByID(id model.PositionID) (*model.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

// AccountByID looks up an account by its identifier.
func (c *Cache) AccountByID(id model.AccountID) (*model.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[id]
	return a, ok
}

// TouchAccount stamps an account's LastUpdate timestamp, the only mutation
// an AccountStateUpdated event drives — the event itself carries no balance
// payload (spec §3 models account fields as load-time state only). Reports
// whether the account was known.
func (c *Cache) TouchAccount(id model.AccountID, when time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[id]
	if !ok {
		return false
	}
	a.LastUpdate = when
	return true
}

// WorkingOrders returns every order currently WORKING or PARTIALLY_FILLED.
func (c *Cache) WorkingOrders() []*model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Order, 0, len(c.working))
	for oid := range c.working {
		out = append(out, c.orders[oid])
	}
	return out
}

// orderTargetState maps an order-pertaining event to the state it drives
// the order toward, per the transition diagram in §4.D. OrderAmended is
// not a state transition; it replaces the quantity of an otherwise
// unchanged order (Order has no price field, so NewPrice is not recorded)
// and is handled separately in ApplyEvent.
func orderTargetState(evt model.Event) (model.OrderState, bool) {
	switch evt.(type) {
	case model.OrderSubmitted:
		return model.StateSubmitted, true
	case model.OrderAccepted:
		return model.StateAccepted, true
	case model.OrderRejected:
		return model.StateRejected, true
	case model.OrderDenied:
		return model.StateDenied, true
	case model.OrderWorking:
		return model.StateWorking, true
	case model.OrderCancelled:
		return model.StateCancelled, true
	case model.OrderExpired:
		return model.StateExpired, true
	case model.OrderFilled:
		return model.StateFilled, true
	case model.OrderPartiallyFilled:
		return model.StatePartiallyFilled, true
	default:
		return "", false
	}
}

// ApplyEvent attempts to apply evt to the order (and, for fills, the
// position) it pertains to, per §4.D/§4.G. It reports applied=false
// without mutating anything when the transition is stale or invalid
// (ACCEPTED after FILLED, an amendment of a terminal order, etc.) — the
// engine treats that as the StaleEvent signal from §4.D. An order-id the
// cache has never seen is reported as ErrUnknownOrder instead. derived
// carries any PositionOpened/PositionModified/PositionClosed events the
// engine must forward and persist alongside evt.
func (c *Cache) ApplyEvent(evt model.Event, now time.Time) (applied bool, derived []model.Event, err error) {
	orderID, pertainsToOrder := evt.AffectedOrder()
	if !pertainsToOrder {
		return false, nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.orders[orderID]
	if !ok {
		return false, nil, ErrUnknownOrder
	}

	if amended, isAmend := evt.(model.OrderAmended); isAmend {
		if o.State.IsTerminal() {
			return false, nil, nil
		}
		o.Quantity = amended.NewQty
		return true, nil, nil
	}

	target, recognized := orderTargetState(evt)
	if !recognized {
		return false, nil, nil
	}
	if !o.State.CanTransition(target) {
		return false, nil, nil
	}

	o.State = target
	o.StateEnteredAt[target] = now
	if target.IsWorking() {
		c.working[o.OrderID] = struct{}{}
	} else {
		delete(c.working, o.OrderID)
	}

	switch e := evt.(type) {
	case model.OrderAccepted:
		vid := e.VenueOrderID
		o.VenueOrderID = &vid
		c.byVenueOrderID[vid] = o.OrderID
	case model.OrderFilled:
		derived = c.applyFill(o, e.Instrument, e.Side, e.FillQty, e.FillPrice, now)
	case model.OrderPartiallyFilled:
		derived = c.applyFill(o, e.Instrument, e.Side, e.FillQty, e.FillPrice, now)
	}

	return true, derived, nil
}

// applyFill updates the order's filled-quantity/avg-fill-price and routes
// the fill into the strategy's open position for this instrument,
// allocating one if needed (§4.D position lifecycle). Caller holds c.mu.
func (c *Cache) applyFill(o *model.Order, instrument string, side model.Side, qty model.Quantity, price model.Price, now time.Time) []model.Event {
	if err := o.ApplyFillQuantity(qty); err != nil {
		return nil
	}
	o.Fills = append(o.Fills, model.Fill{Price: price, Quantity: qty, Timestamp: now})
	if o.AvgFillPrice == nil {
		fp := price
		o.AvgFillPrice = &fp
	} else {
		totalCost := o.AvgFillPrice.Decimal().Mul(o.FilledQuantity.Decimal().Sub(qty.Decimal())).
			Add(price.Decimal().Mul(qty.Decimal()))
		if avg, err := model.NewPrice(totalCost.Div(o.FilledQuantity.Decimal())); err == nil {
			o.AvgFillPrice = &avg
		}
	}

	signedQty := qty.Decimal()
	if side == model.Sell {
		signedQty = signedQty.Neg()
	}

	var derived []model.Event

	if o.PositionID.IsNull() {
		key := strategyInstrumentKey{o.StrategyID, instrument}
		if posID, open := c.openPosition[key]; open {
			pos := c.positions[posID]
			pos.ApplyFill(signedQty, price, o.OrderID, now)
			o.PositionID = posID
			derived = append(derived, c.positionFollowupEvent(pos, now))
		} else {
			newID := model.NewPositionID(o.StrategyID.String(), o.OrderID.String())
			pos := model.NewPosition(newID, o.StrategyID, instrument, signedQty, price, o.OrderID, now)
			c.positions[newID] = pos
			c.openPosition[key] = newID
			o.PositionID = newID
			derived = append(derived, model.PositionOpened{
				EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: now},
				PositionID:  newID,
				StrategyID:  o.StrategyID,
				Instrument:  instrument,
			})
		}
	} else if pos, ok := c.positions[o.PositionID]; ok {
		pos.ApplyFill(signedQty, price, o.OrderID, now)
		derived = append(derived, c.positionFollowupEvent(pos, now))
	}

	return derived
}

// positionFollowupEvent reports the right event for a position mutation
// that isn't a fresh allocation: closed if net quantity returned to zero,
// modified otherwise. If the position closed, its (strategy, instrument)
// slot is freed so a later fill can open a new one.
func (c *Cache) positionFollowupEvent(pos *model.Position, now time.Time) model.Event {
	if pos.IsClosed() {
		delete(c.openPosition, strategyInstrumentKey{pos.StrategyID, pos.Instrument})
		return model.PositionClosed{
			EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: now},
			PositionID:  pos.PositionID,
		}
	}
	return model.PositionModified{
		EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: now},
		PositionID:  pos.PositionID,
	}
}

// Snapshot is a point-in-time copy of every order, position, and account
// the cache holds, for the round-trip testable property in §8: dump via
// Snapshot, Restore into a fresh Cache, and the two must be equivalent.
type Snapshot struct {
	Orders    []*model.Order
	Positions []*model.Position
	Accounts  []*model.Account
}

// Snapshot copies out the cache's full state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Orders:    make([]*model.Order, 0, len(c.orders)),
		Positions: make([]*model.Position, 0, len(c.positions)),
		Accounts:  make([]*model.Account, 0, len(c.accounts)),
	}
	for _, o := range c.orders {
		s.Orders = append(s.Orders, o)
	}
	for _, p := range c.positions {
		s.Positions = append(s.Positions, p)
	}
	for _, a := range c.accounts {
		s.Accounts = append(s.Accounts, a)
	}
	return s
}

// Restore rebuilds every index from a snapshot, as the engine does on
// startup from Database.load_* (§4.C/§4.D).
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = make(map[model.OrderID]*model.Order, len(s.Orders))
	c.positions = make(map[model.PositionID]*model.Position, len(s.Positions))
	c.accounts = make(map[model.AccountID]*model.Account, len(s.Accounts))
	c.byVenueOrderID = make(map[model.VenueOrderID]model.OrderID)
	c.byStrategy = make(map[model.StrategyID]map[model.OrderID]struct{})
	c.openPosition = make(map[strategyInstrumentKey]model.PositionID)
	c.working = make(map[model.OrderID]struct{})

	for _, o := range s.Orders {
		c.orders[o.OrderID] = o
		if c.byStrategy[o.StrategyID] == nil {
			c.byStrategy[o.StrategyID] = make(map[model.OrderID]struct{})
		}
		c.byStrategy[o.StrategyID][o.OrderID] = struct{}{}
		if o.VenueOrderID != nil {
			c.byVenueOrderID[*o.VenueOrderID] = o.OrderID
		}
		if o.State.IsWorking() {
			c.working[o.OrderID] = struct{}{}
		}
	}
	for _, p := range s.Positions {
		c.positions[p.PositionID] = p
		if p.Open {
			c.openPosition[strategyInstrumentKey{p.StrategyID, p.Instrument}] = p.PositionID
		}
	}
	for _, a := range s.Accounts {
		c.accounts[a.AccountID] = a
	}
}
