package execcache

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"execengine/pkg/model"
)

const (
	symbol = "BTC-USD"
	venue  = "SIM"
)

var epoch = time.Unix(0, 0).UTC()

func newOrder(t *testing.T, c *Cache, strategyID model.StrategyID, local string) *model.Order {
	t.Helper()
	orderID := model.NewOrderID("T", local)
	o := model.NewOrder(orderID, model.NewVenue(venue, venue), symbol, model.Buy, model.OrderTypeLimit,
		model.QuantityFromFloat(10), strategyID, model.NullPositionID(), epoch)
	if err := c.AddOrder(o); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	return o
}

func TestApplyEventWalksOrderThroughLifecycle(t *testing.T) {
	t.Parallel()
	c := New()
	strategyID := model.NewStrategyID("S", "maker-1")
	o := newOrder(t, c, strategyID, "1")

	submitted := model.OrderSubmitted{
		EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:     o.OrderID,
		StrategyID:  strategyID,
	}
	applied, derived, err := c.ApplyEvent(submitted, epoch)
	if err != nil || !applied {
		t.Fatalf("apply OrderSubmitted: applied=%v err=%v", applied, err)
	}
	if len(derived) != 0 {
		t.Errorf("unexpected derived events: %v", derived)
	}
	got, _ := c.OrderByID(o.OrderID)
	if got.State != model.StateSubmitted {
		t.Fatalf("State = %v, want %v", got.State, model.StateSubmitted)
	}

	accepted := model.OrderAccepted{
		EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:      o.OrderID,
		VenueOrderID: model.NewVenueOrderID(venue, "V-1"),
	}
	if applied, _, err := c.ApplyEvent(accepted, epoch); err != nil || !applied {
		t.Fatalf("apply OrderAccepted: applied=%v err=%v", applied, err)
	}
	if _, ok := c.OrderByVenueOrderID(model.NewVenueOrderID(venue, "V-1")); !ok {
		t.Error("order not indexed by venue-order-id after OrderAccepted")
	}

	working := model.OrderWorking{
		EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:     o.OrderID,
	}
	if applied, _, err := c.ApplyEvent(working, epoch); err != nil || !applied {
		t.Fatalf("apply OrderWorking: applied=%v err=%v", applied, err)
	}
	found := false
	for _, w := range c.WorkingOrders() {
		if w.OrderID == o.OrderID {
			found = true
		}
	}
	if !found {
		t.Error("order not present in WorkingOrders after OrderWorking")
	}
}

func TestApplyEventRejectsStaleTransition(t *testing.T) {
	t.Parallel()
	c := New()
	strategyID := model.NewStrategyID("S", "maker-1")
	o := newOrder(t, c, strategyID, "1")

	// Skip straight to a terminal-adjacent event without going through
	// SUBMITTED/ACCEPTED/WORKING first: INITIALIZED cannot transition to
	// WORKING directly.
	working := model.OrderWorking{
		EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:     o.OrderID,
	}
	applied, derived, err := c.ApplyEvent(working, epoch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Error("expected stale transition to be rejected")
	}
	if derived != nil {
		t.Errorf("expected no derived events, got %v", derived)
	}
	got, _ := c.OrderByID(o.OrderID)
	if got.State != model.StateInitialized {
		t.Errorf("State mutated by rejected transition: got %v, want %v", got.State, model.StateInitialized)
	}
}

func TestApplyEventUnknownOrderIsAnError(t *testing.T) {
	t.Parallel()
	c := New()

	evt := model.OrderAccepted{
		EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:      model.NewOrderID("T", "ghost"),
		VenueOrderID: model.NewVenueOrderID(venue, "V-1"),
	}
	applied, _, err := c.ApplyEvent(evt, epoch)
	if applied {
		t.Error("expected applied=false for unknown order")
	}
	if err == nil {
		t.Error("expected an error for unknown order")
	}
}

func advance(t *testing.T, c *Cache, o *model.Order) {
	t.Helper()
	for _, evt := range []model.Event{
		model.OrderSubmitted{EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: epoch}, OrderID: o.OrderID, StrategyID: o.StrategyID},
		model.OrderAccepted{EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: epoch}, OrderID: o.OrderID, VenueOrderID: model.NewVenueOrderID(venue, o.OrderID.String())},
		model.OrderWorking{EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: epoch}, OrderID: o.OrderID},
	} {
		if applied, _, err := c.ApplyEvent(evt, epoch); err != nil || !applied {
			t.Fatalf("advance %T: applied=%v err=%v", evt, applied, err)
		}
	}
}

func TestFillOpensPositionWhenNoneExists(t *testing.T) {
	t.Parallel()
	c := New()
	strategyID := model.NewStrategyID("S", "maker-1")
	o := newOrder(t, c, strategyID, "1")
	advance(t, c, o)

	fill := model.OrderFilled{
		EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:      o.OrderID,
		VenueOrderID: model.NewVenueOrderID(venue, o.OrderID.String()),
		Instrument:   symbol,
		Side:         model.Buy,
		FillQty:      model.QuantityFromFloat(10),
		FillPrice:    model.PriceFromFloat(100),
		PositionID:   model.NullPositionID(),
	}
	applied, derived, err := c.ApplyEvent(fill, epoch)
	if err != nil || !applied {
		t.Fatalf("apply OrderFilled: applied=%v err=%v", applied, err)
	}
	if len(derived) != 1 {
		t.Fatalf("expected one derived event, got %d", len(derived))
	}
	opened, ok := derived[0].(model.PositionOpened)
	if !ok {
		t.Fatalf("expected PositionOpened, got %T", derived[0])
	}

	pos, ok := c.PositionByID(opened.PositionID)
	if !ok {
		t.Fatal("position not found after open")
	}
	if !pos.NetQuantity.Equal(model.QuantityFromFloat(10).Decimal()) {
		t.Errorf("NetQuantity = %s, want 10", pos.NetQuantity)
	}

	got, _ := c.OrderByID(o.OrderID)
	if got.State != model.StateFilled {
		t.Errorf("State = %v, want %v", got.State, model.StateFilled)
	}
	if !got.PositionID.Equal(opened.PositionID) {
		t.Error("order not bound to the newly opened position")
	}
}

func TestSuccessivePartialFillsAccumulate(t *testing.T) {
	t.Parallel()
	c := New()
	strategyID := model.NewStrategyID("S", "maker-1")
	orderID := model.NewOrderID("T", "1")
	o := model.NewOrder(orderID, model.NewVenue(venue, venue), symbol, model.Buy, model.OrderTypeLimit,
		model.QuantityFromFloat(30), strategyID, model.NullPositionID(), epoch)
	if err := c.AddOrder(o); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	advance(t, c, o)

	partial := func(qty float64) model.OrderPartiallyFilled {
		return model.OrderPartiallyFilled{
			EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
			OrderID:      o.OrderID,
			VenueOrderID: model.NewVenueOrderID(venue, o.OrderID.String()),
			Instrument:   symbol,
			Side:         model.Buy,
			FillQty:      model.QuantityFromFloat(qty),
			FillPrice:    model.PriceFromFloat(100),
			PositionID:   model.NullPositionID(),
		}
	}

	applied, derived, err := c.ApplyEvent(partial(10), epoch)
	if err != nil || !applied {
		t.Fatalf("first partial fill: applied=%v err=%v", applied, err)
	}
	if len(derived) != 1 {
		t.Fatalf("expected one derived event for the opening fill, got %d", len(derived))
	}
	opened, ok := derived[0].(model.PositionOpened)
	if !ok {
		t.Fatalf("expected PositionOpened, got %T", derived[0])
	}

	// A second OrderPartiallyFilled while already PARTIALLY_FILLED must be
	// applied, not dropped as stale — every tranche after the first on a
	// resting LIMIT order takes this path.
	applied, derived, err = c.ApplyEvent(partial(10), epoch)
	if err != nil || !applied {
		t.Fatalf("second partial fill: applied=%v err=%v", applied, err)
	}
	if len(derived) != 1 {
		t.Fatalf("expected one derived event for the second tranche, got %d", len(derived))
	}
	if _, ok := derived[0].(model.PositionModified); !ok {
		t.Fatalf("expected PositionModified, got %T", derived[0])
	}

	got, _ := c.OrderByID(o.OrderID)
	if got.State != model.StatePartiallyFilled {
		t.Fatalf("State = %v, want %v", got.State, model.StatePartiallyFilled)
	}
	if !got.FilledQuantity.Equal(model.QuantityFromFloat(20)) {
		t.Errorf("FilledQuantity = %s, want 20", got.FilledQuantity)
	}

	final := model.OrderFilled{
		EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:      o.OrderID,
		VenueOrderID: model.NewVenueOrderID(venue, o.OrderID.String()),
		Instrument:   symbol,
		Side:         model.Buy,
		FillQty:      model.QuantityFromFloat(10),
		FillPrice:    model.PriceFromFloat(100),
		PositionID:   model.NullPositionID(),
	}
	applied, _, err = c.ApplyEvent(final, epoch)
	if err != nil || !applied {
		t.Fatalf("closing fill: applied=%v err=%v", applied, err)
	}

	got, _ = c.OrderByID(o.OrderID)
	if got.State != model.StateFilled {
		t.Fatalf("State = %v, want %v", got.State, model.StateFilled)
	}
	if !got.FilledQuantity.Equal(model.QuantityFromFloat(30)) {
		t.Errorf("FilledQuantity = %s, want 30", got.FilledQuantity)
	}

	pos, ok := c.PositionByID(opened.PositionID)
	if !ok {
		t.Fatal("position not found")
	}
	if !pos.NetQuantity.Equal(model.QuantityFromFloat(30).Decimal()) {
		t.Errorf("NetQuantity = %s, want 30", pos.NetQuantity)
	}
}

func TestFillClosesPositionOnOffsettingOrder(t *testing.T) {
	t.Parallel()
	c := New()
	strategyID := model.NewStrategyID("S", "maker-1")

	buyOrder := newOrder(t, c, strategyID, "1")
	advance(t, c, buyOrder)
	_, _, err := c.ApplyEvent(model.OrderFilled{
		EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:      buyOrder.OrderID,
		VenueOrderID: model.NewVenueOrderID(venue, buyOrder.OrderID.String()),
		Instrument:   symbol,
		Side:         model.Buy,
		FillQty:      model.QuantityFromFloat(10),
		FillPrice:    model.PriceFromFloat(100),
		PositionID:   model.NullPositionID(),
	}, epoch)
	if err != nil {
		t.Fatalf("open fill: %v", err)
	}

	sellOrder := newOrder(t, c, strategyID, "2")
	advance(t, c, sellOrder)
	applied, derived, err := c.ApplyEvent(model.OrderFilled{
		EventHeader:  model.EventHeader{EventID: uuid.New(), Timestamp: epoch},
		OrderID:      sellOrder.OrderID,
		VenueOrderID: model.NewVenueOrderID(venue, sellOrder.OrderID.String()),
		Instrument:   symbol,
		Side:         model.Sell,
		FillQty:      model.QuantityFromFloat(10),
		FillPrice:    model.PriceFromFloat(110),
		PositionID:   model.NullPositionID(),
	}, epoch)
	if err != nil || !applied {
		t.Fatalf("closing fill: applied=%v err=%v", applied, err)
	}
	if len(derived) != 1 {
		t.Fatalf("expected one derived event, got %d", len(derived))
	}
	closed, ok := derived[0].(model.PositionClosed)
	if !ok {
		t.Fatalf("expected PositionClosed, got %T", derived[0])
	}

	pos, ok := c.PositionByID(closed.PositionID)
	if !ok {
		t.Fatal("position missing after close")
	}
	if !pos.IsClosed() {
		t.Error("position reports not closed")
	}
	if _, open := c.OpenPositionFor(strategyID, symbol); open {
		t.Error("(strategy, instrument) slot should be free after close")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	c := New()
	strategyID := model.NewStrategyID("S", "maker-1")
	o := newOrder(t, c, strategyID, "1")
	advance(t, c, o)

	snap := c.Snapshot()

	restored := New()
	restored.Restore(snap)

	got, ok := restored.OrderByID(o.OrderID)
	if !ok {
		t.Fatal("order missing after restore")
	}
	if got.State != model.StateWorking {
		t.Errorf("State = %v, want %v", got.State, model.StateWorking)
	}
	found := false
	for _, w := range restored.WorkingOrders() {
		if w.OrderID == o.OrderID {
			found = true
		}
	}
	if !found {
		t.Error("working-orders index not rebuilt by Restore")
	}
}
