package execdb

import (
	"context"
	"testing"
	"time"

	"execengine/pkg/model"
)

func testOrder(t *testing.T) *model.Order {
	t.Helper()
	orderID := model.NewOrderID("SIM", "O-1")
	strategyID := model.NewStrategyID("S", "maker-1")
	o := model.NewOrder(orderID, model.NewVenue("SIM", "SIM"), "BTC-USD", model.Buy, model.OrderTypeLimit,
		model.QuantityFromFloat(10), strategyID, model.NullPositionID(), time.Unix(0, 0).UTC())
	return o
}

func TestBadgerAddAndLoadOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	o := testOrder(t)

	if err := db.AddOrder(ctx, o); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	loaded, err := db.LoadOrders(ctx)
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	got, ok := loaded[o.OrderID]
	if !ok {
		t.Fatalf("order %s not found after load", o.OrderID)
	}
	if got.Symbol != o.Symbol {
		t.Errorf("Symbol = %v, want %v", got.Symbol, o.Symbol)
	}
	if !got.Quantity.Equal(o.Quantity) {
		t.Errorf("Quantity = %v, want %v", got.Quantity, o.Quantity)
	}
	if got.State != o.State {
		t.Errorf("State = %v, want %v", got.State, o.State)
	}
}

func TestBadgerUpdateOrderIsIdempotentByVersion(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	o := testOrder(t)
	if err := db.AddOrder(ctx, o); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	o.State = model.StateAccepted
	if err := db.UpdateOrder(ctx, o, 2); err != nil {
		t.Fatalf("UpdateOrder v2: %v", err)
	}

	// Replaying an older or equal version must not regress the record.
	stale := testOrder(t)
	stale.State = model.StateWorking
	if err := db.UpdateOrder(ctx, stale, 1); err != nil {
		t.Fatalf("UpdateOrder v1 (stale): %v", err)
	}

	loaded, err := db.LoadOrders(ctx)
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	got := loaded[o.OrderID]
	if got.State != model.StateAccepted {
		t.Errorf("State = %v, want %v (stale update must be dropped)", got.State, model.StateAccepted)
	}
}

func TestBadgerLoadOrdersEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer db.Close()

	loaded, err := db.LoadOrders(context.Background())
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no orders, got %d", len(loaded))
	}
}

func TestBadgerStrategyStateRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	strategyID := model.NewStrategyID("S", "maker-1")
	want := []byte(`{"inventory":5}`)

	if err := db.UpdateStrategyState(ctx, strategyID, want); err != nil {
		t.Fatalf("UpdateStrategyState: %v", err)
	}

	got, err := db.LoadStrategyState(ctx, strategyID)
	if err != nil {
		t.Fatalf("LoadStrategyState: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestBadgerLoadStrategyStateMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer db.Close()

	got, err := db.LoadStrategyState(context.Background(), model.NewStrategyID("S", "absent"))
	if err != nil {
		t.Fatalf("LoadStrategyState: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing strategy state, got %v", got)
	}
}

func TestBadgerFlushClearsState(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.AddOrder(ctx, testOrder(t)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if err := db.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := db.LoadOrders(ctx)
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no orders after flush, got %d", len(loaded))
	}
}
