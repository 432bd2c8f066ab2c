package execclient

import (
	"fmt"
	"testing"

	"execengine/pkg/model"
)

func TestDecodeWireEventAccepted(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"kind":"accepted","order_id":"strat1-ord1","venue_order_id":"v1","venue":"SIM"}`)
	evt, err := decodeWireEvent(raw)
	if err != nil {
		t.Fatalf("decodeWireEvent: %v", err)
	}
	accepted, ok := evt.(model.OrderAccepted)
	if !ok {
		t.Fatalf("got %T, want model.OrderAccepted", evt)
	}
	if accepted.OrderID != model.NewOrderID("strat1", "ord1") {
		t.Errorf("OrderID = %v, want strat1-ord1", accepted.OrderID)
	}
	if accepted.VenueOrderID != model.NewVenueOrderID("SIM", "v1") {
		t.Errorf("VenueOrderID = %v, want SIM-v1", accepted.VenueOrderID)
	}
}

func TestDecodeWireEventRejected(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"kind":"rejected","order_id":"strat1-ord1","reason":"INSUFFICIENT_BALANCE"}`)
	evt, err := decodeWireEvent(raw)
	if err != nil {
		t.Fatalf("decodeWireEvent: %v", err)
	}
	rejected, ok := evt.(model.OrderRejected)
	if !ok {
		t.Fatalf("got %T, want model.OrderRejected", evt)
	}
	if rejected.Reason != "INSUFFICIENT_BALANCE" {
		t.Errorf("Reason = %q, want INSUFFICIENT_BALANCE", rejected.Reason)
	}
}

func TestDecodeWireEventFilled(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"kind":"filled",
		"order_id":"strat1-ord1",
		"venue_order_id":"v1",
		"venue":"SIM",
		"instrument":"BTC-USD",
		"side":"BUY",
		"fill_qty":"1.5",
		"fill_price":"100.25"
	}`)
	evt, err := decodeWireEvent(raw)
	if err != nil {
		t.Fatalf("decodeWireEvent: %v", err)
	}
	filled, ok := evt.(model.OrderFilled)
	if !ok {
		t.Fatalf("got %T, want model.OrderFilled", evt)
	}
	if !filled.PositionID.IsNull() {
		t.Error("wire-decoded fill should carry the null PositionID; the cache assigns a real one")
	}
	if filled.FillQty.String() != "1.5" {
		t.Errorf("FillQty = %s, want 1.5", filled.FillQty.String())
	}
	if filled.FillPrice.String() != "100.25" {
		t.Errorf("FillPrice = %s, want 100.25", filled.FillPrice.String())
	}
}

func TestDecodeWireEventPartiallyFilled(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"kind":"partially_filled",
		"order_id":"strat1-ord1",
		"venue_order_id":"v1",
		"venue":"SIM",
		"instrument":"BTC-USD",
		"side":"SELL",
		"fill_qty":"0.5",
		"fill_price":"99.75"
	}`)
	evt, err := decodeWireEvent(raw)
	if err != nil {
		t.Fatalf("decodeWireEvent: %v", err)
	}
	if _, ok := evt.(model.OrderPartiallyFilled); !ok {
		t.Fatalf("got %T, want model.OrderPartiallyFilled", evt)
	}
}

func TestDecodeWireEventWorkingCancelledExpired(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind string
		want model.Event
	}{
		{"working", model.OrderWorking{}},
		{"cancelled", model.OrderCancelled{}},
		{"expired", model.OrderExpired{}},
	}
	for _, tc := range cases {
		raw := []byte(`{"kind":"` + tc.kind + `","order_id":"strat1-ord1"}`)
		evt, err := decodeWireEvent(raw)
		if err != nil {
			t.Fatalf("%s: decodeWireEvent: %v", tc.kind, err)
		}
		if evt == nil {
			t.Fatalf("%s: got nil event", tc.kind)
		}
		if got, want := fmt.Sprintf("%T", evt), fmt.Sprintf("%T", tc.want); got != want {
			t.Errorf("%s: got %s, want %s", tc.kind, got, want)
		}
	}
}

func TestDecodeWireEventUnknownKindIsNilNotError(t *testing.T) {
	t.Parallel()

	evt, err := decodeWireEvent([]byte(`{"kind":"future_extension"}`))
	if err != nil {
		t.Fatalf("decodeWireEvent: %v", err)
	}
	if evt != nil {
		t.Errorf("got %T, want nil for an unrecognized kind", evt)
	}
}

func TestDecodeWireEventMalformedEnvelopeIsError(t *testing.T) {
	t.Parallel()

	if _, err := decodeWireEvent([]byte(`not json`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestParseOrderIDRoundTrip(t *testing.T) {
	t.Parallel()

	got := parseOrderID("strat1-ord1")
	want := model.NewOrderID("strat1", "ord1")
	if got != want {
		t.Errorf("parseOrderID(%q) = %v, want %v", "strat1-ord1", got, want)
	}
}

func TestParseOrderIDNoSeparator(t *testing.T) {
	t.Parallel()

	got := parseOrderID("bareid")
	want := model.NewOrderID("", "bareid")
	if got != want {
		t.Errorf("parseOrderID(%q) = %v, want %v", "bareid", got, want)
	}
}
