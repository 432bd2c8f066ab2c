package execclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"execengine/pkg/model"
)

// parseDecimalOrZero parses a decimal string, returning zero for an
// empty or malformed value rather than erroring — fill qty/price wire
// fields are always present in practice, but a defensive zero keeps a
// single bad frame from taking down the read loop.
func parseDecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// submitOrderWire, amendOrderWire, and cancelOrderWire are the REST
// request bodies the SIM adapter sends. A real venue's wire schema would
// live here too; SIM's is intentionally minimal since it exists to
// exercise the adapter shape, not a real exchange's API surface.
type submitOrderWire struct {
	OrderID    string `json:"order_id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Quantity   string `json:"quantity"`
	StrategyID string `json:"strategy_id"`
}

type amendOrderWire struct {
	OrderID  string `json:"order_id"`
	NewQty   string `json:"new_qty"`
	NewPrice string `json:"new_price"`
}

type cancelOrderWire struct {
	OrderID string `json:"order_id"`
}

// wireEventEnvelope is peeked at first to route to the correct typed
// payload, the same two-pass decode the teacher's WSFeed.dispatchMessage
// uses for event_type.
type wireEventEnvelope struct {
	Kind string `json:"kind"`
}

// decodeWireEvent parses a SIM venue WebSocket frame into a domain
// Event. An unrecognized kind yields a nil Event and a nil error, and the
// caller drops it without logging — future venue protocol versions may
// add event kinds this adapter doesn't understand.
func decodeWireEvent(data []byte) (model.Event, error) {
	var env wireEventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	header := model.EventHeader{EventID: uuid.New(), Timestamp: time.Now()}

	switch env.Kind {
	case "accepted":
		var w struct {
			OrderID      string `json:"order_id"`
			VenueOrderID string `json:"venue_order_id"`
			Venue        string `json:"venue"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return model.OrderAccepted{
			EventHeader:  header,
			OrderID:      parseOrderID(w.OrderID),
			VenueOrderID: model.NewVenueOrderID(w.Venue, w.VenueOrderID),
		}, nil

	case "rejected":
		var w struct {
			OrderID string `json:"order_id"`
			Reason  string `json:"reason"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return model.OrderRejected{EventHeader: header, OrderID: parseOrderID(w.OrderID), Reason: w.Reason}, nil

	case "working":
		var w struct {
			OrderID string `json:"order_id"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return model.OrderWorking{EventHeader: header, OrderID: parseOrderID(w.OrderID)}, nil

	case "cancelled":
		var w struct {
			OrderID string `json:"order_id"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return model.OrderCancelled{EventHeader: header, OrderID: parseOrderID(w.OrderID)}, nil

	case "expired":
		var w struct {
			OrderID string `json:"order_id"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return model.OrderExpired{EventHeader: header, OrderID: parseOrderID(w.OrderID)}, nil

	case "filled", "partially_filled":
		var w struct {
			OrderID      string `json:"order_id"`
			VenueOrderID string `json:"venue_order_id"`
			Venue        string `json:"venue"`
			Instrument   string `json:"instrument"`
			Side         string `json:"side"`
			FillQty      string `json:"fill_qty"`
			FillPrice    string `json:"fill_price"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		qty, err := model.NewQuantity(parseDecimalOrZero(w.FillQty))
		if err != nil {
			return nil, fmt.Errorf("fill qty: %w", err)
		}
		price, err := model.NewPrice(parseDecimalOrZero(w.FillPrice))
		if err != nil {
			return nil, fmt.Errorf("fill price: %w", err)
		}
		orderID := parseOrderID(w.OrderID)
		venueOrderID := model.NewVenueOrderID(w.Venue, w.VenueOrderID)
		if env.Kind == "filled" {
			return model.OrderFilled{
				EventHeader:  header,
				OrderID:      orderID,
				VenueOrderID: venueOrderID,
				Instrument:   w.Instrument,
				Side:         model.Side(w.Side),
				FillQty:      qty,
				FillPrice:    price,
				PositionID:   model.NullPositionID(),
			}, nil
		}
		return model.OrderPartiallyFilled{
			EventHeader:  header,
			OrderID:      orderID,
			VenueOrderID: venueOrderID,
			Instrument:   w.Instrument,
			Side:         model.Side(w.Side),
			FillQty:      qty,
			FillPrice:    price,
			PositionID:   model.NullPositionID(),
		}, nil

	default:
		return nil, nil
	}
}

// parseOrderID parses the "namespace-id" form a venue echoes back into a
// typed OrderID. An unparseable id is treated as a single-segment local
// id in an empty namespace rather than an error — a malformed echo
// shouldn't take down the read loop.
func parseOrderID(s string) model.OrderID {
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			return model.NewOrderID(s[:i], s[i+1:])
		}
	}
	return model.NewOrderID("", s)
}
