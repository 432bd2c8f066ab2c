package model

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders an id as "namespace-id", consistent with the
// serialization rule in spec §6. Promoted to every identifier type that
// embeds id (TraderID, StrategyID, AccountID, Venue, OrderID,
// VenueOrderID), so each one is JSON-serializable without its own method.
func (i id) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON parses the "namespace-id" form produced by MarshalJSON.
func (i *id) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ns, local, ok := splitNamespacedID(s)
	if !ok {
		return fmt.Errorf("model: malformed identifier %q", s)
	}
	i.ns, i.local = ns, local
	return nil
}

// splitNamespacedID splits "namespace-id" on the first hyphen.
func splitNamespacedID(s string) (ns, local string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// MarshalJSON renders PositionID as its canonical string form: the
// sentinel "P-NULL" for the null case, "namespace-id" otherwise.
func (p PositionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses either "P-NULL" or a "namespace-id" pair.
func (p *PositionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nullSentinel {
		*p = NullPositionID()
		return nil
	}
	ns, local, ok := splitNamespacedID(s)
	if !ok {
		return fmt.Errorf("model: malformed position id %q", s)
	}
	*p = NewPositionID(ns, local)
	return nil
}

// MarshalJSON renders Quantity as its underlying decimal.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.d.MarshalJSON()
}

// UnmarshalJSON parses a decimal into Quantity without re-validating
// non-negativity: values read back from the database were already
// validated when first constructed.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	return q.d.UnmarshalJSON(data)
}

// MarshalJSON renders Price as its underlying decimal.
func (p Price) MarshalJSON() ([]byte, error) {
	return p.d.MarshalJSON()
}

// UnmarshalJSON parses a decimal into Price.
func (p *Price) UnmarshalJSON(data []byte) error {
	return p.d.UnmarshalJSON(data)
}

// MarshalJSON renders Money as its underlying decimal.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

// UnmarshalJSON parses a decimal into Money.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.d.UnmarshalJSON(data)
}
