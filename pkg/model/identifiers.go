// Package model defines the shared data structures used across every layer
// of the execution engine: typed identifiers, fixed-precision value
// objects, and the command/event records that flow through the engine.
// It has no dependency on any internal package, so it can be imported by
// any layer — execdb, execcache, execclient, stratreg, and execengine all
// speak this vocabulary.
package model

import "fmt"

// id is the common shape behind every typed identifier: a namespace tag
// plus a printable local id. Two identifiers are equal iff both fields
// match; identifiers are totally ordered for deterministic iteration.
type id struct {
	ns    string
	local string
}

func (i id) String() string {
	return i.ns + "-" + i.local
}

func (i id) less(o id) bool {
	if i.ns != o.ns {
		return i.ns < o.ns
	}
	return i.local < o.local
}

// TraderID identifies the trader on whose behalf orders are placed.
type TraderID struct{ id }

// NewTraderID constructs a TraderID from a namespace and local id.
func NewTraderID(ns, local string) TraderID { return TraderID{id{ns, local}} }

// Less reports whether t sorts before o, for deterministic iteration.
func (t TraderID) Less(o TraderID) bool { return t.id.less(o.id) }

// StrategyID identifies a registered strategy.
type StrategyID struct{ id }

// NewStrategyID constructs a StrategyID from a namespace and local id.
func NewStrategyID(ns, local string) StrategyID { return StrategyID{id{ns, local}} }

// Less reports whether s sorts before o, for deterministic iteration.
func (s StrategyID) Less(o StrategyID) bool { return s.id.less(o.id) }

// AccountID identifies an account held at a venue.
type AccountID struct{ id }

// NewAccountID constructs an AccountID from a namespace and local id.
func NewAccountID(ns, local string) AccountID { return AccountID{id{ns, local}} }

// Less reports whether a sorts before o, for deterministic iteration.
func (a AccountID) Less(o AccountID) bool { return a.id.less(o.id) }

// Venue identifies an execution venue (exchange / CLOB).
type Venue struct{ id }

// NewVenue constructs a Venue from a namespace and local id.
func NewVenue(ns, local string) Venue { return Venue{id{ns, local}} }

// Less reports whether v sorts before o, for deterministic iteration.
func (v Venue) Less(o Venue) bool { return v.id.less(o.id) }

// OrderID is a client-assigned identifier, unique within a trader.
type OrderID struct{ id }

// NewOrderID constructs an OrderID from a namespace and local id.
func NewOrderID(ns, local string) OrderID { return OrderID{id{ns, local}} }

// Less reports whether o sorts before other, for deterministic iteration.
func (o OrderID) Less(other OrderID) bool { return o.id.less(other.id) }

// VenueOrderID is assigned by the venue once an order is accepted.
type VenueOrderID struct{ id }

// NewVenueOrderID constructs a VenueOrderID from a namespace and local id.
func NewVenueOrderID(ns, local string) VenueOrderID { return VenueOrderID{id{ns, local}} }

// Less reports whether v sorts before o, for deterministic iteration.
func (v VenueOrderID) Less(o VenueOrderID) bool { return v.id.less(o.id) }

// nullSentinel is the literal printable form of the NULL PositionId, per
// the serialization rule in spec §6.
const nullSentinel = "P-NULL"

// PositionID is a tagged variant: either a known identifier, or the NULL
// sentinel meaning "to be assigned". It is never represented as a magic
// string at the type level — IsNull is the predicate callers must use.
type PositionID struct {
	known bool
	id    id
}

// NewPositionID constructs a known PositionID from a namespace and local id.
func NewPositionID(ns, local string) PositionID {
	return PositionID{known: true, id: id{ns, local}}
}

// NullPositionID returns the NULL sentinel PositionID ("to be assigned").
func NullPositionID() PositionID {
	return PositionID{}
}

// IsNull reports whether p is the NULL sentinel.
func (p PositionID) IsNull() bool { return !p.known }

// String renders p as "namespace-id", or the literal "P-NULL" sentinel.
func (p PositionID) String() string {
	if !p.known {
		return nullSentinel
	}
	return p.id.String()
}

// Equal reports whether p and o denote the same position identifier.
// Two NULL sentinels are never equal to each other — each represents a
// distinct "not yet assigned" slot until bound to a concrete position.
func (p PositionID) Equal(o PositionID) bool {
	if p.known != o.known {
		return false
	}
	if !p.known {
		return false
	}
	return p.id == o.id
}

// Less reports whether p sorts before o. Known ids sort before the NULL
// sentinel so iteration order never depends on allocation timing.
func (p PositionID) Less(o PositionID) bool {
	if p.known != o.known {
		return p.known
	}
	if !p.known {
		return false
	}
	return p.id.less(o.id)
}

// GoString supports fmt's %#v / debugging output with the same rendering
// as String, so test failure messages read the identifier directly.
func (p PositionID) GoString() string { return fmt.Sprintf("PositionID(%s)", p.String()) }
