// Package execdb implements the Execution Database (spec §4.C): the
// durable projection of orders, positions, and accounts the engine loads
// at startup and writes through on every applied event.
//
// Two realizations exist, grounded on the teacher's store.Store
// lifecycle (Open/Close, atomic writes) but generalized from a single
// JSON-file-per-market layout to a typed-identifier key-value contract:
// Bypass (no-op, for tests and stateless deployments) and BadgerDB (a
// durable key-value backend).
package execdb

import (
	"context"

	"execengine/pkg/model"
)

// Database is the contract every execution database backend satisfies,
// per spec §4.C.
type Database interface {
	LoadAccounts(ctx context.Context) (map[model.AccountID]*model.Account, error)
	LoadOrders(ctx context.Context) (map[model.OrderID]*model.Order, error)
	LoadPositions(ctx context.Context) (map[model.PositionID]*model.Position, error)
	LoadStrategyState(ctx context.Context, id model.StrategyID) ([]byte, error)

	AddAccount(ctx context.Context, a *model.Account) error
	AddOrder(ctx context.Context, o *model.Order) error
	AddPosition(ctx context.Context, p *model.Position) error

	UpdateAccount(ctx context.Context, a *model.Account, version uint64) error
	UpdateOrder(ctx context.Context, o *model.Order, version uint64) error
	UpdatePosition(ctx context.Context, p *model.Position, version uint64) error
	UpdateStrategyState(ctx context.Context, id model.StrategyID, state []byte) error

	Flush(ctx context.Context) error

	Close() error
}
