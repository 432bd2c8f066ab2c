package execdb

import (
	"context"

	"execengine/pkg/model"
)

// Bypass is a no-op Database, used by default in tests and by stateless
// deployments (spec §4.C: "a bypass (no-op persistence...) must exist").
// Named after nautilus_trader's BypassExecutionDatabase, which every
// scenario in original_source/tests/unit_tests/live/test_live_execution.py
// constructs in setUp.
type Bypass struct{}

// NewBypass constructs a Bypass database.
func NewBypass() *Bypass { return &Bypass{} }

func (b *Bypass) LoadAccounts(ctx context.Context) (map[model.AccountID]*model.Account, error) {
	return map[model.AccountID]*model.Account{}, nil
}

func (b *Bypass) LoadOrders(ctx context.Context) (map[model.OrderID]*model.Order, error) {
	return map[model.OrderID]*model.Order{}, nil
}

func (b *Bypass) LoadPositions(ctx context.Context) (map[model.PositionID]*model.Position, error) {
	return map[model.PositionID]*model.Position{}, nil
}

func (b *Bypass) LoadStrategyState(ctx context.Context, id model.StrategyID) ([]byte, error) {
	return nil, nil
}

func (b *Bypass) AddAccount(ctx context.Context, a *model.Account) error   { return nil }
func (b *Bypass) AddOrder(ctx context.Context, o *model.Order) error      { return nil }
func (b *Bypass) AddPosition(ctx context.Context, p *model.Position) error { return nil }

func (b *Bypass) UpdateAccount(ctx context.Context, a *model.Account, version uint64) error { return nil }
func (b *Bypass) UpdateOrder(ctx context.Context, o *model.Order, version uint64) error      { return nil }
func (b *Bypass) UpdatePosition(ctx context.Context, p *model.Position, version uint64) error {
	return nil
}
func (b *Bypass) UpdateStrategyState(ctx context.Context, id model.StrategyID, state []byte) error {
	return nil
}

func (b *Bypass) Flush(ctx context.Context) error { return nil }

func (b *Bypass) Close() error { return nil }
