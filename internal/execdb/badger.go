package execdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"execengine/pkg/model"
)

// BadgerDB is the durable Execution Database backend (spec §4.C): "a
// durable backend (key-value store keyed by typed identifier)". Keys are
// "<entity>:<namespace>-<id>" (the identifier's String form); values are a JSON envelope carrying a
// version counter so writes are idempotent keyed by (entity-id, version)
// as §4.C requires — re-applying the same event must not double-mutate.
//
// Grounded on the teacher's store.Store: same Open/Close lifecycle and
// same "write the whole record, no partial updates" discipline, but
// backed by Badger's LSM engine instead of one JSON file per market so
// lookups by identifier don't require a directory scan.
type BadgerDB struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) a Badger-backed execution database
// at dir.
func OpenBadger(dir string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("execdb: open badger at %s: %w", dir, err)
	}
	return &BadgerDB{db: db}, nil
}

func (b *BadgerDB) Close() error { return b.db.Close() }

type envelope struct {
	Version uint64          `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

func accountKey(id model.AccountID) []byte { return []byte("account:" + id.String()) }
func orderKey(id model.OrderID) []byte     { return []byte("order:" + id.String()) }
func positionKey(id model.PositionID) []byte { return []byte("position:" + id.String()) }
func strategyStateKey(id model.StrategyID) []byte { return []byte("strategy_state:" + id.String()) }

func (b *BadgerDB) AddAccount(ctx context.Context, a *model.Account) error {
	return b.put(accountKey(a.AccountID), a, 0)
}

func (b *BadgerDB) AddOrder(ctx context.Context, o *model.Order) error {
	return b.put(orderKey(o.OrderID), o, 0)
}

func (b *BadgerDB) AddPosition(ctx context.Context, p *model.Position) error {
	return b.put(positionKey(p.PositionID), p, 0)
}

func (b *BadgerDB) UpdateAccount(ctx context.Context, a *model.Account, version uint64) error {
	return b.putIfNewer(accountKey(a.AccountID), a, version)
}

func (b *BadgerDB) UpdateOrder(ctx context.Context, o *model.Order, version uint64) error {
	return b.putIfNewer(orderKey(o.OrderID), o, version)
}

func (b *BadgerDB) UpdatePosition(ctx context.Context, p *model.Position, version uint64) error {
	return b.putIfNewer(positionKey(p.PositionID), p, version)
}

func (b *BadgerDB) UpdateStrategyState(ctx context.Context, id model.StrategyID, state []byte) error {
	env := envelope{Version: 0, Payload: json.RawMessage(state)}
	buf, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("execdb: marshal strategy state: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(strategyStateKey(id), buf)
	})
}

// put writes a brand-new record unconditionally (used by Add*).
func (b *BadgerDB) put(key []byte, v any, version uint64) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("execdb: marshal: %w", err)
	}
	env := envelope{Version: version, Payload: payload}
	buf, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("execdb: marshal envelope: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

// putIfNewer writes v only if no record exists yet, or the existing
// record's stored version is strictly less than the incoming version —
// the idempotence contract of §4.C: "re-applying the same event must not
// double-mutate."
func (b *BadgerDB) putIfNewer(key []byte, v any, version uint64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("execdb: get: %w", err)
		}
		if err == nil {
			var existing envelope
			if copyErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); copyErr != nil {
				return fmt.Errorf("execdb: decode existing envelope: %w", copyErr)
			}
			if existing.Version >= version {
				return nil
			}
		}

		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("execdb: marshal: %w", err)
		}
		env := envelope{Version: version, Payload: payload}
		buf, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("execdb: marshal envelope: %w", err)
		}
		return txn.Set(key, buf)
	})
}

func (b *BadgerDB) LoadAccounts(ctx context.Context) (map[model.AccountID]*model.Account, error) {
	out := make(map[model.AccountID]*model.Account)
	err := b.iteratePrefix("account:", func(payload json.RawMessage) error {
		var a model.Account
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		out[a.AccountID] = &a
		return nil
	})
	return out, err
}

func (b *BadgerDB) LoadOrders(ctx context.Context) (map[model.OrderID]*model.Order, error) {
	out := make(map[model.OrderID]*model.Order)
	err := b.iteratePrefix("order:", func(payload json.RawMessage) error {
		var o model.Order
		if err := json.Unmarshal(payload, &o); err != nil {
			return err
		}
		out[o.OrderID] = &o
		return nil
	})
	return out, err
}

func (b *BadgerDB) LoadPositions(ctx context.Context) (map[model.PositionID]*model.Position, error) {
	out := make(map[model.PositionID]*model.Position)
	err := b.iteratePrefix("position:", func(payload json.RawMessage) error {
		var p model.Position
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		out[p.PositionID] = &p
		return nil
	})
	return out, err
}

func (b *BadgerDB) LoadStrategyState(ctx context.Context, id model.StrategyID) ([]byte, error) {
	var state []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(strategyStateKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var env envelope
			if err := json.Unmarshal(val, &env); err != nil {
				return err
			}
			state = []byte(env.Payload)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("execdb: load strategy state: %w", err)
	}
	return state, nil
}

// Flush clears all persisted state (administrative), per §4.C.
func (b *BadgerDB) Flush(ctx context.Context) error {
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("execdb: flush: %w", err)
	}
	return nil
}

func (b *BadgerDB) iteratePrefix(prefix string, fn func(json.RawMessage) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			if !strings.HasPrefix(string(item.Key()), prefix) {
				continue
			}
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}
			if err := fn(env.Payload); err != nil {
				return err
			}
		}
		return nil
	})
}
