// Package execengine implements the Live Execution Engine (spec §4.G/§4.H):
// the central orchestrator that owns the command and event channels, drives
// the order/position/account state machine through the Execution Cache, and
// persists every applied transition to the Execution Database.
//
// Grounded on the teacher's Engine in internal/engine/engine.go: a struct
// that owns a context/cancel pair and a sync.WaitGroup, a handful of
// dedicated worker goroutines each running a `for { select { ... } }` loop,
// and non-blocking channel sends that drop-and-log on backpressure rather
// than block the caller.
package execengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"execengine/internal/config"
	"execengine/internal/execcache"
	"execengine/internal/execclient"
	"execengine/internal/execdb"
	"execengine/internal/stratreg"
	"execengine/pkg/model"
)

// Engine is the Live Execution Engine (components G+H). A single instance
// is constructed per trader process: one command channel, one event
// channel, one cache, one database, and the client/strategy registries it
// dispatches through.
type Engine struct {
	lifecycle

	cfg      config.EngineConfig
	traderID model.TraderID

	cache      *execcache.Cache
	db         execdb.Database
	clients    *execclient.Registry
	strategies *stratreg.Registry
	portfolio  PortfolioSink
	logger     *slog.Logger

	cmdCh chan model.Command
	evtCh chan model.Event

	commandCount    atomic.Uint64
	eventCount      atomic.Uint64
	staleEventCount atomic.Uint64
	seq             atomic.Uint64

	mu          sync.Mutex
	fanInCancel map[model.Venue]context.CancelFunc
	fanInWG     sync.WaitGroup // separate from wg: venue connections outlive Stop/Start cycles

	done chan struct{}
	wg   sync.WaitGroup
}

// New constructs an Engine in the INITIALIZED state. It does not start any
// goroutines — call Start for that.
func New(
	cfg config.EngineConfig,
	traderID model.TraderID,
	cache *execcache.Cache,
	db execdb.Database,
	clients *execclient.Registry,
	strategies *stratreg.Registry,
	portfolio PortfolioSink,
	logger *slog.Logger,
) *Engine {
	if portfolio == nil {
		portfolio = NoopPortfolio{}
	}
	e := &Engine{
		cfg:         cfg,
		traderID:    traderID,
		cache:       cache,
		db:          db,
		clients:     clients,
		strategies:  strategies,
		portfolio:   portfolio,
		logger:      logger.With("component", "execengine"),
		cmdCh:       make(chan model.Command, cfg.CommandQueueSize),
		evtCh:       make(chan model.Event, cfg.EventQueueSize),
		fanInCancel: make(map[model.Venue]context.CancelFunc),
	}
	e.state.Store(int32(Initialized))
	return e
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() ComponentState { return e.load() }

// QSize reports the current depth of the command and event channels, for
// the status endpoint and backpressure tests.
func (e *Engine) QSize() (cmdDepth, evtDepth int) {
	return len(e.cmdCh), len(e.evtCh)
}

// CommandCount is the number of commands dequeued and handled so far.
func (e *Engine) CommandCount() uint64 { return e.commandCount.Load() }

// EventCount is the number of events dequeued and handled so far (derived
// events applied alongside a fill are not counted separately here; they are
// counted as part of the fill event that produced them).
func (e *Engine) EventCount() uint64 { return e.eventCount.Load() }

// StaleEventCount is the number of events dropped as stale or out-of-order
// (spec §4.D/§9: duplicate or superseded venue events are dropped and
// counted, never applied twice).
func (e *Engine) StaleEventCount() uint64 { return e.staleEventCount.Load() }

// Start transitions INITIALIZED/STOPPED → RUNNING and launches the command
// and event worker goroutines (spec §4.H).
func (e *Engine) Start() error {
	from := e.load()
	if from != Initialized && from != Stopped {
		return fmt.Errorf("execengine: cannot start from state %s", from)
	}
	if !e.compareAndSwap(from, Running) {
		return fmt.Errorf("execengine: concurrent state change during start")
	}

	e.done = make(chan struct{})
	e.wg.Add(2)
	go func() { defer e.wg.Done(); e.commandLoop(e.done) }()
	go func() { defer e.wg.Done(); e.eventLoop(e.done) }()

	e.logger.Info("engine started", "trader_id", e.traderID.String())
	return nil
}

// Stop transitions RUNNING → STOPPING → STOPPED. It polls both channels
// until they drain or stop_drain_timeout_ms elapses, then signals both
// worker loops to exit and waits for them (spec §4.H).
func (e *Engine) Stop() error {
	if !e.compareAndSwap(Running, Stopping) {
		return fmt.Errorf("execengine: cannot stop from state %s", e.load())
	}

	deadline := time.Now().Add(e.drainTimeout())
	for (len(e.cmdCh) > 0 || len(e.evtCh) > 0) && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	close(e.done)
	e.wg.Wait()

	e.state.Store(int32(Stopped))
	e.logger.Info("engine stopped",
		"command_count", e.CommandCount(),
		"event_count", e.EventCount(),
		"stale_event_count", e.StaleEventCount(),
	)
	return nil
}

// requestStop asynchronously stops the engine from within a worker
// goroutine, so escalating on persistence exhaustion never deadlocks on
// the very loop issuing the request (spec §7: PersistenceError — "after
// exhausting retries, the engine escalates by stopping").
func (e *Engine) requestStop(reason string) {
	if e.load() != Running {
		return
	}
	e.logger.Error("degraded: escalating to stop", "reason", reason)
	go func() {
		if err := e.Stop(); err != nil {
			e.logger.Error("escalated stop failed", "error", err)
		}
	}()
}

// Dispose transitions STOPPED → DISPOSED: every registered client and
// strategy is deregistered and the database is closed. A disposed engine
// cannot be started again (spec §4.H).
func (e *Engine) Dispose() error {
	if !e.compareAndSwap(Stopped, Disposed) {
		return fmt.Errorf("execengine: cannot dispose from state %s", e.load())
	}

	e.mu.Lock()
	for venue, cancel := range e.fanInCancel {
		cancel()
		delete(e.fanInCancel, venue)
	}
	e.mu.Unlock()
	e.fanInWG.Wait()

	for _, venue := range e.clients.Venues() {
		e.clients.Deregister(venue)
	}
	e.strategies.Clear()

	if err := e.db.Close(); err != nil {
		e.logger.Error("close database on dispose", "error", err)
		return err
	}
	e.logger.Info("engine disposed")
	return nil
}

func (e *Engine) drainTimeout() time.Duration {
	if d := e.cfg.StopDrainTimeout(); d > 0 {
		return d
	}
	return 5 * time.Second
}

func (e *Engine) clientCallTimeout() time.Duration {
	if d := e.cfg.ClientCallTimeout(); d > 0 {
		return d
	}
	return 30 * time.Second
}

// RegisterClient installs a venue client and starts the goroutine that
// fans its Events() channel into the engine's event channel.
func (e *Engine) RegisterClient(venue model.Venue, c execclient.Client) error {
	if e.load() == Disposed {
		return ErrDisposed
	}
	if err := e.clients.Register(venue, c); err != nil {
		return err
	}
	e.startFanIn(venue, c)
	return nil
}

// DeregisterClient stops the fan-in goroutine for venue and removes its
// client registration.
func (e *Engine) DeregisterClient(venue model.Venue) {
	e.mu.Lock()
	cancel, ok := e.fanInCancel[venue]
	delete(e.fanInCancel, venue)
	e.mu.Unlock()
	if ok {
		cancel()
	}
	e.clients.Deregister(venue)
}

func (e *Engine) startFanIn(venue model.Venue, c execclient.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.fanInCancel[venue] = cancel
	e.mu.Unlock()

	e.fanInWG.Add(1)
	go func() {
		defer e.fanInWG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-c.Events():
				if !ok {
					return
				}
				if err := e.Process(evt); err != nil {
					e.logger.Warn("dropping venue event, event queue full",
						"venue", venue.String(), "error", err)
				}
			}
		}
	}()
}

// RegisterStrategy installs a strategy callback handle.
func (e *Engine) RegisterStrategy(id model.StrategyID, handle *stratreg.Handle) error {
	if e.load() == Disposed {
		return ErrDisposed
	}
	e.strategies.Register(id, handle)
	return nil
}

// DeregisterStrategy removes a strategy callback handle.
func (e *Engine) DeregisterStrategy(id model.StrategyID) {
	e.strategies.Deregister(id)
}

// Execute validates and enqueues a command (spec §4.G). Validation runs
// synchronously so a rejected command never touches the cache and never
// produces a local denial event (§7: ValidationError — "reported to the
// caller synchronously by execute() rejecting the command; no state
// change"). A command that passes validation but finds the queue full
// returns ErrQueueFull and is likewise never enqueued.
func (e *Engine) Execute(cmd model.Command) error {
	if e.load() == Disposed {
		return ErrDisposed
	}
	if err := e.validateCommand(cmd); err != nil {
		return err
	}
	select {
	case e.cmdCh <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Process enqueues an event, typically one sourced from a venue client's
// Events() channel, but also usable directly in tests. Returns
// ErrQueueFull if the event channel has no room.
func (e *Engine) Process(evt model.Event) error {
	if e.load() == Disposed {
		return ErrDisposed
	}
	select {
	case e.evtCh <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Engine) validateCommand(cmd model.Command) error {
	switch c := cmd.(type) {
	case model.SubmitOrder:
		return e.validateNewOrder(c.CommandHeader, c.Order.OrderID)
	case model.SubmitBracketOrder:
		if err := e.validateNewOrder(c.CommandHeader, c.Entry.OrderID); err != nil {
			return err
		}
		if err := e.validateNewOrder(c.CommandHeader, c.TakeProfit.OrderID); err != nil {
			return err
		}
		return e.validateNewOrder(c.CommandHeader, c.StopLoss.OrderID)
	case model.AmendOrder:
		return e.validateExistingOrder(c.OrderID)
	case model.CancelOrder:
		return e.validateExistingOrder(c.OrderID)
	default:
		return fmt.Errorf("execengine: unrecognized command type %T", cmd)
	}
}

func (e *Engine) validateNewOrder(header model.CommandHeader, orderID model.OrderID) error {
	if !e.strategies.Registered(header.StrategyID) {
		return ErrUnknownStrategy
	}
	if _, ok := e.cache.AccountByID(header.AccountID); !ok {
		return ErrUnknownAccount
	}
	if _, err := e.clients.Lookup(header.Venue); err != nil {
		return ErrUnknownVenue
	}
	if _, exists := e.cache.OrderByID(orderID); exists {
		return ErrOrderKnown
	}
	return nil
}

func (e *Engine) validateExistingOrder(orderID model.OrderID) error {
	if _, ok := e.cache.OrderByID(orderID); !ok {
		return ErrOrderUnknown
	}
	return nil
}

// commandLoop drains the command channel until done is closed, mirroring
// the teacher's manageMarkets dispatch loop.
func (e *Engine) commandLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case cmd := <-e.cmdCh:
			e.handleCommand(cmd)
		}
	}
}

// eventLoop drains the event channel until done is closed.
func (e *Engine) eventLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case evt := <-e.evtCh:
			e.handleEvent(evt)
		}
	}
}

func (e *Engine) handleCommand(cmd model.Command) {
	e.commandCount.Add(1)
	switch c := cmd.(type) {
	case model.SubmitOrder:
		e.submitOrder(c.CommandHeader, c.Order)
	case model.SubmitBracketOrder:
		e.submitOrder(c.CommandHeader, c.Entry)
		e.submitOrder(c.CommandHeader, c.TakeProfit)
		e.submitOrder(c.CommandHeader, c.StopLoss)
	case model.AmendOrder:
		e.amendOrder(c)
	case model.CancelOrder:
		e.cancelOrder(c)
	default:
		e.logger.Error("unrecognized command type in worker", "type", fmt.Sprintf("%T", cmd))
	}
}

// submitOrder inserts the order as INITIALIZED, persists it, and forwards
// it to the venue client. A synchronous client failure — or a call that
// blows its deadline — produces exactly one local denial event through the
// same pipeline a venue-sourced rejection would use (spec §4.G/§8: "never
// both, never neither").
func (e *Engine) submitOrder(header model.CommandHeader, order *model.Order) {
	if err := e.cache.AddOrder(order); err != nil {
		e.logger.Error("insert order failed", "order_id", order.OrderID.String(), "error", err)
		return
	}
	if err := e.persistWithRetry(context.Background(), func(ctx context.Context) error {
		return e.db.AddOrder(ctx, order)
	}); err != nil {
		e.requestStop(fmt.Sprintf("persisting new order %s: %v", order.OrderID.String(), err))
		return
	}

	client, err := e.clients.Lookup(header.Venue)
	if err != nil {
		e.denyLocally(order.OrderID, "venue not registered")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.clientCallTimeout())
	defer cancel()
	callErr := client.SubmitOrder(ctx, order)
	if ctx.Err() == context.DeadlineExceeded {
		e.rejectTimeout(order.OrderID)
		return
	}
	if callErr != nil {
		e.denyLocally(order.OrderID, callErr.Error())
		return
	}
	e.submitConfirmed(order.OrderID, order.StrategyID)
}

// submitConfirmed emits the OrderSubmitted event confirming a successful,
// synchronous hand-off to the venue client (spec: OrderSubmitted "confirms
// a command was accepted onto the engine's command path and forwarded to a
// venue").
func (e *Engine) submitConfirmed(orderID model.OrderID, strategyID model.StrategyID) {
	e.enqueueLocalEvent(model.OrderSubmitted{
		EventHeader: newEventHeader(),
		OrderID:     orderID,
		StrategyID:  strategyID,
	})
}

func (e *Engine) amendOrder(c model.AmendOrder) {
	order, ok := e.cache.OrderByID(c.OrderID)
	if !ok {
		e.logger.Warn("amend: order no longer present", "order_id", c.OrderID.String())
		return
	}
	if order.State.IsTerminal() {
		e.logger.Warn("amend rejected: order is terminal",
			"order_id", c.OrderID.String(), "state", string(order.State))
		return
	}
	client, err := e.clients.Lookup(order.Venue)
	if err != nil {
		e.logger.Warn("amend: venue no longer registered",
			"order_id", c.OrderID.String(), "venue", order.Venue.String())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.clientCallTimeout())
	defer cancel()
	callErr := client.AmendOrder(ctx, c.OrderID, c.NewQty, c.NewPrice)
	if ctx.Err() == context.DeadlineExceeded {
		e.rejectTimeout(c.OrderID)
		return
	}
	if callErr != nil {
		e.logger.Warn("amend call failed", "order_id", c.OrderID.String(), "error", callErr)
	}
}

func (e *Engine) cancelOrder(c model.CancelOrder) {
	order, ok := e.cache.OrderByID(c.OrderID)
	if !ok {
		e.logger.Warn("cancel: order no longer present", "order_id", c.OrderID.String())
		return
	}
	if order.State.IsTerminal() {
		e.logger.Warn("cancel rejected: order is terminal",
			"order_id", c.OrderID.String(), "state", string(order.State))
		return
	}
	client, err := e.clients.Lookup(order.Venue)
	if err != nil {
		e.logger.Warn("cancel: venue no longer registered",
			"order_id", c.OrderID.String(), "venue", order.Venue.String())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.clientCallTimeout())
	defer cancel()
	callErr := client.CancelOrder(ctx, c.OrderID)
	if ctx.Err() == context.DeadlineExceeded {
		e.rejectTimeout(c.OrderID)
		return
	}
	if callErr != nil {
		e.logger.Warn("cancel call failed", "order_id", c.OrderID.String(), "error", callErr)
	}
}

func (e *Engine) denyLocally(orderID model.OrderID, reason string) {
	e.enqueueLocalEvent(model.OrderDenied{
		EventHeader: newEventHeader(),
		OrderID:     orderID,
		Reason:      reason,
	})
}

func (e *Engine) rejectTimeout(orderID model.OrderID) {
	e.enqueueLocalEvent(model.OrderRejected{
		EventHeader: newEventHeader(),
		OrderID:     orderID,
		Reason:      "TIMEOUT",
	})
}

// enqueueLocalEvent routes an engine-synthesized event through Process, so
// a locally-built event and a venue-sourced event flow through exactly one
// code path (§4.D/§4.G).
func (e *Engine) enqueueLocalEvent(evt model.Event) {
	if err := e.Process(evt); err != nil {
		e.logger.Error("failed to enqueue locally-generated event, event queue full",
			"type", fmt.Sprintf("%T", evt), "error", err)
	}
}

func (e *Engine) handleEvent(evt model.Event) {
	e.eventCount.Add(1)
	evt = evt.WithSeq(e.seq.Add(1))

	if acct, ok := evt.(model.AccountStateUpdated); ok {
		e.handleAccountEvent(acct)
		return
	}

	e.applyAndPersist(evt)
}

func (e *Engine) handleAccountEvent(evt model.AccountStateUpdated) {
	if !e.cache.TouchAccount(evt.AccountID, evt.Header().Timestamp) {
		e.staleEventCount.Add(1)
		e.logger.Warn("account state update for unknown account", "account_id", evt.AccountID.String())
		return
	}
	if err := e.persistWithRetry(context.Background(), func(ctx context.Context) error {
		acct, ok := e.cache.AccountByID(evt.AccountID)
		if !ok {
			return nil
		}
		return e.db.UpdateAccount(ctx, acct, evt.Header().Seq)
	}); err != nil {
		e.requestStop(fmt.Sprintf("persisting account update %s: %v", evt.AccountID.String(), err))
		return
	}
	e.notify(evt)
}

// applyAndPersist drives evt through the cache, per spec §4.D/§4.G/§8: a
// stale or invalid transition is dropped and counted, never persisted or
// notified; a successful application is persisted and notified, and any
// derived position events ride along.
func (e *Engine) applyAndPersist(evt model.Event) {
	applied, derived, err := e.cache.ApplyEvent(evt, time.Now())
	if err != nil {
		if errors.Is(err, execcache.ErrUnknownOrder) {
			e.logger.Warn("event refers to an unknown order", "type", fmt.Sprintf("%T", evt), "error", err)
			return
		}
		e.logger.Error("cache apply event failed", "error", err)
		return
	}
	if !applied {
		e.staleEventCount.Add(1)
		e.logger.Warn("stale or invalid transition dropped", "type", fmt.Sprintf("%T", evt))
		return
	}

	if err := e.persistWithRetry(context.Background(), func(ctx context.Context) error {
		return e.persistEvent(ctx, evt)
	}); err != nil {
		e.requestStop(fmt.Sprintf("persisting event %T: %v", evt, err))
		return
	}
	e.notify(evt)

	for _, d := range derived {
		d = d.WithSeq(e.seq.Add(1))
		if err := e.persistWithRetry(context.Background(), func(ctx context.Context) error {
			return e.persistEvent(ctx, d)
		}); err != nil {
			e.requestStop(fmt.Sprintf("persisting derived event %T: %v", d, err))
			return
		}
		e.notify(d)
	}
}

// persistEvent writes the entity an event pertains to through the database,
// keyed by the event's sequence number as the idempotency version (spec
// §4.C: "add is an unconditional first write; update is accepted only if
// version is newer than the stored one").
func (e *Engine) persistEvent(ctx context.Context, evt model.Event) error {
	version := evt.Header().Seq

	if orderID, ok := evt.AffectedOrder(); ok {
		order, found := e.cache.OrderByID(orderID)
		if !found {
			return nil
		}
		return e.db.UpdateOrder(ctx, order, version)
	}

	switch typed := evt.(type) {
	case model.PositionOpened:
		if pos, found := e.cache.PositionByID(typed.PositionID); found {
			return e.db.AddPosition(ctx, pos)
		}
	case model.PositionModified:
		if pos, found := e.cache.PositionByID(typed.PositionID); found {
			return e.db.UpdatePosition(ctx, pos, version)
		}
	case model.PositionClosed:
		if pos, found := e.cache.PositionByID(typed.PositionID); found {
			return e.db.UpdatePosition(ctx, pos, version)
		}
	}
	return nil
}

// persistWithRetry bounds a database write by persistence_retries (spec
// §6/§7): exhausting the retry budget is a PersistenceError, which the
// caller escalates by stopping the engine. The same context is passed to
// every retry attempt, so a caller-imposed deadline or cancellation is
// honored across retries rather than silently discarded.
func (e *Engine) persistWithRetry(ctx context.Context, write func(ctx context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(e.cfg.PersistenceRetries)), ctx)
	return backoff.Retry(func() error {
		return write(ctx)
	}, policy)
}

// strategyIDFor resolves the strategy an event should be routed to, if any.
// Order events carry or imply a strategy via the order record; position
// events carry it directly or via the position record; account events have
// no strategy affiliation and are skipped (only forwarded to portfolio).
func (e *Engine) strategyIDFor(evt model.Event) (model.StrategyID, bool) {
	switch typed := evt.(type) {
	case model.PositionOpened:
		return typed.StrategyID, true
	case model.PositionModified:
		if pos, ok := e.cache.PositionByID(typed.PositionID); ok {
			return pos.StrategyID, true
		}
		return model.StrategyID{}, false
	case model.PositionClosed:
		if pos, ok := e.cache.PositionByID(typed.PositionID); ok {
			return pos.StrategyID, true
		}
		return model.StrategyID{}, false
	}
	if orderID, ok := evt.AffectedOrder(); ok {
		if order, found := e.cache.OrderByID(orderID); found {
			return order.StrategyID, true
		}
	}
	return model.StrategyID{}, false
}

func (e *Engine) notify(evt model.Event) {
	if id, ok := e.strategyIDFor(evt); ok {
		e.strategies.Notify(id, evt)
	}
	e.portfolio.Update(evt)
}
