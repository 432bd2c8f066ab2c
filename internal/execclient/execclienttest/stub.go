// Package execclienttest provides a StubClient for engine tests: the
// original nautilus_trader test suite never hits a real venue, it uses
// LiveExecutionClient purely to exercise registration
// (original_source/tests/unit_tests/live/test_live_execution.py). This
// stub mirrors that role for the Go port: it records every call it
// receives and lets a test synthesize venue events on demand.
package execclienttest

import (
	"context"
	"sync"

	"execengine/pkg/model"
)

// Call records one inbound method invocation for later assertion.
type Call struct {
	Method   string
	OrderID  model.OrderID
	NewQty   model.Quantity
	NewPrice model.Price
}

// StubClient is a execclient.Client that never talks to a real venue.
type StubClient struct {
	mu    sync.Mutex
	calls []Call
	fail  error // if non-nil, every call returns this error

	events chan model.Event
}

// NewStubClient constructs a stub with a buffered event channel.
func NewStubClient() *StubClient {
	return &StubClient{events: make(chan model.Event, 256)}
}

// FailWith makes every subsequent call return err, simulating a
// synchronous client-side failure (§4.G: "on synchronous failure, emit
// an OrderDenied event locally").
func (s *StubClient) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// RecordedCalls returns every call received so far.
func (s *StubClient) RecordedCalls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// PushEvent synthesizes a venue event as if it arrived over the wire.
func (s *StubClient) PushEvent(evt model.Event) {
	s.events <- evt
}

func (s *StubClient) record(c Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	return s.fail
}

func (s *StubClient) Connect(ctx context.Context) error    { return s.record(Call{Method: "connect"}) }
func (s *StubClient) Disconnect(ctx context.Context) error { return s.record(Call{Method: "disconnect"}) }

func (s *StubClient) SubmitOrder(ctx context.Context, o *model.Order) error {
	return s.record(Call{Method: "submit_order", OrderID: o.OrderID})
}

func (s *StubClient) AmendOrder(ctx context.Context, orderID model.OrderID, newQty model.Quantity, newPrice model.Price) error {
	return s.record(Call{Method: "amend_order", OrderID: orderID, NewQty: newQty, NewPrice: newPrice})
}

func (s *StubClient) CancelOrder(ctx context.Context, orderID model.OrderID) error {
	return s.record(Call{Method: "cancel_order", OrderID: orderID})
}

func (s *StubClient) AccountInquiry(ctx context.Context, accountID model.AccountID) error {
	return s.record(Call{Method: "account_inquiry"})
}

func (s *StubClient) Events() <-chan model.Event { return s.events }
