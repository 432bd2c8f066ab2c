package stratreg

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"execengine/internal/testutil"
	"execengine/pkg/model"
)

func sampleEvent(orderID model.OrderID) model.Event {
	return model.OrderWorking{
		EventHeader: model.EventHeader{EventID: uuid.New(), Timestamp: time.Now()},
		OrderID:     orderID,
	}
}

func TestNotifyInvokesRegisteredHandle(t *testing.T) {
	t.Parallel()

	r := New(testutil.Logger(t))
	id := model.NewStrategyID("desk", "alpha")

	var got model.Event
	r.Register(id, &Handle{OnEvent: func(e model.Event) { got = e }})

	evt := sampleEvent(model.NewOrderID("desk", "ord1"))
	r.Notify(id, evt)

	if got != evt {
		t.Error("OnEvent was not invoked with the notified event")
	}
}

func TestNotifyUnregisteredStrategyIsNoop(t *testing.T) {
	t.Parallel()

	r := New(testutil.Logger(t))
	id := model.NewStrategyID("desk", "ghost")

	r.Notify(id, sampleEvent(model.NewOrderID("desk", "ord1")))
}

func TestRegisterIsIdempotentReplace(t *testing.T) {
	t.Parallel()

	r := New(testutil.Logger(t))
	id := model.NewStrategyID("desk", "alpha")

	firstCalled := false
	r.Register(id, &Handle{OnEvent: func(model.Event) { firstCalled = true }})

	secondCalled := false
	r.Register(id, &Handle{OnEvent: func(model.Event) { secondCalled = true }})

	r.Notify(id, sampleEvent(model.NewOrderID("desk", "ord1")))

	if firstCalled {
		t.Error("the first handle fired; Register should have replaced it")
	}
	if !secondCalled {
		t.Error("the replacement handle did not fire")
	}
}

func TestDeregisterStopsNotifications(t *testing.T) {
	t.Parallel()

	r := New(testutil.Logger(t))
	id := model.NewStrategyID("desk", "alpha")

	called := false
	r.Register(id, &Handle{OnEvent: func(model.Event) { called = true }})
	r.Deregister(id)

	r.Notify(id, sampleEvent(model.NewOrderID("desk", "ord1")))

	if called {
		t.Error("OnEvent fired after Deregister")
	}
	if r.Registered(id) {
		t.Error("Registered reported true after Deregister")
	}
}

func TestRegisteredReflectsState(t *testing.T) {
	t.Parallel()

	r := New(testutil.Logger(t))
	id := model.NewStrategyID("desk", "alpha")

	if r.Registered(id) {
		t.Fatal("Registered should be false before Register")
	}
	r.Register(id, &Handle{})
	if !r.Registered(id) {
		t.Error("Registered should be true after Register")
	}
}
