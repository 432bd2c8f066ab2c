// Package testutil provides shared test fixtures, grounded on the
// original nautilus_trader suite's TestLogger(clock) fixture used in
// every unit test's setUp (original_source/tests/unit_tests/live/test_live_execution.py).
package testutil

import (
	"context"
	"log/slog"
	"testing"
)

// tHandler is an slog.Handler that drains records through t.Log, so a
// failing test's log lines are attributed to the test that produced them
// and suppressed by `go test` unless -v or the test fails.
type tHandler struct {
	t     testing.TB
	attrs []slog.Attr
}

func (h *tHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *tHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	r.Attrs(func(a slog.Attr) bool {
		msg += " " + a.String()
		return true
	})
	for _, a := range h.attrs {
		msg += " " + a.String()
	}
	h.t.Log(msg)
	return nil
}

func (h *tHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tHandler{t: h.t, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *tHandler) WithGroup(string) slog.Handler { return h }

// Logger returns an slog.Logger that writes every record through t.Log,
// the Go-idiomatic equivalent of nautilus's TestLogger(clock) fixture:
// deterministic, test-scoped, and silent on a passing -v-less run.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(&tHandler{t: t})
}
