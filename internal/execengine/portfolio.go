package execengine

import "execengine/pkg/model"

// PortfolioSink receives every applied event, in addition to whichever
// strategy the event is attributed to (spec §4.G: "the engine notifies the
// owning strategy's callback and, separately, any portfolio listener").
// A narrow one-method interface so a caller that only wants a read model —
// a dashboard, a metrics exporter — never needs the rest of the engine's
// surface.
type PortfolioSink interface {
	Update(evt model.Event)
}

// NoopPortfolio discards every event. The zero value is ready to use.
type NoopPortfolio struct{}

func (NoopPortfolio) Update(model.Event) {}
