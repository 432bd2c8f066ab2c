package execengine

import (
	"time"

	"github.com/google/uuid"

	"execengine/pkg/model"
)

// newEventHeader stamps a fresh event-id and wall-clock timestamp for an
// engine-synthesized event (OrderSubmitted on successful dispatch,
// OrderDenied on synchronous failure, OrderRejected on a client-call
// timeout). Seq is left zero; handleEvent assigns it on ingress like every
// other event, local or venue-sourced (spec §4.G).
func newEventHeader() model.EventHeader {
	return model.EventHeader{EventID: uuid.New(), Timestamp: time.Now()}
}
