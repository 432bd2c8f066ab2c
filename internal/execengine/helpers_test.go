package execengine

import (
	"errors"

	"github.com/google/uuid"
)

var errDenied = errors.New("venue rejected the order")

func uuidForTest() uuid.UUID { return uuid.New() }
