package model

import "errors"

// errFillExceedsOrder is returned by Order.ApplyFillQuantity when a fill
// would push filled_quantity past quantity — a data integrity violation
// the cache must never let through (spec §8).
var errFillExceedsOrder = errors.New("model: fill quantity would exceed order quantity")

// ErrFillExceedsOrder is the exported form, for callers using errors.Is.
var ErrFillExceedsOrder = errFillExceedsOrder
