package inventory

import (
	"errors"
	"time"
)

// EventKind classifies a stock movement. Events are append-only; they are
// the sole record of why a product's stock changed.
type EventKind string

const (
	KindAdjust  EventKind = "ADJUST"
	KindSale    EventKind = "SALE"
	KindReturn  EventKind = "RETURN"
	KindReserve EventKind = "RESERVE"
	KindRelease EventKind = "RELEASE"
)

var (
	ErrUnknownKind     = errors.New("unknown inventory event kind")
	ErrProductNotFound = errors.New("product not found")
)

func (k EventKind) Valid() bool {
	switch k {
	case KindAdjust, KindSale, KindReturn, KindReserve, KindRelease:
		return true
	}
	return false
}

// DeltaFor derives the signed stock delta for a (kind, quantity) pair.
// SALE and RESERVE subtract the absolute quantity, RETURN and RELEASE add
// it, ADJUST applies the quantity verbatim (may be negative).
func DeltaFor(kind EventKind, quantity int) int {
	abs := quantity
	if abs < 0 {
		abs = -abs
	}
	switch kind {
	case KindSale, KindReserve:
		return -abs
	case KindReturn, KindRelease:
		return abs
	case KindAdjust:
		return quantity
	}
	return 0
}

type Event struct {
	ID         string
	ProductID  string
	VariantSKU string
	Kind       EventKind
	Quantity   int
	Note       string
	CreatedAt  time.Time
}
