package coupon

import (
	"errors"
	"time"
)

type Type string

const (
	TypePercentage   Type = "PERCENTAGE"
	TypeFixed        Type = "FIXED"
	TypeFreeShipping Type = "FREE_SHIPPING"
)

type Reason string

const (
	ReasonNotFound         Reason = "NOT_FOUND"
	ReasonInactive         Reason = "INACTIVE"
	ReasonNotStarted       Reason = "NOT_STARTED"
	ReasonExpired          Reason = "EXPIRED"
	ReasonMaxUses          Reason = "MAX_USES"
	ReasonMinOrder         Reason = "MIN_ORDER"
	ReasonCategoryMismatch Reason = "CATEGORY_MISMATCH"
)

var ErrNotFound = errors.New("coupon not found")

type Coupon struct {
	ID                  string
	Code                string
	Type                Type
	ValueCents          int
	MaxUses             int // zero means unlimited
	UsedCount           int
	ValidFrom           *time.Time
	ValidTo             *time.Time
	Active              bool
	MinOrderAmountCents int
	CategorySlugs       []string // empty means any category
}
