package coupon

import (
	"context"
	"errors"
	"time"
)

// Application is the transient result of validating a code against a
// candidate order. It is never persisted.
type Application struct {
	Valid         bool
	Reason        Reason
	Coupon        *Coupon
	DiscountCents int
}

// Evaluate runs the ordered checks against an already-loaded coupon; the
// first failing check wins. It is side-effect free and never touches the
// usage counter.
func Evaluate(c *Coupon, now time.Time, totalCents int, categorySlugs []string) Application {
	if !c.Active {
		return Application{Reason: ReasonInactive}
	}
	if c.ValidFrom != nil && c.ValidFrom.After(now) {
		return Application{Reason: ReasonNotStarted}
	}
	if c.ValidTo != nil && c.ValidTo.Before(now) {
		return Application{Reason: ReasonExpired}
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return Application{Reason: ReasonMaxUses}
	}
	if c.MinOrderAmountCents > 0 && totalCents < c.MinOrderAmountCents {
		return Application{Reason: ReasonMinOrder}
	}
	if len(c.CategorySlugs) > 0 && !intersects(c.CategorySlugs, categorySlugs) {
		return Application{Reason: ReasonCategoryMismatch}
	}

	var discount int
	switch c.Type {
	case TypePercentage:
		discount = totalCents * c.ValueCents / 100
	case TypeFixed:
		discount = c.ValueCents
	case TypeFreeShipping:
		discount = 0 // shipping is the caller's concern
	}
	if discount > totalCents {
		discount = totalCents
	}
	return Application{Valid: true, Coupon: c, DiscountCents: discount}
}

func intersects(restrict, candidates []string) bool {
	for _, r := range restrict {
		for _, c := range candidates {
			if r == c {
				return true
			}
		}
	}
	return false
}

type Store interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUse(ctx context.Context, id string) error
}

type Engine struct {
	Store Store
}

func (e *Engine) Validate(ctx context.Context, code string, totalCents int, categorySlugs []string) (Application, error) {
	c, err := e.Store.FindByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return Application{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Application{}, err
	}
	return Evaluate(c, time.Now().UTC(), totalCents, categorySlugs), nil
}

// MarkUsed bumps the usage counter. Callers invoke it only after a real
// consumption, never as part of validation.
func (e *Engine) MarkUsed(ctx context.Context, id string) error {
	return e.Store.IncrementUse(ctx, id)
}
