package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/marketplace-api/internal/events"
	kafkax "github.com/shoplane/marketplace-api/internal/kafka"
	"github.com/shoplane/marketplace-api/internal/reservation"
)

// DefaultHold is how long stock stays reserved while payment is pending.
const DefaultHold = 15 * time.Minute

type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) (int, []*Order, error)
	SetStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}

// Holds is the slice of the reservation manager the workflow uses.
type Holds interface {
	Create(ctx context.Context, in reservation.CreateInput) (*reservation.Reservation, error)
}

type CreateInput struct {
	CustomerID      string
	CustomerEmail   string
	Items           []Item
	TotalCents      int
	ShippingAddress string
	CouponCode      string
}

type Workflow struct {
	Store    Store
	Holds    Holds
	Producer events.Publisher // optional
	Hold     time.Duration    // zero means DefaultHold
	Service  string
}

// Create persists the order, then places one best-effort stock hold per
// item. Hold failures are logged and swallowed: the order stands even when
// stock could not be reserved. Totals and unit prices are caller-supplied
// and not revalidated here.
func (w *Workflow) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, errors.New("order needs at least one item")
	}
	for i := range in.Items {
		if in.Items[i].ProductID == "" || in.Items[i].Quantity <= 0 {
			return nil, fmt.Errorf("invalid item at index %d", i)
		}
	}
	if in.TotalCents < 0 {
		return nil, errors.New("total must be non-negative")
	}

	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		CustomerID:      in.CustomerID,
		CustomerEmail:   in.CustomerEmail,
		TotalCents:      in.TotalCents,
		ShippingAddress: in.ShippingAddress,
		CouponCode:      in.CouponCode,
		Status:          StatusPending,
		Items:           in.Items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := w.Store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	hold := w.Hold
	if hold <= 0 {
		hold = DefaultHold
	}
	expiresAt := now.Add(hold)
	for _, it := range o.Items {
		_, err := w.Holds.Create(ctx, reservation.CreateInput{
			ProductID:  it.ProductID,
			VariantSKU: it.VariantSKU,
			UserID:     o.CustomerID,
			OrderID:    o.ID,
			Quantity:   it.Quantity,
			ExpiresAt:  expiresAt,
		})
		if err != nil {
			log.Printf("order %s: reserve %s x%d failed: %v", o.ID, it.ProductID, it.Quantity, err)
		}
	}

	w.publishCreated(o)
	return o, nil
}

func (w *Workflow) publishCreated(o *Order) {
	if w.Producer == nil {
		return
	}
	lines := make([]events.ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, events.ItemLine{
			ProductID:      it.ProductID,
			VariantSKU:     it.VariantSKU,
			Title:          it.Title,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	env := events.NewEnvelope(events.EventOrderCreated, w.Service, "", o.ID,
		kafkax.MustMarshal(events.OrderCreatedPayload{
			OrderID:       o.ID,
			CustomerID:    o.CustomerID,
			CustomerEmail: o.CustomerEmail,
			Items:         lines,
			TotalCents:    o.TotalCents,
		}))
	w.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(env), env.Headers()...)
}

func (w *Workflow) Get(ctx context.Context, id string) (*Order, error) {
	return w.Store.Get(ctx, id)
}

func (w *Workflow) List(ctx context.Context, f ListFilter) (int, []*Order, error) {
	return w.Store.List(ctx, f)
}

// UpdateStatus enforces forward-only transitions of the order machine.
func (w *Workflow) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := w.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("cannot transition order %s from %s to %s", id, o.Status, to)
	}
	if err := w.Store.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}
	o.Status = to
	return o, nil
}

func (w *Workflow) Delete(ctx context.Context, id string) error {
	return w.Store.Delete(ctx, id)
}
