package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/marketplace-api/internal/events"
	"github.com/shoplane/marketplace-api/internal/inventory"
	kafkax "github.com/shoplane/marketplace-api/internal/kafka"
	"github.com/shoplane/marketplace-api/internal/order"
	"github.com/shoplane/marketplace-api/internal/reservation"
)

type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	MarkStatus(ctx context.Context, id string, status Status, transactionRef, gateway string) (bool, error)
}

type Orders interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	SetStatus(ctx context.Context, id string, status order.Status) error
}

// Holds is the slice of the reservation manager settlement walks.
type Holds interface {
	ActiveForUser(ctx context.Context, productID, userID string) (*reservation.Reservation, error)
	ActiveForSession(ctx context.Context, productID, sessionID string) (*reservation.Reservation, error)
	Consume(ctx context.Context, id string) (*reservation.Reservation, error)
}

type Ledger interface {
	Apply(ctx context.Context, in inventory.EventInput) (*inventory.Event, error)
}

type StatusChange struct {
	OrderID        string
	Status         Status
	TransactionRef string
	Gateway        string
	AmountCents    int
	SessionID      string // anonymous-session fallback scope, when known
}

// Per-item settlement outcome, captured so partial failures are queryable
// instead of only visible in logs.
const (
	OutcomeConsumedUser    = "consumed_user"
	OutcomeConsumedSession = "consumed_session"
	OutcomeDirectSale      = "direct_sale"
	OutcomeFailed          = "failed"
)

type ItemOutcome struct {
	ProductID     string
	Quantity      int
	Action        string
	ReservationID string
	Err           string
}

type Result struct {
	Payment *Payment
	// Settled is true only when this call performed the PENDING/FAILED -> PAID
	// transition and ran the fan-out. A replayed PAID webhook yields false.
	Settled bool
	Items   []ItemOutcome
}

type Settlement struct {
	Store    Store
	Orders   Orders
	Holds    Holds
	Ledger   Ledger
	Producer events.Publisher // optional
	Service  string
}

// HandleStatusChange is the driver of the order -> reservation -> inventory
// workflow. It upserts the payment keyed by order id, applies the status
// forward-only, and on the transition into PAID moves the order to
// PROCESSING and settles every item: consume the matching hold
// (user scope first, then session scope) or fall back to a direct SALE
// event. Item-level errors are logged and captured, never re-raised; the
// payment status already written stands.
func (s *Settlement) HandleStatusChange(ctx context.Context, in StatusChange) (*Result, error) {
	if in.OrderID == "" {
		return nil, errors.New("missing order id")
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("unknown payment status %q", in.Status)
	}

	p, err := s.Store.FindByOrderID(ctx, in.OrderID)
	if errors.Is(err, ErrNotFound) {
		// webhook-first: the gateway spoke before any checkout intent was stored
		now := time.Now().UTC()
		p = &Payment{
			ID:          uuid.NewString(),
			OrderID:     in.OrderID,
			Method:      "CARD",
			AmountCents: in.AmountCents,
			Currency:    "USD",
			Gateway:     in.Gateway,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Store.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create payment for order %s: %w", in.OrderID, err)
		}
	} else if err != nil {
		return nil, err
	}

	changed, err := s.Store.MarkStatus(ctx, p.ID, in.Status, in.TransactionRef, in.Gateway)
	if err != nil {
		return nil, fmt.Errorf("update payment %s: %w", p.ID, err)
	}
	if changed {
		p.Status = in.Status
		if in.TransactionRef != "" {
			p.TransactionRef = in.TransactionRef
		}
		if in.Gateway != "" {
			p.Gateway = in.Gateway
		}
	}

	res := &Result{Payment: p}
	if in.Status != StatusPaid || !changed {
		return res, nil
	}

	res.Settled = true
	res.Items = s.settle(ctx, in)
	return res, nil
}

func (s *Settlement) settle(ctx context.Context, in StatusChange) []ItemOutcome {
	if err := s.Orders.SetStatus(ctx, in.OrderID, order.StatusProcessing); err != nil {
		log.Printf("settlement: order %s -> PROCESSING: %v", in.OrderID, err)
	}

	ord, err := s.Orders.Get(ctx, in.OrderID)
	if err != nil {
		log.Printf("settlement: load order %s: %v", in.OrderID, err)
		return nil
	}

	outcomes := make([]ItemOutcome, 0, len(ord.Items))
	for _, it := range ord.Items {
		outcomes = append(outcomes, s.settleItem(ctx, ord, it, in.SessionID))
	}

	s.publishPaid(ord, in)
	return outcomes
}

func (s *Settlement) settleItem(ctx context.Context, ord *order.Order, it order.Item, sessionID string) ItemOutcome {
	out := ItemOutcome{ProductID: it.ProductID, Quantity: it.Quantity}

	if r, err := s.Holds.ActiveForUser(ctx, it.ProductID, ord.CustomerID); err == nil {
		return s.consume(ctx, out, r, OutcomeConsumedUser)
	} else if !errors.Is(err, reservation.ErrNotFound) {
		return s.fail(out, fmt.Errorf("lookup user hold: %w", err))
	}

	if r, err := s.Holds.ActiveForSession(ctx, it.ProductID, sessionID); err == nil {
		return s.consume(ctx, out, r, OutcomeConsumedSession)
	} else if !errors.Is(err, reservation.ErrNotFound) {
		return s.fail(out, fmt.Errorf("lookup session hold: %w", err))
	}

	// no hold anywhere: record the sale directly against stock
	if _, err := s.Ledger.Apply(ctx, inventory.EventInput{
		ProductID:  it.ProductID,
		VariantSKU: it.VariantSKU,
		Kind:       inventory.KindSale,
		Quantity:   it.Quantity,
		Note:       fmt.Sprintf("Auto-sale for order %s", ord.ID),
	}); err != nil {
		return s.fail(out, fmt.Errorf("direct sale: %w", err))
	}
	out.Action = OutcomeDirectSale
	return out
}

func (s *Settlement) consume(ctx context.Context, out ItemOutcome, r *reservation.Reservation, action string) ItemOutcome {
	if _, err := s.Holds.Consume(ctx, r.ID); err != nil {
		return s.fail(out, fmt.Errorf("consume %s: %w", r.ID, err))
	}
	out.Action = action
	out.ReservationID = r.ID
	return out
}

func (s *Settlement) fail(out ItemOutcome, err error) ItemOutcome {
	log.Printf("settlement: product %s x%d: %v", out.ProductID, out.Quantity, err)
	out.Action = OutcomeFailed
	out.Err = err.Error()
	return out
}

func (s *Settlement) publishPaid(ord *order.Order, in StatusChange) {
	if s.Producer == nil {
		return
	}
	env := events.NewEnvelope(events.EventOrderPaid, s.Service, "", ord.ID,
		kafkax.MustMarshal(events.OrderPaidPayload{
			OrderID:        ord.ID,
			CustomerEmail:  ord.CustomerEmail,
			AmountCents:    in.AmountCents,
			TransactionRef: in.TransactionRef,
			Gateway:        in.Gateway,
		}))
	s.Producer.Publish(events.PartitionKey(ord.ID), kafkax.MustMarshal(env), env.Headers()...)
}
