package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/marketplace-api/internal/events"
	kafkax "github.com/shoplane/marketplace-api/internal/kafka"
)

var ErrBadQuantity = errors.New("quantity must not be zero")

// Store is what the ledger needs from the data store.
type Store interface {
	Append(ctx context.Context, ev *Event) error
	Adjust(ctx context.Context, productID string, delta int) (bool, error)
	Stock(ctx context.Context, productID string) (int, error)
}

type EventInput struct {
	ProductID  string
	VariantSKU string
	Kind       EventKind
	Quantity   int
	Note       string
}

// Ledger applies typed stock events: the event row is persisted first, then
// the product's stock is mutated (clamped at zero). A missing product keeps
// the event but skips the mutation.
type Ledger struct {
	Store    Store
	Producer events.Publisher // optional; stock.changed notifications
	Service  string
}

func (l *Ledger) Apply(ctx context.Context, in EventInput) (*Event, error) {
	return l.apply(ctx, in, true)
}

// Record appends the event without touching stock. Used for settlement
// bookkeeping where the decrement already happened at reservation time.
func (l *Ledger) Record(ctx context.Context, in EventInput) (*Event, error) {
	return l.apply(ctx, in, false)
}

func (l *Ledger) apply(ctx context.Context, in EventInput, mutate bool) (*Event, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}
	if in.ProductID == "" {
		return nil, errors.New("missing product id")
	}
	if in.Quantity == 0 {
		return nil, ErrBadQuantity
	}

	ev := &Event{
		ID:         uuid.NewString(),
		ProductID:  in.ProductID,
		VariantSKU: in.VariantSKU,
		Kind:       in.Kind,
		Quantity:   in.Quantity,
		Note:       in.Note,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.Store.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append inventory event: %w", err)
	}

	delta := DeltaFor(in.Kind, in.Quantity)
	if mutate && delta != 0 {
		found, err := l.Store.Adjust(ctx, in.ProductID, delta)
		if err != nil {
			return nil, fmt.Errorf("apply stock delta: %w", err)
		}
		if !found {
			// event is retained either way; the mutation fails soft
			log.Printf("inventory: product %s missing, event %s retained without stock change", in.ProductID, ev.ID)
		}
	}

	if l.Producer != nil {
		env := events.NewEnvelope(events.EventStockChanged, l.Service, "", in.ProductID,
			kafkax.MustMarshal(events.StockChangedPayload{
				EventID:    ev.ID,
				ProductID:  in.ProductID,
				VariantSKU: in.VariantSKU,
				Kind:       string(in.Kind),
				Quantity:   in.Quantity,
				Delta:      delta,
			}))
		l.Producer.Publish(events.PartitionKey(in.ProductID), kafkax.MustMarshal(env), env.Headers()...)
	}
	return ev, nil
}
