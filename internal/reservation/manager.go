package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for reservations. Implementations must
// make each mutation atomic with its ledger event (see PgStore).
type Store interface {
	Insert(ctx context.Context, r *Reservation) error
	Consume(ctx context.Context, id string) (*Reservation, error)
	Release(ctx context.Context, id string) (*Reservation, error)
	ExpiredIDs(ctx context.Context, now time.Time) ([]string, error)
	ActiveForUser(ctx context.Context, productID, userID string) (*Reservation, error)
	ActiveForSession(ctx context.Context, productID, sessionID string) (*Reservation, error)
	Get(ctx context.Context, id string) (*Reservation, error)
	ListForProduct(ctx context.Context, productID string) ([]*Reservation, error)
}

type CreateInput struct {
	ProductID  string
	VariantSKU string
	UserID     string
	OrderID    string
	SessionID  string
	Quantity   int
	ExpiresAt  time.Time
}

type Manager struct {
	Store Store
}

func (m *Manager) Create(ctx context.Context, in CreateInput) (*Reservation, error) {
	if in.ProductID == "" {
		return nil, errors.New("missing product id")
	}
	if in.Quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if in.ExpiresAt.IsZero() {
		return nil, errors.New("missing expiry")
	}
	r := &Reservation{
		ID:         uuid.NewString(),
		ProductID:  in.ProductID,
		VariantSKU: in.VariantSKU,
		UserID:     in.UserID,
		OrderID:    in.OrderID,
		SessionID:  in.SessionID,
		Quantity:   in.Quantity,
		Status:     StatusActive,
		ExpiresAt:  in.ExpiresAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.Store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	return r, nil
}

func (m *Manager) Consume(ctx context.Context, id string) (*Reservation, error) {
	return m.Store.Consume(ctx, id)
}

func (m *Manager) Release(ctx context.Context, id string) (*Reservation, error) {
	return m.Store.Release(ctx, id)
}

func (m *Manager) ActiveForUser(ctx context.Context, productID, userID string) (*Reservation, error) {
	return m.Store.ActiveForUser(ctx, productID, userID)
}

func (m *Manager) ActiveForSession(ctx context.Context, productID, sessionID string) (*Reservation, error) {
	return m.Store.ActiveForSession(ctx, productID, sessionID)
}

// SweepExpired releases every ACTIVE hold whose expiry has passed. Holds
// are released one by one so a failure on one never blocks the rest.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time) {
	ids, err := m.Store.ExpiredIDs(ctx, now)
	if err != nil {
		log.Printf("sweep: listing expired reservations: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := m.Store.Release(ctx, id); err != nil {
			// already consumed in a race, or a transient store error
			log.Printf("sweep: release %s: %v", id, err)
		}
	}
	if len(ids) > 0 {
		log.Printf("sweep: released up to %d expired reservations", len(ids))
	}
}
