package reservation

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusConsumed Status = "CONSUMED"
	StatusExpired  Status = "EXPIRED"
)

var (
	ErrNotFound  = errors.New("reservation not found")
	ErrNotActive = errors.New("reservation is not active")
)

// Reservation is a time-bounded hold on product stock pending payment.
// Owner scoping is optional: a hold may belong to a user, an order, an
// anonymous session, or any combination.
type Reservation struct {
	ID         string
	ProductID  string
	VariantSKU string
	UserID     string
	OrderID    string
	SessionID  string
	Quantity   int
	Status     Status
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Terminal statuses are final: only ACTIVE holds may transition.
func (r *Reservation) Active() bool { return r.Status == StatusActive }
