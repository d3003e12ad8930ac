package payment

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed:
		return true
	}
	return false
}

var ErrNotFound = errors.New("payment not found")

type Payment struct {
	ID             string
	OrderID        string
	Method         string
	AmountCents    int
	Currency       string
	Gateway        string
	TransactionRef string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
