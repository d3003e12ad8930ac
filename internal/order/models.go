package order

import "time"

type Order struct {
	ID              string
	CustomerID      string
	CustomerEmail   string
	TotalCents      int
	ShippingAddress string // opaque JSON, stored verbatim
	CouponCode      string
	Status          Status
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Item struct {
	ID             string
	OrderID        string
	ProductID      string
	VendorID       string
	Title          string
	Image          string
	VariantSKU     string
	UnitPriceCents int
	Quantity       int
}
