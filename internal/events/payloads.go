package events

type ItemLine struct {
	ProductID      string `json:"product_id"`
	VariantSKU     string `json:"variant_sku,omitempty"`
	Title          string `json:"title,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID       string     `json:"order_id"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	Items         []ItemLine `json:"items"`
	TotalCents    int        `json:"total_cents"`
}

type OrderPaidPayload struct {
	OrderID        string `json:"order_id"`
	CustomerEmail  string `json:"customer_email,omitempty"`
	AmountCents    int    `json:"amount_cents"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	Gateway        string `json:"gateway,omitempty"`
}

type StockChangedPayload struct {
	EventID    string `json:"event_id"`
	ProductID  string `json:"product_id"`
	VariantSKU string `json:"variant_sku,omitempty"`
	Kind       string `json:"kind"`
	Quantity   int    `json:"quantity"`
	Delta      int    `json:"delta"`
}
