package events

const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
	TopicStockChanged = "inventory.stock.changed"
)

// Partition key = order_id so every event of one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
