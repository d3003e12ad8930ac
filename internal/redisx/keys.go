package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id or gateway event id)
	KeyDedup = "dedup:%s:%s"

	// Session store: session:{token} -> {"user_id":"...","role":"..."}
	KeySession = "session:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
