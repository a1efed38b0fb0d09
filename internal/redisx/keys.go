package redisx

import "time"

const (
	// Availability cache: availability:{item_id}:{from}:{to} -> Result JSON
	KeyAvailability = "availability:%s:%s:%s"

	// Reschedule lock per work order: lock:work_order:{order_id} -> token
	KeyOrderLock = "lock:work_order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLAvailability = 15 * time.Second
	TTLOrderLock    = 10 * time.Second
	TTLDedup        = 48 * time.Hour
)
