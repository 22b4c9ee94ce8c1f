package redisx

import "time"

const (
	// Idempotency create session: idem:checkout:create:{cart_ref} -> session_id
	KeyIdemSessionCreate = "idem:checkout:create:%s"

	// Lookup session by token: checkout_token:{token} -> session_id
	KeySessionToken = "checkout_token:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "payment_status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Leader lock utk sweep pass: lock:sweep:{name}
	KeySweepLock = "lock:sweep:%s"

	// Cart collaborator storage: cart:{cart_ref} -> JSON cart
	KeyCart = "cart:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLSessionTok  = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLCart        = 7 * 24 * time.Hour
)
