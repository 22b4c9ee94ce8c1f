package inventory

import "time"

type Record struct {
	ProductID        string    `json:"product_id"`
	QuantityOnHand   int       `json:"quantity_on_hand"`
	QuantityReserved int       `json:"quantity_reserved"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available = stok yang boleh di-reserve.
func (r Record) Available() int { return r.QuantityOnHand - r.QuantityReserved }

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
	ReservationConsumed ReservationStatus = "consumed"
)

type Reservation struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id"`
	Qty       int               `json:"qty"`
	OrderRef  string            `json:"order_ref"`
	ExpiresAt time.Time         `json:"expires_at"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

type Action string

const (
	ActionIncrease   Action = "increase"
	ActionDecrease   Action = "decrease"
	ActionReserve    Action = "reserve"
	ActionRelease    Action = "release"
	ActionAdjust     Action = "adjust"
	ActionInitialize Action = "initialize"
)

type Source string

const (
	SourceManual     Source = "manual"
	SourceOrder      Source = "order"
	SourceReturn     Source = "return"
	SourceAdjustment Source = "adjustment"
	SourceSystem     Source = "system"
)

// HistoryEntry append-only; sekali tertulis tidak pernah diubah/dihapus.
// Invariant: QuantityAfter == QuantityBefore + QuantityChanged.
type HistoryEntry struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	Action          Action    `json:"action"`
	QuantityBefore  int       `json:"quantity_before"`
	QuantityAfter   int       `json:"quantity_after"`
	QuantityChanged int       `json:"quantity_changed"`
	ReservedBefore  int       `json:"reserved_before"`
	ReservedAfter   int       `json:"reserved_after"`
	Reason          string    `json:"reason"`
	Source          Source    `json:"source"`
	Actor           string    `json:"actor"`
	CreatedAt       time.Time `json:"created_at"`
}
