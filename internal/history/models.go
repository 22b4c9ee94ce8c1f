package history

import "time"

type EventType string

const (
	EventOrderCreated    EventType = "order_created"
	EventStatusChanged   EventType = "status_changed"
	EventPaymentUpdated  EventType = "payment_updated"
	EventShippingUpdated EventType = "shipping_updated"
	EventAddressChanged  EventType = "address_changed"
	EventNotesUpdated    EventType = "notes_updated"
	EventFraudFlagRaised EventType = "fraud_flag_raised"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Entry: side table append-only per order, bukan array di row order
// (hindari read-modify-write race di history).
type Entry struct {
	ID                string    `json:"id"`
	OrderRef          string    `json:"order_ref"`
	EventType         EventType `json:"event_type"`
	Description       string    `json:"description"`
	Actor             string    `json:"actor"`
	Priority          Priority  `json:"priority"`
	RequiresFollowUp  bool      `json:"requires_follow_up"`
	IsCustomerVisible bool      `json:"is_customer_visible"`
	CreatedAt         time.Time `json:"created_at"`
}

type Filter struct {
	OrderRef           string
	EventType          EventType
	Priority           Priority
	FollowUpOnly       bool
	Limit              int
	NewestFirst        bool
	CustomerFacingOnly bool
}

type Stats struct {
	Total         int               `json:"total"`
	ByEventType   map[EventType]int `json:"by_event_type"`
	ByPriority    map[Priority]int  `json:"by_priority"`
	FollowUpCount int               `json:"follow_up_count"`
}
