package models

import "time"

// EventType identifies a domain event emitted by a review transition.
type EventType string

const (
	EventEnrollmentApproved EventType = "enrollment.approved"
	EventEnrollmentRejected EventType = "enrollment.rejected"
	EventPaymentApproved    EventType = "payment.approved"
	EventPaymentRejected    EventType = "payment.rejected"
)

// DomainEvent is published by the inbox service after a successful state
// transition. Exactly one event is emitted per transition.
type DomainEvent struct {
	Type       EventType `json:"type"`
	ItemID     string    `json:"item_id"`
	CycleID    string    `json:"cycle_id"`
	Recipient  string    `json:"recipient"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notification is a persisted record of a dispatched message.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	Recipient string    `db:"recipient" json:"recipient"`
	Subject   string    `db:"subject" json:"subject"`
	Body      string    `db:"body" json:"body"`
	Event     EventType `db:"event" json:"event"`
	SentAt    time.Time `db:"sent_at" json:"sent_at"`
}
