package models

import "time"

// ReviewStatus is the shared lifecycle for items awaiting a reviewer decision.
// PENDING is the initial state; APPROVED and REJECTED are terminal.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewStatusApproved || s == ReviewStatusRejected
}

// PaymentState tracks the downstream payment field on an enrollment.
type PaymentState string

const (
	PaymentStateUnpaid PaymentState = "UNPAID"
	PaymentStatePaid   PaymentState = "PAID"
)

// PendingEnrollment is an intake-form submission awaiting review.
type PendingEnrollment struct {
	ID            string       `db:"id" json:"id"`
	CycleID       string       `db:"cycle_id" json:"cycle_id"`
	FullName      string       `db:"full_name" json:"full_name"`
	Document      string       `db:"document" json:"document"`
	Email         string       `db:"email" json:"email"`
	Program       string       `db:"program" json:"program"`
	GroupID       *string      `db:"group_id" json:"group_id,omitempty"`
	ClassID       *string      `db:"class_id" json:"class_id,omitempty"`
	Status        ReviewStatus `db:"status" json:"status"`
	AccessEnabled bool         `db:"access_enabled" json:"access_enabled"`
	PaymentState  PaymentState `db:"payment_state" json:"payment_state"`
	ReviewedAt    *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// PendingPayment is a reported payment awaiting review.
type PendingPayment struct {
	ID           string       `db:"id" json:"id"`
	CycleID      string       `db:"cycle_id" json:"cycle_id"`
	EnrollmentID string       `db:"enrollment_id" json:"enrollment_id"`
	PayerName    string       `db:"payer_name" json:"payer_name"`
	PayerDoc     string       `db:"payer_doc" json:"payer_doc"`
	Amount       float64      `db:"amount" json:"amount"`
	PaidAt       time.Time    `db:"paid_at" json:"paid_at"`
	Bank         string       `db:"bank" json:"bank"`
	ReceiptRef   string       `db:"receipt_ref" json:"receipt_ref"`
	Status       ReviewStatus `db:"status" json:"status"`
	ReviewedAt   *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// InboxFilter scopes pending-item listings.
type InboxFilter struct {
	CycleID   string
	Page      int
	PageSize  int
	SortOrder string
}

// PendingCounts mirrors the live pending-list lengths. Always computed on
// read, never kept as separate counter state.
type PendingCounts struct {
	Enrollments int `json:"enrollments"`
	Payments    int `json:"payments"`
}
