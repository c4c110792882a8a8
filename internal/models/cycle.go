package models

import "time"

// CycleState represents the lifecycle of an academic cycle.
type CycleState string

const (
	CycleStateOpen   CycleState = "OPEN"
	CycleStateClosed CycleState = "CLOSED"
)

// Valid returns true when the state is a supported value.
func (s CycleState) Valid() bool {
	return s == CycleStateOpen || s == CycleStateClosed
}

// Cycle models an academic cycle with its session calendar and
// minimum attendance threshold.
type Cycle struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	State     CycleState `db:"state" json:"state"`
	MinPct    int        `db:"min_pct" json:"min_pct"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// CycleSession is one configured class date within a cycle. Sessions are
// append-only: dates may be added but existing ones are never reordered.
type CycleSession struct {
	ID      string    `db:"id" json:"id"`
	CycleID string    `db:"cycle_id" json:"cycle_id"`
	Date    time.Time `db:"date" json:"date"`
}

// CycleDetail enriches Cycle with its ordered session dates.
type CycleDetail struct {
	Cycle
	SessionDates []time.Time `json:"session_dates"`
}

// CycleFilter defines filters supported by list endpoints.
type CycleFilter struct {
	State     CycleState
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CycleSummary aggregates headline figures for one cycle.
type CycleSummary struct {
	CycleID            string    `json:"cycle_id"`
	Students           int       `json:"students"`
	Restricted         int       `json:"restricted"`
	Sessions           int       `json:"sessions"`
	PendingEnrollments int       `json:"pending_enrollments"`
	PendingPayments    int       `json:"pending_payments"`
	GeneratedAt        time.Time `json:"generated_at"`
}
