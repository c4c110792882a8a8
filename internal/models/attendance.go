package models

import "time"

// DateKeyLayout is the canonical key format for attendance maps.
const DateKeyLayout = "2006-01-02"

// DateKey formats a session date as the canonical attendance map key.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// AttendanceMark is a single (student, date) attendance cell.
type AttendanceMark struct {
	ID        string    `db:"id" json:"id"`
	CycleID   string    `db:"cycle_id" json:"cycle_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceStats is derived from a cycle's session calendar and one
// student's marks. It is computed on demand and never persisted.
type AttendanceStats struct {
	Attended  int  `json:"attended"`
	Total     int  `json:"total"`
	Pct       int  `json:"pct"`
	UnderMin  bool `json:"under_min"`
	Recurrent bool `json:"recurrent"`
}

// AttendanceFilter scopes attendance listing queries.
type AttendanceFilter struct {
	CycleID   string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}
