package models

import "time"

// StudentStatus represents a student's access status within a cycle.
type StudentStatus string

const (
	// StudentStatusRegular is the default status.
	StudentStatusRegular StudentStatus = "REGULAR"
	// StudentStatusRestricted (DPI) blocks exam/resource access after an
	// attendance violation. Entered only through an explicit restriction
	// action and left only through an explicit removal.
	StudentStatusRestricted StudentStatus = "DPI"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusRegular || s == StudentStatusRestricted
}

// Student represents a learner registered in a cycle.
type Student struct {
	ID         string        `db:"id" json:"id"`
	CycleID    string        `db:"cycle_id" json:"cycle_id"`
	Document   string        `db:"document" json:"document"`
	FullName   string        `db:"full_name" json:"full_name"`
	GroupLabel string        `db:"group_label" json:"group_label"`
	Status     StudentStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	CycleID   string
	Status    StudentStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentEligibility pairs a student with their computed attendance stats.
type StudentEligibility struct {
	Student Student         `json:"student"`
	Stats   AttendanceStats `json:"stats"`
}
