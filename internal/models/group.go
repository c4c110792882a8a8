package models

import "time"

// Group is a cohort within a cycle (e.g. "Grupo A").
type Group struct {
	ID        string    `db:"id" json:"id"`
	CycleID   string    `db:"cycle_id" json:"cycle_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassSection is a class within a group used for enrollment assignment.
type ClassSection struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail enriches a group with its class sections.
type GroupDetail struct {
	Group
	Classes []ClassSection `json:"classes"`
}
