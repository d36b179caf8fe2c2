package models

import (
	"time"

	"github.com/lib/pq"
)

// VolunteerStatus tracks review of a volunteer registration.
type VolunteerStatus string

const (
	VolunteerStatusPending  VolunteerStatus = "PENDING"
	VolunteerStatusAccepted VolunteerStatus = "ACCEPTED"
	VolunteerStatusDeclined VolunteerStatus = "DECLINED"
)

// Valid returns true when the status is supported.
func (s VolunteerStatus) Valid() bool {
	switch s {
	case VolunteerStatusPending, VolunteerStatusAccepted, VolunteerStatusDeclined:
		return true
	default:
		return false
	}
}

// Volunteer is someone offering mentoring or event help.
type Volunteer struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Email        string          `db:"email" json:"email"`
	Phone        *string         `db:"phone" json:"phone,omitempty"`
	Skills       pq.StringArray  `db:"skills" json:"skills"`
	Availability string          `db:"availability" json:"availability"`
	Motivation   string          `db:"motivation" json:"motivation"`
	Status       VolunteerStatus `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// VolunteerFilter scopes volunteer listings.
type VolunteerFilter struct {
	Status   VolunteerStatus
	Page     int
	PageSize int
}
