package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// EnrollmentStatus represents the review state of a bootcamp application.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending    EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved   EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected   EnrollmentStatus = "REJECTED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
)

// Valid returns true when the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusApproved, EnrollmentStatusRejected, EnrollmentStatusWaitlisted:
		return true
	default:
		return false
	}
}

// Enrollment captures a bootcamp applicant and the admin review outcome.
type Enrollment struct {
	ID                string           `db:"id" json:"id"`
	Name              string           `db:"name" json:"name"`
	Email             string           `db:"email" json:"email"`
	Phone             string           `db:"phone" json:"phone"`
	Age               int              `db:"age" json:"age"`
	EducationLevel    string           `db:"education_level" json:"educationLevel"`
	CoursesInterested pq.StringArray   `db:"courses_interested" json:"coursesInterested"`
	HasLaptop         bool             `db:"has_laptop" json:"hasLaptop"`
	Experience        string           `db:"experience" json:"experience"`
	Motivation        string           `db:"motivation" json:"motivation"`
	HeardAbout        string           `db:"heard_about" json:"heardAbout"`
	Status            EnrollmentStatus `db:"status" json:"status"`
	AssignedCourse    *string          `db:"assigned_course" json:"assignedCourse"`
	Notes             *string          `db:"notes" json:"notes,omitempty"`
	OfferLetterURL    *string          `db:"offer_letter_url" json:"offerLetterUrl,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updatedAt"`
}

// HasCourse reports whether course is one of the applicant's interests.
func (e *Enrollment) HasCourse(course string) bool {
	for _, c := range e.CoursesInterested {
		if c == course {
			return true
		}
	}
	return false
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	Status   EnrollmentStatus
	Search   string
	Page     int
	PageSize int
}

// Normalize clamps pagination to supported bounds.
func (f *EnrollmentFilter) Normalize() {
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 10
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

// EnrollmentStatusCounts aggregates applications per status.
type EnrollmentStatusCounts struct {
	Total      int `db:"total" json:"total"`
	Pending    int `db:"pending" json:"pending"`
	Approved   int `db:"approved" json:"approved"`
	Rejected   int `db:"rejected" json:"rejected"`
	Waitlisted int `db:"waitlisted" json:"waitlisted"`
}

// PublicEnrollment is the projection returned to unauthenticated students looking up their course.
type PublicEnrollment struct {
	ID             string           `db:"id" json:"id"`
	Name           string           `db:"name" json:"name"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	AssignedCourse *string          `db:"assigned_course" json:"assignedCourse"`
}
