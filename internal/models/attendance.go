package models

import "time"

// AttendanceSession is a time-boxed question a cohort answers to be marked present.
type AttendanceSession struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Course        string    `db:"course" json:"course"`
	Question      string    `db:"question" json:"question"`
	CorrectAnswer string    `db:"correct_answer" json:"correctAnswer"`
	MeetingDate   time.Time `db:"meeting_date" json:"meetingDate"`
	ExpiresAt     time.Time `db:"expires_at" json:"expiresAt"`
	IsActive      bool      `db:"is_active" json:"isActive"`
	EmailSent     bool      `db:"email_sent" json:"emailSent"`
	CreatedBy     *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// IsExpired reports whether the submission window has closed. The deadline itself is still open.
func (s *AttendanceSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsOpen reports whether the session should be shown as active.
func (s *AttendanceSession) IsOpen(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}

// Public returns the projection safe for unauthenticated students.
func (s *AttendanceSession) Public(now time.Time) PublicAttendanceSession {
	return PublicAttendanceSession{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Course:      s.Course,
		Question:    s.Question,
		MeetingDate: s.MeetingDate,
		ExpiresAt:   s.ExpiresAt,
		IsActive:    s.IsOpen(now),
		IsExpired:   s.IsExpired(now),
	}
}

// PublicAttendanceSession omits the expected answer.
type PublicAttendanceSession struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Course      string    `json:"course"`
	Question    string    `json:"question"`
	MeetingDate time.Time `json:"meetingDate"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsActive    bool      `json:"isActive"`
	IsExpired   bool      `json:"isExpired"`
}

// AttendanceSessionSummary decorates a session with response tallies for the admin list.
type AttendanceSessionSummary struct {
	AttendanceSession
	ResponseCount int `db:"response_count" json:"responseCount"`
	CorrectCount  int `db:"correct_count" json:"correctCount"`
}

// AttendanceSessionFilter scopes admin listing queries.
type AttendanceSessionFilter struct {
	Course   string
	Page     int
	PageSize int
}

// AttendanceResponse is a student's single answer to a session.
type AttendanceResponse struct {
	ID           string    `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"sessionId"`
	StudentEmail string    `db:"student_email" json:"studentEmail"`
	StudentName  string    `db:"student_name" json:"studentName"`
	Answer       string    `db:"answer" json:"answer"`
	IsCorrect    bool      `db:"is_correct" json:"isCorrect"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submittedAt"`
}

// AttendanceSubmissionResult is returned to the student after a successful submission.
type AttendanceSubmissionResult struct {
	IsCorrect bool   `json:"isCorrect"`
	Message   string `json:"message"`
}

// AttendanceResponseSummary tallies responses for one session.
type AttendanceResponseSummary struct {
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}
