package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/pkg/database"
)

const attendanceResponseColumns = `id, session_id, student_email, student_name, answer, is_correct, submitted_at`

// AttendanceResponseRepository persists student answers.
type AttendanceResponseRepository struct {
	db *sqlx.DB
}

// NewAttendanceResponseRepository constructs the repository.
func NewAttendanceResponseRepository(db *sqlx.DB) *AttendanceResponseRepository {
	return &AttendanceResponseRepository{db: db}
}

// Insert stores a response unless one already exists for the session and email.
// It reports false when the unique (session_id, student_email) pair was already taken.
func (r *AttendanceResponseRepository) Insert(ctx context.Context, response *models.AttendanceResponse) (bool, error) {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now().UTC()
	}
	response.StudentEmail = strings.ToLower(strings.TrimSpace(response.StudentEmail))

	const query = `INSERT INTO attendance_responses (` + attendanceResponseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (session_id, student_email) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, response.ID, response.SessionID, response.StudentEmail, response.StudentName, response.Answer, response.IsCorrect, response.SubmittedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert attendance response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attendance response: %w", err)
	}
	return affected > 0, nil
}

// ListBySession returns responses in submission order.
func (r *AttendanceResponseRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceResponse, error) {
	const query = `SELECT ` + attendanceResponseColumns + ` FROM attendance_responses WHERE session_id = $1 ORDER BY submitted_at ASC`
	var responses []models.AttendanceResponse
	if err := r.db.SelectContext(ctx, &responses, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance responses: %w", err)
	}
	return responses, nil
}
