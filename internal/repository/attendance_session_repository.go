package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-portal-api/internal/models"
)

const attendanceSessionColumns = `id, title, description, course, question, correct_answer, meeting_date, expires_at, is_active, email_sent, created_by, created_at, updated_at`

// AttendanceSessionRepository persists attendance sessions.
type AttendanceSessionRepository struct {
	db *sqlx.DB
}

// NewAttendanceSessionRepository constructs the repository.
func NewAttendanceSessionRepository(db *sqlx.DB) *AttendanceSessionRepository {
	return &AttendanceSessionRepository{db: db}
}

// Create inserts a session.
func (r *AttendanceSessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	const query = `INSERT INTO attendance_sessions (` + attendanceSessionColumns + `) VALUES (:id, :title, :description, :course, :question, :correct_answer, :meeting_date, :expires_at, :is_active, :email_sent, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create attendance session: %w", err)
	}
	return nil
}

// FindByID loads a session.
func (r *AttendanceSessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	const query = `SELECT ` + attendanceSessionColumns + ` FROM attendance_sessions WHERE id = $1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance session: %w", err)
	}
	return &session, nil
}

// List returns sessions with their response tallies, most recent meeting first.
func (r *AttendanceSessionRepository) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionSummary, int, error) {
	_, size, offset := models.PageBounds(filter.Page, filter.PageSize, 20)

	where := ""
	var args []interface{}
	if filter.Course != "" {
		args = append(args, filter.Course)
		where = " WHERE s.course = $1"
	}

	query := fmt.Sprintf(`SELECT s.id, s.title, s.description, s.course, s.question, s.correct_answer, s.meeting_date, s.expires_at, s.is_active, s.email_sent, s.created_by, s.created_at, s.updated_at,
COUNT(r.id) AS response_count, COUNT(r.id) FILTER (WHERE r.is_correct) AS correct_count
FROM attendance_sessions s LEFT JOIN attendance_responses r ON r.session_id = s.id%s
GROUP BY s.id ORDER BY s.meeting_date DESC LIMIT %d OFFSET %d`, where, size, offset)

	var sessions []models.AttendanceSessionSummary
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance sessions: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM attendance_sessions s" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance sessions: %w", err)
	}
	return sessions, total, nil
}

// ListOpenByCourse returns active sessions for a course that have not expired at the given instant.
func (r *AttendanceSessionRepository) ListOpenByCourse(ctx context.Context, course string, now time.Time) ([]models.AttendanceSession, error) {
	const query = `SELECT ` + attendanceSessionColumns + ` FROM attendance_sessions WHERE course = $1 AND is_active = TRUE AND expires_at >= $2 ORDER BY meeting_date ASC`
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, course, now); err != nil {
		return nil, fmt.Errorf("list open attendance sessions: %w", err)
	}
	return sessions, nil
}

// Deactivate closes a session for submissions.
func (r *AttendanceSessionRepository) Deactivate(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE attendance_sessions SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, updatedAt)
	if err != nil {
		return fmt.Errorf("deactivate attendance session: %w", err)
	}
	return requireAffected(res)
}
