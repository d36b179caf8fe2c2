package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-portal-api/internal/models"
)

const enrollmentColumns = `id, name, email, phone, age, education_level, courses_interested, has_laptop, experience, motivation, heard_about, status, assigned_course, notes, offer_letter_url, created_at, updated_at`

// EnrollmentRepository manages bootcamp_enrollments persistence.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs a new repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create stores a new application.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	const query = `INSERT INTO bootcamp_enrollments (` + enrollmentColumns + `) VALUES (:id, :name, :email, :phone, :age, :education_level, :courses_interested, :has_laptop, :experience, :motivation, :heard_about, :status, :assigned_course, :notes, :offer_letter_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID fetches an enrollment by identifier.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM bootcamp_enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

func enrollmentWhere(filter models.EnrollmentFilter, includeStatus bool) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if includeStatus && filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d OR phone LIKE $%d)", idx, idx, idx))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of enrollments, newest first, with the total matching count.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	filter.Normalize()
	where, args := enrollmentWhere(filter, true)
	offset := (filter.Page - 1) * filter.PageSize

	listQuery := fmt.Sprintf("SELECT %s FROM bootcamp_enrollments%s ORDER BY created_at DESC LIMIT %d OFFSET %d", enrollmentColumns, where, filter.PageSize, offset)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bootcamp_enrollments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListAll returns every enrollment matching the filter, ignoring pagination.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	where, args := enrollmentWhere(filter, true)
	query := fmt.Sprintf("SELECT %s FROM bootcamp_enrollments%s ORDER BY created_at DESC", enrollmentColumns, where)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("export enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByStatus aggregates enrollments per status. The status filter is ignored so every bucket is reported.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, filter models.EnrollmentFilter) (*models.EnrollmentStatusCounts, error) {
	where, args := enrollmentWhere(filter, false)
	query := `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
COUNT(*) FILTER (WHERE status = 'REJECTED') AS rejected,
COUNT(*) FILTER (WHERE status = 'WAITLISTED') AS waitlisted
FROM bootcamp_enrollments` + where
	var counts models.EnrollmentStatusCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	return &counts, nil
}

// UpdateStatus persists a review decision. A nil notes pointer keeps the existing notes.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, assignedCourse, notes *string, updatedAt time.Time) error {
	const query = `UPDATE bootcamp_enrollments SET status = $2, assigned_course = $3, notes = COALESCE($4, notes), updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, assignedCourse, notes, updatedAt)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireAffected(res)
}

// SetOfferLetter stores the generated offer letter reference.
func (r *EnrollmentRepository) SetOfferLetter(ctx context.Context, id, ref string, updatedAt time.Time) error {
	const query = `UPDATE bootcamp_enrollments SET offer_letter_url = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, ref, updatedAt)
	if err != nil {
		return fmt.Errorf("set offer letter: %w", err)
	}
	return requireAffected(res)
}

// ListApprovedByEmail returns the public projection of approved applications for an email.
func (r *EnrollmentRepository) ListApprovedByEmail(ctx context.Context, email string) ([]models.PublicEnrollment, error) {
	const query = `SELECT id, name, status, assigned_course FROM bootcamp_enrollments WHERE LOWER(email) = LOWER($1) AND status = $2 ORDER BY created_at DESC`
	var rows []models.PublicEnrollment
	if err := r.db.SelectContext(ctx, &rows, query, email, models.EnrollmentStatusApproved); err != nil {
		return nil, fmt.Errorf("lookup approved enrollments: %w", err)
	}
	return rows, nil
}

// ListApprovedByCourse returns approved applicants assigned to the course.
func (r *EnrollmentRepository) ListApprovedByCourse(ctx context.Context, course string) ([]models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM bootcamp_enrollments WHERE status = $1 AND assigned_course = $2 ORDER BY name`
	var rows []models.Enrollment
	if err := r.db.SelectContext(ctx, &rows, query, models.EnrollmentStatusApproved, course); err != nil {
		return nil, fmt.Errorf("list approved enrollments by course: %w", err)
	}
	return rows, nil
}

// ListApprovedEmails returns distinct approved applicant emails.
func (r *EnrollmentRepository) ListApprovedEmails(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT LOWER(email) FROM bootcamp_enrollments WHERE status = $1 ORDER BY 1`
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, query, models.EnrollmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved emails: %w", err)
	}
	return emails, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
