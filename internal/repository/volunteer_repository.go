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

const volunteerColumns = `id, name, email, phone, skills, availability, motivation, status, created_at, updated_at`

// VolunteerRepository persists volunteer registrations.
type VolunteerRepository struct {
	db *sqlx.DB
}

// NewVolunteerRepository constructs the repository.
func NewVolunteerRepository(db *sqlx.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// Create inserts a volunteer.
func (r *VolunteerRepository) Create(ctx context.Context, volunteer *models.Volunteer) error {
	if volunteer.ID == "" {
		volunteer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	volunteer.CreatedAt = now
	volunteer.UpdatedAt = now
	if volunteer.Status == "" {
		volunteer.Status = models.VolunteerStatusPending
	}
	const query = `INSERT INTO volunteers (` + volunteerColumns + `) VALUES (:id, :name, :email, :phone, :skills, :availability, :motivation, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	return nil
}

// FindByID loads a volunteer.
func (r *VolunteerRepository) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, `SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find volunteer: %w", err)
	}
	return &volunteer, nil
}

// List returns volunteers newest first.
func (r *VolunteerRepository) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error) {
	_, size, offset := models.PageBounds(filter.Page, filter.PageSize, 20)
	where := ""
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = " WHERE status = $1"
	}
	var volunteers []models.Volunteer
	query := fmt.Sprintf("SELECT %s FROM volunteers%s ORDER BY created_at DESC LIMIT %d OFFSET %d", volunteerColumns, where, size, offset)
	if err := r.db.SelectContext(ctx, &volunteers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list volunteers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM volunteers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count volunteers: %w", err)
	}
	return volunteers, total, nil
}

// UpdateStatus changes the review status.
func (r *VolunteerRepository) UpdateStatus(ctx context.Context, id string, status models.VolunteerStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE volunteers SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update volunteer status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a volunteer.
func (r *VolunteerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM volunteers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete volunteer: %w", err)
	}
	return requireAffected(res)
}

// ListEmails returns distinct emails of accepted volunteers.
func (r *VolunteerRepository) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, `SELECT DISTINCT LOWER(email) FROM volunteers WHERE status = $1 ORDER BY 1`, models.VolunteerStatusAccepted); err != nil {
		return nil, fmt.Errorf("list volunteer emails: %w", err)
	}
	return emails, nil
}
