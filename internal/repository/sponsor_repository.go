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

const sponsorColumns = `id, company_name, contact_name, email, phone, website, tier, message, status, created_at, updated_at`

// SponsorRepository persists sponsorship applications.
type SponsorRepository struct {
	db *sqlx.DB
}

// NewSponsorRepository constructs the repository.
func NewSponsorRepository(db *sqlx.DB) *SponsorRepository {
	return &SponsorRepository{db: db}
}

// Create inserts a sponsor application.
func (r *SponsorRepository) Create(ctx context.Context, sponsor *models.Sponsor) error {
	if sponsor.ID == "" {
		sponsor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sponsor.CreatedAt = now
	sponsor.UpdatedAt = now
	if sponsor.Status == "" {
		sponsor.Status = models.SponsorStatusPending
	}
	const query = `INSERT INTO sponsors (` + sponsorColumns + `) VALUES (:id, :company_name, :contact_name, :email, :phone, :website, :tier, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sponsor); err != nil {
		return fmt.Errorf("create sponsor: %w", err)
	}
	return nil
}

// FindByID loads a sponsor.
func (r *SponsorRepository) FindByID(ctx context.Context, id string) (*models.Sponsor, error) {
	var sponsor models.Sponsor
	if err := r.db.GetContext(ctx, &sponsor, `SELECT `+sponsorColumns+` FROM sponsors WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find sponsor: %w", err)
	}
	return &sponsor, nil
}

// List returns sponsors newest first.
func (r *SponsorRepository) List(ctx context.Context, filter models.SponsorFilter) ([]models.Sponsor, int, error) {
	_, size, offset := models.PageBounds(filter.Page, filter.PageSize, 20)
	where := ""
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = " WHERE status = $1"
	}
	var sponsors []models.Sponsor
	query := fmt.Sprintf("SELECT %s FROM sponsors%s ORDER BY created_at DESC LIMIT %d OFFSET %d", sponsorColumns, where, size, offset)
	if err := r.db.SelectContext(ctx, &sponsors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sponsors: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sponsors"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count sponsors: %w", err)
	}
	return sponsors, total, nil
}

// UpdateStatus changes the review status.
func (r *SponsorRepository) UpdateStatus(ctx context.Context, id string, status models.SponsorStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sponsors SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update sponsor status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a sponsor.
func (r *SponsorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sponsors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sponsor: %w", err)
	}
	return requireAffected(res)
}

// ListEmails returns distinct contact emails of approved sponsors.
func (r *SponsorRepository) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, `SELECT DISTINCT LOWER(email) FROM sponsors WHERE status = $1 ORDER BY 1`, models.SponsorStatusApproved); err != nil {
		return nil, fmt.Errorf("list sponsor emails: %w", err)
	}
	return emails, nil
}
