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

const commentColumns = `id, post_slug, author_name, author_email, content, approved, created_at`

// CommentRepository persists blog comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (` + commentColumns + `) VALUES (:id, :post_slug, :author_name, :author_email, :content, :approved, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindByID loads a comment.
func (r *CommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &comment, nil
}

// List returns comments filtered by slug and approval, newest first.
func (r *CommentRepository) List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, int, error) {
	_, size, offset := models.PageBounds(filter.Page, filter.PageSize, 50)
	var conditions []string
	var args []interface{}
	if filter.PostSlug != "" {
		args = append(args, filter.PostSlug)
		conditions = append(conditions, fmt.Sprintf("post_slug = $%d", len(args)))
	}
	if filter.Approved != nil {
		args = append(args, *filter.Approved)
		conditions = append(conditions, fmt.Sprintf("approved = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var comments []models.Comment
	query := fmt.Sprintf("SELECT %s FROM comments%s ORDER BY created_at DESC LIMIT %d OFFSET %d", commentColumns, where, size, offset)
	if err := r.db.SelectContext(ctx, &comments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM comments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}
	return comments, total, nil
}

// Approve publishes a comment.
func (r *CommentRepository) Approve(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("approve comment: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireAffected(res)
}
