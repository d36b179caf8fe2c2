package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal-api/internal/models"
)

func TestSponsorRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSponsorRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sponsors WHERE status = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.SponsorStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_name", "contact_name", "email", "phone", "website", "tier", "message", "status", "created_at", "updated_at"}).
			AddRow("sp-1", "Acme", "Wile", "wile@acme.test", nil, nil, "GOLD", "hi", "PENDING", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sponsors WHERE status = $1")).
		WithArgs(models.SponsorStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sponsors, total, err := repo.List(context.Background(), models.SponsorFilter{Status: models.SponsorStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, sponsors, 1)
	assert.Equal(t, models.SponsorTierGold, sponsors[0].Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM volunteers WHERE id = $1")).
		WithArgs("vol-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "vol-x"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryListApprovedBySlug(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	approved := true
	mock.ExpectQuery(regexp.QuoteMeta("FROM comments WHERE post_slug = $1 AND approved = $2 ORDER BY created_at DESC")).
		WithArgs("hello-world", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_slug", "author_name", "author_email", "content", "approved", "created_at"}).
			AddRow("c-1", "hello-world", "Ada", "ada@example.com", "Nice", true, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM comments WHERE post_slug = $1 AND approved = $2")).
		WithArgs("hello-world", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	comments, total, err := repo.List(context.Background(), models.CommentFilter{PostSlug: "hello-world", Approved: &approved})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, comments, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
