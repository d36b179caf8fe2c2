package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var enrollmentRowColumns = []string{"id", "name", "email", "phone", "age", "education_level", "courses_interested", "has_laptop", "experience", "motivation", "heard_about", "status", "assigned_course", "notes", "offer_letter_url", "created_at", "updated_at"}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bootcamp_enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{Name: "Ada", Email: "ada@example.com", CoursesInterested: pq.StringArray{"go"}}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListWithSearchAndStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("enr-1", "Ada", "ada@example.com", "0812", 21, "BACHELOR", "{go,web}", true, "", "", "", "APPROVED", "go", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bootcamp_enrollments WHERE status = $1 AND (LOWER(name) LIKE $2 OR LOWER(email) LIKE $2 OR phone LIKE $2) ORDER BY created_at DESC LIMIT 100 OFFSET 100")).
		WithArgs(models.EnrollmentStatusApproved, "%ada%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bootcamp_enrollments WHERE status = $1")).
		WithArgs(models.EnrollmentStatusApproved, "%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.EnrollmentFilter{Status: models.EnrollmentStatusApproved, Search: " Ada ", Page: 2, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 11, total)
	assert.Equal(t, []string{"go", "web"}, []string(list[0].CoursesInterested))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = 'PENDING') AS pending")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "approved", "rejected", "waitlisted"}).AddRow(5, 1, 2, 1, 1))

	counts, err := repo.CountByStatus(context.Background(), models.EnrollmentFilter{Status: models.EnrollmentStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 5, counts.Total)
	assert.Equal(t, 2, counts.Approved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bootcamp_enrollments SET status = $2, assigned_course = $3, notes = COALESCE($4, notes), updated_at = $5 WHERE id = $1")).
		WithArgs("missing", models.EnrollmentStatusRejected, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.EnrollmentStatusRejected, nil, nil, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListApprovedByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	course := "go"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, status, assigned_course FROM bootcamp_enrollments WHERE LOWER(email) = LOWER($1) AND status = $2")).
		WithArgs("Ada@Example.com", models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "assigned_course"}).AddRow("enr-1", "Ada", "APPROVED", course))

	rows, err := repo.ListApprovedByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].AssignedCourse)
	assert.Equal(t, "go", *rows[0].AssignedCourse)
	require.NoError(t, mock.ExpectationsWereMet())
}
