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
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
)

func newClassroomRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassroomRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"number", "block", "capacity", "is_lab", "created_at", "updated_at"}).
		AddRow("101", "A", 30, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT number, block, capacity, is_lab")).
		WithArgs("101", "A").
		WillReturnRows(rows)

	classroom, err := repo.FindByKey(context.Background(), "101", "A")
	require.NoError(t, err)
	require.Equal(t, "101-A", classroom.Key())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryFindByKeyMissing(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT number, block, capacity, is_lab")).
		WithArgs("999", "A").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByKey(context.Background(), "999", "A")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classrooms")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	classroom := &models.Classroom{Number: "101", Block: "A", Capacity: 30}
	require.NoError(t, repo.Create(context.Background(), classroom))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classrooms")).
		WillReturnError(&pq.Error{Code: "23505"})

	require.ErrorIs(t, repo.Create(context.Background(), classroom), ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryUpdateIdentityChange(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classrooms SET")).
		WithArgs("105", "B", 30, true, sqlmock.AnyArg(), "101", "A").
		WillReturnResult(sqlmock.NewResult(0, 1))

	classroom := &models.Classroom{Number: "105", Block: "B", Capacity: 30, IsLab: true}
	require.NoError(t, repo.Update(context.Background(), "101", "A", classroom))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()

	repo := NewClassroomRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classrooms")).
		WithArgs("999", "A").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "999", "A"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
