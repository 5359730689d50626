package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/pkg/database"
)

func TestWorkingHoursReplaceAllCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkingHoursRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM working_hours")).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO working_hours").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO working_hours").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rules := []models.WorkingHoursRule{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsActive: true},
		{DayOfWeek: 2, StartTime: "10:00", EndTime: "16:00", IsActive: true},
	}
	require.NoError(t, repo.ReplaceAll(context.Background(), rules))
	assert.NotEmpty(t, rules[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkingHoursReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkingHoursRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM working_hours")).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO working_hours").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), []models.WorkingHoursRule{{DayOfWeek: 3, StartTime: "09:00", EndTime: "17:00", IsActive: true}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkingHoursListActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkingHoursRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time", "is_active", "created_at"}).
		AddRow("w1", 1, "09:00", "17:00", true, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM working_hours WHERE is_active = TRUE ORDER BY day_of_week")).WillReturnRows(rows)

	rules, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedDateRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockedDateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE date = $1)")).
		WithArgs("2025-12-25").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	blocked, err := repo.Exists(context.Background(), models.MustParseDate("2025-12-25"))
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedDateRepositoryListBounded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockedDateRepository(db)

	from := models.MustParseDate("2025-06-02")
	to := models.MustParseDate("2025-07-01")
	rows := sqlmock.NewRows([]string{"id", "date", "reason", "created_at"}).
		AddRow("d1", "2025-06-10", "Offsite", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, date, reason, created_at FROM blocked_dates WHERE date >= $1 AND date <= $2 ORDER BY date ASC")).
		WithArgs("2025-06-02", "2025-07-01").
		WillReturnRows(rows)

	dates, err := repo.List(context.Background(), &from, &to)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "Offsite", *dates[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedDateRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockedDateRepository(db)

	mock.ExpectExec("INSERT INTO blocked_dates").WillReturnError(&pq.Error{Code: "23505", Constraint: "blocked_dates_date_key"})

	err := repo.Create(context.Background(), &models.BlockedDate{Date: models.MustParseDate("2025-12-25")})
	assert.True(t, database.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedDateRepositoryDeleteMissingIsNotAnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockedDateRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blocked_dates WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedSlotRepositoryTimesOn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockedSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT time_slot FROM blocked_slots WHERE date = $1 ORDER BY time_slot")).
		WithArgs("2025-06-02").
		WillReturnRows(sqlmock.NewRows([]string{"time_slot"}).AddRow("12:00").AddRow("12:30"))

	times, err := repo.TimesOn(context.Background(), models.MustParseDate("2025-06-02"))
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "12:30"}, times)
	assert.NoError(t, mock.ExpectationsWereMet())
}
