package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/elevate-booking-api/internal/models"
)

const bookingColumns = "id, name, email, service, date, time, status, timezone, notes, created_at, updated_at"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func occupyingStatusValues() []string {
	values := make([]string, len(models.OccupyingStatuses))
	for i, s := range models.OccupyingStatuses {
		values[i] = string(s)
	}
	return values
}

func applyBookingFilter(b sq.SelectBuilder, filter models.BookingFilter) sq.SelectBuilder {
	if filter.Status != nil {
		b = b.Where(sq.Eq{"status": string(*filter.Status)})
	}
	if filter.From != nil {
		b = b.Where(sq.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		b = b.Where(sq.LtOrEq{"date": *filter.To})
	}
	if filter.Email != "" {
		b = b.Where(sq.Eq{"email": filter.Email})
	}
	return b
}

// List returns a page of bookings ordered by date then time, with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	page, size := models.NormalizePage(filter.Page, filter.PageSize)

	listQuery, args, err := applyBookingFilter(psql.Select(bookingColumns).From("bookings"), filter).
		OrderBy("date ASC", "time ASC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query: %w", err)
	}
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery, countArgs, err := applyBookingFilter(psql.Select("COUNT(*)").From("bookings"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count bookings query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// ListAll returns every booking matching filter, ignoring pagination.
func (r *BookingRepository) ListAll(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	query, args, err := applyBookingFilter(psql.Select(bookingColumns).From("bookings"), filter).
		OrderBy("date ASC", "time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build export bookings query: %w", err)
	}
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list all bookings: %w", err)
	}
	return bookings, nil
}

// FindByID returns a booking or sql.ErrNoRows.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// OccupiedTimes lists the slot labels held on date by occupying bookings.
func (r *BookingRepository) OccupiedTimes(ctx context.Context, date models.Date) ([]string, error) {
	query, args, err := psql.Select("time").From("bookings").
		Where(sq.Eq{"date": date, "status": occupyingStatusValues()}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build occupied times query: %w", err)
	}
	var times []string
	if err := r.db.SelectContext(ctx, &times, query, args...); err != nil {
		return nil, fmt.Errorf("list occupied times: %w", err)
	}
	return times, nil
}

// FindOccupying returns the occupying booking at (date, slot) other than excludeID,
// or sql.ErrNoRows when the slot is free.
func (r *BookingRepository) FindOccupying(ctx context.Context, date models.Date, slot, excludeID string) (*models.Booking, error) {
	b := psql.Select(bookingColumns).From("bookings").
		Where(sq.Eq{"date": date, "time": slot, "status": occupyingStatusValues()})
	if excludeID != "" {
		b = b.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := b.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build occupying booking query: %w", err)
	}
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find occupying booking: %w", err)
	}
	return &booking, nil
}

// Create inserts a booking. A duplicate occupying slot surfaces as a unique violation.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = booking.CreatedAt

	const query = `INSERT INTO bookings (id, name, email, service, date, time, status, timezone, notes, created_at, updated_at)
VALUES (:id, :name, :email, :service, :date, :time, :status, :timezone, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// UpdateStatus moves a booking from status from to status to. It returns
// sql.ErrNoRows when the booking is gone or no longer in from.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, updatedAt time.Time) error {
	const query = `UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, updatedAt)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return requireAffected(res)
}

// Reschedule moves a booking still in status from to a new slot and marks it
// rescheduled. It returns sql.ErrNoRows when the booking is gone or its status changed.
func (r *BookingRepository) Reschedule(ctx context.Context, id string, from models.BookingStatus, date models.Date, slot string, updatedAt time.Time) error {
	const query = `UPDATE bookings SET date = $3, time = $4, status = $5, updated_at = $6 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, date, slot, models.BookingRescheduled, updatedAt)
	if err != nil {
		return fmt.Errorf("reschedule booking: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a booking permanently.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return requireAffected(res)
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
