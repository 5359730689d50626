package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/elevate-booking-api/internal/models"
)

// BlockedDateRepository stores whole-day closures.
type BlockedDateRepository struct {
	db *sqlx.DB
}

// NewBlockedDateRepository constructs the repository.
func NewBlockedDateRepository(db *sqlx.DB) *BlockedDateRepository {
	return &BlockedDateRepository{db: db}
}

// List returns blocked dates ordered by date, optionally bounded.
func (r *BlockedDateRepository) List(ctx context.Context, from, to *models.Date) ([]models.BlockedDate, error) {
	b := psql.Select("id, date, reason, created_at").From("blocked_dates")
	if from != nil {
		b = b.Where(sq.GtOrEq{"date": *from})
	}
	if to != nil {
		b = b.Where(sq.LtOrEq{"date": *to})
	}
	query, args, err := b.OrderBy("date ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blocked dates query: %w", err)
	}
	var dates []models.BlockedDate
	if err := r.db.SelectContext(ctx, &dates, query, args...); err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	return dates, nil
}

// Exists reports whether date is blocked.
func (r *BlockedDateRepository) Exists(ctx context.Context, date models.Date) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE date = $1)`, date); err != nil {
		return false, fmt.Errorf("check blocked date: %w", err)
	}
	return exists, nil
}

// Create inserts a blocked date. Duplicates surface as a unique violation.
func (r *BlockedDateRepository) Create(ctx context.Context, blocked *models.BlockedDate) error {
	if blocked.ID == "" {
		blocked.ID = uuid.NewString()
	}
	if blocked.CreatedAt.IsZero() {
		blocked.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO blocked_dates (id, date, reason, created_at) VALUES (:id, :date, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, blocked); err != nil {
		return fmt.Errorf("create blocked date: %w", err)
	}
	return nil
}

// Delete removes a blocked date. Missing ids are not an error.
func (r *BlockedDateRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete blocked date: %w", err)
	}
	return nil
}
