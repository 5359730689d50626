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

// BlockedSlotRepository stores single-slot closures.
type BlockedSlotRepository struct {
	db *sqlx.DB
}

// NewBlockedSlotRepository constructs the repository.
func NewBlockedSlotRepository(db *sqlx.DB) *BlockedSlotRepository {
	return &BlockedSlotRepository{db: db}
}

// List returns blocked slots ordered by date and time, optionally bounded.
func (r *BlockedSlotRepository) List(ctx context.Context, from, to *models.Date) ([]models.BlockedSlot, error) {
	b := psql.Select("id, date, time_slot, reason, created_at").From("blocked_slots")
	if from != nil {
		b = b.Where(sq.GtOrEq{"date": *from})
	}
	if to != nil {
		b = b.Where(sq.LtOrEq{"date": *to})
	}
	query, args, err := b.OrderBy("date ASC", "time_slot ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blocked slots query: %w", err)
	}
	var slots []models.BlockedSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	return slots, nil
}

// TimesOn returns the blocked slot labels for date.
func (r *BlockedSlotRepository) TimesOn(ctx context.Context, date models.Date) ([]string, error) {
	var times []string
	if err := r.db.SelectContext(ctx, &times, `SELECT time_slot FROM blocked_slots WHERE date = $1 ORDER BY time_slot`, date); err != nil {
		return nil, fmt.Errorf("list blocked slot times: %w", err)
	}
	return times, nil
}

// Create inserts a blocked slot. Duplicates surface as a unique violation.
func (r *BlockedSlotRepository) Create(ctx context.Context, slot *models.BlockedSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO blocked_slots (id, date, time_slot, reason, created_at) VALUES (:id, :date, :time_slot, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create blocked slot: %w", err)
	}
	return nil
}

// Delete removes a blocked slot. Missing ids are not an error.
func (r *BlockedSlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete blocked slot: %w", err)
	}
	return nil
}
