package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/elevate-booking-api/internal/models"
)

// WorkingHoursRepository stores the weekly opening rules.
type WorkingHoursRepository struct {
	db *sqlx.DB
}

// NewWorkingHoursRepository constructs the repository.
func NewWorkingHoursRepository(db *sqlx.DB) *WorkingHoursRepository {
	return &WorkingHoursRepository{db: db}
}

// ListActive returns active rules ordered by weekday.
func (r *WorkingHoursRepository) ListActive(ctx context.Context) ([]models.WorkingHoursRule, error) {
	const query = `SELECT id, day_of_week, start_time, end_time, is_active, created_at FROM working_hours WHERE is_active = TRUE ORDER BY day_of_week`
	var rules []models.WorkingHoursRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list working hours: %w", err)
	}
	return rules, nil
}

// ReplaceAll swaps the full rule set inside one transaction.
func (r *WorkingHoursRepository) ReplaceAll(ctx context.Context, rules []models.WorkingHoursRule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace working hours: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM working_hours`); err != nil {
		return fmt.Errorf("clear working hours: %w", err)
	}

	now := time.Now().UTC()
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = uuid.NewString()
		}
		if rules[i].CreatedAt.IsZero() {
			rules[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO working_hours (id, day_of_week, start_time, end_time, is_active, created_at) VALUES (:id, :day_of_week, :start_time, :end_time, :is_active, :created_at)`, &rules[i]); err != nil {
			return fmt.Errorf("insert working hours for day %d: %w", rules[i].DayOfWeek, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace working hours: %w", err)
	}
	return nil
}
