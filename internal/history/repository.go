package history

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DBRepository implements Repository on MySQL or Postgres.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// FindByUser returns every attempt of a user, oldest first.
func (r *DBRepository) FindByUser(ctx context.Context, userID string) ([]Attempt, error) {
	var attempts []Attempt
	query := r.db.Rebind("SELECT * FROM attempts WHERE user_id = ? ORDER BY answered_at, id")
	if err := r.db.SelectContext(ctx, &attempts, query, userID); err != nil {
		return nil, fmt.Errorf("db.SelectContext(attempts by user) > %w", err)
	}
	return attempts, nil
}

// Create inserts a new attempt.
func (r *DBRepository) Create(ctx context.Context, attempt *Attempt) error {
	query := r.db.Rebind(`INSERT INTO attempts (user_id, mode, operation, prompt, expected, given, correct, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []any{
		attempt.UserID, attempt.Mode, attempt.Operation, attempt.Prompt,
		attempt.Expected, attempt.Given, attempt.Correct, attempt.AnsweredAt,
	}

	// pgx does not support LastInsertId
	if r.db.DriverName() == "pgx" {
		if err := r.db.GetContext(ctx, &attempt.ID, query+" RETURNING id", args...); err != nil {
			return fmt.Errorf("db.GetContext(insert attempt) > %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db.ExecContext(insert attempt) > %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("result.LastInsertId() > %w", err)
	}
	attempt.ID = id
	return nil
}

// DeleteByUser removes every attempt of a user.
func (r *DBRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM attempts WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("db.ExecContext(delete attempts) > %w", err)
	}
	return nil
}
