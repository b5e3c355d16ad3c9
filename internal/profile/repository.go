package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const profileColumns = "user_id, display_name, profile_icon, color_scheme, total_questions, correct_answers, level, wrong_answers, created_at, updated_at"

// DBRepository implements Store on MySQL or Postgres.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// Get returns the profile of a user, or nil if not found.
func (r *DBRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p,
		r.db.Rebind("SELECT "+profileColumns+" FROM profiles WHERE user_id = ?"),
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(profile) > %w", err)
	}
	return &p, nil
}

// Create inserts a new profile.
func (r *DBRepository) Create(ctx context.Context, p *Profile) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("INSERT INTO profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		p.UserID, p.DisplayName, p.ProfileIcon, p.ColorScheme, p.TotalQuestions, p.CorrectAnswers,
		p.Level, p.WrongAnswers, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db.ExecContext(insert profile) > %w", err)
	}
	return nil
}

// Update overwrites every mutable column. The last writer wins.
func (r *DBRepository) Update(ctx context.Context, p *Profile) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE profiles SET display_name = ?, profile_icon = ?, color_scheme = ?,
		total_questions = ?, correct_answers = ?, level = ?, wrong_answers = ?, updated_at = ?
		WHERE user_id = ?`),
		p.DisplayName, p.ProfileIcon, p.ColorScheme, p.TotalQuestions, p.CorrectAnswers,
		p.Level, p.WrongAnswers, p.UpdatedAt, p.UserID)
	if err != nil {
		return fmt.Errorf("db.ExecContext(update profile) > %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected() > %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update profile %s: no rows affected", p.UserID)
	}
	return nil
}
