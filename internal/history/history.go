// Package history stores one record per submitted answer.
package history

import (
	"context"
	"time"
)

// Attempt is one graded submission.
type Attempt struct {
	ID         int64     `db:"id" yaml:"id"`
	UserID     string    `db:"user_id" yaml:"user_id"`
	Mode       string    `db:"mode" yaml:"mode"`
	Operation  string    `db:"operation" yaml:"operation"`
	Prompt     string    `db:"prompt" yaml:"prompt"`
	Expected   string    `db:"expected" yaml:"expected"`
	Given      string    `db:"given" yaml:"given"`
	Correct    bool      `db:"correct" yaml:"correct"`
	AnsweredAt time.Time `db:"answered_at" yaml:"answered_at"`
	CreatedAt  time.Time `db:"created_at" yaml:"created_at"`
}

//go:generate mockgen -source=history.go -destination=../mocks/history/mock_history.go -package=mock_history Repository

// Repository defines operations for managing attempts.
type Repository interface {
	FindByUser(ctx context.Context, userID string) ([]Attempt, error)
	Create(ctx context.Context, attempt *Attempt) error
	DeleteByUser(ctx context.Context, userID string) error
}
