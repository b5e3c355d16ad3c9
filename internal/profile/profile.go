// Package profile owns the per-user profile record: display settings,
// answer counters, level and the wrong-answer log.
package profile

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Defaults for a freshly created profile.
const (
	DefaultDisplayName = "Math Learner"
	DefaultProfileIcon = "🧮"
	DefaultColorScheme = "cyan"
)

// ColorSchemes lists the selectable color schemes, default first.
var ColorSchemes = []string{"cyan", "purple", "green", "orange", "blue", "pink", "neon", "sunset"}

// ErrUnknownColorScheme is returned by Patch.Validate.
var ErrUnknownColorScheme = errors.New("unknown color scheme")

// ErrInvalidUserID is returned for ids that cannot name a file.
var ErrInvalidUserID = errors.New("invalid user id")

// ValidateUserID rejects ids that are empty or could escape a directory
// when used in a file name.
func ValidateUserID(userID string) error {
	if userID == "" || strings.Contains(userID, "..") || strings.ContainsAny(userID, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return nil
}

// Profile is the persisted record of one user.
type Profile struct {
	UserID         string         `db:"user_id" bson:"_id" yaml:"user_id" json:"user_id"`
	DisplayName    string         `db:"display_name" bson:"display_name" yaml:"display_name" json:"display_name"`
	ProfileIcon    string         `db:"profile_icon" bson:"profile_icon" yaml:"profile_icon" json:"profile_icon"`
	ColorScheme    string         `db:"color_scheme" bson:"color_scheme" yaml:"color_scheme" json:"color_scheme"`
	TotalQuestions int            `db:"total_questions" bson:"total_questions" yaml:"total_questions" json:"total_questions"`
	CorrectAnswers int            `db:"correct_answers" bson:"correct_answers" yaml:"correct_answers" json:"correct_answers"`
	Level          int            `db:"level" bson:"level" yaml:"level" json:"level"`
	WrongAnswers   WrongAnswerLog `db:"wrong_answers" bson:"wrong_answers" yaml:"wrong_answers" json:"wrong_answers"`
	CreatedAt      time.Time      `db:"created_at" bson:"created_at" yaml:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" bson:"updated_at" yaml:"updated_at" json:"updated_at"`
}

// Seed carries the optional fields of a new profile.
type Seed struct {
	DisplayName string
	ProfileIcon string
}

// Owner is the identity a profile is initialized for.
type Owner struct {
	UserID      string
	Email       string
	DisplayName string
}

// defaultDisplayName prefers the user's own name, then the local part of
// the email.
func (o Owner) defaultDisplayName() string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	if local, _, ok := strings.Cut(o.Email, "@"); ok && local != "" {
		return local
	}
	return DefaultDisplayName
}

// New builds a profile with zero counters at level 1.
func New(userID string, seed Seed, now time.Time) *Profile {
	p := &Profile{
		UserID:       userID,
		DisplayName:  seed.DisplayName,
		ProfileIcon:  seed.ProfileIcon,
		ColorScheme:  DefaultColorScheme,
		Level:        1,
		WrongAnswers: WrongAnswerLog{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName
	}
	if p.ProfileIcon == "" {
		p.ProfileIcon = DefaultProfileIcon
	}
	return p
}

// Patch is a partial update of the user-editable fields.
type Patch struct {
	DisplayName *string `json:"display_name,omitempty"`
	ProfileIcon *string `json:"profile_icon,omitempty"`
	ColorScheme *string `json:"color_scheme,omitempty"`
}

// Validate rejects color schemes outside the catalogue.
func (p Patch) Validate() error {
	if p.ColorScheme != nil && !slices.Contains(ColorSchemes, *p.ColorScheme) {
		return fmt.Errorf("%w: %q", ErrUnknownColorScheme, *p.ColorScheme)
	}
	return nil
}

func (p Patch) apply(profile *Profile) {
	if p.DisplayName != nil {
		profile.DisplayName = *p.DisplayName
	}
	if p.ProfileIcon != nil {
		profile.ProfileIcon = *p.ProfileIcon
	}
	if p.ColorScheme != nil {
		profile.ColorScheme = *p.ColorScheme
	}
}

// Retention bounds the wrong-answer log. Zero values mean unbounded.
type Retention struct {
	Days      int
	MaxPerDay int
}

// WrongAnswerLog maps a UTC day (YYYY-MM-DD) to the wrong answers given that day, oldest first.
type WrongAnswerLog map[string][]string

// FormatWrongAnswer renders one log record.
func FormatWrongAnswer(prompt, expected, given string) string {
	return fmt.Sprintf("%s = %s (you answered %s)", prompt, expected, given)
}

// Append adds a record to the day of at and prunes the log.
func (l WrongAnswerLog) Append(at time.Time, record string, retention Retention) {
	day := at.UTC().Format(time.DateOnly)
	l[day] = append(l[day], record)
	l.Prune(at, retention)
}

// Prune drops days older than the retention window and the oldest
// records of days over the per-day cap.
func (l WrongAnswerLog) Prune(now time.Time, retention Retention) {
	if retention.Days > 0 {
		oldest := now.UTC().AddDate(0, 0, -(retention.Days - 1)).Format(time.DateOnly)
		for day := range l {
			if day < oldest {
				delete(l, day)
			}
		}
	}
	if retention.MaxPerDay > 0 {
		for day, records := range l {
			if len(records) > retention.MaxPerDay {
				l[day] = slices.Clone(records[len(records)-retention.MaxPerDay:])
			}
		}
	}
}

// Days returns the logged days, newest first.
func (l WrongAnswerLog) Days() []string {
	days := make([]string, 0, len(l))
	for day := range l {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days
}

// Len counts every record.
func (l WrongAnswerLog) Len() int {
	var n int
	for _, records := range l {
		n += len(records)
	}
	return n
}

// Value stores the log as a JSON column.
func (l WrongAnswerLog) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string][]string(l))
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(wrong_answers) > %w", err)
	}
	return string(b), nil
}

// Scan reads the log from a JSON column.
func (l *WrongAnswerLog) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = WrongAnswerLog{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported wrong_answers type %T", src)
	}

	log := WrongAnswerLog{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &log); err != nil {
			return fmt.Errorf("json.Unmarshal(wrong_answers) > %w", err)
		}
	}
	if log == nil {
		log = WrongAnswerLog{}
	}
	*l = log
	return nil
}

//go:generate mockgen -source=profile.go -destination=../mocks/profile/mock_profile.go -package=mock_profile Store

// Store is a remote profile store. Get returns nil without an error when
// no profile exists for the user.
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, profile *Profile) error
}

// PersistenceError reports a failed read or write against one backend.
type PersistenceError struct {
	Op      string
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s profile on %s: %v", e.Op, e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
