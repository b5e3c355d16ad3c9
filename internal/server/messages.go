package server

import (
	"time"

	"github.com/at-ishikawa/mentalmath/internal/auth"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/session"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" validate:"max=50"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the new session. ConfirmationPending is set when
// the provider created the account but issued no tokens yet.
type AuthResponse struct {
	AccessToken         string     `json:"access_token,omitempty"`
	RefreshToken        string     `json:"refresh_token,omitempty"`
	ExpiresAt           time.Time  `json:"expires_at,omitzero"`
	User                *auth.User `json:"user,omitempty"`
	ConfirmationPending bool       `json:"confirmation_pending"`
}

type StartSessionRequest struct {
	Mode        string   `json:"mode" validate:"required,oneof=practice timed drill"`
	Operations  []string `json:"operations" validate:"required,min=1,dive,required"`
	Difficulty  string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	LeftDigits  int      `json:"left_digits" validate:"omitempty,min=1,max=6"`
	RightDigits int      `json:"right_digits" validate:"omitempty,min=1,max=6"`
	TimeLimit   int      `json:"time_limit" validate:"omitempty,min=10,max=600"`
}

// SessionRequest addresses one running session.
type SessionRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

type SubmitAnswerRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Answer    string `json:"answer" validate:"required"`
}

// QuestionView is a question without its answer.
type QuestionView struct {
	Operation question.Operation `json:"operation"`
	Prompt    string             `json:"prompt"`
}

func newQuestionView(q *question.Question) *QuestionView {
	if q == nil {
		return nil
	}
	return &QuestionView{Operation: q.Operation, Prompt: q.Prompt}
}

// SessionView is the client's view of a session.
type SessionView struct {
	SessionID    string        `json:"session_id"`
	Mode         session.Mode  `json:"mode"`
	State        string        `json:"state"`
	Question     *QuestionView `json:"question,omitempty"`
	AwaitingNext bool          `json:"awaiting_next"`
	Total        int           `json:"total"`
	Correct      int           `json:"correct"`
	Mistakes     int           `json:"mistakes"`
	Accuracy     int           `json:"accuracy"`
	TimeLeft     int           `json:"time_left"`
	TimeLimit    int           `json:"time_limit"`
	Clock        string        `json:"clock,omitempty"`
}

func newSessionView(id string, snapshot session.Snapshot) *SessionView {
	view := &SessionView{
		SessionID:    id,
		Mode:         snapshot.Mode,
		State:        snapshot.State,
		Question:     newQuestionView(snapshot.Question),
		AwaitingNext: snapshot.AwaitingNext,
		Total:        snapshot.Total,
		Correct:      snapshot.Correct,
		Mistakes:     snapshot.Mistakes,
		Accuracy:     snapshot.Accuracy,
		TimeLeft:     snapshot.TimeLeft,
		TimeLimit:    snapshot.TimeLimit,
	}
	if snapshot.Mode == session.ModeTimed {
		view.Clock = session.FormatClock(snapshot.TimeLeft)
	}
	return view
}

type SubmitAnswerResponse struct {
	Correct  bool          `json:"correct"`
	Expected string        `json:"expected"`
	Next     *QuestionView `json:"next,omitempty"`
	Session  *SessionView  `json:"session"`
}

type GetProfileRequest struct{}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=50"`
	ProfileIcon *string `json:"profile_icon,omitempty" validate:"omitempty,max=16"`
	ColorScheme *string `json:"color_scheme,omitempty"`
}

type ProfileResponse struct {
	Profile *profile.Profile `json:"profile"`
}

type GetStatsRequest struct{}

type StatsResponse struct {
	Stats statistics.Summary `json:"stats"`
}

type GetStatisticsRequest struct {
	Year  int `json:"year" validate:"omitempty,min=1970,max=9999"`
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
}

type StatisticsResponse struct {
	Statistics statistics.StatisticsResult `json:"statistics"`
}
