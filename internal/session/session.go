// Package session drives one practice surface through setup, an active
// question loop and results.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/at-ishikawa/mentalmath/internal/answer"
	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

// Mode is the practice surface a session belongs to.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeTimed    Mode = "timed"
	ModeDrill    Mode = "drill"
)

// ParseMode converts a user-supplied name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePractice, ModeTimed, ModeDrill:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, s)
}

// State is the screen a session is on.
type State int

const (
	StateSetup State = iota
	StateActive
	StateResults
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateResults:
		return "results"
	}
	return "setup"
}

// Time limits for timed challenges, in seconds.
const (
	MinTimeLimit     = 10
	MaxTimeLimit     = 600
	DefaultTimeLimit = 60
)

var (
	ErrInvalidSettings = errors.New("invalid session settings")
	ErrNotActive       = errors.New("session is not active")
	ErrAwaitingNext    = errors.New("answer already graded, request the next question")
	ErrNotFinished     = errors.New("session has not finished")
)

// Settings is what the setup screen collects.
type Settings struct {
	Mode       Mode                 `json:"mode"`
	Operations []question.Operation `json:"operations"`
	Params     question.Params      `json:"params"`
	TimeLimit  int                  `json:"time_limit,omitempty"`
}

// Validate reports whether the settings can start a session.
func (s Settings) Validate() error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if len(s.Operations) == 0 {
		return fmt.Errorf("%w: at least one operation is required", ErrInvalidSettings)
	}
	if s.Mode != ModePractice && len(s.Operations) != 1 {
		return fmt.Errorf("%w: %s sessions take exactly one operation", ErrInvalidSettings, s.Mode)
	}
	for _, op := range s.Operations {
		if _, err := question.ParseOperation(string(op)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if s.Mode == ModeTimed && (s.TimeLimit < MinTimeLimit || s.TimeLimit > MaxTimeLimit) {
		return fmt.Errorf("%w: time limit must be between %d and %d seconds, got %d",
			ErrInvalidSettings, MinTimeLimit, MaxTimeLimit, s.TimeLimit)
	}
	return nil
}

//go:generate mockgen -source=session.go -destination=../mocks/session/mock_session.go -package=mock_session Generator Recorder

// Generator produces questions.
type Generator interface {
	Generate(op question.Operation, params question.Params) (question.Question, error)
}

// Recorder persists graded answers. Calls are fire-and-forget.
type Recorder interface {
	RecordAnswer(ctx context.Context, outcome Outcome)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, outcome Outcome)

func (f RecorderFunc) RecordAnswer(ctx context.Context, outcome Outcome) { f(ctx, outcome) }

// Outcome is one graded submission.
type Outcome struct {
	Mode       Mode
	Question   question.Question
	Given      string
	Correct    bool
	Generation uint64
	AnsweredAt time.Time
}

// Result is returned from Submit.
type Result struct {
	Verdict  answer.Verdict     `json:"verdict"`
	Expected string             `json:"expected"`
	Next     *question.Question `json:"next,omitempty"`
}

// Snapshot is a read-only copy of session state.
type Snapshot struct {
	Mode         Mode               `json:"mode"`
	State        string             `json:"state"`
	Question     *question.Question `json:"question,omitempty"`
	AwaitingNext bool               `json:"awaiting_next"`
	Total        int                `json:"total"`
	Correct      int                `json:"correct"`
	Mistakes     int                `json:"mistakes"`
	Accuracy     int                `json:"accuracy"`
	TimeLeft     int                `json:"time_left"`
	TimeLimit    int                `json:"time_limit"`
	Generation   uint64             `json:"generation"`
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder sets where graded answers are sent.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithDispatcher replaces the default `go f()` used to run recorder calls.
func WithDispatcher(dispatch func(func())) Option {
	return func(s *Session) { s.dispatch = dispatch }
}

// WithRand sets the source used to pick among practice operations.
func WithRand(rng question.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithClock overrides time.Now for answer timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	generator Generator
	settings  Settings
	recorder  Recorder
	dispatch  func(func())
	rng       question.Rand
	now       func() time.Time

	state        State
	current      *question.Question
	awaitingNext bool
	total        int
	correct      int
	timeLeft     int
	generation   uint64
	stopped      chan struct{}
}

// New creates a session in the Setup state.
func New(generator Generator, settings Settings, opts ...Option) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		generator: generator,
		settings:  settings,
		dispatch:  func(f func()) { go f() },
		rng:       question.GlobalRand{},
		now:       time.Now,
		state:     StateSetup,
		timeLeft:  settings.TimeLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Settings returns the settings the session was created with.
func (s *Session) Settings() Settings {
	return s.settings
}

// Start leaves Setup (or Results) and generates the first question.
func (s *Session) Start() (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin()
}

// Retry restarts a finished session with reset counters.
func (s *Session) Retry() (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateResults {
		return question.Question{}, ErrNotFinished
	}
	return s.begin()
}

// Reset returns to Setup.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.halt()
	s.state = StateSetup
	s.current = nil
	s.awaitingNext = false
	s.total, s.correct = 0, 0
	s.timeLeft = s.settings.TimeLimit
}

func (s *Session) begin() (question.Question, error) {
	s.generation++
	s.total, s.correct = 0, 0
	s.timeLeft = s.settings.TimeLimit
	s.awaitingNext = false
	s.halt()
	s.state = StateActive
	s.stopped = make(chan struct{})
	q, err := s.advance()
	if err != nil {
		s.halt()
		s.state = StateSetup
		return question.Question{}, err
	}
	return q, nil
}

func (s *Session) advance() (question.Question, error) {
	ops := s.settings.Operations
	op := ops[0]
	if len(ops) > 1 {
		op = ops[s.rng.IntN(len(ops))]
	}
	q, err := s.generator.Generate(op, s.settings.Params)
	if err != nil {
		return question.Question{}, fmt.Errorf("generate %s question: %w", op, err)
	}
	s.current = &q
	s.awaitingNext = false
	return q, nil
}

// Submit grades input against the current question. Invalid input is
// rejected with answer.ErrInvalidInput and does not count as an attempt.
func (s *Session) Submit(ctx context.Context, input string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.current == nil {
		return Result{}, ErrNotActive
	}
	if s.awaitingNext {
		return Result{}, ErrAwaitingNext
	}

	current := *s.current
	verdict, err := answer.Validate(input, current.Answer)
	if err != nil {
		return Result{}, fmt.Errorf("validate answer: %w", err)
	}

	s.total++
	if verdict == answer.Correct {
		s.correct++
	}
	s.record(ctx, Outcome{
		Mode:       s.settings.Mode,
		Question:   current,
		Given:      input,
		Correct:    verdict == answer.Correct,
		Generation: s.generation,
		AnsweredAt: s.now(),
	})

	result := Result{Verdict: verdict, Expected: current.Answer}
	if verdict == answer.Incorrect && s.settings.Mode == ModePractice {
		s.awaitingNext = true
		return result, nil
	}
	next, err := s.advance()
	if err != nil {
		return result, err
	}
	result.Next = &next
	return result, nil
}

func (s *Session) record(ctx context.Context, outcome Outcome) {
	if s.recorder == nil {
		return
	}
	recorder := s.recorder
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		recorder.RecordAnswer(detached, outcome)
	})
}

// Next moves past a graded question.
func (s *Session) Next() (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return question.Question{}, ErrNotActive
	}
	return s.advance()
}

// Tick advances a timed session's countdown by one second. It reports
// whether the session is still running afterwards.
func (s *Session) Tick() bool {
	_, running := s.tick()
	return running
}

func (s *Session) tick() (ticked, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || s.settings.Mode != ModeTimed {
		return false, false
	}
	s.timeLeft--
	if s.timeLeft <= 0 {
		s.timeLeft = 0
		s.finish()
		return true, false
	}
	return true, true
}

// Stop ends the session and shows results.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive {
		s.finish()
	}
}

func (s *Session) finish() {
	s.halt()
	s.state = StateResults
	s.current = nil
	s.awaitingNext = false
}

func (s *Session) halt() {
	if s.stopped != nil {
		close(s.stopped)
		s.stopped = nil
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done returns a channel closed when the current run leaves Active. It is
// already closed when the session is not Active.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped == nil {
		return closedChan
	}
	return s.stopped
}

// Running reports whether the session is Active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateActive
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current *question.Question
	if s.current != nil {
		q := *s.current
		current = &q
	}
	return Snapshot{
		Mode:         s.settings.Mode,
		State:        s.state.String(),
		Question:     current,
		AwaitingNext: s.awaitingNext,
		Total:        s.total,
		Correct:      s.correct,
		Mistakes:     s.total - s.correct,
		Accuracy:     statistics.Accuracy(s.correct, s.total),
		TimeLeft:     s.timeLeft,
		TimeLimit:    s.settings.TimeLimit,
		Generation:   s.generation,
	}
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
