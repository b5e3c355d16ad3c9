// Package server provides Connect RPC handlers for the practice service.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/at-ishikawa/mentalmath/internal/answer"
	"github.com/at-ishikawa/mentalmath/internal/auth"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/session"
)

const ServiceName = "mentalmath.v1.PracticeService"

const (
	SignUpProcedure        = "/" + ServiceName + "/SignUp"
	SignInProcedure        = "/" + ServiceName + "/SignIn"
	StartSessionProcedure  = "/" + ServiceName + "/StartSession"
	SubmitAnswerProcedure  = "/" + ServiceName + "/SubmitAnswer"
	NextQuestionProcedure  = "/" + ServiceName + "/NextQuestion"
	StopSessionProcedure   = "/" + ServiceName + "/StopSession"
	GetSessionProcedure    = "/" + ServiceName + "/GetSession"
	GetProfileProcedure    = "/" + ServiceName + "/GetProfile"
	UpdateProfileProcedure = "/" + ServiceName + "/UpdateProfile"
	GetStatsProcedure      = "/" + ServiceName + "/GetStats"
	GetStatisticsProcedure = "/" + ServiceName + "/GetStatistics"
)

//go:generate mockgen -source=practice_handler.go -destination=../mocks/server/mock_server.go -package=mock_server Authenticator

// Authenticator signs users in against the identity provider.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, displayName string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
}

// Session retention limits.
const (
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultMaxSessionsPerUser = 5
)

type activeSession struct {
	userID   string
	session  *session.Session
	cancel   context.CancelFunc
	lastUsed time.Time
}

// Option configures a PracticeHandler.
type Option func(*PracticeHandler)

// WithGenerator replaces the random question generator.
func WithGenerator(generator session.Generator) Option {
	return func(h *PracticeHandler) { h.generator = generator }
}

// WithTicker replaces the wall-clock ticker driving timed sessions.
func WithTicker(newTicker func(d time.Duration) session.Ticker) Option {
	return func(h *PracticeHandler) { h.newTicker = newTicker }
}

// WithDispatcher replaces the goroutine used for answer persistence.
func WithDispatcher(dispatch func(func())) Option {
	return func(h *PracticeHandler) { h.dispatch = dispatch }
}

// WithSessionLimits sets how long an untouched session is kept and how
// many sessions one user may hold. Zero disables a limit. Starting a session over the limit
// evicts the user's finished sessions first, then the least recently used.
func WithSessionLimits(idleTimeout time.Duration, maxPerUser int) Option {
	return func(h *PracticeHandler) {
		h.idleTimeout = idleTimeout
		h.maxPerUser = maxPerUser
	}
}

// WithClock overrides time.Now for session expiry.
func WithClock(now func() time.Time) Option {
	return func(h *PracticeHandler) { h.now = now }
}

// PracticeHandler serves practice sessions, profiles and stats.
type PracticeHandler struct {
	profiles         *profile.Service
	newAuthenticator func() Authenticator
	validator        *requestValidator
	generator        session.Generator
	newTicker        func(d time.Duration) session.Ticker
	dispatch         func(func())
	logger           *zap.Logger
	now              func() time.Time
	idleTimeout      time.Duration
	maxPerUser       int

	wg       sync.WaitGroup
	mu       sync.Mutex
	sessions map[string]*activeSession
}

// NewPracticeHandler creates a PracticeHandler. newAuthenticator is called
// once per sign-up or sign-in request.
func NewPracticeHandler(profiles *profile.Service, newAuthenticator func() Authenticator, logger *zap.Logger, opts ...Option) (*PracticeHandler, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("newRequestValidator() > %w", err)
	}
	h := &PracticeHandler{
		profiles:         profiles,
		newAuthenticator: newAuthenticator,
		validator:        v,
		generator:        question.NewRandomGenerator(),
		newTicker:        session.NewTicker,
		logger:           logger,
		now:              time.Now,
		idleTimeout:      DefaultSessionIdleTimeout,
		maxPerUser:       DefaultMaxSessionsPerUser,
		sessions:         make(map[string]*activeSession),
	}
	h.dispatch = func(f func()) {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			f()
		}()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// NewPracticeServiceHandler mounts every procedure of h and returns the
// path prefix to register on a mux.
func NewPracticeServiceHandler(h *PracticeHandler, verifier TokenVerifier, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(NewAuthInterceptor(verifier)),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SignUpProcedure, connect.NewUnaryHandler(SignUpProcedure, h.SignUp, opts...))
	mux.Handle(SignInProcedure, connect.NewUnaryHandler(SignInProcedure, h.SignIn, opts...))
	mux.Handle(StartSessionProcedure, connect.NewUnaryHandler(StartSessionProcedure, h.StartSession, opts...))
	mux.Handle(SubmitAnswerProcedure, connect.NewUnaryHandler(SubmitAnswerProcedure, h.SubmitAnswer, opts...))
	mux.Handle(NextQuestionProcedure, connect.NewUnaryHandler(NextQuestionProcedure, h.NextQuestion, opts...))
	mux.Handle(StopSessionProcedure, connect.NewUnaryHandler(StopSessionProcedure, h.StopSession, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, h.GetSession, opts...))
	mux.Handle(GetProfileProcedure, connect.NewUnaryHandler(GetProfileProcedure, h.GetProfile, opts...))
	mux.Handle(UpdateProfileProcedure, connect.NewUnaryHandler(UpdateProfileProcedure, h.UpdateProfile, opts...))
	mux.Handle(GetStatsProcedure, connect.NewUnaryHandler(GetStatsProcedure, h.GetStats, opts...))
	mux.Handle(GetStatisticsProcedure, connect.NewUnaryHandler(GetStatisticsProcedure, h.GetStatistics, opts...))
	return "/" + ServiceName + "/", mux
}

// Close stops every countdown and waits for pending answer writes.
func (h *PracticeHandler) Close() {
	h.mu.Lock()
	for id, active := range h.sessions {
		active.cancel()
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *PracticeHandler) evictLocked(id string, active *activeSession, reason string) {
	active.session.Stop()
	active.cancel()
	delete(h.sessions, id)
	h.logger.Debug("session evicted",
		zap.String("session_id", id),
		zap.String("user_id", active.userID),
		zap.String("reason", reason),
	)
}

func (h *PracticeHandler) expired(active *activeSession, now time.Time) bool {
	return h.idleTimeout > 0 && now.Sub(active.lastUsed) >= h.idleTimeout
}

// sweepLocked drops idle sessions and makes room for one more session of
// userID.
func (h *PracticeHandler) sweepLocked(userID string, now time.Time) {
	var owned []string
	for id, active := range h.sessions {
		if h.expired(active, now) {
			h.evictLocked(id, active, "idle")
			continue
		}
		if active.userID == userID {
			owned = append(owned, id)
		}
	}

	if h.maxPerUser <= 0 {
		return
	}
	excess := len(owned) - (h.maxPerUser - 1)
	if excess <= 0 {
		return
	}
	slices.SortFunc(owned, func(a, b string) int {
		sa, sb := h.sessions[a], h.sessions[b]
		if ra, rb := sa.session.Running(), sb.session.Running(); ra != rb {
			if ra {
				return 1
			}
			return -1
		}
		return sa.lastUsed.Compare(sb.lastUsed)
	})
	for _, id := range owned[:excess] {
		h.evictLocked(id, h.sessions[id], "limit")
	}
}

func (h *PracticeHandler) authenticator() (Authenticator, func()) {
	a := h.newAuthenticator()
	return a, func() {
		if closer, ok := a.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}

func newAuthResponse(s *auth.Session) *AuthResponse {
	user := s.User
	if s.AccessToken == "" {
		return &AuthResponse{User: &user, ConfirmationPending: true}
	}
	return &AuthResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User:         &user,
	}
}

// SignUp creates an account and, when a session is issued, its profile.
func (h *PracticeHandler) SignUp(
	ctx context.Context,
	req *connect.Request[SignUpRequest],
) (*connect.Response[AuthResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	authenticator, done := h.authenticator()
	defer done()
	s, err := authenticator.SignUp(ctx, req.Msg.Email, req.Msg.Password, req.Msg.DisplayName)
	if err != nil {
		return nil, toConnectError(err)
	}
	if s.AccessToken != "" {
		h.initializeProfile(ctx, s.User)
	}
	return connect.NewResponse(newAuthResponse(s)), nil
}

// SignIn exchanges credentials for a session.
func (h *PracticeHandler) SignIn(
	ctx context.Context,
	req *connect.Request[SignInRequest],
) (*connect.Response[AuthResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	authenticator, done := h.authenticator()
	defer done()
	s, err := authenticator.SignIn(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		return nil, toConnectError(err)
	}
	h.initializeProfile(ctx, s.User)
	return connect.NewResponse(newAuthResponse(s)), nil
}

func (h *PracticeHandler) initializeProfile(ctx context.Context, user auth.User) {
	if _, err := h.profiles.InitializeProfile(ctx, profile.Owner{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}); err != nil {
		h.logger.Warn("initialize profile", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func settingsFrom(msg *StartSessionRequest) (session.Settings, error) {
	mode, err := session.ParseMode(msg.Mode)
	if err != nil {
		return session.Settings{}, err
	}
	operations := make([]question.Operation, 0, len(msg.Operations))
	for _, name := range msg.Operations {
		op, err := question.ParseOperation(name)
		if err != nil {
			return session.Settings{}, err
		}
		operations = append(operations, op)
	}

	settings := session.Settings{
		Mode:       mode,
		Operations: operations,
		Params: question.Params{
			LeftDigits:  msg.LeftDigits,
			RightDigits: msg.RightDigits,
			Difficulty:  question.Difficulty(msg.Difficulty),
		},
		TimeLimit: msg.TimeLimit,
	}
	if settings.Params.Difficulty == "" && settings.Params.LeftDigits == 0 && settings.Params.RightDigits == 0 {
		settings.Params.Difficulty = question.Easy
	}
	if mode == session.ModeTimed && settings.TimeLimit == 0 {
		settings.TimeLimit = session.DefaultTimeLimit
	}
	return settings, nil
}

// StartSession creates a session for the caller and returns its first
// question. Timed sessions start their countdown immediately.
func (h *PracticeHandler) StartSession(
	ctx context.Context,
	req *connect.Request[StartSessionRequest],
) (*connect.Response[SessionView], error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	settings, err := settingsFrom(req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	s, err := session.New(h.generator, settings,
		session.WithRecorder(profile.NewRecorder(h.profiles, user.ID, h.logger)),
		session.WithDispatcher(h.dispatch),
	)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := s.Start(); err != nil {
		return nil, toConnectError(err)
	}

	id := uuid.NewString()
	countdownCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	now := h.now()
	h.mu.Lock()
	h.sweepLocked(user.ID, now)
	h.sessions[id] = &activeSession{userID: user.ID, session: s, cancel: cancel, lastUsed: now}
	h.mu.Unlock()

	if settings.Mode == session.ModeTimed {
		countdown := session.NewCountdown(s, session.WithTicker(h.newTicker))
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			_ = countdown.Run(countdownCtx)
		}()
	}

	h.logger.Debug("session started",
		zap.String("session_id", id),
		zap.String("user_id", user.ID),
		zap.String("mode", string(settings.Mode)),
	)
	return connect.NewResponse(newSessionView(id, s.Snapshot())), nil
}

func (h *PracticeHandler) lookup(ctx context.Context, id string) (*activeSession, error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	active, ok := h.sessions[id]
	if !ok || active.userID != user.ID {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	if h.expired(active, now) {
		h.evictLocked(id, active, "idle")
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	active.lastUsed = now
	return active, nil
}

// SubmitAnswer grades an answer. Non-numeric input is rejected without
// counting as an attempt.
func (h *PracticeHandler) SubmitAnswer(
	ctx context.Context,
	req *connect.Request[SubmitAnswerRequest],
) (*connect.Response[SubmitAnswerResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	active, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	result, err := active.session.Submit(ctx, req.Msg.Answer)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SubmitAnswerResponse{
		Correct:  result.Verdict == answer.Correct,
		Expected: result.Expected,
		Next:     newQuestionView(result.Next),
		Session:  newSessionView(req.Msg.SessionID, active.session.Snapshot()),
	}), nil
}

// NextQuestion moves past a graded practice question.
func (h *PracticeHandler) NextQuestion(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionView], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	active, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := active.session.Next(); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(newSessionView(req.Msg.SessionID, active.session.Snapshot())), nil
}

// StopSession ends a session, returns its results and forgets it.
func (h *PracticeHandler) StopSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionView], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	active, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	active.session.Stop()
	active.cancel()
	h.mu.Lock()
	delete(h.sessions, req.Msg.SessionID)
	h.mu.Unlock()
	return connect.NewResponse(newSessionView(req.Msg.SessionID, active.session.Snapshot())), nil
}

// GetSession returns the current state of a session.
func (h *PracticeHandler) GetSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionView], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	active, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(newSessionView(req.Msg.SessionID, active.session.Snapshot())), nil
}

// GetProfile returns the caller's profile, creating it on first use.
func (h *PracticeHandler) GetProfile(
	ctx context.Context,
	req *connect.Request[GetProfileRequest],
) (*connect.Response[ProfileResponse], error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.profiles.InitializeProfile(ctx, profile.Owner{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProfileResponse{Profile: p}), nil
}

// UpdateProfile changes the caller's display settings.
func (h *PracticeHandler) UpdateProfile(
	ctx context.Context,
	req *connect.Request[UpdateProfileRequest],
) (*connect.Response[ProfileResponse], error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}

	p, err := h.profiles.UpdateProfile(ctx, user.ID, profile.Patch{
		DisplayName: req.Msg.DisplayName,
		ProfileIcon: req.Msg.ProfileIcon,
		ColorScheme: req.Msg.ColorScheme,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProfileResponse{Profile: p}), nil
}

// GetStats returns the caller's totals, accuracy and level.
func (h *PracticeHandler) GetStats(
	ctx context.Context,
	req *connect.Request[GetStatsRequest],
) (*connect.Response[StatsResponse], error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := h.profiles.CalculateStats(ctx, user.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&StatsResponse{Stats: stats}), nil
}

// GetStatistics returns per-month statistics, optionally filtered.
func (h *PracticeHandler) GetStatistics(
	ctx context.Context,
	req *connect.Request[GetStatisticsRequest],
) (*connect.Response[StatisticsResponse], error) {
	user, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	result, err := h.profiles.Statistics(ctx, user.ID, req.Msg.Year, req.Msg.Month)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&StatisticsResponse{Statistics: result}), nil
}
