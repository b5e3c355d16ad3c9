package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/at-ishikawa/mentalmath/internal/history"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

// StatsSource selects how CalculateStats derives its numbers.
type StatsSource string

const (
	// StatsSourceProfile reads the aggregates stored on the profile.
	StatsSourceProfile StatsSource = "profile"
	// StatsSourceHistory rescans every attempt on each call.
	StatsSourceHistory StatsSource = "history"
)

// Service reads and writes profiles remote first. Any remote failure is
// logged at warn level and the call continues against the local cache, so
// callers only see an error when the local cache fails too.
//
// Counter updates are a read-modify-write of the whole record without a
// concurrency token. Two devices answering at the same time can lose
// increments; the last writer wins. Within one process, writes to the same
// user are serialized.
type Service struct {
	locks userLocks

	store     Store
	cache     *FileCache
	attempts  history.Repository
	logger    *zap.Logger
	now       func() time.Time
	source    StatsSource
	retention Retention
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore sets the remote store. Without one the service is local only.
func WithStore(store Store) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithAttempts sets where individual attempts are appended.
func WithAttempts(repo history.Repository) ServiceOption {
	return func(s *Service) { s.attempts = repo }
}

// WithStatsSource selects the CalculateStats strategy.
func WithStatsSource(source StatsSource) ServiceOption {
	return func(s *Service) { s.source = source }
}

// WithRetention caps the wrong-answer log.
func WithRetention(retention Retention) ServiceOption {
	return func(s *Service) { s.retention = retention }
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by the local cache.
func NewService(cache *FileCache, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		cache:  cache,
		logger: logger,
		now:    time.Now,
		source: StatsSourceProfile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// userLocks hands out one mutex per user id. Entries are dropped once no
// caller holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

func (s *Service) warn(op, userID string, err error) {
	s.logger.Warn("remote profile store failed, using local cache",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Error(&PersistenceError{Op: op, Backend: "remote", Err: err}),
	)
}

func (s *Service) saveLocal(op string, p *Profile) error {
	if err := s.cache.Save(p); err != nil {
		return &PersistenceError{Op: op, Backend: "local", Err: err}
	}
	return nil
}

func (s *Service) loadLocal(op, userID string) (*Profile, error) {
	p, err := s.cache.Load(userID)
	if err != nil {
		return nil, &PersistenceError{Op: op, Backend: "local", Err: err}
	}
	return p, nil
}

// GetProfile returns the profile of a user, or nil if none exists.
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	defer s.locks.lock(userID)()
	return s.getProfile(ctx, userID)
}

func (s *Service) getProfile(ctx context.Context, userID string) (*Profile, error) {
	if s.store != nil {
		p, err := s.store.Get(ctx, userID)
		if err == nil {
			if p != nil {
				if err := s.saveLocal("get", p); err != nil {
					s.logger.Warn("mirror profile to local cache", zap.String("user_id", userID), zap.Error(err))
				}
			}
			return p, nil
		}
		s.warn("get", userID, err)
	}
	return s.loadLocal("get", userID)
}

// CreateProfile writes a new profile with default counters.
func (s *Service) CreateProfile(ctx context.Context, userID string, seed Seed) (*Profile, error) {
	defer s.locks.lock(userID)()
	return s.createProfile(ctx, userID, seed)
}

func (s *Service) createProfile(ctx context.Context, userID string, seed Seed) (*Profile, error) {
	p := New(userID, seed, s.now().UTC())
	if s.store != nil {
		if err := s.store.Create(ctx, p); err != nil {
			s.warn("create", userID, err)
		}
	}
	if err := s.saveLocal("create", p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile applies a patch of the user-editable fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch Patch) (*Profile, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	defer s.locks.lock(userID)()
	return s.mutate(ctx, "update", userID, patch.apply)
}

// UpdateStats counts one answer.
func (s *Service) UpdateStats(ctx context.Context, userID string, isCorrect bool) (*Profile, error) {
	defer s.locks.lock(userID)()
	return s.mutate(ctx, "update_stats", userID, func(p *Profile) {
		countAnswer(p, isCorrect)
	})
}

// AddWrongAnswer appends a record to today's wrong answers.
func (s *Service) AddWrongAnswer(ctx context.Context, userID, record string) (WrongAnswerLog, error) {
	defer s.locks.lock(userID)()
	now := s.now()
	p, err := s.mutate(ctx, "add_wrong_answer", userID, func(p *Profile) {
		p.WrongAnswers.Append(now, record, s.retention)
	})
	if err != nil {
		return nil, err
	}
	return p.WrongAnswers, nil
}

// RecordAttempt counts an answer, logs it when wrong, and appends it to the
// attempt history, in one profile write.
func (s *Service) RecordAttempt(ctx context.Context, attempt history.Attempt) (*Profile, error) {
	if attempt.AnsweredAt.IsZero() {
		attempt.AnsweredAt = s.now()
	}
	attempt.AnsweredAt = attempt.AnsweredAt.UTC()

	defer s.locks.lock(attempt.UserID)()
	p, err := s.mutate(ctx, "record_attempt", attempt.UserID, func(p *Profile) {
		countAnswer(p, attempt.Correct)
		if !attempt.Correct {
			p.WrongAnswers.Append(attempt.AnsweredAt,
				FormatWrongAnswer(attempt.Prompt, attempt.Expected, attempt.Given), s.retention)
		}
	})
	if err != nil {
		return nil, err
	}

	if s.attempts != nil {
		if err := s.attempts.Create(ctx, &attempt); err != nil {
			s.logger.Warn("append attempt history",
				zap.String("user_id", attempt.UserID),
				zap.Error(&PersistenceError{Op: "record_attempt", Backend: "history", Err: err}),
			)
		}
	}
	return p, nil
}

func countAnswer(p *Profile, isCorrect bool) {
	p.TotalQuestions++
	if isCorrect {
		p.CorrectAnswers++
	}
	p.Level = max(p.Level, statistics.Level(p.TotalQuestions))
}

// mutate loads the current record, applies fn and writes it back. When
// the remote read fails the remote write is skipped so a stale local copy
// never overwrites newer remote data.
func (s *Service) mutate(ctx context.Context, op, userID string, fn func(*Profile)) (*Profile, error) {
	var (
		p          *Profile
		remoteOK   bool
		remoteMiss bool
	)
	if s.store != nil {
		current, err := s.store.Get(ctx, userID)
		switch {
		case err != nil:
			s.warn(op, userID, err)
		case current == nil:
			remoteOK, remoteMiss = true, true
		default:
			p, remoteOK = current, true
		}
	}

	if p == nil {
		local, err := s.loadLocal(op, userID)
		if err != nil {
			return nil, err
		}
		p = local
	}
	if p == nil {
		p = New(userID, Seed{}, s.now().UTC())
	}
	if p.WrongAnswers == nil {
		p.WrongAnswers = WrongAnswerLog{}
	}

	fn(p)
	p.UpdatedAt = s.now().UTC()

	if remoteOK {
		write := s.store.Update
		if remoteMiss {
			write = s.store.Create
		}
		if err := write(ctx, p); err != nil {
			s.warn(op, userID, err)
		}
	}
	if err := s.saveLocal(op, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CalculateStats returns the stats view of a user. A user without a
// profile has zero counters at level 1.
func (s *Service) CalculateStats(ctx context.Context, userID string) (statistics.Summary, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return statistics.Summary{}, err
	}
	storedLevel := 1
	if p != nil {
		storedLevel = p.Level
	}

	if s.source == StatsSourceHistory && s.attempts != nil {
		attempts, err := s.attempts.FindByUser(ctx, userID)
		if err == nil {
			return statistics.FromAttempts(attempts, storedLevel), nil
		}
		s.logger.Warn("load attempt history, using profile aggregates",
			zap.String("user_id", userID), zap.Error(err))
	}

	if p == nil {
		return statistics.Summarize(0, 0, storedLevel), nil
	}
	return statistics.Summarize(p.TotalQuestions, p.CorrectAnswers, p.Level), nil
}

// Statistics returns per-month statistics from the attempt history.
func (s *Service) Statistics(ctx context.Context, userID string, year, month int) (statistics.StatisticsResult, error) {
	if s.attempts == nil {
		return statistics.CalculateStatistics(nil, year, month), nil
	}
	attempts, err := s.attempts.FindByUser(ctx, userID)
	if err != nil {
		return statistics.StatisticsResult{}, fmt.Errorf("attempts.FindByUser() > %w", err)
	}
	return statistics.CalculateStatistics(attempts, year, month), nil
}

// InitializeProfile creates the owner's profile if it does not exist yet.
func (s *Service) InitializeProfile(ctx context.Context, owner Owner) (*Profile, error) {
	defer s.locks.lock(owner.UserID)()
	existing, err := s.getProfile(ctx, owner.UserID)
	if err != nil {
		s.logger.Warn("load profile before initialization", zap.String("user_id", owner.UserID), zap.Error(err))
	}
	if existing != nil {
		return existing, nil
	}
	return s.createProfile(ctx, owner.UserID, Seed{
		DisplayName: owner.defaultDisplayName(),
		ProfileIcon: DefaultProfileIcon,
	})
}

// ClearLocal removes the local copy of a user's profile.
func (s *Service) ClearLocal(userID string) error {
	defer s.locks.lock(userID)()
	return s.cache.Delete(userID)
}
