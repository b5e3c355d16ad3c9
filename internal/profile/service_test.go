package profile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/at-ishikawa/mentalmath/internal/history"
	mock_history "github.com/at-ishikawa/mentalmath/internal/mocks/history"
	mock_profile "github.com/at-ishikawa/mentalmath/internal/mocks/profile"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

var (
	fixedNow   = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	errOffline = errors.New("network unreachable")
)

func newService(t *testing.T, opts ...profile.ServiceOption) (*profile.Service, *profile.FileCache) {
	t.Helper()
	cache := profile.NewFileCache(t.TempDir())
	opts = append([]profile.ServiceOption{profile.WithNow(func() time.Time { return fixedNow })}, opts...)
	return profile.NewService(cache, zap.NewNop(), opts...), cache
}

func storedProfile(total, correct, level int) *profile.Profile {
	p := profile.New("user-1", profile.Seed{DisplayName: "Ada"}, fixedNow.Add(-time.Hour))
	p.TotalQuestions = total
	p.CorrectAnswers = correct
	p.Level = level
	return p
}

func TestService_UpdateStats(t *testing.T) {
	tests := []struct {
		name        string
		isCorrect   bool
		localBefore *profile.Profile
		setupStore  func(store *mock_profile.MockStore)
		wantTotal   int
		wantCorrect int
		wantLevel   int
	}{
		{
			name:      "remote read and write succeed",
			isCorrect: true,
			setupStore: func(store *mock_profile.MockStore) {
				store.EXPECT().Get(gomock.Any(), "user-1").Return(storedProfile(19, 10, 1), nil)
				store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *profile.Profile) error {
					assert.Equal(t, 20, p.TotalQuestions)
					assert.Equal(t, fixedNow, p.UpdatedAt)
					return nil
				})
			},
			wantTotal:   20,
			wantCorrect: 11,
			wantLevel:   2,
		},
		{
			name:      "remote write throws and the local cache still counts",
			isCorrect: false,
			setupStore: func(store *mock_profile.MockStore) {
				store.EXPECT().Get(gomock.Any(), "user-1").Return(storedProfile(4, 3, 1), nil)
				store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errOffline)
			},
			wantTotal:   5,
			wantCorrect: 3,
			wantLevel:   1,
		},
		{
			name:        "remote read throws and the local copy is used",
			isCorrect:   true,
			localBefore: storedProfile(7, 7, 3),
			setupStore: func(store *mock_profile.MockStore) {
				store.EXPECT().Get(gomock.Any(), "user-1").Return(nil, errOffline)
			},
			wantTotal:   8,
			wantCorrect: 8,
			wantLevel:   3,
		},
		{
			name:      "remote read and local cache both empty",
			isCorrect: true,
			setupStore: func(store *mock_profile.MockStore) {
				store.EXPECT().Get(gomock.Any(), "user-1").Return(nil, errOffline)
			},
			wantTotal:   1,
			wantCorrect: 1,
			wantLevel:   1,
		},
		{
			name:      "missing remote profile is created",
			isCorrect: true,
			setupStore: func(store *mock_profile.MockStore) {
				store.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil)
				store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantTotal:   1,
			wantCorrect: 1,
			wantLevel:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mock_profile.NewMockStore(ctrl)
			tt.setupStore(store)

			service, cache := newService(t, profile.WithStore(store))
			if tt.localBefore != nil {
				require.NoError(t, cache.Save(tt.localBefore))
			}

			got, err := service.UpdateStats(context.Background(), "user-1", tt.isCorrect)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, got.TotalQuestions)
			assert.Equal(t, tt.wantCorrect, got.CorrectAnswers)
			assert.Equal(t, tt.wantLevel, got.Level)

			local, err := cache.Load("user-1")
			require.NoError(t, err)
			require.NotNil(t, local)
			assert.Equal(t, tt.wantTotal, local.TotalQuestions)
			assert.Equal(t, tt.wantCorrect, local.CorrectAnswers)
		})
	}
}

func TestService_GetProfile(t *testing.T) {
	t.Run("remote profile is mirrored locally", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mock_profile.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "user-1").Return(storedProfile(3, 2, 1), nil)

		service, cache := newService(t, profile.WithStore(store))
		got, err := service.GetProfile(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, got.TotalQuestions)

		local, err := cache.Load("user-1")
		require.NoError(t, err)
		assert.Equal(t, got.TotalQuestions, local.TotalQuestions)
	})

	t.Run("remote failure falls back to the local copy", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mock_profile.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "user-1").Return(nil, errOffline)

		service, cache := newService(t, profile.WithStore(store))
		require.NoError(t, cache.Save(storedProfile(9, 1, 1)))

		got, err := service.GetProfile(context.Background(), "user-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 9, got.TotalQuestions)
	})

	t.Run("unknown user", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mock_profile.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil)

		service, _ := newService(t, profile.WithStore(store))
		got, err := service.GetProfile(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestService_CreateProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_profile.NewMockStore(ctrl)
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errOffline)

	service, cache := newService(t, profile.WithStore(store))
	got, err := service.CreateProfile(context.Background(), "user-1", profile.Seed{})
	require.NoError(t, err)

	want := &profile.Profile{
		UserID:       "user-1",
		DisplayName:  profile.DefaultDisplayName,
		ProfileIcon:  profile.DefaultProfileIcon,
		ColorScheme:  profile.DefaultColorScheme,
		Level:        1,
		WrongAnswers: profile.WrongAnswerLog{},
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
	assert.Equal(t, want, got)

	local, err := cache.Load("user-1")
	require.NoError(t, err)
	assert.Equal(t, want, local)
}

func TestService_UpdateProfile(t *testing.T) {
	name := "Grace"
	scheme := "neon"
	unknown := "plaid"

	t.Run("applies the patch", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mock_profile.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "user-1").Return(storedProfile(1, 1, 1), nil)
		store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		service, _ := newService(t, profile.WithStore(store))
		got, err := service.UpdateProfile(context.Background(), "user-1", profile.Patch{DisplayName: &name, ColorScheme: &scheme})
		require.NoError(t, err)
		assert.Equal(t, "Grace", got.DisplayName)
		assert.Equal(t, "neon", got.ColorScheme)
		assert.Equal(t, profile.DefaultProfileIcon, got.ProfileIcon)
	})

	t.Run("rejects unknown color scheme", func(t *testing.T) {
		service, _ := newService(t)
		_, err := service.UpdateProfile(context.Background(), "user-1", profile.Patch{ColorScheme: &unknown})
		assert.ErrorIs(t, err, profile.ErrUnknownColorScheme)
	})
}

func TestService_AddWrongAnswer(t *testing.T) {
	service, cache := newService(t, profile.WithRetention(profile.Retention{Days: 2, MaxPerDay: 2}))
	old := storedProfile(3, 0, 1)
	old.WrongAnswers = profile.WrongAnswerLog{
		"2025-03-01": {"1 + 1 = 2 (you answered 3)"},
		"2025-03-09": {"2 + 2 = 4 (you answered 5)"},
		"2025-03-10": {"a", "b"},
	}
	require.NoError(t, cache.Save(old))

	got, err := service.AddWrongAnswer(context.Background(), "user-1", "6 × 7 = 42 (you answered 48)")
	require.NoError(t, err)
	assert.Equal(t, profile.WrongAnswerLog{
		"2025-03-09": {"2 + 2 = 4 (you answered 5)"},
		"2025-03-10": {"b", "6 × 7 = 42 (you answered 48)"},
	}, got)
}

func TestService_RecordAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	attempts := mock_history.NewMockRepository(ctrl)
	attempts.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a *history.Attempt) error {
		assert.Equal(t, "user-1", a.UserID)
		assert.Equal(t, fixedNow, a.AnsweredAt)
		return errOffline
	})

	service, _ := newService(t, profile.WithAttempts(attempts))
	got, err := service.RecordAttempt(context.Background(), history.Attempt{
		UserID: "user-1", Mode: "timed", Operation: "division",
		Prompt: "63 ÷ 7", Expected: "9", Given: "8", Correct: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalQuestions)
	assert.Equal(t, 0, got.CorrectAnswers)
	assert.Equal(t, []string{"63 ÷ 7 = 9 (you answered 8)"}, got.WrongAnswers["2025-03-10"])
}

func TestService_CalculateStats(t *testing.T) {
	t.Run("stats round trip over submissions", func(t *testing.T) {
		for _, tc := range []struct{ n, k int }{{0, 0}, {1, 1}, {3, 2}, {7, 3}, {41, 40}} {
			service, _ := newService(t)
			for i := 0; i < tc.n; i++ {
				_, err := service.UpdateStats(context.Background(), "user-1", i < tc.k)
				require.NoError(t, err)
			}
			got, err := service.CalculateStats(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Equal(t, tc.n, got.TotalQuestions)
			assert.Equal(t, tc.k, got.CorrectAnswers)
			assert.Equal(t, statistics.Accuracy(tc.k, tc.n), got.Accuracy)
			assert.Equal(t, tc.n/20+1, got.Level)
		}
	})

	t.Run("history source rescans attempts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		attempts := mock_history.NewMockRepository(ctrl)
		attempts.EXPECT().FindByUser(gomock.Any(), "user-1").Return([]history.Attempt{
			{Correct: true}, {Correct: true}, {Correct: false}, {Correct: true},
		}, nil)

		service, cache := newService(t, profile.WithAttempts(attempts), profile.WithStatsSource(profile.StatsSourceHistory))
		require.NoError(t, cache.Save(storedProfile(100, 100, 6)))

		got, err := service.CalculateStats(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, statistics.Summary{TotalQuestions: 4, CorrectAnswers: 3, Accuracy: 75, Level: 6}, got)
	})

	t.Run("history failure uses profile aggregates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		attempts := mock_history.NewMockRepository(ctrl)
		attempts.EXPECT().FindByUser(gomock.Any(), "user-1").Return(nil, errOffline)

		service, cache := newService(t, profile.WithAttempts(attempts), profile.WithStatsSource(profile.StatsSourceHistory))
		require.NoError(t, cache.Save(storedProfile(10, 5, 1)))

		got, err := service.CalculateStats(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, statistics.Summary{TotalQuestions: 10, CorrectAnswers: 5, Accuracy: 50, Level: 1}, got)
	})

	t.Run("no profile", func(t *testing.T) {
		service, _ := newService(t)
		got, err := service.CalculateStats(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Equal(t, statistics.Summary{Level: 1}, got)
	})
}

func TestService_InitializeProfile(t *testing.T) {
	tests := []struct {
		name      string
		owner     profile.Owner
		existing  *profile.Profile
		wantName  string
		wantWrite bool
	}{
		{name: "display name wins", owner: profile.Owner{UserID: "user-1", Email: "ada@example.com", DisplayName: "Ada L."}, wantName: "Ada L.", wantWrite: true},
		{name: "email local part", owner: profile.Owner{UserID: "user-1", Email: "ada@example.com"}, wantName: "ada", wantWrite: true},
		{name: "default name", owner: profile.Owner{UserID: "user-1"}, wantName: profile.DefaultDisplayName, wantWrite: true},
		{name: "existing profile is kept", owner: profile.Owner{UserID: "user-1", DisplayName: "New"}, existing: storedProfile(5, 5, 1), wantName: "Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mock_profile.NewMockStore(ctrl)
			store.EXPECT().Get(gomock.Any(), "user-1").Return(tt.existing, nil)
			if tt.wantWrite {
				store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			}

			service, _ := newService(t, profile.WithStore(store))
			got, err := service.InitializeProfile(context.Background(), tt.owner)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.DisplayName)
			assert.Equal(t, profile.DefaultProfileIcon, got.ProfileIcon)
		})
	}
}

func TestService_Statistics(t *testing.T) {
	ctrl := gomock.NewController(t)
	attempts := mock_history.NewMockRepository(ctrl)
	attempts.EXPECT().FindByUser(gomock.Any(), "user-1").Return([]history.Attempt{
		{Operation: "addition", Prompt: "1 + 1", Correct: true, AnsweredAt: fixedNow},
	}, nil)

	service, _ := newService(t, profile.WithAttempts(attempts))
	got, err := service.Statistics(context.Background(), "user-1", 2025, 3)
	require.NoError(t, err)
	require.Len(t, got.Periods, 1)
	assert.Equal(t, "2025-03", got.Periods[0].Period)
	assert.Equal(t, 100, got.Aggregate.Accuracy)
}
