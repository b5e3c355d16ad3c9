package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/mentalmath/internal/config"
	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/session"
)

func TestPracticeOptions_Settings(t *testing.T) {
	defaults := config.PracticeConfig{Operation: "addition", LeftDigits: 2, RightDigits: 2, TimeLimit: 60}

	tests := []struct {
		name     string
		opts     practiceOptions
		defaults config.PracticeConfig
		mode     session.Mode
		want     session.Settings
		wantErr  bool
	}{
		{
			name:     "falls back to config",
			defaults: defaults,
			mode:     session.ModePractice,
			want: session.Settings{
				Mode:       session.ModePractice,
				Operations: []question.Operation{question.Addition},
				Params:     question.Params{LeftDigits: 2, RightDigits: 2},
			},
		},
		{
			name:     "difficulty flag overrides digits",
			opts:     practiceOptions{operations: []string{"random", "division"}, difficulty: "Hard", leftDigits: 3},
			defaults: defaults,
			mode:     session.ModePractice,
			want: session.Settings{
				Mode:       session.ModePractice,
				Operations: []question.Operation{question.Mixed, question.Division},
				Params:     question.Params{Difficulty: question.Hard},
			},
		},
		{
			name:     "config difficulty applies without digit flags",
			defaults: config.PracticeConfig{Operation: "percentages", Difficulty: "medium", LeftDigits: 2, RightDigits: 2},
			mode:     session.ModeDrill,
			want: session.Settings{
				Mode:       session.ModeDrill,
				Operations: []question.Operation{question.Percentages},
				Params:     question.Params{Difficulty: question.Medium},
			},
		},
		{
			name:     "one digit flag keeps the other default",
			opts:     practiceOptions{rightDigits: 1},
			defaults: defaults,
			mode:     session.ModeTimed,
			want: session.Settings{
				Mode:       session.ModeTimed,
				Operations: []question.Operation{question.Addition},
				Params:     question.Params{LeftDigits: 2, RightDigits: 1},
				TimeLimit:  60,
			},
		},
		{
			name:     "timed limit flag",
			opts:     practiceOptions{timeLimit: 120},
			defaults: defaults,
			mode:     session.ModeTimed,
			want: session.Settings{
				Mode:       session.ModeTimed,
				Operations: []question.Operation{question.Addition},
				Params:     question.Params{LeftDigits: 2, RightDigits: 2},
				TimeLimit:  120,
			},
		},
		{
			name:     "timed limit out of range",
			opts:     practiceOptions{timeLimit: 5},
			defaults: defaults,
			mode:     session.ModeTimed,
			wantErr:  true,
		},
		{
			name:     "unknown operation",
			opts:     practiceOptions{operations: []string{"modulo"}},
			defaults: defaults,
			mode:     session.ModePractice,
			wantErr:  true,
		},
		{
			name:     "unknown difficulty",
			opts:     practiceOptions{difficulty: "insane"},
			defaults: defaults,
			mode:     session.ModePractice,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.settings(tt.defaults, tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
