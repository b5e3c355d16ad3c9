package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrongAnswerLog_Prune(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		log       WrongAnswerLog
		retention Retention
		want      WrongAnswerLog
	}{
		{
			name:      "unbounded keeps everything",
			log:       WrongAnswerLog{"2020-01-01": {"a"}, "2025-03-10": {"b", "c"}},
			retention: Retention{},
			want:      WrongAnswerLog{"2020-01-01": {"a"}, "2025-03-10": {"b", "c"}},
		},
		{
			name:      "drops days outside the window",
			log:       WrongAnswerLog{"2025-02-08": {"a"}, "2025-02-09": {"b"}, "2025-03-10": {"c"}},
			retention: Retention{Days: 30},
			want:      WrongAnswerLog{"2025-02-09": {"b"}, "2025-03-10": {"c"}},
		},
		{
			name:      "keeps the newest records of a day",
			log:       WrongAnswerLog{"2025-03-10": {"a", "b", "c", "d"}},
			retention: Retention{MaxPerDay: 2},
			want:      WrongAnswerLog{"2025-03-10": {"c", "d"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.log.Prune(now, tt.retention)
			assert.Equal(t, tt.want, tt.log)
		})
	}
}

func TestWrongAnswerLog_Append(t *testing.T) {
	log := WrongAnswerLog{}
	tokyo := time.FixedZone("JST", 9*60*60)

	// 2025-03-11 01:00 JST is still 2025-03-10 in UTC
	log.Append(time.Date(2025, 3, 11, 1, 0, 0, 0, tokyo), FormatWrongAnswer("12 + 15", "27", "26"), Retention{})
	log.Append(time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC), FormatWrongAnswer("20 − 5", "15", "5"), Retention{})

	assert.Equal(t, WrongAnswerLog{
		"2025-03-10": {"12 + 15 = 27 (you answered 26)"},
		"2025-03-11": {"20 − 5 = 15 (you answered 5)"},
	}, log)
	assert.Equal(t, []string{"2025-03-11", "2025-03-10"}, log.Days())
	assert.Equal(t, 2, log.Len())
}

func TestWrongAnswerLog_ValueScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want WrongAnswerLog
	}{
		{name: "json bytes", src: []byte(`{"2025-03-10":["a","b"]}`), want: WrongAnswerLog{"2025-03-10": {"a", "b"}}},
		{name: "json string", src: `{"2025-03-10":["a"]}`, want: WrongAnswerLog{"2025-03-10": {"a"}}},
		{name: "null column", src: nil, want: WrongAnswerLog{}},
		{name: "json null", src: []byte("null"), want: WrongAnswerLog{}},
		{name: "empty", src: []byte(""), want: WrongAnswerLog{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got WrongAnswerLog
			require.NoError(t, got.Scan(tt.src))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid type", func(t *testing.T) {
		var got WrongAnswerLog
		assert.Error(t, got.Scan(42))
	})

	t.Run("value of nil log", func(t *testing.T) {
		v, err := WrongAnswerLog(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, "{}", v)
	})

	t.Run("value", func(t *testing.T) {
		v, err := WrongAnswerLog{"2025-03-10": {"a"}}.Value()
		require.NoError(t, err)
		assert.Equal(t, `{"2025-03-10":["a"]}`, v)
	})
}

func TestPatch_Validate(t *testing.T) {
	for _, scheme := range ColorSchemes {
		s := scheme
		assert.NoError(t, Patch{ColorScheme: &s}.Validate())
	}
	unknown := "plaid"
	assert.ErrorIs(t, Patch{ColorScheme: &unknown}.Validate(), ErrUnknownColorScheme)
	assert.NoError(t, Patch{}.Validate())
}
