package cli

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/session"
)

// cycleGenerator hands out addition questions n + 1 for n = 1, 2, 3...
type cycleGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *cycleGenerator) Generate(op question.Operation, params question.Params) (question.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	left := g.n
	return question.Question{
		Operation: op,
		Operator:  question.GlyphPlus,
		Operands:  [2]string{strconv.Itoa(left), "1"},
		Prompt:    strconv.Itoa(left) + " + 1",
		Answer:    strconv.Itoa(left + 1),
	}, nil
}


type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

func newSession(t *testing.T, mode session.Mode, timeLimit int) *session.Session {
	t.Helper()
	s, err := session.New(&cycleGenerator{}, session.Settings{
		Mode:       mode,
		Operations: []question.Operation{question.Addition},
		Params:     question.Params{LeftDigits: 1, RightDigits: 1},
		TimeLimit:  timeLimit,
	}, session.WithDispatcher(func(f func()) { f() }))
	require.NoError(t, err)
	return s
}

func TestPracticeCLI_Run_Practice(t *testing.T) {
	s := newSession(t, session.ModePractice, 0)
	out := &syncBuffer{}
	// 1 + 1 correct, garbage, 2 + 1 wrong, Enter for next, quit on 3 + 1
	cli := NewPracticeCLI(s, strings.NewReader("2\nabc\n5\n\nq\n"), out, NewTheme())

	got, err := cli.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Correct)
	assert.Equal(t, 1, got.Mistakes)
	assert.Equal(t, 50, got.Accuracy)
	assert.Equal(t, "results", got.State)

	output := out.String()
	assert.Contains(t, output, "1 + 1 = ?")
	assert.Contains(t, output, "✅ Correct!")
	assert.Contains(t, output, "Please enter a number.")
	assert.Contains(t, output, "❌ Incorrect. The answer is 3")
	assert.Contains(t, output, "Press Enter for the next question")
	assert.Contains(t, output, "3 + 1 = ?")
	assert.Contains(t, output, "Session Summary")
	assert.Contains(t, output, "Accuracy: 50%")
	assert.NotContains(t, output, "Try again?")
}

func TestPracticeCLI_Run_DrillRetry(t *testing.T) {
	s := newSession(t, session.ModeDrill, 0)
	out := &syncBuffer{}
	// first run: right, wrong (drills advance anyway), quit; retry; quit; no
	cli := NewPracticeCLI(s, strings.NewReader("2\n0\nq\ny\nq\nn\n"), out, NewTheme())

	got, err := cli.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, got.Total)
	assert.Equal(t, uint64(2), got.Generation)
	output := out.String()
	assert.Contains(t, output, "❌ Incorrect. The answer is 3")
	assert.NotContains(t, output, "Press Enter")
	assert.Equal(t, 2, strings.Count(output, "Try again?"))
	assert.Contains(t, output, "Correct:  1")
}

func TestPracticeCLI_Run_EndOfInput(t *testing.T) {
	s := newSession(t, session.ModeDrill, 0)
	cli := NewPracticeCLI(s, strings.NewReader("2\n"), io.Discard, NewTheme())

	got, err := cli.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Correct)
}

func TestPracticeCLI_Run_TimedRunsOut(t *testing.T) {
	s := newSession(t, session.ModeTimed, 10)
	stdinReader, stdinWriter := io.Pipe()
	defer stdinWriter.Close()
	out := &syncBuffer{}

	ticker := &fakeTicker{ch: make(chan time.Time)}
	cli := NewPracticeCLI(s, stdinReader, out, NewTheme())
	cli.newTicker = func(time.Duration) session.Ticker { return ticker }

	type result struct {
		snapshot session.Snapshot
		err      error
	}
	done := make(chan result, 1)
	go func() {
		snapshot, err := cli.Run(context.Background())
		done <- result{snapshot, err}
	}()

	_, err := stdinWriter.Write([]byte("2\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "2 + 1 = ?")
	}, time.Second, 10*time.Millisecond)
	for i := 0; i < 10; i++ {
		ticker.ch <- time.Now()
	}
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Try again?")
	}, time.Second, 10*time.Millisecond)
	_, err = stdinWriter.Write([]byte("n\n"))
	require.NoError(t, err)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, 0, got.snapshot.TimeLeft)
	assert.Equal(t, 1, got.snapshot.Correct)

	output := out.String()
	assert.Contains(t, output, "[0:10] 1 + 1 = ?")
	assert.Contains(t, output, "Time's up!")
	assert.Contains(t, output, "Great Job! 🎉")
	assert.Contains(t, output, "Time:     0:10")
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		name     string
		snapshot session.Snapshot
		want     string
	}{
		{name: "timed more correct", snapshot: session.Snapshot{Mode: session.ModeTimed, Correct: 3, Mistakes: 2}, want: "Great Job! 🎉"},
		{name: "timed tie", snapshot: session.Snapshot{Mode: session.ModeTimed, Correct: 2, Mistakes: 2}, want: "Keep Practicing! 💪"},
		{name: "drill excellent", snapshot: session.Snapshot{Mode: session.ModeDrill, Accuracy: 80}, want: "Excellent! 🎉"},
		{name: "drill good", snapshot: session.Snapshot{Mode: session.ModeDrill, Accuracy: 60}, want: "Good Job! 👍"},
		{name: "drill low", snapshot: session.Snapshot{Mode: session.ModeDrill, Accuracy: 59}, want: "Keep Practicing! 💪"},
		{name: "practice", snapshot: session.Snapshot{Mode: session.ModePractice}, want: "Session Summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Headline(tt.snapshot))
		})
	}
}
