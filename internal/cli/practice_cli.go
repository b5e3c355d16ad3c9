package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/at-ishikawa/mentalmath/internal/answer"
	"github.com/at-ishikawa/mentalmath/internal/session"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

var (
	errEnd    = errors.New("end")
	errTimeUp = errors.New("time is up")
)

// lineReader reads stdin on its own goroutine so a prompt can be
// abandoned when the countdown runs out.
type lineReader struct {
	lines chan string
	err   error
}

func newLineReader(r io.Reader) *lineReader {
	l := &lineReader{lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			l.lines <- scanner.Text()
		}
		l.err = scanner.Err()
		close(l.lines)
	}()
	return l
}

// ReadLine waits for the next line. A nil interrupt never fires.
func (l *lineReader) ReadLine(ctx context.Context, interrupt <-chan struct{}) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-interrupt:
		return "", errTimeUp
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", fmt.Errorf("error reading input: %w", l.err)
			}
			return "", io.EOF
		}
		return line, nil
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// PracticeCLI runs a session in the terminal.
type PracticeCLI struct {
	session      *session.Session
	input        *lineReader
	stdoutWriter io.Writer
	theme        *Theme
	bold         *color.Color
	green        *color.Color
	red          *color.Color
	newTicker    func(time.Duration) session.Ticker
	timeUp       chan struct{}
}

// NewPracticeCLI creates a PracticeCLI reading answers from stdin.
func NewPracticeCLI(s *session.Session, stdin io.Reader, stdout io.Writer, theme *Theme) *PracticeCLI {
	return &PracticeCLI{
		session:      s,
		input:        newLineReader(stdin),
		stdoutWriter: stdout,
		theme:        theme,
		bold:         color.New(color.Bold),
		green:        color.New(color.FgGreen),
		red:          color.New(color.FgRed),
		newTicker:    session.NewTicker,
	}
}

// Run plays rounds until the user quits, the clock runs out or input
// ends, then prints results. Timed and drill sessions offer a retry.
// It returns the snapshot of the last run.
func (cli *PracticeCLI) Run(ctx context.Context) (session.Snapshot, error) {
	start := cli.session.Start
	for {
		if _, err := start(); err != nil {
			return session.Snapshot{}, fmt.Errorf("session.Start() > %w", err)
		}
		snapshot, err := cli.play(ctx)
		if err != nil {
			return snapshot, err
		}
		cli.printResults(snapshot)

		if snapshot.Mode == session.ModePractice || !cli.askRetry(ctx) {
			return snapshot, nil
		}
		start = cli.session.Retry
	}
}

func (cli *PracticeCLI) play(ctx context.Context) (session.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cli.timeUp = nil
	if cli.session.Settings().Mode == session.ModeTimed {
		timeUp := make(chan struct{})
		cli.timeUp = timeUp
		countdown := session.NewCountdown(cli.session, session.WithTicker(cli.newTicker))
		go func() {
			defer close(timeUp)
			_ = countdown.Run(ctx)
		}()
	}

	for {
		err := cli.round(ctx)
		if errors.Is(err, errEnd) {
			break
		}
		if err != nil {
			cli.session.Stop()
			return cli.session.Snapshot(), err
		}
	}
	cli.session.Stop()
	return cli.session.Snapshot(), nil
}

func (cli *PracticeCLI) round(ctx context.Context) error {
	snapshot := cli.session.Snapshot()
	if snapshot.Question == nil {
		return errEnd
	}

	if snapshot.Mode == session.ModeTimed {
		_, _ = fmt.Fprintf(cli.stdoutWriter, "[%s] ", session.FormatClock(snapshot.TimeLeft))
	}
	_, _ = fmt.Fprintf(cli.stdoutWriter, "%s ", cli.bold.Sprint(snapshot.Question.String()))

	line, err := cli.input.ReadLine(ctx, cli.timeUp)
	if errors.Is(err, errTimeUp) {
		_, _ = fmt.Fprintln(cli.stdoutWriter, "\n⏰ Time's up!")
		return errEnd
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return errEnd
	}
	if err != nil {
		return err
	}
	if isQuit(line) {
		return errEnd
	}

	result, err := cli.session.Submit(ctx, line)
	switch {
	case errors.Is(err, answer.ErrInvalidInput):
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Please enter a number.")
		return nil
	case errors.Is(err, session.ErrNotActive):
		_, _ = fmt.Fprintln(cli.stdoutWriter, "⏰ Time's up!")
		return errEnd
	case err != nil:
		return fmt.Errorf("session.Submit() > %w", err)
	}

	if result.Verdict == answer.Correct {
		_, _ = fmt.Fprintln(cli.stdoutWriter, "✅ "+cli.green.Sprint("Correct!"))
	} else {
		_, _ = fmt.Fprintln(cli.stdoutWriter, "❌ "+cli.red.Sprintf("Incorrect. The answer is %s", result.Expected))
	}

	if result.Next != nil {
		return nil
	}
	_, _ = fmt.Fprint(cli.stdoutWriter, "Press Enter for the next question ")
	line, err = cli.input.ReadLine(ctx, nil)
	if err != nil || isQuit(line) {
		return errEnd
	}
	if _, err := cli.session.Next(); err != nil {
		return fmt.Errorf("session.Next() > %w", err)
	}
	return nil
}

func (cli *PracticeCLI) askRetry(ctx context.Context) bool {
	_, _ = fmt.Fprint(cli.stdoutWriter, "Try again? [y/N] ")
	line, err := cli.input.ReadLine(ctx, nil)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Headline is the message shown above a session's results.
func Headline(snapshot session.Snapshot) string {
	switch snapshot.Mode {
	case session.ModeTimed:
		if snapshot.Correct > snapshot.Mistakes {
			return "Great Job! 🎉"
		}
	case session.ModeDrill:
		switch {
		case snapshot.Accuracy >= 80:
			return "Excellent! 🎉"
		case snapshot.Accuracy >= 60:
			return "Good Job! 👍"
		}
	case session.ModePractice:
		return "Session Summary"
	}
	return "Keep Practicing! 💪"
}

func (cli *PracticeCLI) printResults(snapshot session.Snapshot) {
	w := cli.stdoutWriter
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, cli.theme.Accent("%s", Headline(snapshot)))
	_, _ = fmt.Fprintf(w, "  ✅ Correct:  %d\n", snapshot.Correct)
	_, _ = fmt.Fprintf(w, "  ❌ Mistakes: %d\n", snapshot.Mistakes)
	_, _ = fmt.Fprintf(w, "  📊 Accuracy: %d%%\n", snapshot.Accuracy)
	if snapshot.Mode == session.ModeTimed {
		_, _ = fmt.Fprintf(w, "  ⏱  Time:     %s\n", session.FormatClock(snapshot.TimeLimit-snapshot.TimeLeft))
	}
}

// PrintStats writes a stats summary.
func PrintStats(w io.Writer, theme *Theme, name string, stats statistics.Summary) {
	_, _ = fmt.Fprintln(w, theme.Accent("%s", name))
	_, _ = fmt.Fprintf(w, "  Level:     %d\n", stats.Level)
	_, _ = fmt.Fprintf(w, "  Questions: %d\n", stats.TotalQuestions)
	_, _ = fmt.Fprintf(w, "  Correct:   %d\n", stats.CorrectAnswers)
	_, _ = fmt.Fprintf(w, "  Accuracy:  %d%%\n", stats.Accuracy)
	if remaining := stats.Level*statistics.QuestionsPerLevel - stats.TotalQuestions; remaining > 0 {
		_, _ = fmt.Fprintf(w, "  %d more questions to level %d\n", remaining, stats.Level+1)
	}
}
