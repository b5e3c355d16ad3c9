package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/at-ishikawa/mentalmath/internal/question"
)

// Drill is one topic in the drill catalogue.
type Drill struct {
	Operation   question.Operation
	Name        string
	Icon        string
	Description string
}

// Drills lists every drill topic.
var Drills = []Drill{
	{Operation: question.Addition, Name: "Addition", Icon: "➕", Description: "Practice adding numbers"},
	{Operation: question.Subtraction, Name: "Subtraction", Icon: "➖", Description: "Practice subtracting numbers"},
	{Operation: question.Multiplication, Name: "Multiplication", Icon: "✖️", Description: "Practice multiplying numbers"},
	{Operation: question.Division, Name: "Division", Icon: "➗", Description: "Practice dividing numbers"},
	{Operation: question.Mixed, Name: "Mixed Operations", Icon: "🎯", Description: "Practice all operations"},
	{Operation: question.Decimals, Name: "Decimals", Icon: "🔢", Description: "Practice decimal arithmetic"},
	{Operation: question.Fractions, Name: "Fractions", Icon: "🍕", Description: "Practice fraction operations"},
	{Operation: question.Percentages, Name: "Percentages", Icon: "💯", Description: "Practice percentage calculations"},
}

// FindDrill looks a drill up by operation name.
func FindDrill(name string) (Drill, error) {
	op, err := question.ParseOperation(name)
	if err != nil {
		return Drill{}, err
	}
	for _, d := range Drills {
		if d.Operation == op {
			return d, nil
		}
	}
	return Drill{}, fmt.Errorf("%w: %q", question.ErrUnknownOperation, name)
}

// PrintDrills writes the catalogue.
func PrintDrills(w io.Writer, theme *Theme) {
	_, _ = fmt.Fprintln(w, theme.Accent("Math Drills"))
	for _, d := range Drills {
		_, _ = fmt.Fprintf(w, "  %s  %-18s %s\n", d.Icon, d.Operation, d.Description)
	}
}

// PlannedFeature is an item on the AI training placeholder screen.
type PlannedFeature struct {
	Icon        string
	Title       string
	Description string
}

// PlannedFeatures are shown by the AI training surface, which has no
// functionality yet.
var PlannedFeatures = []PlannedFeature{
	{Icon: "🎯", Title: "Adaptive Difficulty", Description: "Questions that automatically adjust to your skill level"},
	{Icon: "💡", Title: "Step-by-Step Explanations", Description: "Detailed solutions and learning tips for every problem"},
	{Icon: "🎨", Title: "Custom Problem Types", Description: "Generate problems for specific topics you want to practice"},
}

// PrintTraining writes the AI training placeholder.
func PrintTraining(w io.Writer, theme *Theme) {
	_, _ = fmt.Fprintln(w, theme.Accent("AI Training"))
	_, _ = fmt.Fprintln(w, "Coming Soon - AI-powered personalized learning")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Planned Features")
	for _, f := range PlannedFeatures {
		_, _ = fmt.Fprintf(w, "  %s %s: %s\n", f.Icon, f.Title, f.Description)
	}
}

// LockedError is returned when a surface needs a signed-in user.
type LockedError struct {
	Title       string
	Description string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s is locked. %s Run `mentalmath login` first.", e.Title, e.Description)
}

// Locked surfaces and why they need an account.
var (
	ErrDrillsLocked = &LockedError{
		Title:       "Math Drills",
		Description: "Master specific math skills with targeted practice drills. Sign in to unlock this feature and track your progress.",
	}
	ErrTimedLocked = &LockedError{
		Title:       "Timed Challenge",
		Description: "Race the clock and track your best scores. Sign in to unlock this feature.",
	}
	ErrTrainingLocked = &LockedError{
		Title:       "AI Training",
		Description: "Get personalized math problems and explanations powered by AI. Sign in to unlock this advanced feature.",
	}
)

// IsLocked reports whether err is a LockedError.
func IsLocked(err error) bool {
	var locked *LockedError
	return errors.As(err, &locked)
}
