// Package review exports a user's wrong-answer log as markdown and PDF.
package review

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandolyte/mdtopdf"

	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/statistics"
)

// WriteMarkdown renders the wrong-answer log newest day first.
func WriteMarkdown(w io.Writer, p *profile.Profile, stats statistics.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Wrong Answer Review: %s\n\n", p.DisplayName)
	fmt.Fprintf(&b, "Level %d, %d questions, %d%% accuracy\n\n", stats.Level, stats.TotalQuestions, stats.Accuracy)

	days := p.WrongAnswers.Days()
	if len(days) == 0 {
		b.WriteString("No wrong answers recorded.\n")
	}
	for _, day := range days {
		fmt.Fprintf(&b, "## %s\n\n", day)
		for _, record := range p.WrongAnswers[day] {
			fmt.Fprintf(&b, "- %s\n", record)
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("io.WriteString() > %w", err)
	}
	return nil
}

// The PDF core fonts have no glyphs for the arithmetic signs.
var asciiSigns = strings.NewReplacer("−", "-", "×", "x", "÷", "/")

// Export writes review_<user>.md and review_<user>.pdf into dir and
// returns the absolute PDF path.
func Export(dir string, p *profile.Profile, stats statistics.Summary) (string, error) {
	if err := profile.ValidateUserID(p.UserID); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}

	var markdown bytes.Buffer
	if err := WriteMarkdown(&markdown, p, stats); err != nil {
		return "", err
	}
	base := filepath.Join(dir, "review_"+p.UserID)
	if err := os.WriteFile(base+".md", markdown.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("os.WriteFile(%s.md) > %w", base, err)
	}

	pdfPath, err := filepath.Abs(base + ".pdf")
	if err != nil {
		return "", fmt.Errorf("filepath.Abs(%s.pdf) > %w", base, err)
	}
	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process([]byte(asciiSigns.Replace(markdown.String()))); err != nil {
		return "", fmt.Errorf("renderer.Process(%s) > %w", pdfPath, err)
	}
	return pdfPath, nil
}
