// Package question generates arithmetic questions for mental-math practice.
package question

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operation is the kind of arithmetic a question exercises.
type Operation string

const (
	Addition       Operation = "addition"
	Subtraction    Operation = "subtraction"
	Multiplication Operation = "multiplication"
	Division       Operation = "division"
	Mixed          Operation = "mixed"
	Decimals       Operation = "decimals"
	Fractions      Operation = "fractions"
	Percentages    Operation = "percentages"
)

// BaseOperations are the operations Mixed chooses from.
var BaseOperations = []Operation{Addition, Subtraction, Multiplication, Division}

// AllOperations lists every supported operation.
var AllOperations = []Operation{
	Addition, Subtraction, Multiplication, Division,
	Mixed, Decimals, Fractions, Percentages,
}

// Operator glyphs used in rendered prompts.
const (
	GlyphPlus    = "+"
	GlyphMinus   = "−"
	GlyphTimes   = "×"
	GlyphDivide  = "÷"
	GlyphPercent = "%"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidParams    = errors.New("invalid question parameters")
	ErrMalformedPrompt  = errors.New("malformed prompt")
)

// ParseOperation converts a user-supplied name into an Operation.
// "random" is accepted as an alias of Mixed.
func ParseOperation(s string) (Operation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "random" {
		return Mixed, nil
	}
	for _, op := range AllOperations {
		if string(op) == name {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// Difficulty is a named magnitude tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty converts a user-supplied name into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidParams, s)
}

// MaxDigits bounds explicit digit counts.
const MaxDigits = 6

// Params selects operand magnitudes. When Difficulty is set it takes
// precedence over the digit counts.
type Params struct {
	LeftDigits  int        `json:"left_digits,omitempty"`
	RightDigits int        `json:"right_digits,omitempty"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
}

// Validate reports whether the params can drive a generator.
func (p Params) Validate() error {
	if p.Difficulty != "" {
		if _, err := ParseDifficulty(string(p.Difficulty)); err != nil {
			return err
		}
		return nil
	}
	if p.LeftDigits < 1 || p.LeftDigits > MaxDigits {
		return fmt.Errorf("%w: left digits must be between 1 and %d, got %d", ErrInvalidParams, MaxDigits, p.LeftDigits)
	}
	if p.RightDigits < 1 || p.RightDigits > MaxDigits {
		return fmt.Errorf("%w: right digits must be between 1 and %d, got %d", ErrInvalidParams, MaxDigits, p.RightDigits)
	}
	return nil
}

func (p Params) difficulty() Difficulty {
	if p.Difficulty == "" {
		return Easy
	}
	return p.Difficulty
}

// Question is a single generated prompt and its expected answer.
type Question struct {
	Operation Operation `json:"operation"`
	Operator  string    `json:"operator"`
	Operands  [2]string `json:"operands"`
	Prompt    string    `json:"prompt"`
	Answer    string    `json:"answer"`
}

// String renders the question the way a practice screen shows it.
func (q Question) String() string {
	return q.Prompt + " = ?"
}

// Glyph returns the operator glyph used for an operation's prompts.
func Glyph(op Operation) string {
	switch op {
	case Subtraction:
		return GlyphMinus
	case Multiplication:
		return GlyphTimes
	case Division:
		return GlyphDivide
	case Percentages:
		return GlyphPercent
	}
	return GlyphPlus
}

// FormatNumber renders a value with the shortest exact decimal form,
// so 7.0 becomes "7" and 0.1+0.2 rounded to tenths becomes "0.3".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func newQuestion(op Operation, left, right, answer string) Question {
	glyph := Glyph(op)
	prompt := left + " " + glyph + " " + right
	if op == Percentages {
		prompt = left + GlyphPercent + " of " + right
	}
	return Question{
		Operation: op,
		Operator:  glyph,
		Operands:  [2]string{left, right},
		Prompt:    prompt,
		Answer:    answer,
	}
}
