// Package answer grades a typed answer against a generated one.
package answer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Verdict is the outcome of grading a submission.
type Verdict int

const (
	Incorrect Verdict = iota
	Correct
)

func (v Verdict) String() string {
	if v == Correct {
		return "correct"
	}
	return "incorrect"
}

// ErrInvalidInput is returned for empty or non-numeric submissions.
// Such submissions must not count as an attempt.
var ErrInvalidInput = errors.New("answer must be a number")

// Validate compares input and expected as floating-point numbers using
// exact equality. Generated answers are already rounded, so "7.0" matches "7"
// and "0.30" matches "0.3".
func Validate(input, expected string) (Verdict, error) {
	given, err := parse(input)
	if err != nil {
		return Incorrect, err
	}
	want, err := parse(expected)
	if err != nil {
		return Incorrect, fmt.Errorf("expected answer %q: %w", expected, err)
	}
	if given == want {
		return Correct, nil
	}
	return Incorrect, nil
}

func parse(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInput, s)
	}
	return v, nil
}
