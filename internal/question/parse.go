package question

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParsePrompt splits a rendered prompt into its two operands and operator glyph.
func ParsePrompt(prompt string) (left, operator, right string, err error) {
	if l, r, ok := strings.Cut(prompt, GlyphPercent+" of "); ok {
		return l, GlyphPercent, r, nil
	}
	fields := strings.Fields(prompt)
	if len(fields) != 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedPrompt, prompt)
	}
	switch fields[1] {
	case GlyphPlus, GlyphMinus, GlyphTimes, GlyphDivide:
		return fields[0], fields[1], fields[2], nil
	}
	return "", "", "", fmt.Errorf("%w: unknown operator %q", ErrMalformedPrompt, fields[1])
}

// Evaluate recomputes the expected answer of a prompt generated for op,
// applying the same rounding the generator does.
func Evaluate(op Operation, prompt string) (string, error) {
	l, operator, r, err := ParsePrompt(prompt)
	if err != nil {
		return "", err
	}
	if operator != Glyph(op) && op != Mixed {
		return "", fmt.Errorf("%w: operator %q does not match %s", ErrMalformedPrompt, operator, op)
	}

	switch op {
	case Fractions:
		left, err := parseFraction(l)
		if err != nil {
			return "", err
		}
		right, err := parseFraction(r)
		if err != nil {
			return "", err
		}
		return FormatNumber(roundTo(left+right, 2)), nil
	case Decimals:
		left, right, err := parseFloats(l, r)
		if err != nil {
			return "", err
		}
		return FormatNumber(roundTo(left+right, 1)), nil
	case Percentages:
		left, right, err := parseInts(l, r)
		if err != nil {
			return "", err
		}
		return FormatNumber(math.Round(float64(left*right) / 100)), nil
	}

	left, right, err := parseInts(l, r)
	if err != nil {
		return "", err
	}
	switch operator {
	case GlyphPlus:
		return strconv.Itoa(left + right), nil
	case GlyphMinus:
		return strconv.Itoa(left - right), nil
	case GlyphTimes:
		return strconv.Itoa(left * right), nil
	case GlyphDivide:
		if right == 0 || left%right != 0 {
			return "", fmt.Errorf("%w: %d is not divisible by %d", ErrMalformedPrompt, left, right)
		}
		return strconv.Itoa(left / right), nil
	}
	return "", fmt.Errorf("%w: %q", ErrMalformedPrompt, prompt)
}

func parseInts(l, r string) (int, int, error) {
	left, err := strconv.Atoi(l)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: operand %q: %v", ErrMalformedPrompt, l, err)
	}
	right, err := strconv.Atoi(r)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: operand %q: %v", ErrMalformedPrompt, r, err)
	}
	return left, right, nil
}

func parseFloats(l, r string) (float64, float64, error) {
	left, err := strconv.ParseFloat(l, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: operand %q: %v", ErrMalformedPrompt, l, err)
	}
	right, err := strconv.ParseFloat(r, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: operand %q: %v", ErrMalformedPrompt, r, err)
	}
	return left, right, nil
}

func parseFraction(s string) (float64, error) {
	n, d, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a fraction", ErrMalformedPrompt, s)
	}
	num, den, err := parseInts(n, d)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: zero denominator in %q", ErrMalformedPrompt, s)
	}
	return float64(num) / float64(den), nil
}
