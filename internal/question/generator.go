package question

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// Rand is the random source a Generator draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// GlobalRand draws from the process-wide math/rand/v2 source.
type GlobalRand struct{}

func (GlobalRand) IntN(n int) int { return rand.IntN(n) }

// Generator builds questions from an injected random source.
// It is safe for concurrent use when its Rand is.
type Generator struct {
	rng Rand
}

// NewGenerator returns a Generator backed by rng.
func NewGenerator(rng Rand) *Generator {
	return &Generator{rng: rng}
}

// NewRandomGenerator returns a Generator backed by the process-wide source.
func NewRandomGenerator() *Generator {
	return NewGenerator(GlobalRand{})
}

// magnitude bounds per difficulty tier
var (
	additiveBounds       = map[Difficulty]int{Easy: 50, Medium: 100, Hard: 500}
	multiplicativeBounds = map[Difficulty]int{Easy: 12, Medium: 25, Hard: 50}
	decimalTenthBounds   = map[Difficulty]int{Easy: 100, Medium: 1000, Hard: 10000}
	percentageBases      = map[Difficulty]int{Easy: 100, Medium: 500, Hard: 1000}
)

const (
	maxDenominator = 10
	maxPercentage  = 100
)

// Generate produces a question for op using params.
func (g *Generator) Generate(op Operation, params Params) (Question, error) {
	switch op {
	case Addition, Subtraction, Multiplication, Division:
		if err := params.Validate(); err != nil {
			return Question{}, err
		}
		return g.base(op, params), nil
	case Mixed:
		if err := params.Validate(); err != nil {
			return Question{}, err
		}
		return g.base(BaseOperations[g.rng.IntN(len(BaseOperations))], params), nil
	case Decimals:
		return g.decimals(params.difficulty()), nil
	case Fractions:
		return g.fractions(), nil
	case Percentages:
		return g.percentages(params.difficulty()), nil
	}
	return Question{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) digits(n int) int {
	lo := int(math.Pow10(n - 1))
	hi := int(math.Pow10(n)) - 1
	return g.between(lo, hi)
}

func (g *Generator) operands(op Operation, params Params) (int, int) {
	if params.Difficulty != "" {
		bound := additiveBounds[params.Difficulty]
		if op == Multiplication || op == Division {
			bound = multiplicativeBounds[params.Difficulty]
		}
		return g.between(1, bound), g.between(1, bound)
	}
	return g.digits(params.LeftDigits), g.digits(params.RightDigits)
}

func (g *Generator) base(op Operation, params Params) Question {
	switch op {
	case Subtraction:
		left, right := g.operands(op, params)
		if left < right {
			left, right = right, left
		}
		return newQuestion(op, strconv.Itoa(left), strconv.Itoa(right), strconv.Itoa(left-right))
	case Multiplication:
		left, right := g.operands(op, params)
		return newQuestion(op, strconv.Itoa(left), strconv.Itoa(right), strconv.Itoa(left*right))
	case Division:
		var divisor, quotient int
		if params.Difficulty != "" {
			divisor, quotient = g.operands(op, params)
		} else {
			divisor = g.digits(params.RightDigits)
			quotient = g.digits(max(1, params.LeftDigits-params.RightDigits+1))
		}
		return newQuestion(op, strconv.Itoa(divisor*quotient), strconv.Itoa(divisor), strconv.Itoa(quotient))
	default:
		left, right := g.operands(op, params)
		return newQuestion(Addition, strconv.Itoa(left), strconv.Itoa(right), strconv.Itoa(left+right))
	}
}

func (g *Generator) decimals(d Difficulty) Question {
	bound := decimalTenthBounds[d]
	left := float64(g.rng.IntN(bound)) / 10
	right := float64(g.rng.IntN(bound)) / 10
	return newQuestion(Decimals, FormatNumber(left), FormatNumber(right), FormatNumber(roundTo(left+right, 1)))
}

func (g *Generator) fractions() Question {
	d1 := g.between(1, maxDenominator)
	n1 := g.between(1, d1)
	d2 := g.between(1, maxDenominator)
	n2 := g.between(1, d2)
	sum := float64(n1)/float64(d1) + float64(n2)/float64(d2)
	return newQuestion(Fractions,
		fmt.Sprintf("%d/%d", n1, d1),
		fmt.Sprintf("%d/%d", n2, d2),
		FormatNumber(roundTo(sum, 2)),
	)
}

func (g *Generator) percentages(d Difficulty) Question {
	percentage := g.between(1, maxPercentage)
	base := g.between(1, percentageBases[d])
	answer := math.Round(float64(percentage*base) / 100)
	return newQuestion(Percentages, strconv.Itoa(percentage), strconv.Itoa(base), FormatNumber(answer))
}
