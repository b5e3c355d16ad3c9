package question

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence replays fixed draws so a test can pin operands.
type sequence struct {
	values []int
	next   int
}

func (s *sequence) IntN(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

func newSeededGenerator() *Generator {
	return NewGenerator(rand.New(rand.NewPCG(1, 2)))
}

func TestGenerator_Generate_RoundTrip(t *testing.T) {
	paramsList := []Params{
		{LeftDigits: 1, RightDigits: 1},
		{LeftDigits: 2, RightDigits: 2},
		{LeftDigits: 3, RightDigits: 1},
		{LeftDigits: 1, RightDigits: 3},
		{Difficulty: Easy},
		{Difficulty: Medium},
		{Difficulty: Hard},
	}

	generator := newSeededGenerator()
	for _, op := range AllOperations {
		for _, params := range paramsList {
			t.Run(string(op)+"/"+paramsName(params), func(t *testing.T) {
				for i := 0; i < 200; i++ {
					q, err := generator.Generate(op, params)
					require.NoError(t, err)

					left, operator, right, err := ParsePrompt(q.Prompt)
					require.NoError(t, err)
					assert.Equal(t, q.Operands, [2]string{left, right})
					assert.Equal(t, q.Operator, operator)
					assert.Equal(t, 1, strings.Count(q.Prompt, operator))

					want, err := Evaluate(q.Operation, q.Prompt)
					require.NoError(t, err)
					assert.Equal(t, want, q.Answer, "prompt %q", q.Prompt)
				}
			})
		}
	}
}

func paramsName(p Params) string {
	if p.Difficulty != "" {
		return string(p.Difficulty)
	}
	return strconv.Itoa(p.LeftDigits) + "x" + strconv.Itoa(p.RightDigits)
}

func TestGenerator_Division_IsExact(t *testing.T) {
	generator := newSeededGenerator()
	for _, params := range []Params{{LeftDigits: 3, RightDigits: 1}, {LeftDigits: 2, RightDigits: 2}, {Difficulty: Hard}} {
		for i := 0; i < 10000; i++ {
			q, err := generator.Generate(Division, params)
			require.NoError(t, err)

			dividend, err := strconv.Atoi(q.Operands[0])
			require.NoError(t, err)
			divisor, err := strconv.Atoi(q.Operands[1])
			require.NoError(t, err)
			quotient, err := strconv.Atoi(q.Answer)
			require.NoError(t, err)

			require.NotZero(t, divisor)
			require.Zero(t, dividend%divisor, "prompt %q", q.Prompt)
			require.Equal(t, dividend/divisor, quotient)
		}
	}
}

func TestGenerator_Subtraction_NonNegative(t *testing.T) {
	generator := newSeededGenerator()
	for _, params := range []Params{{LeftDigits: 1, RightDigits: 3}, {LeftDigits: 2, RightDigits: 2}, {Difficulty: Medium}} {
		for i := 0; i < 10000; i++ {
			q, err := generator.Generate(Subtraction, params)
			require.NoError(t, err)

			answer, err := strconv.Atoi(q.Answer)
			require.NoError(t, err)
			require.GreaterOrEqual(t, answer, 0, "prompt %q", q.Prompt)
		}
	}
}

func TestGenerator_Generate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		params Params
		min    int
		max    int
	}{
		{name: "two digit addition", op: Addition, params: Params{LeftDigits: 2, RightDigits: 2}, min: 10, max: 99},
		{name: "easy addition", op: Addition, params: Params{Difficulty: Easy}, min: 1, max: 50},
		{name: "hard addition", op: Addition, params: Params{Difficulty: Hard}, min: 1, max: 500},
		{name: "easy multiplication", op: Multiplication, params: Params{Difficulty: Easy}, min: 1, max: 12},
		{name: "medium multiplication", op: Multiplication, params: Params{Difficulty: Medium}, min: 1, max: 25},
	}

	generator := newSeededGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				q, err := generator.Generate(tt.op, tt.params)
				require.NoError(t, err)
				for _, operand := range q.Operands {
					v, err := strconv.Atoi(operand)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, v, tt.min)
					assert.LessOrEqual(t, v, tt.max)
				}
			}
		})
	}
}

func TestGenerator_Generate_FixedDraws(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		params Params
		draws  []int
		want   Question
	}{
		{
			name:   "addition with digits",
			op:     Addition,
			params: Params{LeftDigits: 2, RightDigits: 2},
			draws:  []int{2, 5},
			want: Question{
				Operation: Addition, Operator: "+", Operands: [2]string{"12", "15"},
				Prompt: "12 + 15", Answer: "27",
			},
		},
		{
			name:   "subtraction swaps operands",
			op:     Subtraction,
			params: Params{Difficulty: Easy},
			draws:  []int{4, 19},
			want: Question{
				Operation: Subtraction, Operator: "−", Operands: [2]string{"20", "5"},
				Prompt: "20 − 5", Answer: "15",
			},
		},
		{
			name:   "division built from divisor and quotient",
			op:     Division,
			params: Params{Difficulty: Easy},
			draws:  []int{6, 8},
			want: Question{
				Operation: Division, Operator: "÷", Operands: [2]string{"63", "7"},
				Prompt: "63 ÷ 7", Answer: "9",
			},
		},
		{
			name:   "decimals round to tenths",
			op:     Decimals,
			params: Params{},
			draws:  []int{1, 2},
			want: Question{
				Operation: Decimals, Operator: "+", Operands: [2]string{"0.1", "0.2"},
				Prompt: "0.1 + 0.2", Answer: "0.3",
			},
		},
		{
			name:   "fractions sum to two places",
			op:     Fractions,
			params: Params{},
			draws:  []int{2, 0, 1, 1},
			want: Question{
				Operation: Fractions, Operator: "+", Operands: [2]string{"1/3", "2/2"},
				Prompt: "1/3 + 2/2", Answer: "1.33",
			},
		},
		{
			name:   "percentages of a base",
			op:     Percentages,
			params: Params{Difficulty: Easy},
			draws:  []int{24, 79},
			want: Question{
				Operation: Percentages, Operator: "%", Operands: [2]string{"25", "80"},
				Prompt: "25% of 80", Answer: "20",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := NewGenerator(&sequence{values: tt.draws})
			got, err := generator.Generate(tt.op, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerator_Generate_Mixed(t *testing.T) {
	generator := newSeededGenerator()
	seen := make(map[Operation]bool)
	for i := 0; i < 500; i++ {
		q, err := generator.Generate(Mixed, Params{Difficulty: Easy})
		require.NoError(t, err)
		assert.Contains(t, BaseOperations, q.Operation)
		seen[q.Operation] = true
	}
	assert.Len(t, seen, len(BaseOperations))
}

func TestGenerator_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		params  Params
		wantErr error
	}{
		{name: "unknown operation", op: "modulo", params: Params{Difficulty: Easy}, wantErr: ErrUnknownOperation},
		{name: "zero digits", op: Addition, params: Params{LeftDigits: 0, RightDigits: 2}, wantErr: ErrInvalidParams},
		{name: "too many digits", op: Multiplication, params: Params{LeftDigits: 2, RightDigits: 7}, wantErr: ErrInvalidParams},
		{name: "unknown difficulty", op: Mixed, params: Params{Difficulty: "insane"}, wantErr: ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSeededGenerator().Generate(tt.op, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		input   string
		want    Operation
		wantErr bool
	}{
		{input: "addition", want: Addition},
		{input: " Fractions ", want: Fractions},
		{input: "random", want: Mixed},
		{input: "exponent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOperation(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownOperation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		prompt string
	}{
		{name: "missing operand", op: Addition, prompt: "12 +"},
		{name: "unknown glyph", op: Addition, prompt: "12 ^ 3"},
		{name: "inexact division", op: Division, prompt: "10 ÷ 3"},
		{name: "operator mismatch", op: Multiplication, prompt: "2 + 3"},
		{name: "zero denominator", op: Fractions, prompt: "1/0 + 1/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.op, tt.prompt)
			assert.ErrorIs(t, err, ErrMalformedPrompt)
		})
	}
}
