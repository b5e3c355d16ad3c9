package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		want     Verdict
		wantErr  error
	}{
		{name: "exact match", input: "7", expected: "7", want: Correct},
		{name: "trailing zero decimal", input: "7.0", expected: "7", want: Correct},
		{name: "surrounding whitespace", input: "  42 ", expected: "42", want: Correct},
		{name: "rounded decimal", input: "0.30", expected: "0.3", want: Correct},
		{name: "fraction sum", input: "1.33", expected: "1.33", want: Correct},
		{name: "negative zero", input: "-0", expected: "0", want: Correct},
		{name: "wrong number", input: "8", expected: "7", want: Incorrect},
		{name: "unrounded fraction", input: "1.333", expected: "1.33", want: Incorrect},
		{name: "empty input", input: "", expected: "7", wantErr: ErrInvalidInput},
		{name: "whitespace only", input: "   ", expected: "7", wantErr: ErrInvalidInput},
		{name: "letters", input: "abc", expected: "7", wantErr: ErrInvalidInput},
		{name: "trailing letters", input: "7abc", expected: "7", wantErr: ErrInvalidInput},
		{name: "not a number", input: "NaN", expected: "7", wantErr: ErrInvalidInput},
		{name: "infinity", input: "Inf", expected: "7", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.input, tt.expected)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_MalformedExpected(t *testing.T) {
	_, err := Validate("7", "seven")
	assert.Error(t, err)
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "correct", Correct.String())
	assert.Equal(t, "incorrect", Incorrect.String())
}
