package strings

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  foo  ", "bar  ", "  baz"}, []string{"foo", "bar", "baz"}},
		{"removes duplicates preserving order", []string{"foo", "bar", "foo", "baz", "bar"}, []string{"foo", "bar", "baz"}},
		{"drops blanks", []string{"", "  ", "foo"}, []string{"foo"}},
		{"trimmed duplicates collapse", []string{"foo", " foo "}, []string{"foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b}, Dedupe([]uuid.UUID{a, b, a, b, a}))
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, SplitCSV("   "))
	assert.Equal(t, []string{"http://localhost:3000", "https://vote.example.edu"},
		SplitCSV("http://localhost:3000, https://vote.example.edu ,http://localhost:3000"))
}
