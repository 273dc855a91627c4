package directive_test

import (
	"testing"

	"github.com/stevedore-sh/stevedore/pkg/directive"
	"gotest.tools/v3/assert"
)

func TestFillDefault(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		key      string
		value    string
		expected []string
	}{
		{
			name:     "synthesizes a clause for bare names",
			input:    "trips fares",
			key:      "promote",
			value:    "false",
			expected: []string{"trips(promote=false)", "fares(promote=false)"},
		},
		{
			name:     "appends before the closing paren",
			input:    "trips(partition=month)",
			key:      "promote",
			value:    "true",
			expected: []string{"trips(partition=month promote=true)"},
		},
		{
			name:     "leaves an explicit value untouched",
			input:    "trips(promote=false) fares",
			key:      "promote",
			value:    "true",
			expected: []string{"trips(promote=false)", "fares(promote=true)"},
		},
		{
			name:     "fills into a list-carrying clause",
			input:    "trips(orderby=(a b))",
			key:      "append",
			value:    "none",
			expected: []string{"trips(orderby=(a b) append=none)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := directive.Normalize(tt.input)
			assert.NilError(t, err)

			filled, err := directive.FillDefault(list, tt.key, tt.value)
			assert.NilError(t, err)
			assert.DeepEqual(t, tt.expected, filled.Tables())
		})
	}
}

// Filling twice with the same key changes nothing the second time, and the
// filled value reads back through ExtractOption.
func TestFillDefaultIdempotent(t *testing.T) {
	list, err := directive.Normalize("trips(partition=month) fares")
	assert.NilError(t, err)

	once, err := directive.FillDefault(list, "promote", "true")
	assert.NilError(t, err)

	twice, err := directive.FillDefault(once, "promote", "true")
	assert.NilError(t, err)
	assert.DeepEqual(t, once.Tables(), twice.Tables())

	values, err := directive.ExtractOption(twice, "promote")
	assert.NilError(t, err)
	for _, v := range values {
		assert.Equal(t, "true", v.Scalar())
	}
}

func TestFillDefaultDoesNotMutateInput(t *testing.T) {
	list, err := directive.Normalize("trips")
	assert.NilError(t, err)

	_, err = directive.FillDefault(list, "promote", "true")
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"trips"}, list.Tables())
}
