package provision_test

import (
	"testing"

	"github.com/stevedore-sh/stevedore/pkg/provision"
	"github.com/stretchr/testify/require"
)

func TestParseAppendMode(t *testing.T) {
	tests := []struct {
		input    string
		expected provision.AppendMode
	}{
		{input: "", expected: provision.AppendNone},
		{input: "none", expected: provision.AppendNone},
		{input: "normal", expected: provision.AppendNormal},
		{input: "force", expected: provision.AppendForce},
		{input: "NORMAL", expected: provision.AppendNormal},
		{input: "Force", expected: provision.AppendForce},
	}

	for _, tt := range tests {
		t.Run("input "+tt.input, func(t *testing.T) {
			mode, err := provision.ParseAppendMode(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, mode)
		})
	}
}

func TestParseAppendModeInvalid(t *testing.T) {
	_, err := provision.ParseAppendMode("sideways")

	var cerr *provision.ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "append", cerr.Option)
	require.Equal(t, "sideways", cerr.Value)
}

func TestOptionsValidateDefaults(t *testing.T) {
	opts := provision.Options{}
	warnings, err := opts.Validate()
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "default", opts.Namespace)
	require.Equal(t, "default", opts.SourceNamespace)
	require.Equal(t, 16, opts.WidenThreshold)
}

func TestOptionsValidateThreshold(t *testing.T) {
	opts := provision.Options{WidenThreshold: -1}
	_, err := opts.Validate()

	var cerr *provision.ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "widen_threshold", cerr.Option)

	// Below the default is legal but warned about.
	opts = provision.Options{WidenThreshold: 8}
	warnings, err := opts.Validate()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "widen_threshold 8")

	opts = provision.Options{WidenThreshold: 64}
	warnings, err = opts.Validate()
	require.NoError(t, err)
	require.Empty(t, warnings)
}
