package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeValue(t *testing.T) {
	tests := []struct {
		name     string
		existing any
		incoming any
		want     any
	}{
		{"ListsConcatenateExistingFirst", []any{"y"}, []any{"x"}, []any{"y", "x"}},
		{"TypedListsKeepType", []string{"y"}, []string{"x"}, []string{"y", "x"}},
		{"MixedListsBecomeAny", []string{"y"}, []any{"x"}, []any{"y", "x"}},
		{"MapsMerge", map[string]any{"b": 2}, map[string]any{"a": 1}, map[string]any{"b": 2, "a": 1}},
		{"ScalarOverride", "old", "new", "new"},
		{"EmptyExistingIsReplaced", "", "new", "new"},
		{"NilExistingIsReplaced", nil, []any{"x"}, []any{"x"}},
		{"EmptyListIsReplaced", []any{}, []any{"x"}, []any{"x"}},
		{"ZeroIntIsReplaced", 0, 5, 5},
		{"ListOverScalar", "a", []any{"b"}, []any{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeValue(tt.existing, tt.incoming))
		})
	}
}

func TestMergeMapsDeep(t *testing.T) {
	dst := map[string]any{
		"http": map[string]any{"port": 8080, "host": "0.0.0.0"},
		"keep": true,
	}
	src := map[string]any{
		"http": map[string]any{"port": 9090, "tls": map[string]any{"enabled": true}},
	}

	got := MergeMaps(dst, src)

	assert.Equal(t, map[string]any{
		"http": map[string]any{"port": 9090, "host": "0.0.0.0", "tls": map[string]any{"enabled": true}},
		"keep": true,
	}, got)
	assert.Equal(t, 8080, dst["http"].(map[string]any)["port"], "input must not be modified")
}

type taggedService struct {
	Tags    []string       `mapstructure:"tags"`
	Opts    map[string]any `mapstructure:"opts"`
	Timeout time.Duration  `mapstructure:"timeout"`
	Options map[string]any `mapstructure:"options"`
}

func TestApply(t *testing.T) {
	t.Run("MergesOntoServiceFields", func(t *testing.T) {
		svc := &taggedService{Tags: []string{"y"}, Opts: map[string]any{"b": 2}}
		inst := &Instance{Value: svc, Context: autoContext(svc)}

		err := Apply(inst, map[string]any{
			"tags":    []any{"x"},
			"opts":    map[string]any{"a": 1},
			"timeout": "250ms",
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"y", "x"}, svc.Tags)
		assert.Equal(t, map[string]any{"b": 2, "a": 1}, svc.Opts)
		assert.Equal(t, 250*time.Millisecond, svc.Timeout)
		assert.Equal(t, []any{"y", "x"}, inst.Context["tags"])
	})

	t.Run("ReconcilesDottedOptions", func(t *testing.T) {
		svc := &taggedService{}
		inst := &Instance{Value: svc, Context: autoContext(svc)}

		err := Apply(inst, map[string]any{
			"options": map[string]any{"http.port": 8080},
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"port": 8080}, svc.Options["http"])
	})

	t.Run("OptionConflictFails", func(t *testing.T) {
		svc := &taggedService{Options: map[string]any{"http": map[string]any{"port": 80}}}
		inst := &Instance{Value: svc, Context: autoContext(svc)}

		err := Apply(inst, map[string]any{
			"options": map[string]any{"http.port": 8080},
		})

		var conflict *ConfigurationConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "http.port", conflict.Key)
		assert.Equal(t, 8080, conflict.Value)
		assert.Equal(t, 80, conflict.Existing)
	})

	t.Run("DecodeFailureIsConfigurationError", func(t *testing.T) {
		svc := &taggedService{}
		inst := &Instance{Value: svc, Context: autoContext(svc), Definition: Definition{TypeName: "Tagged"}}

		err := Apply(inst, map[string]any{"timeout": "soon"})

		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "Tagged", cfgErr.Service)
	})

	t.Run("NonStructValuesOnlyUpdateContext", func(t *testing.T) {
		inst := &Instance{Value: "plain", Context: nil}
		require.NoError(t, Apply(inst, map[string]any{"k": "v"}))
		assert.Equal(t, "v", inst.Context["k"])
	})
}
