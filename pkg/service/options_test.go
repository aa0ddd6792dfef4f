package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileOptions(t *testing.T) {
	t.Run("ExpandsDottedKeys", func(t *testing.T) {
		opts := map[string]any{
			"aws.region":      "eu-west-1",
			"aws.sqs.timeout": 30,
			"plain":           true,
		}
		require.NoError(t, ReconcileOptions(opts))

		aws := opts["aws"].(map[string]any)
		assert.Equal(t, "eu-west-1", aws["region"])
		assert.Equal(t, 30, aws["sqs"].(map[string]any)["timeout"])
		assert.Equal(t, "eu-west-1", opts["aws.region"], "dotted key is kept")
	})

	t.Run("EqualValuesDoNotConflict", func(t *testing.T) {
		opts := map[string]any{
			"http": map[string]any{"port": 8080},
			"http.port": 8080,
		}
		assert.NoError(t, ReconcileOptions(opts))
	})

	t.Run("NumbersCompareByValue", func(t *testing.T) {
		opts := map[string]any{
			"http.port":    float64(8080),
			"http":         map[string]any{"port": 8080},
			"db.pool":      uint16(4),
			"db":           map[string]any{"pool": int64(4)},
			"tags.weights": []any{1, 2.5},
			"tags":         map[string]any{"weights": []any{float64(1), 2.5}},
		}
		require.NoError(t, ReconcileOptions(opts))
		assert.Equal(t, float64(8080), opts["http"].(map[string]any)["port"])
	})

	t.Run("DifferentNumbersConflict", func(t *testing.T) {
		opts := map[string]any{
			"http.port": float64(8081),
			"http":      map[string]any{"port": 8080},
		}
		var conflict *ConfigurationConflictError
		require.ErrorAs(t, ReconcileOptions(opts), &conflict)
		assert.Equal(t, 8080, conflict.Existing)
	})

	t.Run("DifferentValuesConflict", func(t *testing.T) {
		opts := map[string]any{
			"http":      map[string]any{"port": 8080},
			"http.port": "8080",
		}
		err := ReconcileOptions(opts)

		var conflict *ConfigurationConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "http.port", conflict.Key)
		assert.Contains(t, err.Error(), `(string) "8080" and (int) "8080" differs`)
	})

	t.Run("ScalarInTheWayConflicts", func(t *testing.T) {
		opts := map[string]any{
			"http":      "disabled",
			"http.port": 8080,
		}
		var conflict *ConfigurationConflictError
		require.ErrorAs(t, ReconcileOptions(opts), &conflict)
		assert.Equal(t, "disabled", conflict.Existing)
	})
}
