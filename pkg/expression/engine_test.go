package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngine_Evaluate(t *testing.T) {
	engine := NewEngine()

	env := map[string]interface{}{
		"tables":     5,
		"procedures": 2,
		"statements": 40,
		"depth":      3,
	}

	t.Run("Arithmetic", func(t *testing.T) {
		out, err := engine.Evaluate("tables + procedures", env)
		assert.NoError(t, err)
		assert.EqualValues(t, 7, out)
	})

	t.Run("Boolean", func(t *testing.T) {
		ok, err := engine.EvaluateBool("statements > 30 && depth >= 3", env)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Non-boolean result rejected by EvaluateBool", func(t *testing.T) {
		_, err := engine.EvaluateBool("tables * 2", env)
		assert.Error(t, err)
	})

	t.Run("Compile error", func(t *testing.T) {
		_, err := engine.Evaluate("tables >>", env)
		assert.Error(t, err)
	})
}

func TestEngine_CacheReuse(t *testing.T) {
	engine := NewEngine()
	env := map[string]interface{}{"n": 1}

	// Same expression twice hits the program cache; result must be stable.
	for i := 0; i < 2; i++ {
		out, err := engine.Evaluate("n + 1", env)
		assert.NoError(t, err)
		assert.EqualValues(t, 2, out)
	}
}
