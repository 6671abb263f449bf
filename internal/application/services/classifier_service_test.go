package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/expression"
)

func newDefaultClassifier(t *testing.T) *ClassifierService {
	t.Helper()
	svc, err := NewClassifierService(expression.NewEngine(), "")
	require.NoError(t, err)
	return svc
}

func TestClassifierService_RuleMatch(t *testing.T) {
	svc := newDefaultClassifier(t)

	t.Run("Orchestrator goes to tier 3", func(t *testing.T) {
		facts := &models.ProcedureFacts{
			Procedures:      []string{"dbo.usp_A", "dbo.usp_B"},
			ComplexityScore: 45,
		}
		c := svc.Classify(facts, false)

		assert.Equal(t, models.Tier3, c.Tier)
		assert.Equal(t, 0.9, c.Confidence)
		assert.Equal(t, "cross-procedure-orchestrator", c.Rule)
	})

	t.Run("Simple lookup goes to tier 1", func(t *testing.T) {
		facts := &models.ProcedureFacts{
			Tables:          []string{"dbo.Widget"},
			ComplexityScore: 12,
		}
		c := svc.Classify(facts, false)

		assert.Equal(t, models.Tier1, c.Tier)
		assert.Equal(t, "simple-lookup", c.Rule)
	})

	t.Run("Deep nesting wins over complexity bands", func(t *testing.T) {
		facts := &models.ProcedureFacts{MaxDepth: 6, ComplexityScore: 35}
		c := svc.Classify(facts, false)

		assert.Equal(t, models.Tier3, c.Tier)
		assert.Equal(t, "deeply-nested", c.Rule)
	})
}

func TestClassifierService_BandFallback(t *testing.T) {
	svc := newDefaultClassifier(t)

	tests := []struct {
		name       string
		complexity int
		wantTier   models.Tier
		wantConf   float64
	}{
		{"Mid band tier 2", 35, models.Tier2, 0.5 + 5.0/30.0},
		{"Band edge has low confidence", 30, models.Tier2, 0.5},
		{"Deep in tier 3 caps at 0.9", 95, models.Tier3, 0.9},
		{"Just below tier 2 floor", 29, models.Tier1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Three tables keeps every default rule from matching
			facts := &models.ProcedureFacts{
				Tables:          []string{"a", "b", "c"},
				ComplexityScore: tt.complexity,
			}
			c := svc.Classify(facts, false)

			assert.Equal(t, tt.wantTier, c.Tier)
			assert.InDelta(t, tt.wantConf, c.Confidence, 0.001)
			assert.Empty(t, c.Rule)
		})
	}
}

func TestClassifierService_RulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: qa-always-brief
    when: is_qa
    tier: 1
    confidence: 0.95
`), 0o644))

	svc, err := NewClassifierService(expression.NewEngine(), path)
	require.NoError(t, err)

	c := svc.Classify(&models.ProcedureFacts{ComplexityScore: 80}, true)
	assert.Equal(t, models.Tier1, c.Tier)
	assert.Equal(t, "qa-always-brief", c.Rule)

	// Non-QA falls through to the bands
	c = svc.Classify(&models.ProcedureFacts{ComplexityScore: 80}, false)
	assert.Equal(t, models.Tier3, c.Tier)
	assert.Empty(t, c.Rule)
}

func TestClassifierService_RejectsInvalidRules(t *testing.T) {
	writeRules := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("Tier out of range", func(t *testing.T) {
		path := writeRules(t, "rules:\n  - {name: bad, when: complexity > 1, tier: 4, confidence: 0.5}\n")
		_, err := NewClassifierService(expression.NewEngine(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tier must be 1-3")
	})

	t.Run("Confidence out of range", func(t *testing.T) {
		path := writeRules(t, "rules:\n  - {name: bad, when: complexity > 1, tier: 2, confidence: 1.5}\n")
		_, err := NewClassifierService(expression.NewEngine(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confidence")
	})

	t.Run("Unknown variable in condition", func(t *testing.T) {
		path := writeRules(t, "rules:\n  - {name: bad, when: no_such_var > 1, tier: 2, confidence: 0.5}\n")
		_, err := NewClassifierService(expression.NewEngine(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid condition")
	})

	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		svc, err := NewClassifierService(expression.NewEngine(), filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		c := svc.Classify(&models.ProcedureFacts{ComplexityScore: 12, Tables: []string{"t"}}, false)
		assert.Equal(t, "simple-lookup", c.Rule)
	})
}
