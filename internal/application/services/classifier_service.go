package services

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/expression"
)

// TierRule is one configurable classification rule. Rules are evaluated in
// order; the first one whose condition holds decides the tier.
type TierRule struct {
	Name       string  `yaml:"name"`
	When       string  `yaml:"when"`
	Tier       int     `yaml:"tier"`
	Confidence float64 `yaml:"confidence"`
}

type tierRulesFile struct {
	Rules []TierRule `yaml:"rules"`
}

// Band fallback thresholds used when no rule matches
const (
	tier3ComplexityFloor = 60
	tier2ComplexityFloor = 30
)

// defaultTierRules applies when no rules file is configured
const defaultTierRules = `
rules:
  - name: cross-procedure-orchestrator
    when: procedure_count >= 2 && complexity >= 40
    tier: 3
    confidence: 0.9
  - name: deeply-nested
    when: max_depth >= 5
    tier: 3
    confidence: 0.85
  - name: multi-table-writer
    when: table_count >= 5 && statement_count >= 15
    tier: 2
    confidence: 0.8
  - name: simple-lookup
    when: complexity < 20 && table_count <= 2
    tier: 1
    confidence: 0.9
`

// ClassifierService assigns a documentation tier (1-3) to an analyzed
// procedure with a confidence score.
type ClassifierService struct {
	engine *expression.Engine
	rules  []TierRule
}

// NewClassifierService loads tier rules from rulesPath; an empty path or a
// missing file falls back to the built-in default rules.
func NewClassifierService(engine *expression.Engine, rulesPath string) (*ClassifierService, error) {
	raw := []byte(defaultTierRules)
	if rulesPath != "" {
		data, err := os.ReadFile(rulesPath)
		if err == nil {
			raw = data
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read tier rules %s: %w", rulesPath, err)
		} else {
			log.Printf("⚠️ Tier rules file %s not found, using built-in defaults", rulesPath)
		}
	}

	var file tierRulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tier rules: %w", err)
	}

	env := classificationEnv(&models.ProcedureFacts{}, false)
	for _, rule := range file.Rules {
		if rule.Tier < 1 || rule.Tier > 3 {
			return nil, fmt.Errorf("tier rule %q: tier must be 1-3, got %d", rule.Name, rule.Tier)
		}
		if rule.Confidence <= 0 || rule.Confidence > 1 {
			return nil, fmt.Errorf("tier rule %q: confidence must be in (0,1], got %v", rule.Name, rule.Confidence)
		}
		if err := engine.Validate(rule.When, env); err != nil {
			return nil, fmt.Errorf("tier rule %q: invalid condition: %w", rule.Name, err)
		}
	}

	return &ClassifierService{engine: engine, rules: file.Rules}, nil
}

// Classify evaluates the rules in order against the extracted facts.
// The first matching rule wins; with no match the complexity bands decide.
func (s *ClassifierService) Classify(facts *models.ProcedureFacts, isQA bool) models.Classification {
	env := classificationEnv(facts, isQA)

	for _, rule := range s.rules {
		matched, err := s.engine.EvaluateBool(rule.When, env)
		if err != nil {
			log.Printf("⚠️ Tier rule %q evaluation failed: %v", rule.Name, err)
			continue
		}
		if matched {
			return models.Classification{
				Tier:       models.Tier(rule.Tier),
				Confidence: rule.Confidence,
				Rule:       rule.Name,
			}
		}
	}

	return bandFallback(facts.ComplexityScore)
}

// bandFallback maps the complexity score onto tier bands. Confidence grows
// with distance from the nearest band boundary, capped at 0.9.
func bandFallback(complexity int) models.Classification {
	var tier models.Tier
	var dist int
	switch {
	case complexity >= tier3ComplexityFloor:
		tier = models.Tier3
		dist = complexity - tier3ComplexityFloor
	case complexity >= tier2ComplexityFloor:
		tier = models.Tier2
		dist = min(complexity-tier2ComplexityFloor, tier3ComplexityFloor-1-complexity)
	default:
		tier = models.Tier1
		dist = tier2ComplexityFloor - 1 - complexity
	}

	confidence := 0.5 + float64(dist)/30.0
	if confidence > 0.9 {
		confidence = 0.9
	}
	return models.Classification{Tier: tier, Confidence: confidence}
}

// classificationEnv exposes the analyzer facts to rule conditions
func classificationEnv(facts *models.ProcedureFacts, isQA bool) map[string]interface{} {
	return map[string]interface{}{
		"complexity":      facts.ComplexityScore,
		"statement_count": facts.StatementCount,
		"table_count":     len(facts.Tables),
		"procedure_count": len(facts.Procedures),
		"parameter_count": len(facts.Parameters),
		"marker_count":    len(facts.Markers),
		"max_depth":       facts.MaxDepth,
		"is_qa":           isQA,
	}
}
