package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/backend/internal/domain/models"
)

// stubLLM returns a canned response and records the prompt it was given
type stubLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func draftInputFixture() DraftInput {
	return DraftInput{
		Facts: &models.ProcedureFacts{
			SchemaName: "dbo",
			Name:       "usp_ProcessOrderBatch",
			Parameters: []models.Parameter{
				{Name: "@BatchID", Type: "INT"},
				{Name: "@MaxRows", Type: "INT", DefaultValue: "100"},
			},
			Tables:          []string{"dbo.OrderHeader"},
			Markers:         []models.ChangeMarker{{Ref: "BAS-2201", SQL: "SELECT 1"}},
			ComplexityScore: 60,
		},
		Classification: models.Classification{Tier: models.Tier2, Confidence: 0.8},
		Change: &models.ChangeRequest{
			TicketRef: "DF-0089",
			Summary:   "Added pagination support",
			SQLSource: "CREATE PROCEDURE dbo.usp_ProcessOrderBatch AS SELECT 1",
		},
	}
}

const confidentResponse = `{
  "purpose": {"text": "Processes one order batch.", "confidence": 0.95},
  "whats_new": {"text": "Pagination added via @MaxRows.", "confidence": 0.9},
  "logic_flow": [{"title": "Load batch", "description": "Reads order rows."}],
  "logic_flow_confidence": 0.9,
  "parameter_descriptions": {"@BatchID": "Batch to process", "MaxRows": "Row cap"},
  "parameters_confidence": 0.92,
  "usage_examples": [{"title": "Basic call", "code": "EXEC dbo.usp_ProcessOrderBatch 7", "explanation": "Default row cap."}],
  "usage_examples_confidence": 0.88,
  "performance_notes": {"text": "Scans OrderHeader once.", "confidence": 0.85},
  "error_handling": {"text": "Rolls back on failure.", "confidence": 0.8}
}`

func TestDraftingService_Draft(t *testing.T) {
	llm := &stubLLM{response: confidentResponse}
	svc := NewDraftingService(llm, 0.75)

	result, err := svc.Draft(context.Background(), draftInputFixture())
	require.NoError(t, err)

	assert.Equal(t, "Processes one order batch.", result.Purpose)
	assert.Equal(t, "Pagination added via @MaxRows.", result.WhatsNew)
	assert.Equal(t, "Scans OrderHeader once.", result.PerformanceNotes)
	assert.Equal(t, "Rolls back on failure.", result.ErrorHandling)
	require.Len(t, result.LogicFlow, 1)
	require.Len(t, result.UsageExamples, 1)
	assert.Empty(t, result.NeedsReview)

	// Descriptions merge onto the analyzer parameters, with or without
	// the leading @ in the response keys.
	require.Len(t, result.Parameters, 2)
	assert.Equal(t, "Batch to process", result.Parameters[0].Description)
	assert.Equal(t, "Row cap", result.Parameters[1].Description)

	assert.Contains(t, llm.lastPrompt, "dbo.usp_ProcessOrderBatch")
	assert.Contains(t, llm.lastPrompt, "DF-0089")
	assert.Contains(t, llm.lastPrompt, "BAS-2201")
}

func TestDraftingService_Draft_BelowThresholdFieldsStayEmpty(t *testing.T) {
	llm := &stubLLM{response: `{
		"purpose": {"text": "Maybe processes a batch.", "confidence": 0.4},
		"logic_flow": [{"title": "Load", "description": "..."}],
		"logic_flow_confidence": 0.9,
		"usage_examples_confidence": 0.9,
		"performance_notes": {"text": "Unverified claim.", "confidence": 0.3},
		"error_handling": {"text": "Handles errors.", "confidence": 0.9},
		"whats_new": {"text": "New stuff.", "confidence": 0.9}
	}`}
	svc := NewDraftingService(llm, 0.75)

	result, err := svc.Draft(context.Background(), draftInputFixture())
	require.NoError(t, err)

	// Low-confidence fields are left for the reviewer, not auto-filled
	assert.Empty(t, result.Purpose)
	assert.Empty(t, result.PerformanceNotes)
	assert.ElementsMatch(t, []string{"purpose", "performance_notes"}, result.NeedsReview)

	assert.Len(t, result.LogicFlow, 1)
	assert.Equal(t, "Handles errors.", result.ErrorHandling)
	assert.Equal(t, "New stuff.", result.WhatsNew)
}

func TestDraftingService_Draft_FencedResponse(t *testing.T) {
	llm := &stubLLM{response: "```json\n" + confidentResponse + "\n```"}
	svc := NewDraftingService(llm, 0.75)

	result, err := svc.Draft(context.Background(), draftInputFixture())
	require.NoError(t, err)
	assert.Equal(t, "Processes one order batch.", result.Purpose)
}

func TestDraftingService_Draft_UnparseableResponseFlagsEverything(t *testing.T) {
	llm := &stubLLM{response: "I am sorry, I cannot help with that."}
	svc := NewDraftingService(llm, 0.75)

	result, err := svc.Draft(context.Background(), draftInputFixture())
	require.NoError(t, err)

	assert.Empty(t, result.Purpose)
	assert.Empty(t, result.LogicFlow)
	assert.ElementsMatch(t,
		[]string{"purpose", "logic_flow", "usage_examples", "whats_new", "performance_notes", "error_handling"},
		result.NeedsReview)

	// Analyzer parameters survive without descriptions
	require.Len(t, result.Parameters, 2)
	assert.Empty(t, result.Parameters[0].Description)
}

func TestDraftingService_Draft_SectionGatingByComplexity(t *testing.T) {
	llm := &stubLLM{response: confidentResponse}
	svc := NewDraftingService(llm, 0.75)

	input := draftInputFixture()
	input.Facts.ComplexityScore = 20
	input.Facts.Markers = nil
	input.Change.Summary = ""

	result, err := svc.Draft(context.Background(), input)
	require.NoError(t, err)

	// Simple procedures get no what's-new, performance, or error sections
	// regardless of model confidence.
	assert.Empty(t, result.WhatsNew)
	assert.Empty(t, result.PerformanceNotes)
	assert.Empty(t, result.ErrorHandling)
	assert.Empty(t, result.NeedsReview)
}

func TestDraftingService_Draft_ReviewerCommentsInPrompt(t *testing.T) {
	llm := &stubLLM{response: confidentResponse}
	svc := NewDraftingService(llm, 0.75)

	input := draftInputFixture()
	input.ReviewerComments = "The purpose section describes the wrong table."

	_, err := svc.Draft(context.Background(), input)
	require.NoError(t, err)
	assert.Contains(t, llm.lastPrompt, "The purpose section describes the wrong table.")
	assert.Contains(t, llm.lastPrompt, "rejected")
}
