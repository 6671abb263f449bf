package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/docuforge/backend/internal/domain/models"
)

// LLMClient generates a completion for a prompt. The response is expected
// to be a single JSON object.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements LLMClient on Google's Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed LLM client
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Generate sends the prompt and returns the raw response text
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty response")
	}
	return text, nil
}

// DraftInput carries everything the drafter knows about one change
type DraftInput struct {
	Facts          *models.ProcedureFacts
	Classification models.Classification
	Change         *models.ChangeRequest
	RecentChanges  []models.RecentChange
	// ReviewerComments from a rejected revision feed the re-draft prompt
	ReviewerComments string
}

// DraftResult is the generated prose, parameter descriptions, and the list
// of fields whose confidence fell below the acceptance threshold.
type DraftResult struct {
	Purpose          string
	WhatsNew         string
	PerformanceNotes string
	ErrorHandling    string
	LogicFlow        []models.LogicStep
	UsageExamples    []models.UsageExample
	Parameters       []models.Parameter
	NeedsReview      []string
}

// scoredText is one generated field with the model's self-reported confidence
type scoredText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type draftResponse struct {
	Purpose                 scoredText                 `json:"purpose"`
	WhatsNew                scoredText                 `json:"whats_new"`
	LogicFlow               []models.LogicStep         `json:"logic_flow"`
	LogicFlowConfidence     float64                    `json:"logic_flow_confidence"`
	ParameterDescriptions   map[string]string          `json:"parameter_descriptions"`
	ParametersConfidence    float64                    `json:"parameters_confidence"`
	UsageExamples           []models.UsageExample      `json:"usage_examples"`
	UsageExamplesConfidence float64                    `json:"usage_examples_confidence"`
	PerformanceNotes        scoredText                 `json:"performance_notes"`
	ErrorHandling           scoredText                 `json:"error_handling"`
}

// DraftingService turns analyzer facts into document prose via an LLM.
// Fields whose confidence falls below the threshold are kept but flagged
// for reviewer attention.
type DraftingService struct {
	llm       LLMClient
	threshold float64
}

// NewDraftingService creates a new DraftingService
func NewDraftingService(llm LLMClient, threshold float64) *DraftingService {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.75
	}
	return &DraftingService{llm: llm, threshold: threshold}
}

// Draft generates the document sections for one analyzed change
func (s *DraftingService) Draft(ctx context.Context, input DraftInput) (*DraftResult, error) {
	prompt := s.buildPrompt(input)

	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// An unparseable response counts as zero confidence for every field
	var resp draftResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		log.Printf("⚠️ [Draft] %s.%s: unparseable model response, flagging all fields: %v",
			input.Facts.SchemaName, input.Facts.Name, err)
		resp = draftResponse{}
	}

	result := &DraftResult{
		Parameters: mergeParameterDescriptions(input.Facts.Parameters, resp.ParameterDescriptions),
	}

	// A field is only auto-populated when its confidence clears the
	// threshold; otherwise it stays empty and is flagged for review.
	accept := func(field string, confidence float64) bool {
		if confidence >= s.threshold {
			return true
		}
		result.NeedsReview = append(result.NeedsReview, field)
		return false
	}

	if accept("purpose", resp.Purpose.Confidence) {
		result.Purpose = resp.Purpose.Text
	}
	if accept("logic_flow", resp.LogicFlowConfidence) {
		result.LogicFlow = resp.LogicFlow
	}
	if len(resp.ParameterDescriptions) > 0 && !accept("parameters", resp.ParametersConfidence) {
		result.Parameters = mergeParameterDescriptions(input.Facts.Parameters, nil)
	}
	if accept("usage_examples", resp.UsageExamplesConfidence) {
		result.UsageExamples = resp.UsageExamples
	}

	if len(input.Facts.Markers) > 0 || input.Change.Summary != "" {
		if accept("whats_new", resp.WhatsNew.Confidence) {
			result.WhatsNew = resp.WhatsNew.Text
		}
	}
	if input.Facts.ComplexityScore > performanceNotesFloor {
		if accept("performance_notes", resp.PerformanceNotes.Confidence) {
			result.PerformanceNotes = resp.PerformanceNotes.Text
		}
	}
	if input.Facts.ComplexityScore > errorHandlingFloor {
		if accept("error_handling", resp.ErrorHandling.Confidence) {
			result.ErrorHandling = resp.ErrorHandling.Text
		}
	}

	if len(result.NeedsReview) > 0 {
		log.Printf("⚠️ [Draft] %s.%s: %d field(s) below confidence %.2f: %v",
			input.Facts.SchemaName, input.Facts.Name, len(result.NeedsReview), s.threshold, result.NeedsReview)
	}

	return result, nil
}

func (s *DraftingService) buildPrompt(input DraftInput) string {
	var b strings.Builder

	b.WriteString("You are a database documentation writer. Generate documentation sections ")
	b.WriteString("for the stored procedure described below.\n\n")

	fmt.Fprintf(&b, "Procedure: %s.%s\n", input.Facts.SchemaName, input.Facts.Name)
	fmt.Fprintf(&b, "Documentation tier: %d (1=brief, 3=exhaustive)\n", input.Classification.Tier)
	fmt.Fprintf(&b, "Change ticket: %s\n", input.Change.TicketRef)
	if input.Change.Summary != "" {
		fmt.Fprintf(&b, "Change summary: %s\n", input.Change.Summary)
	}

	if len(input.Facts.Parameters) > 0 {
		b.WriteString("\nParameters:\n")
		for _, p := range input.Facts.Parameters {
			fmt.Fprintf(&b, "  %s %s", p.Name, p.Type)
			if p.DefaultValue != "" {
				fmt.Fprintf(&b, " (default %s)", p.DefaultValue)
			}
			b.WriteString("\n")
		}
	}
	if len(input.Facts.Tables) > 0 {
		fmt.Fprintf(&b, "\nTables referenced: %s\n", strings.Join(input.Facts.Tables, ", "))
	}
	if len(input.Facts.Procedures) > 0 {
		fmt.Fprintf(&b, "Procedures called: %s\n", strings.Join(input.Facts.Procedures, ", "))
	}

	if len(input.Facts.Markers) > 0 {
		b.WriteString("\nChanged regions (comment-delimited):\n")
		for _, m := range input.Facts.Markers {
			fmt.Fprintf(&b, "--- %s ---\n%s\n", m.Ref, m.SQL)
		}
	}

	if len(input.RecentChanges) > 0 {
		b.WriteString("\nRecent change history:\n")
		for _, rc := range input.RecentChanges {
			fmt.Fprintf(&b, "  %s %s (%s)\n", rc.Date, rc.Summary, rc.RefDoc)
		}
	}

	if input.ReviewerComments != "" {
		b.WriteString("\nA previous draft was rejected with these reviewer comments. ")
		b.WriteString("Address them in this revision:\n")
		b.WriteString(input.ReviewerComments)
		b.WriteString("\n")
	}

	if input.Change.SQLSource != "" {
		b.WriteString("\nFull source:\n")
		b.WriteString(input.Change.SQLSource)
		b.WriteString("\n")
	}

	b.WriteString(`
Respond with a single JSON object, no markdown, with this shape:
{
  "purpose": {"text": "...", "confidence": 0.0-1.0},
  "whats_new": {"text": "...", "confidence": 0.0-1.0},
  "logic_flow": [{"title": "...", "description": "..."}],
  "logic_flow_confidence": 0.0-1.0,
  "parameter_descriptions": {"@ParamName": "..."},
  "parameters_confidence": 0.0-1.0,
  "usage_examples": [{"title": "...", "code": "...", "explanation": "..."}],
  "usage_examples_confidence": 0.0-1.0,
  "performance_notes": {"text": "...", "confidence": 0.0-1.0},
  "error_handling": {"text": "...", "confidence": 0.0-1.0}
}
Confidence is your own estimate of factual accuracy for that field.
Only describe behavior supported by the provided source and facts.`)

	return b.String()
}

// mergeParameterDescriptions fills analyzer-extracted parameters with the
// generated descriptions, matching on parameter name.
func mergeParameterDescriptions(params []models.Parameter, descriptions map[string]string) []models.Parameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]models.Parameter, len(params))
	copy(out, params)
	for i := range out {
		if d, ok := descriptions[out[i].Name]; ok {
			out[i].Description = d
		} else if d, ok := descriptions[strings.TrimPrefix(out[i].Name, "@")]; ok {
			out[i].Description = d
		}
	}
	return out
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
