package services

import (
	"archive/zip"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/backend/internal/domain/models"
)

func readDocumentXML(t *testing.T, path string) string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}

	t.Fatal("word/document.xml missing from package")
	return ""
}

func documentFixture() (*models.DocumentRecord, *models.Procedure) {
	doc := &models.DocumentRecord{
		ID:              "doc-1",
		Version:         "1.2",
		Revision:        2,
		Status:          models.DocStatusDraft,
		Tier:            models.Tier2,
		TierConfidence:  0.8,
		ComplexityScore: 25,
		Purpose:         "Processes one order batch.",
		Parameters: []models.Parameter{
			{Name: "@BatchID", Type: "INT", Description: "Batch to process"},
		},
		LogicFlow: []models.LogicStep{
			{Title: "Load batch", Description: "Reads order rows."},
		},
		Tables:        []string{"dbo.OrderHeader"},
		UsageExamples: []models.UsageExample{{Title: "Basic call", Code: "EXEC dbo.usp_ProcessOrderBatch 7"}},
		CreatedDate:   time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC),
	}
	proc := &models.Procedure{
		SchemaName: "dbo",
		Name:       "usp_ProcessOrderBatch",
	}
	return doc, proc
}

func TestRendererService_Render(t *testing.T) {
	svc := NewRendererService(t.TempDir())
	doc, proc := documentFixture()

	path, err := svc.Render(doc, proc, "jsmith", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, path, "dbo.usp_ProcessOrderBatch_v1.2_r2.docx")

	xml := readDocumentXML(t, path)

	assert.Contains(t, xml, "dbo.usp_ProcessOrderBatch")
	assert.Contains(t, xml, "Technical Documentation")
	assert.Contains(t, xml, "25/100")
	assert.Contains(t, xml, "Created By")
	assert.Contains(t, xml, "jsmith")

	// Sequential numbering over emitted sections only: no what's-new, and
	// complexity 25 drops dependencies, performance, and error handling.
	assert.Contains(t, xml, "1. Purpose")
	assert.Contains(t, xml, "2. Parameters")
	assert.Contains(t, xml, "3. Logic Flow")
	assert.Contains(t, xml, "4. Usage Examples")
	assert.NotContains(t, xml, "Dependencies")
	assert.NotContains(t, xml, "Performance Notes")
	assert.NotContains(t, xml, "Error Handling")

	assert.Contains(t, xml, "Step 1: Load batch")
	assert.Contains(t, xml, "EXEC dbo.usp_ProcessOrderBatch 7")
}

func TestRendererService_Render_ComplexDocument(t *testing.T) {
	svc := NewRendererService(t.TempDir())
	doc, proc := documentFixture()
	doc.ComplexityScore = 72
	doc.WhatsNew = "Pagination added."
	doc.PerformanceNotes = "Scans OrderHeader once."
	doc.ErrorHandling = "Rolls back on failure."
	doc.Procedures = []string{"dbo.usp_RecalculateTotals"}

	history := []models.VersionEntry{
		{Version: "1.1", Date: "2026-06-02", ChangedBy: "jsmith", Changes: "Initial release", RefDoc: "DF-0051"},
	}

	path, err := svc.Render(doc, proc, "jsmith", nil, history)
	require.NoError(t, err)

	xml := readDocumentXML(t, path)
	assert.Contains(t, xml, "2. What&#39;s New")
	assert.Contains(t, xml, "5. Dependencies")
	assert.Contains(t, xml, "6. Usage Examples")
	assert.Contains(t, xml, "7. Performance Notes")
	assert.Contains(t, xml, "8. Error Handling")
	assert.Contains(t, xml, "9. Full Version History")
	assert.Contains(t, xml, "dbo.usp_RecalculateTotals")
	assert.Contains(t, xml, "DF-0051")
}

func TestRendererService_Render_QAAndPendingFields(t *testing.T) {
	svc := NewRendererService(t.TempDir())
	doc, proc := documentFixture()
	doc.IsQA = true
	doc.NeedsReview = []string{"purpose"}
	doc.Purpose = ""

	path, err := svc.Render(doc, proc, "", nil, nil)
	require.NoError(t, err)

	xml := readDocumentXML(t, path)
	assert.Contains(t, xml, "Technical Documentation (QA)")
	assert.Contains(t, xml, "(pending reviewer input)")
	assert.Contains(t, xml, "Fields awaiting reviewer verification:")
	assert.Contains(t, xml, "purpose")
}

func TestRendererService_Render_RecentChangesCapped(t *testing.T) {
	svc := NewRendererService(t.TempDir())
	doc, proc := documentFixture()

	var recent []models.RecentChange
	for i := 1; i <= 7; i++ {
		recent = append(recent, models.RecentChange{
			Date:    fmt.Sprintf("2026-07-%02d", i),
			Summary: fmt.Sprintf("Change %d", i),
			RefDoc:  fmt.Sprintf("DF-%04d", i),
		})
	}

	path, err := svc.Render(doc, proc, "jsmith", recent, nil)
	require.NoError(t, err)

	xml := readDocumentXML(t, path)
	assert.Contains(t, xml, "Most Recent Changes")
	assert.Contains(t, xml, "Change 5")
	assert.NotContains(t, xml, "Change 6")
	assert.NotContains(t, xml, "Change 7")
}
