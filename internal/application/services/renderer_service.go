package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/docx"
)

// Complexity floors gating the optional document sections
const (
	dependenciesFloor     = 30
	errorHandlingFloor    = 40
	performanceNotesFloor = 50
)

const maxRecentChanges = 5

// RendererService renders a document revision to a .docx file on disk
type RendererService struct {
	outputDir string
}

// NewRendererService creates a new RendererService writing under outputDir
func NewRendererService(outputDir string) *RendererService {
	if outputDir == "" {
		outputDir = "generated-docs"
	}
	return &RendererService{outputDir: outputDir}
}

// Render writes the document to disk and returns its file path. createdBy
// is the author of the originating change request. Section numbering is
// sequential over the sections actually emitted.
func (s *RendererService) Render(doc *models.DocumentRecord, proc *models.Procedure, createdBy string, recent []models.RecentChange, history []models.VersionEntry) (string, error) {
	b := docx.NewBuilder()

	s.writeHeader(b, doc, proc, createdBy)
	s.writeRecentChanges(b, recent)

	section := 0
	next := func(title string) string {
		section++
		return fmt.Sprintf("%d. %s", section, title)
	}

	// Purpose
	b.AddStyledParagraph(next("Purpose"), headingStyle())
	purpose := doc.Purpose
	if doc.IsQA && purpose != "" {
		purpose = "[QA ENVIRONMENT] " + purpose
	}
	if purpose == "" {
		purpose = "(pending reviewer input)"
	}
	b.AddParagraph(purpose)

	// What's New, only when the change produced one
	if doc.WhatsNew != "" {
		b.AddStyledParagraph(next("What's New"), headingStyle())
		b.AddParagraph(doc.WhatsNew)
	}

	// Parameters
	if len(doc.Parameters) > 0 {
		b.AddStyledParagraph(next("Parameters"), headingStyle())
		rows := make([][]string, 0, len(doc.Parameters))
		for _, p := range doc.Parameters {
			rows = append(rows, []string{p.Name, p.Type, p.DefaultValue, p.Description})
		}
		b.AddTable([]string{"Name", "Type", "Default", "Description"}, rows)
	}

	// Logic Flow
	if len(doc.LogicFlow) > 0 {
		b.AddStyledParagraph(next("Logic Flow"), headingStyle())
		for i, step := range doc.LogicFlow {
			b.AddStyledParagraph(fmt.Sprintf("Step %d: %s", i+1, step.Title), docx.TextStyle{Bold: true})
			b.AddParagraph(step.Description)
		}
	}

	// Dependencies
	if doc.ComplexityScore > dependenciesFloor && (len(doc.Tables) > 0 || len(doc.Procedures) > 0) {
		b.AddStyledParagraph(next("Dependencies"), headingStyle())
		if len(doc.Tables) > 0 {
			b.AddStyledParagraph("Tables", docx.TextStyle{Bold: true})
			for _, t := range doc.Tables {
				b.AddBullet(t)
			}
		}
		if len(doc.Procedures) > 0 {
			b.AddStyledParagraph("Procedures", docx.TextStyle{Bold: true})
			for _, p := range doc.Procedures {
				b.AddBullet(p)
			}
		}
	}

	// Usage Examples
	if len(doc.UsageExamples) > 0 {
		b.AddStyledParagraph(next("Usage Examples"), headingStyle())
		for _, ex := range doc.UsageExamples {
			b.AddStyledParagraph(ex.Title, docx.TextStyle{Bold: true})
			b.AddCodeBlock(ex.Code)
			if ex.Explanation != "" {
				b.AddParagraph(ex.Explanation)
			}
		}
	}

	// Performance Notes
	if doc.ComplexityScore > performanceNotesFloor && doc.PerformanceNotes != "" {
		b.AddStyledParagraph(next("Performance Notes"), headingStyle())
		b.AddParagraph(doc.PerformanceNotes)
	}

	// Error Handling
	if doc.ComplexityScore > errorHandlingFloor && doc.ErrorHandling != "" {
		b.AddStyledParagraph(next("Error Handling"), headingStyle())
		b.AddParagraph(doc.ErrorHandling)
	}

	// Full Version History
	if len(history) > 0 {
		b.AddStyledParagraph(next("Full Version History"), headingStyle())
		rows := make([][]string, 0, len(history))
		for _, v := range history {
			rows = append(rows, []string{v.Version, v.Date, v.ChangedBy, v.Changes, v.RefDoc})
		}
		b.AddTable([]string{"Version", "Date", "Changed By", "Changes", "Ref"}, rows)
	}

	if len(doc.NeedsReview) > 0 {
		b.AddDivider()
		b.AddStyledParagraph("Fields awaiting reviewer verification:", docx.TextStyle{Bold: true, Color: "B45309"})
		for _, f := range doc.NeedsReview {
			b.AddBullet(f)
		}
	}

	return s.writeFile(b, doc, proc)
}

// writeHeader emits the title and the version/type/created facts box
func (s *RendererService) writeHeader(b *docx.Builder, doc *models.DocumentRecord, proc *models.Procedure, createdBy string) {
	title := fmt.Sprintf("%s.%s", proc.SchemaName, proc.Name)
	b.AddStyledParagraph(title, docx.TextStyle{Bold: true, Size: 36, Color: "2C5F8D"})

	subtitle := "Technical Documentation"
	if doc.IsQA {
		subtitle = "Technical Documentation (QA)"
	}
	b.AddStyledParagraph(subtitle, docx.TextStyle{Size: 24, Color: "6B7280"})

	docType := "Production"
	if doc.IsQA {
		docType = "QA"
	}

	if createdBy == "" {
		createdBy = "-"
	}

	b.AddTable([]string{"Field", "Value"}, [][]string{
		{"Version", doc.Version},
		{"Type", docType},
		{"Tier", strconv.Itoa(int(doc.Tier))},
		{"Created", doc.CreatedDate.Format("2006-01-02")},
		{"Created By", createdBy},
		{"Complexity", fmt.Sprintf("%d/100", doc.ComplexityScore)},
	})
	b.AddDivider()
}

func (s *RendererService) writeRecentChanges(b *docx.Builder, recent []models.RecentChange) {
	if len(recent) == 0 {
		return
	}
	if len(recent) > maxRecentChanges {
		recent = recent[:maxRecentChanges]
	}

	b.AddStyledParagraph("Most Recent Changes", headingStyle())
	rows := make([][]string, 0, len(recent))
	for _, rc := range recent {
		rows = append(rows, []string{rc.Date, rc.Summary, rc.RefDoc})
	}
	b.AddTable([]string{"Date", "Summary", "Ref"}, rows)
	b.AddDivider()
}

func (s *RendererService) writeFile(b *docx.Builder, doc *models.DocumentRecord, proc *models.Procedure) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s_v%s_r%d.docx", proc.SchemaName, proc.Name, doc.Version, doc.Revision)
	path := filepath.Join(s.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create document file: %w", err)
	}
	defer f.Close()

	if err := b.WriteTo(f); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	log.Printf("📄 Rendered %s", path)
	return path, nil
}

func headingStyle() docx.TextStyle {
	return docx.TextStyle{Bold: true, Size: 28, Color: "2C5F8D"}
}
