package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/docuforge/backend/internal/domain/events"
	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
	apperrors "github.com/docuforge/backend/pkg/errors"
)

const (
	sweepBatchSize  = 25
	sweepMaxRuntime = 10 * time.Minute
)

var ticketRefRe = regexp.MustCompile(`^[A-Z]{2,4}-\d{3,6}$`)

// IngestionService registers change requests and runs the documentation
// pipeline over them: analyze → classify → draft → render.
type IngestionService struct {
	changes    *persistence.ChangeRepository
	procedures *persistence.ProcedureRepository
	documents  *persistence.DocumentRepository
	analyzer   *AnalyzerService
	classifier *ClassifierService
	drafter    *DraftingService
	renderer   *RendererService
	outbox     *OutboxService
	txManager  *persistence.TransactionManager

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	changes *persistence.ChangeRepository,
	procedures *persistence.ProcedureRepository,
	documents *persistence.DocumentRepository,
	analyzer *AnalyzerService,
	classifier *ClassifierService,
	drafter *DraftingService,
	renderer *RendererService,
	outbox *OutboxService,
	txManager *persistence.TransactionManager,
) *IngestionService {
	return &IngestionService{
		changes:    changes,
		procedures: procedures,
		documents:  documents,
		analyzer:   analyzer,
		classifier: classifier,
		drafter:    drafter,
		renderer:   renderer,
		outbox:     outbox,
		txManager:  txManager,
		stopChan:   make(chan struct{}),
	}
}

// RegisterChange validates and stores one change request
func (s *IngestionService) RegisterChange(ctx context.Context, cr *models.ChangeRequest) (string, error) {
	if err := validateChange(cr); err != nil {
		return "", err
	}

	exists, err := s.changes.ExistsByTicket(ctx, cr.TicketRef, cr.ObjectName)
	if err != nil {
		return "", apperrors.NewInternalError("failed to check for duplicates", err)
	}
	if exists {
		return "", apperrors.NewConflictError("change request", "ticket_ref", cr.TicketRef)
	}

	var id string
	err = s.txManager.WithTransactionContext(ctx, func(txCtx context.Context) error {
		exec := s.txManager.ExecutorFor(txCtx)

		var insertErr error
		id, insertErr = s.changes.Insert(txCtx, exec, cr)
		if insertErr != nil {
			return insertErr
		}

		return s.outbox.EnqueueEvent(txCtx, events.EventChangeIngested, events.ChangeEventPayload{
			ChangeRequestID: id,
			TicketRef:       cr.TicketRef,
			ObjectName:      cr.ObjectName,
		})
	})
	if err != nil {
		return "", apperrors.NewInternalError("failed to register change", err)
	}

	log.Printf("✅ Registered change %s for %s.%s", cr.TicketRef, cr.SchemaName, cr.ObjectName)
	return id, nil
}

// ImportCSV ingests a tracker export. Expected header columns:
// ticket_ref, schema_name, object_name, object_type, summary, changed_by,
// change_date (YYYY-MM-DD), is_qa, sql_source. Rows whose ticket+object pair
// already exists are skipped.
func (s *IngestionService) ImportCSV(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, 0, apperrors.NewValidationError("file", "empty or unreadable CSV")
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"ticket_ref", "schema_name", "object_name"} {
		if _, ok := col[required]; !ok {
			return 0, 0, apperrors.NewValidationError("file", fmt.Sprintf("missing column %q", required))
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	line := 1
	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			log.Printf("⚠️ [Import] Line %d unreadable, skipping: %v", line, readErr)
			skipped++
			continue
		}

		cr := &models.ChangeRequest{
			TicketRef:  field(row, "ticket_ref"),
			SchemaName: field(row, "schema_name"),
			ObjectName: field(row, "object_name"),
			ObjectType: field(row, "object_type"),
			Summary:    field(row, "summary"),
			ChangedBy:  field(row, "changed_by"),
			SQLSource:  field(row, "sql_source"),
			IsQA:       strings.EqualFold(field(row, "is_qa"), "true"),
			ChangeDate: time.Now(),
		}
		if cr.ObjectType == "" {
			cr.ObjectType = "Stored Procedure"
		}
		if d, parseErr := time.Parse("2006-01-02", field(row, "change_date")); parseErr == nil {
			cr.ChangeDate = d
		}

		if _, regErr := s.RegisterChange(ctx, cr); regErr != nil {
			if apperrors.IsConflict(regErr) || apperrors.IsValidation(regErr) {
				log.Printf("⚠️ [Import] Line %d skipped: %v", line, regErr)
				skipped++
				continue
			}
			return imported, skipped, regErr
		}
		imported++
	}

	log.Printf("✅ [Import] %d change(s) imported, %d skipped", imported, skipped)
	return imported, skipped, nil
}

// Start launches the sweep loop on the given cron schedule
func (s *IngestionService) Start(cronExpr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid ingestion schedule %q: %w", cronExpr, err)
	}

	s.wg.Add(1)
	go s.loop(schedule)
	log.Printf("⏰ Ingestion sweep scheduled: %q", cronExpr)
	return nil
}

// Stop gracefully stops the sweep loop
func (s *IngestionService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	log.Printf("⏰ Ingestion sweep stopped")
}

func (s *IngestionService) loop(schedule cron.Schedule) {
	defer s.wg.Done()

	for {
		next := schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep claims pending change requests and runs the pipeline over each.
// Per-item failures are recorded on the row and never abort the pass.
func (s *IngestionService) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepMaxRuntime)
	defer cancel()

	claimed, err := s.changes.ClaimNew(ctx, sweepBatchSize)
	if err != nil {
		log.Printf("⚠️ Sweep failed to claim change requests: %v", err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	log.Printf("🔄 Sweep processing %d change request(s)", len(claimed))
	for _, cr := range claimed {
		s.processChange(ctx, cr)
	}
}

func (s *IngestionService) processChange(ctx context.Context, cr *models.ChangeRequest) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Panic processing change %s: %v", cr.TicketRef, r)
			s.failChange(cr.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	docID, err := s.draftRevision(ctx, cr, "")
	if err != nil {
		log.Printf("❌ Change %s failed: %v", cr.TicketRef, err)
		s.failChange(cr.ID, err.Error())
		return
	}

	log.Printf("✅ Change %s drafted document %s", cr.TicketRef, docID)
}

// Redraft generates a new revision of a rejected document, folding the
// reviewer comments into the drafting prompt.
func (s *IngestionService) Redraft(ctx context.Context, documentID, reviewerComments string) (string, error) {
	doc, err := s.documents.GetByID(ctx, s.txManager.ExecutorFor(ctx), documentID)
	if err != nil {
		return "", fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if doc.ChangeRequestID == "" {
		return "", fmt.Errorf("document %s has no originating change request", documentID)
	}

	cr, err := s.changes.GetByID(ctx, doc.ChangeRequestID)
	if err != nil {
		return "", fmt.Errorf("failed to load change request: %w", err)
	}

	return s.draftRevision(ctx, cr, reviewerComments)
}

// draftRevision runs analyze → classify → draft → persist → render for one
// change request and returns the new document ID.
func (s *IngestionService) draftRevision(ctx context.Context, cr *models.ChangeRequest, reviewerComments string) (string, error) {
	if strings.TrimSpace(cr.SQLSource) == "" {
		return "", fmt.Errorf("change %s carries no SQL source", cr.TicketRef)
	}

	facts, err := s.analyzer.Analyze(cr.SQLSource)
	if err != nil {
		return "", fmt.Errorf("analyzer: %w", err)
	}

	classification := s.classifier.Classify(facts, cr.IsQA)

	recent, err := s.changes.RecentByObject(ctx, cr.SchemaName, cr.ObjectName, maxRecentChanges)
	if err != nil {
		return "", fmt.Errorf("failed to load recent changes: %w", err)
	}

	draft, err := s.drafter.Draft(ctx, DraftInput{
		Facts:            facts,
		Classification:   classification,
		Change:           cr,
		RecentChanges:    recent,
		ReviewerComments: reviewerComments,
	})
	if err != nil {
		return "", fmt.Errorf("drafting: %w", err)
	}

	var docID, procID string
	err = s.txManager.WithTransactionContext(ctx, func(txCtx context.Context) error {
		exec := s.txManager.ExecutorFor(txCtx)

		var txErr error
		procID, txErr = s.procedures.Upsert(txCtx, exec, cr.SchemaName, cr.ObjectName, cr.ObjectType, cr.IsQA)
		if txErr != nil {
			return txErr
		}

		revision, txErr := s.documents.NextRevision(txCtx, procID)
		if txErr != nil {
			return txErr
		}

		doc := &models.DocumentRecord{
			ProcedureID:      procID,
			ChangeRequestID:  cr.ID,
			Version:          fmt.Sprintf("1.%d", revision-1),
			Revision:         revision,
			IsQA:             cr.IsQA,
			Status:           models.DocStatusDraft,
			Tier:             classification.Tier,
			TierConfidence:   classification.Confidence,
			ComplexityScore:  facts.ComplexityScore,
			Purpose:          draft.Purpose,
			WhatsNew:         draft.WhatsNew,
			PerformanceNotes: draft.PerformanceNotes,
			ErrorHandling:    draft.ErrorHandling,
			Parameters:       draft.Parameters,
			LogicFlow:        draft.LogicFlow,
			Tables:           facts.Tables,
			Procedures:       facts.Procedures,
			UsageExamples:    draft.UsageExamples,
			NeedsReview:      draft.NeedsReview,
		}

		docID, txErr = s.documents.Insert(txCtx, exec, doc)
		if txErr != nil {
			return txErr
		}

		if txErr = s.changes.MarkDrafted(txCtx, exec, cr.ID); txErr != nil {
			return txErr
		}

		if txErr = s.procedures.UpdateDocumentState(txCtx, exec, procID, doc.Version,
			classification.Tier, facts.ComplexityScore, models.DocStatusDraft, time.Now()); txErr != nil {
			return txErr
		}

		return s.outbox.EnqueueEvent(txCtx, events.EventDocumentDrafted, events.DocumentEventPayload{
			DocumentID:    docID,
			ProcedureName: fmt.Sprintf("%s.%s", cr.SchemaName, cr.ObjectName),
		})
	})
	if err != nil {
		return "", err
	}

	s.renderDocument(ctx, docID, procID, cr.ChangedBy)
	return docID, nil
}

// renderDocument writes the .docx artifact and records its path.
// Rendering failures are logged; the drafted data is already committed.
func (s *IngestionService) renderDocument(ctx context.Context, docID, procID, createdBy string) {
	exec := s.txManager.ExecutorFor(ctx)

	doc, err := s.documents.GetByID(ctx, exec, docID)
	if err != nil {
		log.Printf("⚠️ Render skipped, failed to reload document %s: %v", docID, err)
		return
	}
	proc, err := s.procedures.GetByID(ctx, procID)
	if err != nil {
		log.Printf("⚠️ Render skipped, failed to load procedure %s: %v", procID, err)
		return
	}
	recent, err := s.changes.RecentByObject(ctx, proc.SchemaName, proc.Name, maxRecentChanges)
	if err != nil {
		log.Printf("⚠️ Render skipped, failed to load recent changes: %v", err)
		return
	}
	history, err := s.documents.VersionHistory(ctx, procID)
	if err != nil {
		log.Printf("⚠️ Render skipped, failed to load version history: %v", err)
		return
	}

	path, err := s.renderer.Render(doc, proc, createdBy, recent, history)
	if err != nil {
		log.Printf("❌ Render failed for document %s: %v", docID, err)
		return
	}

	if err := s.documents.UpdateFilePath(ctx, exec, docID, path); err != nil {
		log.Printf("⚠️ Failed to record file path for document %s: %v", docID, err)
	}
}

func (s *IngestionService) failChange(id, msg string) {
	if err := s.changes.MarkFailed(context.Background(), id, msg); err != nil {
		log.Printf("⚠️ Failed to mark change %s as failed: %v", id, err)
	}
}

func validateChange(cr *models.ChangeRequest) error {
	if !ticketRefRe.MatchString(cr.TicketRef) {
		return apperrors.NewValidationError("ticket_ref", "must look like DF-0089")
	}
	if strings.TrimSpace(cr.ObjectName) == "" {
		return apperrors.NewValidationError("object_name", "is required")
	}
	if strings.TrimSpace(cr.SchemaName) == "" {
		cr.SchemaName = "dbo"
	}
	if strings.TrimSpace(cr.ObjectType) == "" {
		cr.ObjectType = "Stored Procedure"
	}
	if cr.ChangeDate.IsZero() {
		cr.ChangeDate = time.Now()
	}
	return nil
}
