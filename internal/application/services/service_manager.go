package services

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/docuforge/backend/internal/infrastructure/database"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/expression"
)

// Config carries the pipeline settings resolved from the environment
type Config struct {
	GeminiAPIKey        string
	GeminiModel         string
	ConfidenceThreshold float64
	DocOutputDir        string
	IngestSchedule      string
	TierRulesPath       string
}

// ConfigFromEnv reads the pipeline settings from environment variables
func ConfigFromEnv() Config {
	cfg := Config{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		ConfidenceThreshold: 0.75,
		DocOutputDir:        os.Getenv("DOC_OUTPUT_DIR"),
		IngestSchedule:      os.Getenv("INGEST_SCHEDULE"),
		TierRulesPath:       os.Getenv("TIER_RULES_PATH"),
	}
	if v := os.Getenv("DRAFT_CONFIDENCE_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ConfidenceThreshold = t
		} else {
			log.Printf("⚠️ Invalid DRAFT_CONFIDENCE_THRESHOLD %q, using default", v)
		}
	}
	if cfg.IngestSchedule == "" {
		cfg.IngestSchedule = "* * * * *"
	}
	return cfg
}

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager *persistence.TransactionManager
	EventBus  *EventBus
	Outbox    *OutboxService

	Changes       *persistence.ChangeRepository
	Procedures    *persistence.ProcedureRepository
	Documents     *persistence.DocumentRepository
	Approvals     *persistence.ApprovalRepository
	Reviewers     *persistence.ReviewerRepository
	Notifications *persistence.NotificationRepository

	Analyzer     *AnalyzerService
	Classifier   *ClassifierService
	Drafter      *DraftingService
	Renderer     *RendererService
	Ingestion    *IngestionService
	Approval     *ApprovalService
	Notification *NotificationService
	Auth         *AuthService

	cfg Config
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection, cfg Config) (*ServiceManager, error) {
	sm := &ServiceManager{db: db, cfg: cfg}

	sm.TxManager = persistence.NewTransactionManager(db)
	sm.EventBus = NewEventBus()
	sm.Outbox = NewOutboxService(db, sm.EventBus, sm.TxManager)

	sm.Changes = persistence.NewChangeRepository(db.DB())
	sm.Procedures = persistence.NewProcedureRepository(db.DB())
	sm.Documents = persistence.NewDocumentRepository(db.DB())
	sm.Approvals = persistence.NewApprovalRepository(db.DB())
	sm.Reviewers = persistence.NewReviewerRepository(db.DB())
	sm.Notifications = persistence.NewNotificationRepository(db.DB())

	sm.Analyzer = NewAnalyzerService()

	classifier, err := NewClassifierService(expression.NewEngine(), cfg.TierRulesPath)
	if err != nil {
		return nil, err
	}
	sm.Classifier = classifier

	llm, err := NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	sm.Drafter = NewDraftingService(llm, cfg.ConfidenceThreshold)
	sm.Renderer = NewRendererService(cfg.DocOutputDir)

	sm.Ingestion = NewIngestionService(
		sm.Changes, sm.Procedures, sm.Documents,
		sm.Analyzer, sm.Classifier, sm.Drafter, sm.Renderer,
		sm.Outbox, sm.TxManager,
	)
	sm.Approval = NewApprovalService(
		sm.Approvals, sm.Documents, sm.Procedures,
		sm.Outbox, sm.TxManager, sm.Ingestion,
	)
	sm.Notification = NewNotificationService(sm.Notifications, sm.Reviewers, sm.TxManager)
	sm.Notification.RegisterHandlers(sm.EventBus)

	sm.Auth = NewAuthService(sm.Reviewers)

	return sm, nil
}

// StartWorkers launches the outbox worker and the ingestion sweep
func (sm *ServiceManager) StartWorkers() error {
	sm.Outbox.StartWorker(500 * time.Millisecond)
	return sm.Ingestion.Start(sm.cfg.IngestSchedule)
}

// StopWorkers stops all background workers gracefully
func (sm *ServiceManager) StopWorkers() {
	sm.Ingestion.Stop()
	sm.Outbox.StopWorker()
}
