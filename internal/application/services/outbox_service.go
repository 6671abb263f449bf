package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/docuforge/backend/internal/domain/events"
	"github.com/docuforge/backend/internal/infrastructure/database"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
)

// MaxRetryAttempts is the delivery retry budget per outbox event
const MaxRetryAttempts = 5

// Processed events are kept for a day, then swept hourly
const (
	outboxRetention       = 24 * time.Hour
	outboxCleanupInterval = time.Hour
)

// OutboxService handles transactional event storage and async publishing.
// It implements the Outbox Pattern for guaranteed event delivery.
type OutboxService struct {
	db        *database.Connection
	repo      *persistence.OutboxRepository
	eventBus  *EventBus
	txManager *persistence.TransactionManager

	// Worker control
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOutboxService creates a new OutboxService
func NewOutboxService(db *database.Connection, eventBus *EventBus, txManager *persistence.TransactionManager) *OutboxService {
	return &OutboxService{
		db:        db,
		repo:      persistence.NewOutboxRepository(db.DB()),
		eventBus:  eventBus,
		txManager: txManager,
		stopCh:    make(chan struct{}),
	}
}

// EnqueueEvent stores an event in the outbox table within the current
// transaction if one is carried in the context. This persists the event
// atomically with the business operation.
func (os *OutboxService) EnqueueEvent(ctx context.Context, eventType events.EventType, payload interface{}) error {
	exec := os.txManager.ExecutorFor(ctx)

	id, err := os.repo.Enqueue(ctx, exec, string(eventType), payload)
	if err != nil {
		return err
	}
	log.Printf("✅ [Outbox] Enqueued event %s (ID: %s)", eventType, id)
	return nil
}

// StartWorker starts the background workers: one polls pending events with
// the specified interval, the other sweeps old processed events hourly so
// the outbox table does not grow without bound.
func (os *OutboxService) StartWorker(interval time.Duration) {
	os.wg.Add(1)
	go func() {
		defer os.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("📤 Outbox worker started with %v interval", interval)

		for {
			select {
			case <-os.stopCh:
				log.Printf("📤 Outbox worker stopping...")
				return
			case <-ticker.C:
				if err := os.ProcessOutbox(context.Background()); err != nil {
					log.Printf("⚠️ Outbox worker error: %v", err)
				}
			}
		}
	}()

	os.wg.Add(1)
	go func() {
		defer os.wg.Done()

		ticker := time.NewTicker(outboxCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-os.stopCh:
				return
			case <-ticker.C:
				removed, err := os.CleanupProcessed(context.Background(), outboxRetention)
				if err != nil {
					log.Printf("⚠️ Outbox cleanup error: %v", err)
				} else if removed > 0 {
					log.Printf("✅ [Outbox] Cleaned up %d processed event(s)", removed)
				}
			}
		}
	}()
}

// StopWorker stops the background worker gracefully
func (os *OutboxService) StopWorker() {
	os.stopOnce.Do(func() {
		close(os.stopCh)
	})
	os.wg.Wait()
	log.Printf("📤 Outbox worker stopped")
}

// ProcessOutbox processes all pending events in the outbox table.
// Events are published via EventBus and marked as processed.
// Each event is processed in its own transaction to ensure atomicity.
func (os *OutboxService) ProcessOutbox(ctx context.Context) error {
	pending, err := os.repo.GetPendingEvents(ctx, 100)
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		log.Printf("🔄 [Outbox] Processing %d pending events", len(pending))
	}

	for _, e := range pending {
		if err := os.processEventAtomic(ctx, e.ID, e.EventType, e.Payload, e.RetryCount); err != nil {
			log.Printf("⚠️ Failed to process outbox event %s: %v", e.ID, err)
		}
	}

	return nil
}

// processEventAtomic claims an event, publishes it, and updates status atomically
func (os *OutboxService) processEventAtomic(ctx context.Context, id, eventType, payloadJSON string, retryCount int) error {
	tx, err := os.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Skip if already claimed by another worker
	claimedID, err := os.repo.ClaimEvent(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("failed to claim event: %w", err)
	}
	if claimedID == "" {
		return nil
	}

	payload, err := decodePayload(eventType, payloadJSON)
	if err != nil {
		log.Printf("❌ [Outbox] Event %s failed payload unmarshal: %v", id, err)
		if markErr := os.repo.MarkFailed(ctx, tx, id, fmt.Sprintf("invalid payload: %v", err)); markErr != nil {
			return fmt.Errorf("failed to mark event as failed: %w", markErr)
		}
		return tx.Commit()
	}

	if err := os.eventBus.Publish(ctx, events.EventType(eventType), payload); err != nil {
		newRetryCount := retryCount + 1
		if newRetryCount >= MaxRetryAttempts {
			if markErr := os.repo.MarkFailed(ctx, tx, id, fmt.Sprintf("max retries exceeded: %v", err)); markErr != nil {
				return fmt.Errorf("failed to mark event as failed: %w", markErr)
			}
			return tx.Commit()
		}

		if updateErr := os.repo.IncrementRetry(ctx, tx, id, newRetryCount, err.Error()); updateErr != nil {
			return fmt.Errorf("failed to update retry count: %w", updateErr)
		}
		log.Printf("⚠️ [Outbox] Event %s failed (Attempt %d/%d). Error: %v", id, newRetryCount, MaxRetryAttempts, err)
		return tx.Commit()
	}

	if err := os.repo.MarkProcessed(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("✅ [Outbox] Successfully processed event %s (Type: %s)", id, eventType)
	return nil
}

// decodePayload deserializes a stored payload into its domain type
func decodePayload(eventType, payloadJSON string) (interface{}, error) {
	if strings.HasPrefix(eventType, "change.") {
		var p events.ChangeEventPayload
		if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
			return nil, err
		}
		return p, nil
	}

	var p events.DocumentEventPayload
	if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
		return nil, err
	}
	return p, nil
}

// CleanupProcessed deletes processed events older than olderThan and
// returns how many were removed. The worker runs it on a schedule.
func (os *OutboxService) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	return os.repo.CleanupProcessed(ctx, cutoff)
}
