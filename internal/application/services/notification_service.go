package services

import (
	"context"
	"fmt"
	"log"

	"github.com/docuforge/backend/internal/domain/events"
	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/auth"
	apperrors "github.com/docuforge/backend/pkg/errors"
)

// NotificationService writes reviewer notifications from document lifecycle
// events consumed off the event bus.
type NotificationService struct {
	notifications *persistence.NotificationRepository
	reviewers     *persistence.ReviewerRepository
	txManager     *persistence.TransactionManager
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications *persistence.NotificationRepository,
	reviewers *persistence.ReviewerRepository,
	txManager *persistence.TransactionManager,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		reviewers:     reviewers,
		txManager:     txManager,
	}
}

// RegisterHandlers subscribes to the document lifecycle events
func (s *NotificationService) RegisterHandlers(bus *EventBus) {
	bus.Subscribe(events.EventDocumentSubmitted, s.onDocumentSubmitted)
	bus.Subscribe(events.EventDocumentApproved, s.onDocumentDecided("approved"))
	bus.Subscribe(events.EventDocumentRejected, s.onDocumentDecided("rejected"))
}

// onDocumentSubmitted notifies every reviewer except the submitter
func (s *NotificationService) onDocumentSubmitted(ctx context.Context, payload interface{}) error {
	p, ok := payload.(events.DocumentEventPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", payload)
	}

	reviewers, err := s.reviewers.ListAll(ctx)
	if err != nil {
		return err
	}

	exec := s.txManager.ExecutorFor(ctx)
	for _, r := range reviewers {
		if r.ID == p.SubmittedByID {
			continue
		}
		_, err := s.notifications.Insert(ctx, exec, &models.Notification{
			ReviewerID: r.ID,
			Title:      "Document submitted for approval",
			Body:       fmt.Sprintf("Document %s is awaiting review.", p.DocumentID),
		})
		if err != nil {
			log.Printf("⚠️ Failed to notify reviewer %s: %v", r.ID, err)
		}
	}
	return nil
}

// onDocumentDecided notifies the submitter of the decision
func (s *NotificationService) onDocumentDecided(outcome string) EventHandler {
	return func(ctx context.Context, payload interface{}) error {
		p, ok := payload.(events.DocumentEventPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", payload)
		}
		if p.SubmittedByID == "" {
			return nil
		}

		body := fmt.Sprintf("Document %s was %s.", p.DocumentID, outcome)
		if p.Comments != "" {
			body += " Reviewer comments: " + p.Comments
		}

		_, err := s.notifications.Insert(ctx, s.txManager.ExecutorFor(ctx), &models.Notification{
			ReviewerID: p.SubmittedByID,
			Title:      fmt.Sprintf("Document %s", outcome),
			Body:       body,
		})
		return err
	}
}

// ListMine returns the reviewer's notifications, newest first
func (s *NotificationService) ListMine(ctx context.Context, reviewer *auth.ReviewerSession) ([]*models.Notification, error) {
	out, err := s.notifications.ListForReviewer(ctx, reviewer.ID, 50)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load notifications", err)
	}
	return out, nil
}

// MarkRead marks one of the reviewer's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, id string, reviewer *auth.ReviewerSession) error {
	if err := s.notifications.MarkRead(ctx, id, reviewer.ID); err != nil {
		return apperrors.NewNotFoundError("notification", id)
	}
	return nil
}
