package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/auth"
	apperrors "github.com/docuforge/backend/pkg/errors"
)

// AuthService handles reviewer authentication and account management
type AuthService struct {
	reviewers *persistence.ReviewerRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(reviewers *persistence.ReviewerRepository) *AuthService {
	return &AuthService{reviewers: reviewers}
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token     string
	Reviewer  auth.ReviewerSession
	ExpiresAt time.Time
}

// Login authenticates a reviewer and issues a JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	reviewer, err := s.reviewers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("⚠️ Login failed for %s: account not found", email)
			return nil, apperrors.NewUnauthorizedError("invalid email or password")
		}
		return nil, apperrors.NewInternalError("failed to load account", err)
	}

	if !auth.VerifyPassword(password, reviewer.PasswordHash) {
		log.Printf("⚠️ Login failed for %s: invalid password", email)
		return nil, apperrors.NewUnauthorizedError("invalid email or password")
	}

	session := auth.ReviewerSession{
		ID:    reviewer.ID,
		Name:  reviewer.Name,
		Email: reviewer.Email,
		Role:  reviewer.Role,
	}

	token, expiresAt, err := auth.GenerateToken(session)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}

	log.Printf("✅ %s logged in", email)
	return &LoginResult{Token: token, Reviewer: session, ExpiresAt: expiresAt}, nil
}

// CreateReviewer registers a new reviewer account (admin only via handler)
func (s *AuthService) CreateReviewer(ctx context.Context, name, email, password, role string) (string, error) {
	if !auth.IsValidEmail(email) {
		return "", apperrors.NewValidationError("email", "invalid email address")
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return "", apperrors.NewValidationError("password", err.Error())
	}
	if role != auth.RoleAdmin && role != auth.RoleReviewer {
		return "", apperrors.NewValidationError("role", "must be admin or reviewer")
	}

	if _, err := s.reviewers.GetByEmail(ctx, email); err == nil {
		return "", apperrors.NewConflictError("reviewer", "email", email)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewInternalError("failed to check existing account", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", apperrors.NewInternalError("failed to hash password", err)
	}

	id, err := s.reviewers.Insert(ctx, &models.Reviewer{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return "", apperrors.NewInternalError("failed to create reviewer", err)
	}

	log.Printf("✅ Reviewer account created for %s (%s)", email, role)
	return id, nil
}

// GetReviewer returns one reviewer account
func (s *AuthService) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	reviewer, err := s.reviewers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("reviewer", id)
		}
		return nil, apperrors.NewInternalError("failed to load reviewer", err)
	}
	return reviewer, nil
}
