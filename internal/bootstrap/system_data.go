package bootstrap

import (
	"context"
	"log"
	"os"

	"github.com/docuforge/backend/internal/application/services"
	"github.com/docuforge/backend/pkg/auth"
)

const (
	defaultAdminName  = "System Administrator"
	defaultAdminEmail = "admin@docuforge.local"
)

// InitializeSystemData seeds the first administrator account when the
// reviewer table is empty. The password comes from ADMIN_PASSWORD, falling
// back to a development default that must be rotated in production.
func InitializeSystemData(sm *services.ServiceManager) error {
	ctx := context.Background()

	count, err := sm.Reviewers.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("📋 System data already initialized (%d reviewer accounts)", count)
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123!"
		log.Println("⚠️  ADMIN_PASSWORD not set, seeding admin with the development default")
	}

	id, err := sm.Auth.CreateReviewer(ctx, defaultAdminName, defaultAdminEmail, password, auth.RoleAdmin)
	if err != nil {
		return err
	}

	log.Printf("✅ Seeded administrator account %s (%s)", defaultAdminEmail, id)
	return nil
}
