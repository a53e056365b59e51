package db

import (
	"fmt"

	"github.com/meinhoongagan/pt-buddy/models"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Trainer{},
		&models.Member{},
		&models.Membership{},
		&models.Appointment{},
		&models.PasswordResetToken{},
		&models.Supplement{},
		&models.MemberSupplement{},
		&models.SupplementLog{},
		&models.WorkoutLog{},
		&models.CommunityPost{},
		&models.CommunityComment{},
		&models.CommunityPostLike{},
		&models.CommunityCommentLike{},
	}
}

// Migrate runs AutoMigrate only when explicitly called
func Migrate(tx *gorm.DB) error {
	if err := tx.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
