package db

import (
	"errors"
	"fmt"

	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

// EnsureAdmin creates an admin trainer account, or promotes and re-passwords
// an existing trainer with the same email.
func EnsureAdmin(tx *gorm.DB, email, password, name string) (*models.Trainer, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var trainer models.Trainer
	err = tx.Unscoped().Where("email = ?", email).First(&trainer).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		trainer = models.Trainer{
			Email:    email,
			Password: hashed,
			Name:     name,
			Phone:    "",
			Role:     models.RoleAdmin,
			IsActive: true,
		}
		if err := tx.Create(&trainer).Error; err != nil {
			return nil, fmt.Errorf("failed to create admin: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		if err := tx.Unscoped().Model(&trainer).Updates(map[string]interface{}{
			"role":       models.RoleAdmin,
			"password":   hashed,
			"is_active":  true,
			"deleted_at": nil,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
	}

	return &trainer, nil
}
