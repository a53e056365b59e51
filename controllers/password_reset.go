package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/events"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/mailer"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

type resetInput struct {
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	Code        string      `json:"code"`
	NewPassword string      `json:"newPassword"`
}

func parseResetInput(c *fiber.Ctx) (*resetInput, []utils.FieldError, error) {
	input := new(resetInput)
	if err := c.BodyParser(input); err != nil {
		return nil, nil, err
	}
	input.Email = utils.NormalizeEmail(input.Email)

	var errs []utils.FieldError
	if !utils.ValidEmail(input.Email) {
		errs = append(errs, utils.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if !input.Role.CanResetPassword() {
		errs = append(errs, utils.FieldError{Field: "role", Message: "must be trainer or member"})
	}
	return input, errs, nil
}

// RequestPasswordReset emails a fresh 6 digit code to an existing account.
// Earlier unverified codes for the same email and role stop working.
func RequestPasswordReset(c *fiber.Ctx) error {
	input, errs, err := parseResetInput(c)
	if err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	tx := conn(c)
	exists, err := accountExists(tx, input.Email, input.Role)
	if err != nil {
		return utils.InternalError(c, "failed to look up account", err)
	}
	if !exists {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "No account is registered with this email")
	}

	code, err := utils.GenerateOTP(models.ResetCodeLength)
	if err != nil {
		return utils.InternalError(c, "failed to generate reset code", err)
	}

	var token *models.PasswordResetToken
	err = tx.Transaction(func(tx *gorm.DB) error {
		var err error
		token, err = models.IssueResetToken(tx, input.Email, input.Role, code, clock())
		return err
	})
	if err != nil {
		return utils.InternalError(c, "failed to store reset token", err)
	}

	if err := mailer.SendResetCode(c.UserContext(), input.Email, code, models.ResetCodeTTL); err != nil {
		if delErr := tx.Delete(&models.PasswordResetToken{}, token.ID).Error; delErr != nil {
			logger.ErrorContext(c.UserContext(), "failed to discard unsent reset token", "token_id", token.ID, "error", delErr)
		}
		return utils.InternalError(c, "failed to send reset email", err)
	}

	return c.JSON(fiber.Map{
		"message": "A verification code has been sent to your email",
		"email":   input.Email,
	})
}

// VerifyPasswordReset marks a code as verified. A code verifies only once.
func VerifyPasswordReset(c *fiber.Ctx) error {
	input, errs, err := parseResetInput(c)
	if err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if !utils.ValidResetCode(input.Code) {
		errs = append(errs, utils.FieldError{Field: "code", Message: "must be 6 digits"})
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	var token *models.PasswordResetToken
	err = conn(c).Transaction(func(tx *gorm.DB) error {
		var err error
		token, err = models.VerifyResetCode(tx, input.Email, input.Role, input.Code, clock())
		if errors.Is(err, models.ErrResetCodeExpired) {
			// keep the deletion of the expired row
			return nil
		}
		return err
	})

	switch {
	case err == nil && token == nil:
		return utils.ValidationError(c, "Verification code expired. Please request a new one")
	case errors.Is(err, models.ErrInvalidResetCode):
		return utils.ValidationError(c, "Invalid verification code")
	case err != nil:
		return utils.InternalError(c, "failed to verify reset code", err)
	}

	return c.JSON(fiber.Map{
		"message":  "Verification completed",
		"verified": true,
		"tokenId":  token.ID,
	})
}

// UpdatePassword exchanges a verified code for a new password and removes
// every reset token of the account.
func UpdatePassword(c *fiber.Ctx) error {
	input, errs, err := parseResetInput(c)
	if err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if !utils.ValidResetCode(input.Code) {
		errs = append(errs, utils.FieldError{Field: "code", Message: "must be 6 digits"})
	}
	if !utils.ValidPassword(input.NewPassword) {
		errs = append(errs, utils.FieldError{Field: "newPassword", Message: "must be 8 to 100 characters"})
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	hashed, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return utils.InternalError(c, "failed to hash password", err)
	}

	expired := false
	err = conn(c).Transaction(func(tx *gorm.DB) error {
		token, err := models.FindVerifiedResetToken(tx, input.Email, input.Role, input.Code, clock())
		if errors.Is(err, models.ErrResetCodeExpired) {
			expired = true
			return nil
		}
		if err != nil {
			return err
		}
		return models.ConsumeResetToken(tx, token, hashed)
	})

	switch {
	case expired:
		return utils.ValidationError(c, "Verification code expired. Please start again")
	case errors.Is(err, models.ErrResetRequestInvalid):
		return utils.ValidationError(c, "Invalid request. Please verify your code first")
	case errors.Is(err, models.ErrAccountNotFound):
		return utils.ErrorJSON(c, fiber.StatusNotFound, "User not found")
	case err != nil:
		return utils.InternalError(c, "failed to update password", err)
	}

	events.Emit(c.UserContext(), events.PasswordReset, events.PasswordResetEvent{
		Email:   input.Email,
		Role:    string(input.Role),
		ResetAt: clock(),
	})
	logger.InfoContext(c.UserContext(), "password reset completed", "role", input.Role)

	return c.JSON(fiber.Map{
		"message": "Password has been changed",
		"success": true,
	})
}

// accountExists reports whether an active account of role uses email.
func accountExists(tx *gorm.DB, email string, role models.Role) (bool, error) {
	var count int64
	var err error
	switch role {
	case models.RoleTrainer:
		err = tx.Model(&models.Trainer{}).Where("email = ? AND is_active = ?", email, true).Count(&count).Error
	case models.RoleMember:
		err = tx.Model(&models.Member{}).Where("email = ? AND is_active = ?", email, true).Count(&count).Error
	}
	return count > 0, err
}
