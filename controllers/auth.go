package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

type signupInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Role     models.Role `json:"role"`
}

func (in *signupInput) validate() []utils.FieldError {
	var errs []utils.FieldError
	if !utils.ValidEmail(in.Email) {
		errs = append(errs, utils.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if !utils.ValidPassword(in.Password) {
		errs = append(errs, utils.FieldError{Field: "password", Message: "must be 8 to 100 characters"})
	}
	if n := len([]rune(in.Name)); n < 2 || n > 50 {
		errs = append(errs, utils.FieldError{Field: "name", Message: "must be 2 to 50 characters"})
	}
	if !utils.ValidPhone(in.Phone) {
		errs = append(errs, utils.FieldError{Field: "phone", Message: "must look like 010-1234-5678"})
	}
	if in.Role != models.RoleTrainer && in.Role != models.RoleMember {
		errs = append(errs, utils.FieldError{Field: "role", Message: "must be trainer or member"})
	}
	return errs
}

type sessionUser struct {
	ID          uint        `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Role        models.Role `json:"role"`
	TrainerName *string     `json:"trainerName,omitempty"`
}

// Signup godoc
// @Summary Register a trainer or member account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} sessionUser
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/signup [post]
func Signup(c *fiber.Ctx) error {
	input := new(signupInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	input.Email = utils.NormalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)

	if errs := input.validate(); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	tx := conn(c)
	taken, err := models.EmailTaken(tx, input.Email)
	if err != nil {
		return utils.InternalError(c, "failed to check email", err)
	}
	if taken {
		return utils.ErrorJSON(c, fiber.StatusConflict, "Email is already in use")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return utils.InternalError(c, "failed to hash password", err)
	}

	user := sessionUser{Email: input.Email, Name: input.Name, Role: input.Role}
	if input.Role == models.RoleTrainer {
		trainer := models.Trainer{
			Email:    input.Email,
			Password: hashed,
			Name:     input.Name,
			Phone:    input.Phone,
			Role:     models.RoleTrainer,
			IsActive: true,
		}
		if err := tx.Create(&trainer).Error; err != nil {
			return utils.InternalError(c, "failed to create trainer", err)
		}
		user.ID = trainer.ID
	} else {
		email := input.Email
		member := models.Member{
			Email:    &email,
			Password: &hashed,
			Name:     input.Name,
			Phone:    input.Phone,
			IsActive: true,
		}
		if err := tx.Create(&member).Error; err != nil {
			return utils.InternalError(c, "failed to create member", err)
		}
		user.ID = member.ID
	}

	if err := startSession(c, user); err != nil {
		return utils.InternalError(c, "failed to issue session token", err)
	}

	logger.InfoContext(c.UserContext(), "account created", "user_id", user.ID, "role", user.Role)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Signup completed",
		"user":    user,
	})
}

type loginInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Login checks the password for the account of the requested role. Admin
// accounts may only log in through the admin role and vice versa.
func Login(c *fiber.Ctx) error {
	input := new(loginInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	input.Email = utils.NormalizeEmail(input.Email)

	var errs []utils.FieldError
	if !utils.ValidEmail(input.Email) {
		errs = append(errs, utils.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if input.Password == "" {
		errs = append(errs, utils.FieldError{Field: "password", Message: "is required"})
	}
	if !input.Role.Valid() {
		errs = append(errs, utils.FieldError{Field: "role", Message: "must be trainer, member or admin"})
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	tx := conn(c)
	var (
		user       sessionUser
		hashed     string
		found      bool
		deactivate bool
	)

	if input.Role == models.RoleMember {
		var member models.Member
		err := tx.Unscoped().Preload("Trainer").Where("email = ?", input.Email).First(&member).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.InternalError(c, "failed to load member", err)
		}
		if err == nil {
			if !member.IsActive || member.DeletedAt.Valid {
				deactivate = true
			} else if member.Password == nil {
				return utils.ErrorJSON(c, fiber.StatusUnauthorized, "No password is set for this member. Please contact your trainer")
			}
			found = true
			if member.Password != nil {
				hashed = *member.Password
			}
			user = sessionUser{ID: member.ID, Email: input.Email, Name: member.Name, Role: models.RoleMember}
			if member.Trainer != nil {
				user.TrainerName = &member.Trainer.Name
			}
		}
	} else {
		var trainer models.Trainer
		err := tx.Unscoped().Where("email = ?", input.Email).First(&trainer).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.InternalError(c, "failed to load trainer", err)
		}
		if err == nil {
			if input.Role == models.RoleAdmin && trainer.Role != models.RoleAdmin {
				return utils.ErrorJSON(c, fiber.StatusForbidden, "Administrator permission required")
			}
			if input.Role == models.RoleTrainer && trainer.Role == models.RoleAdmin {
				return utils.ErrorJSON(c, fiber.StatusForbidden, "Administrator accounts must use the admin login")
			}
			if !trainer.IsActive || trainer.DeletedAt.Valid {
				deactivate = true
			}
			found = true
			hashed = trainer.Password
			user = sessionUser{ID: trainer.ID, Email: trainer.Email, Name: trainer.Name, Role: trainer.Role}
		}
	}

	if deactivate {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "This account is deactivated or deleted")
	}
	if !found || !utils.CheckPassword(hashed, input.Password) {
		return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	if err := startSession(c, user); err != nil {
		return utils.InternalError(c, "failed to issue session token", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
	})
}

func Logout(c *fiber.Ctx) error {
	clearSession(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me returns the account behind the current session.
func Me(c *fiber.Ctx) error {
	tx := conn(c)
	id := currentUserID(c)

	if currentRole(c) == models.RoleMember {
		var member models.Member
		if err := tx.Preload("Trainer").First(&member, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Login required")
			}
			return utils.InternalError(c, "failed to load member", err)
		}
		user := sessionUser{ID: member.ID, Name: member.Name, Role: models.RoleMember}
		if member.Email != nil {
			user.Email = *member.Email
		}
		if member.Trainer != nil {
			user.TrainerName = &member.Trainer.Name
		}
		return c.JSON(user)
	}

	var trainer models.Trainer
	if err := tx.First(&trainer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorJSON(c, fiber.StatusUnauthorized, "Login required")
		}
		return utils.InternalError(c, "failed to load trainer", err)
	}
	return c.JSON(sessionUser{ID: trainer.ID, Email: trainer.Email, Name: trainer.Name, Role: trainer.Role})
}

// CheckEmail reports whether an email can still be used for signup.
func CheckEmail(c *fiber.Ctx) error {
	email := utils.NormalizeEmail(c.Query("email"))
	if !utils.ValidEmail(email) {
		return utils.ValidationError(c, "Invalid input", utils.FieldError{Field: "email", Message: "must be a valid email address"})
	}

	taken, err := models.EmailTaken(conn(c), email)
	if err != nil {
		return utils.InternalError(c, "failed to check email", err)
	}
	if taken {
		return c.JSON(fiber.Map{"available": false, "message": "Email is already in use"})
	}
	return c.JSON(fiber.Map{"available": true, "message": "Email is available"})
}

// DeleteAccount soft deletes the caller's account after re-checking the password.
func DeleteAccount(c *fiber.Ctx) error {
	type deleteInput struct {
		Password string `json:"password"`
	}
	input := new(deleteInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.Password == "" {
		return utils.ValidationError(c, "Invalid input", utils.FieldError{Field: "password", Message: "is required"})
	}

	id := currentUserID(c)
	err := conn(c).Transaction(func(tx *gorm.DB) error {
		if currentRole(c) == models.RoleMember {
			var member models.Member
			if err := tx.First(&member, id).Error; err != nil {
				return err
			}
			if member.Password == nil || !utils.CheckPassword(*member.Password, input.Password) {
				return errWrongPassword
			}
			return member.Deactivate(tx)
		}

		var trainer models.Trainer
		if err := tx.First(&trainer, id).Error; err != nil {
			return err
		}
		if !utils.CheckPassword(trainer.Password, input.Password) {
			return errWrongPassword
		}
		return trainer.Deactivate(tx)
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrorJSON(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, errWrongPassword):
		return utils.ValidationError(c, "Password is incorrect")
	case err != nil:
		return utils.InternalError(c, "failed to delete account", err)
	}

	clearSession(c)
	logger.InfoContext(c.UserContext(), "account deleted", "user_id", id, "role", currentRole(c))
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

var errWrongPassword = errors.New("wrong password")

func startSession(c *fiber.Ctx, user sessionUser) error {
	auth := config.Current.Auth
	token, err := utils.GenerateToken(auth.JWTSecret, auth.TokenTTL, utils.SessionClaims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	})
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HTTPOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func clearSession(c *fiber.Ctx) {
	auth := config.Current.Auth
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
