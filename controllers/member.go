package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

type memberInput struct {
	Name      *string        `json:"name"`
	Phone     *string        `json:"phone"`
	Email     *string        `json:"email"`
	BirthDate *string        `json:"birthDate"`
	Gender    *models.Gender `json:"gender"`
	Goal      *string        `json:"goal"`
	Notes     *string        `json:"notes"`
	IsActive  *bool          `json:"isActive"`
}

// apply copies the supplied fields onto m and validates them.
func (in *memberInput) apply(m *models.Member) []utils.FieldError {
	var errs []utils.FieldError

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			errs = append(errs, utils.FieldError{Field: "name", Message: "is required"})
		}
		m.Name = name
	}
	if in.Phone != nil {
		if !utils.ValidPhone(*in.Phone) {
			errs = append(errs, utils.FieldError{Field: "phone", Message: "must look like 010-1234-5678"})
		}
		m.Phone = *in.Phone
	}
	if in.Email != nil {
		email := utils.NormalizeEmail(*in.Email)
		if email == "" {
			m.Email = nil
		} else if !utils.ValidEmail(email) {
			errs = append(errs, utils.FieldError{Field: "email", Message: "must be a valid email address"})
		} else {
			m.Email = &email
		}
	}
	if in.BirthDate != nil {
		if *in.BirthDate == "" {
			m.BirthDate = nil
		} else if t, err := utils.ParseDate(*in.BirthDate, config.Current.Location()); err != nil {
			errs = append(errs, utils.FieldError{Field: "birthDate", Message: "must be a date (YYYY-MM-DD)"})
		} else {
			m.BirthDate = &t
		}
	}
	if in.Gender != nil {
		if *in.Gender == "" {
			m.Gender = nil
		} else if !in.Gender.Valid() {
			errs = append(errs, utils.FieldError{Field: "gender", Message: "must be male, female or other"})
		} else {
			m.Gender = in.Gender
		}
	}
	if in.Goal != nil {
		m.Goal = emptyToNil(*in.Goal)
	}
	if in.Notes != nil {
		m.Notes = emptyToNil(*in.Notes)
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	return errs
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// GetMembers lists the trainer's members, newest first, with their active
// memberships.
func GetMembers(c *fiber.Ctx) error {
	var members []models.Member
	err := conn(c).
		Preload("Memberships", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_active = ?", true).Order("created_at desc")
		}).
		Where("trainer_id = ?", currentUserID(c)).
		Order("created_at desc").
		Find(&members).Error
	if err != nil {
		return utils.InternalError(c, "failed to fetch members", err)
	}
	return c.JSON(members)
}

// CreateMember adds a member with a random temporary password. The phone
// number must be unique among the trainer's members.
func CreateMember(c *fiber.Ctx) error {
	input := new(memberInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.Name == nil || input.Phone == nil {
		return utils.ValidationError(c, "Name and phone are required")
	}

	trainerID := currentUserID(c)
	member := models.Member{TrainerID: &trainerID, IsActive: true}
	if errs := input.apply(&member); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	tx := conn(c)
	var count int64
	if err := tx.Model(&models.Member{}).Where("trainer_id = ? AND phone = ?", trainerID, member.Phone).Count(&count).Error; err != nil {
		return utils.InternalError(c, "failed to check phone", err)
	}
	if count > 0 {
		return utils.ErrorJSON(c, fiber.StatusConflict, "Phone number already exists")
	}
	if member.Email != nil {
		taken, err := models.EmailTaken(tx, *member.Email)
		if err != nil {
			return utils.InternalError(c, "failed to check email", err)
		}
		if taken {
			return utils.ErrorJSON(c, fiber.StatusConflict, "Email is already in use")
		}
	}

	hashed, err := utils.HashPassword(utils.GenerateTempPassword())
	if err != nil {
		return utils.InternalError(c, "failed to hash password", err)
	}
	member.Password = &hashed

	if err := tx.Create(&member).Error; err != nil {
		return utils.InternalError(c, "failed to create member", err)
	}
	member.Memberships = []models.Membership{}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func GetMember(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	}

	var member models.Member
	err := conn(c).
		Preload("Memberships", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at desc") }).
		Where("id = ? AND trainer_id = ?", id, currentUserID(c)).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	}
	if err != nil {
		return utils.InternalError(c, "failed to fetch member", err)
	}
	return c.JSON(member)
}

func UpdateMember(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	}
	input := new(memberInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	trainerID := currentUserID(c)
	var member *models.Member
	var fieldErrs []utils.FieldError
	err := conn(c).Transaction(func(tx *gorm.DB) error {
		var err error
		member, err = models.FindMemberForTrainer(tx, id, trainerID)
		if err != nil {
			return err
		}
		oldPhone := member.Phone
		oldEmail := member.Email

		if fieldErrs = input.apply(member); len(fieldErrs) > 0 {
			return nil
		}

		if member.Phone != oldPhone {
			var count int64
			if err := tx.Model(&models.Member{}).
				Where("trainer_id = ? AND phone = ? AND id <> ?", trainerID, member.Phone, member.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return errPhoneTaken
			}
		}
		if member.Email != nil && (oldEmail == nil || *oldEmail != *member.Email) {
			taken, err := models.EmailTaken(tx, *member.Email)
			if err != nil {
				return err
			}
			if taken {
				return errEmailTaken
			}
		}

		return tx.Model(member).Select("name", "phone", "email", "birth_date", "gender", "goal", "notes", "is_active").
			Updates(member).Error
	})

	switch {
	case len(fieldErrs) > 0:
		return utils.ValidationError(c, "Invalid input", fieldErrs...)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	case errors.Is(err, errPhoneTaken):
		return utils.ErrorJSON(c, fiber.StatusConflict, "Phone number already exists")
	case errors.Is(err, errEmailTaken):
		return utils.ErrorJSON(c, fiber.StatusConflict, "Email is already in use")
	case err != nil:
		return utils.InternalError(c, "failed to update member", err)
	}
	return c.JSON(member)
}

// DeleteMember soft deletes the member; their history stays in place.
func DeleteMember(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	}

	err := conn(c).Transaction(func(tx *gorm.DB) error {
		member, err := models.FindMemberForTrainer(tx, id, currentUserID(c))
		if err != nil {
			return err
		}
		return member.Deactivate(tx)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	}
	if err != nil {
		return utils.InternalError(c, "failed to delete member", err)
	}
	return c.JSON(fiber.Map{"message": "Member deleted"})
}

var (
	errPhoneTaken = errors.New("phone taken")
	errEmailTaken = errors.New("email taken")
)
