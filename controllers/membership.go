package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type membershipInput struct {
	MemberID          *uint                  `json:"memberId"`
	Type              *models.MembershipType `json:"type"`
	TotalSessions     *int                   `json:"totalSessions"`
	RemainingSessions *int                   `json:"remainingSessions"`
	StartDate         *string                `json:"startDate"`
	EndDate           *string                `json:"endDate"`
	Price             *decimal.Decimal       `json:"price"`
	Notes             *string                `json:"notes"`
	IsActive          *bool                  `json:"isActive"`
}

func (in *membershipInput) apply(m *models.Membership) []utils.FieldError {
	var errs []utils.FieldError
	loc := config.Current.Location()

	if in.Type != nil {
		if !in.Type.Valid() {
			errs = append(errs, utils.FieldError{Field: "type", Message: "must be session or period"})
		}
		m.Type = *in.Type
	}
	if in.TotalSessions != nil {
		m.TotalSessions = in.TotalSessions
	}
	if in.RemainingSessions != nil {
		m.RemainingSessions = in.RemainingSessions
	}
	if in.StartDate != nil {
		t, err := utils.ParseDate(*in.StartDate, loc)
		if err != nil {
			errs = append(errs, utils.FieldError{Field: "startDate", Message: "must be a date"})
		} else {
			m.StartDate = t
		}
	}
	if in.EndDate != nil {
		if *in.EndDate == "" {
			m.EndDate = nil
		} else if t, err := utils.ParseDate(*in.EndDate, loc); err != nil {
			errs = append(errs, utils.FieldError{Field: "endDate", Message: "must be a date"})
		} else {
			m.EndDate = &t
		}
	}
	if in.Price != nil {
		m.Price = *in.Price
	}
	if in.Notes != nil {
		m.Notes = emptyToNil(*in.Notes)
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	return errs
}

func membershipError(c *fiber.Ctx, err error) error {
	return utils.ValidationError(c, "Invalid membership", utils.FieldError{
		Field:   "membership",
		Message: strings.TrimPrefix(err.Error(), models.ErrInvalidMembership.Error()+": "),
	})
}

// GetMemberships lists memberships of the trainer's members, optionally for one member.
func GetMemberships(c *fiber.Ctx) error {
	memberID, ok := queryID(c, "memberId")
	if !ok {
		return utils.ValidationError(c, "Invalid memberId")
	}

	query := conn(c).
		Preload("Member").
		Joins("JOIN members ON members.id = memberships.member_id").
		Where("members.trainer_id = ? AND members.deleted_at IS NULL", currentUserID(c))
	if memberID != 0 {
		query = query.Where("memberships.member_id = ?", memberID)
	}

	var memberships []models.Membership
	if err := query.Order("memberships.created_at desc").Find(&memberships).Error; err != nil {
		return utils.InternalError(c, "failed to fetch memberships", err)
	}
	return c.JSON(memberships)
}

// CreateMembership godoc
// @Summary Sell a membership to one of the trainer's members
// @Description Session memberships start with remainingSessions equal to totalSessions unless given.
// @Tags memberships
// @Accept json
// @Produce json
// @Success 201 {object} models.Membership
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /memberships [post]
func CreateMembership(c *fiber.Ctx) error {
	input := new(membershipInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.MemberID == nil || input.Type == nil {
		return utils.ValidationError(c, "memberId and type are required")
	}

	tx := conn(c)
	if _, err := models.FindMemberForTrainer(tx, *input.MemberID, currentUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
		}
		return utils.InternalError(c, "failed to load member", err)
	}

	membership := models.Membership{
		MemberID:  *input.MemberID,
		StartDate: clock(),
		IsActive:  true,
	}
	if errs := input.apply(&membership); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if membership.Type == models.MembershipSession && membership.RemainingSessions == nil && membership.TotalSessions != nil {
		remaining := *membership.TotalSessions
		membership.RemainingSessions = &remaining
	}

	if err := tx.Create(&membership).Error; err != nil {
		if errors.Is(err, models.ErrInvalidMembership) {
			return membershipError(c, err)
		}
		return utils.InternalError(c, "failed to create membership", err)
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}

// UpdateMembership applies a partial update; the credit invariant is checked
// before the row is written.
func UpdateMembership(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Membership not found")
	}
	input := new(membershipInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	var membership *models.Membership
	var fieldErrs []utils.FieldError
	err := conn(c).Transaction(func(tx *gorm.DB) error {
		var err error
		membership, err = models.FindMembershipForTrainer(tx, id, currentUserID(c))
		if err != nil {
			return err
		}
		if fieldErrs = input.apply(membership); len(fieldErrs) > 0 {
			return nil
		}
		return tx.Omit("Member").Save(membership).Error
	})

	switch {
	case len(fieldErrs) > 0:
		return utils.ValidationError(c, "Invalid input", fieldErrs...)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Membership not found")
	case errors.Is(err, models.ErrInvalidMembership):
		return membershipError(c, err)
	case err != nil:
		return utils.InternalError(c, "failed to update membership", err)
	}
	return c.JSON(membership)
}

// DeleteMembership deactivates; memberships referenced by appointments are kept.
func DeleteMembership(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Membership not found")
	}

	tx := conn(c)
	membership, err := models.FindMembershipForTrainer(tx, id, currentUserID(c))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Membership not found")
	}
	if err != nil {
		return utils.InternalError(c, "failed to load membership", err)
	}

	if err := tx.Model(&models.Membership{}).Where("id = ?", membership.ID).UpdateColumn("is_active", false).Error; err != nil {
		return utils.InternalError(c, "failed to deactivate membership", err)
	}
	return c.JSON(fiber.Map{"message": "Membership deactivated"})
}

// GetMyMemberships lists the calling member's memberships.
func GetMyMemberships(c *fiber.Ctx) error {
	var memberships []models.Membership
	err := conn(c).Where("member_id = ?", currentUserID(c)).
		Order("created_at desc").
		Find(&memberships).Error
	if err != nil {
		return utils.InternalError(c, "failed to fetch memberships", err)
	}
	return c.JSON(memberships)
}
