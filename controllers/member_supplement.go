package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

// memberScope resolves which member a shared trainer/member route acts on.
// Members are always scoped to themselves. For trainers requested must be one
// of their members, or 0 for all of them. ok is false when the response has
// already been written.
func memberScope(c *fiber.Ctx, tx *gorm.DB, requested uint) (memberID uint, ok bool, resp error) {
	if currentRole(c) == models.RoleMember {
		if requested != 0 && requested != currentUserID(c) {
			return 0, false, utils.ErrorJSON(c, fiber.StatusForbidden, "You don't have permission to access this member")
		}
		return currentUserID(c), true, nil
	}

	if requested == 0 {
		return 0, true, nil
	}
	owns, err := trainerOwnsMember(tx, currentUserID(c), requested)
	if err != nil {
		return 0, false, utils.InternalError(c, "failed to check member", err)
	}
	if !owns {
		return 0, false, utils.ErrorJSON(c, fiber.StatusForbidden, "You don't have permission to access this member")
	}
	return requested, true, nil
}

// trainerMembers limits a query on a member_id column to the trainer's members.
func trainerMembers(tx *gorm.DB, trainerID uint) *gorm.DB {
	return tx.Model(&models.Member{}).Select("id").Where("trainer_id = ?", trainerID)
}

func GetMemberSupplements(c *fiber.Ctx) error {
	requested, ok := queryID(c, "memberId")
	if !ok {
		return utils.ValidationError(c, "Invalid memberId")
	}

	tx := conn(c)
	memberID, ok, resp := memberScope(c, tx, requested)
	if !ok {
		return resp
	}

	query := tx.Preload("Supplement").Preload("Member").Where("is_active = ?", true)
	if memberID != 0 {
		query = query.Where("member_id = ?", memberID)
	} else {
		query = query.Where("member_id IN (?)", trainerMembers(tx, currentUserID(c)))
	}

	var recommendations []models.MemberSupplement
	if err := query.Order("created_at desc").Find(&recommendations).Error; err != nil {
		return utils.InternalError(c, "failed to fetch recommendations", err)
	}
	return c.JSON(recommendations)
}

type recommendInput struct {
	MemberID     uint    `json:"memberId"`
	SupplementID uint    `json:"supplementId"`
	Dosage       *string `json:"dosage"`
	Timing       *string `json:"timing"`
	Notes        *string `json:"notes"`
}

// RecommendSupplement creates the recommendation, or reactivates and
// overwrites an existing one for the same member and supplement.
func RecommendSupplement(c *fiber.Ctx) error {
	input := new(recommendInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.MemberID == 0 || input.SupplementID == 0 {
		return utils.ValidationError(c, "memberId and supplementId are required")
	}

	trainerID := currentUserID(c)
	tx := conn(c)

	owns, err := trainerOwnsMember(tx, trainerID, input.MemberID)
	if err != nil {
		return utils.InternalError(c, "failed to check member", err)
	}
	if !owns {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "You don't have permission to access this member")
	}

	var supplement models.Supplement
	err = tx.Where("id = ? AND trainer_id = ? AND is_active = ?", input.SupplementID, trainerID, true).First(&supplement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
	}
	if err != nil {
		return utils.InternalError(c, "failed to load supplement", err)
	}

	var recommendation models.MemberSupplement
	err = tx.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("member_id = ? AND supplement_id = ?", input.MemberID, input.SupplementID).First(&recommendation).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		recommendation.MemberID = input.MemberID
		recommendation.SupplementID = input.SupplementID
		recommendation.Dosage = input.Dosage
		recommendation.Timing = input.Timing
		recommendation.Notes = input.Notes
		recommendation.IsActive = true
		if err := tx.Save(&recommendation).Error; err != nil {
			return err
		}
		return tx.Preload("Supplement").First(&recommendation, recommendation.ID).Error
	})
	if err != nil {
		return utils.InternalError(c, "failed to save recommendation", err)
	}
	return c.Status(fiber.StatusCreated).JSON(recommendation)
}

// CancelRecommendation deactivates a recommendation of the trainer's member.
func CancelRecommendation(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Recommendation not found")
	}

	tx := conn(c)
	var recommendation models.MemberSupplement
	if err := tx.First(&recommendation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorJSON(c, fiber.StatusNotFound, "Recommendation not found")
		}
		return utils.InternalError(c, "failed to load recommendation", err)
	}

	owns, err := trainerOwnsMember(tx, currentUserID(c), recommendation.MemberID)
	if err != nil {
		return utils.InternalError(c, "failed to check member", err)
	}
	if !owns {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "You don't have permission to access this member")
	}

	if err := tx.Model(&recommendation).UpdateColumn("is_active", false).Error; err != nil {
		return utils.InternalError(c, "failed to cancel recommendation", err)
	}
	return c.JSON(fiber.Map{"message": "Recommendation cancelled"})
}
