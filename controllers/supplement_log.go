package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

func GetSupplementLogs(c *fiber.Ctx) error {
	requested, ok := queryID(c, "memberId")
	if !ok {
		return utils.ValidationError(c, "Invalid memberId")
	}

	tx := conn(c)
	memberID, ok, resp := memberScope(c, tx, requested)
	if !ok {
		return resp
	}

	query := tx.Preload("Supplement")
	if memberID != 0 {
		query = query.Where("member_id = ?", memberID)
	} else {
		query = query.Where("member_id IN (?)", trainerMembers(tx, currentUserID(c)))
	}

	loc := config.Current.Location()
	if s := c.Query("startDate"); s != "" {
		start, err := utils.ParseDate(s, loc)
		if err != nil {
			return utils.ValidationError(c, "Invalid startDate")
		}
		query = query.Where("date >= ?", utils.StartOfDay(start, loc))
	}
	if s := c.Query("endDate"); s != "" {
		end, err := utils.ParseDate(s, loc)
		if err != nil {
			return utils.ValidationError(c, "Invalid endDate")
		}
		query = query.Where("date <= ?", utils.StartOfDay(end, loc))
	}

	var logs []models.SupplementLog
	if err := query.Order("date desc").Find(&logs).Error; err != nil {
		return utils.InternalError(c, "failed to fetch supplement logs", err)
	}
	return c.JSON(logs)
}

type supplementLogInput struct {
	MemberID     uint    `json:"memberId"`
	SupplementID uint    `json:"supplementId"`
	Date         string  `json:"date"`
	Taken        *bool   `json:"taken"`
	Notes        *string `json:"notes"`
}

// LogSupplement records intake for one day; a second call for the same day
// overwrites the first.
func LogSupplement(c *fiber.Ctx) error {
	input := new(supplementLogInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.SupplementID == 0 || input.Date == "" {
		return utils.ValidationError(c, "supplementId and date are required")
	}
	if currentRole(c) != models.RoleMember && input.MemberID == 0 {
		return utils.ValidationError(c, "memberId is required")
	}

	loc := config.Current.Location()
	date, err := utils.ParseDate(input.Date, loc)
	if err != nil {
		return utils.ValidationError(c, "Invalid input", utils.FieldError{Field: "date", Message: "must be a date"})
	}
	day := utils.StartOfDay(date, loc)

	tx := conn(c)
	memberID, ok, resp := memberScope(c, tx, input.MemberID)
	if !ok {
		return resp
	}

	var count int64
	if err := tx.Model(&models.Supplement{}).Where("id = ?", input.SupplementID).Count(&count).Error; err != nil {
		return utils.InternalError(c, "failed to load supplement", err)
	}
	if count == 0 {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
	}

	taken := true
	if input.Taken != nil {
		taken = *input.Taken
	}

	var entry models.SupplementLog
	err = tx.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("member_id = ? AND supplement_id = ? AND date = ?", memberID, input.SupplementID, day).First(&entry).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if entry.ID != 0 {
			return tx.Model(&entry).Updates(map[string]interface{}{
				"taken": taken,
				"notes": input.Notes,
			}).Error
		}

		entry = models.SupplementLog{
			MemberID:     memberID,
			SupplementID: input.SupplementID,
			Date:         day,
			Taken:        taken,
			Notes:        input.Notes,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return utils.InternalError(c, "failed to save supplement log", err)
	}

	entry.Taken = taken
	entry.Notes = input.Notes
	return c.Status(fiber.StatusCreated).JSON(entry)
}
