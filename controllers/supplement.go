package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/storage"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

const maxImageSize = 5 << 20

type supplementInput struct {
	Name        *string `json:"name"`
	Brand       *string `json:"brand"`
	Category    *string `json:"category"`
	Dosage      *string `json:"dosage"`
	Timing      *string `json:"timing"`
	Description *string `json:"description"`
	ProductURL  *string `json:"productUrl"`
	IsActive    *bool   `json:"isActive"`
}

func (in *supplementInput) apply(s *models.Supplement) []utils.FieldError {
	var errs []utils.FieldError
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
		if s.Name == "" {
			errs = append(errs, utils.FieldError{Field: "name", Message: "is required"})
		}
	}
	if in.Category != nil {
		s.Category = strings.TrimSpace(*in.Category)
		if s.Category == "" {
			errs = append(errs, utils.FieldError{Field: "category", Message: "is required"})
		}
	}
	if in.Brand != nil {
		s.Brand = emptyToNil(*in.Brand)
	}
	if in.Dosage != nil {
		s.Dosage = emptyToNil(*in.Dosage)
	}
	if in.Timing != nil {
		s.Timing = emptyToNil(*in.Timing)
	}
	if in.Description != nil {
		s.Description = emptyToNil(*in.Description)
	}
	if in.ProductURL != nil {
		s.ProductURL = emptyToNil(*in.ProductURL)
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	return errs
}

// loadOwnedSupplement answers 404 or 403 itself and returns nil in that case.
func loadOwnedSupplement(c *fiber.Ctx, tx *gorm.DB, id uint) (*models.Supplement, error) {
	var supplement models.Supplement
	if err := tx.First(&supplement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
		}
		return nil, utils.InternalError(c, "failed to load supplement", err)
	}
	if supplement.TrainerID != currentUserID(c) {
		return nil, utils.ErrorJSON(c, fiber.StatusForbidden, "You don't have permission to access this supplement")
	}
	return &supplement, nil
}

func GetSupplements(c *fiber.Ctx) error {
	query := conn(c).Where("trainer_id = ?", currentUserID(c))
	if !c.QueryBool("includeInactive") {
		query = query.Where("is_active = ?", true)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var supplements []models.Supplement
	if err := query.Order("created_at desc").Find(&supplements).Error; err != nil {
		return utils.InternalError(c, "failed to fetch supplements", err)
	}
	return c.JSON(supplements)
}

func CreateSupplement(c *fiber.Ctx) error {
	input := new(supplementInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.Name == nil || input.Category == nil {
		return utils.ValidationError(c, "Name and category are required")
	}

	supplement := models.Supplement{TrainerID: currentUserID(c), IsActive: true}
	if errs := input.apply(&supplement); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if err := conn(c).Create(&supplement).Error; err != nil {
		return utils.InternalError(c, "failed to create supplement", err)
	}
	return c.Status(fiber.StatusCreated).JSON(supplement)
}

func GetSupplement(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
	}
	supplement, resp := loadOwnedSupplement(c, conn(c), id)
	if supplement == nil {
		return resp
	}
	return c.JSON(supplement)
}

func UpdateSupplement(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
	}
	input := new(supplementInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	tx := conn(c)
	supplement, resp := loadOwnedSupplement(c, tx, id)
	if supplement == nil {
		return resp
	}
	if errs := input.apply(supplement); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if err := tx.Save(supplement).Error; err != nil {
		return utils.InternalError(c, "failed to update supplement", err)
	}
	return c.JSON(supplement)
}

// DeleteSupplement deactivates the supplement so logs keep their reference.
func DeleteSupplement(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
	}

	tx := conn(c)
	supplement, resp := loadOwnedSupplement(c, tx, id)
	if supplement == nil {
		return resp
	}
	if err := tx.Model(supplement).UpdateColumn("is_active", false).Error; err != nil {
		return utils.InternalError(c, "failed to delete supplement", err)
	}
	return c.JSON(fiber.Map{"message": "Supplement deleted"})
}

// UploadSupplementImage stores the multipart "image" file and saves its URL.
func UploadSupplementImage(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Supplement not found")
	}

	tx := conn(c)
	supplement, resp := loadOwnedSupplement(c, tx, id)
	if supplement == nil {
		return resp
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return utils.ValidationError(c, "Image file is required", utils.FieldError{Field: "image", Message: "is required"})
	}
	if fileHeader.Size > maxImageSize {
		return utils.ValidationError(c, "Image is too large", utils.FieldError{Field: "image", Message: "must be 5MB or smaller"})
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return utils.ValidationError(c, "Only image files are allowed", utils.FieldError{Field: "image", Message: "must be an image"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.InternalError(c, "failed to open upload", err)
	}
	defer file.Close()

	url, err := storage.Client.Upload(c.UserContext(), file, storage.ObjectKey("supplements", fileHeader.Filename), contentType)
	if errors.Is(err, storage.ErrUploadsDisabled) {
		return utils.ErrorJSON(c, fiber.StatusServiceUnavailable, "Image uploads are not available")
	}
	if err != nil {
		return utils.InternalError(c, "failed to upload image", err)
	}

	if err := tx.Model(supplement).UpdateColumn("image_url", url).Error; err != nil {
		return utils.InternalError(c, "failed to save image url", err)
	}
	supplement.ImageURL = &url
	return c.JSON(supplement)
}
