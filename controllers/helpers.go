package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/db"
	"github.com/meinhoongagan/pt-buddy/models"
	"gorm.io/gorm"
)

// clock is replaced in tests that need to move time forward.
var clock = time.Now

// conn returns the shared handle bound to the request context.
func conn(c *fiber.Ctx) *gorm.DB {
	return db.DB.WithContext(c.UserContext())
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func currentRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals("role").(string)
	return models.Role(role)
}

func isTrainerRole(role models.Role) bool {
	return role == models.RoleTrainer || role == models.RoleAdmin
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryID parses an optional positive numeric query value; 0 means absent.
func queryID(c *fiber.Ctx, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// trainerOwnsMember reports whether memberID is one of the trainer's members.
func trainerOwnsMember(tx *gorm.DB, trainerID, memberID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Member{}).
		Where("id = ? AND trainer_id = ?", memberID, trainerID).
		Count(&count).Error
	return count > 0, err
}
