package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/events"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

// appointmentError maps model errors to responses. It returns nil when err
// is not one it knows.
func appointmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Appointment not found")
	case errors.Is(err, models.ErrInvalidTransition):
		return utils.ValidationError(c, "Invalid status change", utils.FieldError{
			Field:   "status",
			Message: strings.TrimPrefix(err.Error(), models.ErrInvalidTransition.Error()+": "),
		})
	case errors.Is(err, models.ErrInvalidAppointment):
		return utils.ValidationError(c, "Invalid appointment", utils.FieldError{
			Field:   "appointment",
			Message: strings.TrimPrefix(err.Error(), models.ErrInvalidAppointment.Error()+": "),
		})
	case errors.Is(err, models.ErrStaleAppointment):
		return utils.ErrorJSON(c, fiber.StatusConflict, "Appointment was changed by another request, please reload")
	case errors.Is(err, models.ErrSlotTaken):
		return utils.ErrorJSON(c, fiber.StatusConflict, "Time slot not available")
	}
	return nil
}

// GetAppointments godoc
// @Summary List the trainer's appointments
// @Description Optional startDate and endDate (YYYY-MM-DD or RFC3339) bound scheduledAt; endDate is inclusive.
// @Tags appointments
// @Produce json
// @Param startDate query string false "From"
// @Param endDate query string false "To"
// @Param status query string false "Status filter"
// @Param memberId query int false "Member filter"
// @Success 200 {array} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Router /appointments [get]
func GetAppointments(c *fiber.Ctx) error {
	loc := config.Current.Location()
	query := conn(c).Preload("Member").Where("trainer_id = ?", currentUserID(c))

	if s := c.Query("startDate"); s != "" {
		start, err := utils.ParseDate(s, loc)
		if err != nil {
			return utils.ValidationError(c, "Invalid startDate")
		}
		query = query.Where("scheduled_at >= ?", start)
	}
	if s := c.Query("endDate"); s != "" {
		end, err := utils.ParseDate(s, loc)
		if err != nil {
			return utils.ValidationError(c, "Invalid endDate")
		}
		if len(s) == len("2006-01-02") {
			end = end.AddDate(0, 0, 1)
			query = query.Where("scheduled_at < ?", end)
		} else {
			query = query.Where("scheduled_at <= ?", end)
		}
	}
	if s := c.Query("status"); s != "" {
		status := models.AppointmentStatus(s)
		if !status.Valid() {
			return utils.ValidationError(c, "Invalid status")
		}
		query = query.Where("status = ?", status)
	}
	memberID, ok := queryID(c, "memberId")
	if !ok {
		return utils.ValidationError(c, "Invalid memberId")
	}
	if memberID != 0 {
		query = query.Where("member_id = ?", memberID)
	}

	var appointments []models.Appointment
	if err := query.Order("scheduled_at asc").Find(&appointments).Error; err != nil {
		return utils.InternalError(c, "failed to fetch appointments", err)
	}
	return c.JSON(appointments)
}

func GetAppointment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Appointment not found")
	}

	var appointment models.Appointment
	err := conn(c).Preload("Member").Preload("Membership").
		Where("id = ? AND trainer_id = ?", id, currentUserID(c)).
		First(&appointment).Error
	if err != nil {
		if mapped := appointmentError(c, err); mapped != nil {
			return mapped
		}
		return utils.InternalError(c, "failed to fetch appointment", err)
	}
	return c.JSON(appointment)
}

type createAppointmentInput struct {
	MemberID     uint      `json:"memberId"`
	MembershipID *uint     `json:"membershipId"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Duration     int       `json:"duration"`
	Notes        *string   `json:"notes"`
}

// CreateAppointment books a session for one of the trainer's members. The
// trainer may not hold two scheduled sessions that overlap.
func CreateAppointment(c *fiber.Ctx) error {
	input := new(createAppointmentInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	var errs []utils.FieldError
	if input.MemberID == 0 {
		errs = append(errs, utils.FieldError{Field: "memberId", Message: "is required"})
	}
	if input.ScheduledAt.IsZero() {
		errs = append(errs, utils.FieldError{Field: "scheduledAt", Message: "is required"})
	}
	if input.Duration < 0 {
		errs = append(errs, utils.FieldError{Field: "duration", Message: "must be greater than 0"})
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if input.Duration == 0 {
		input.Duration = models.DefaultAppointmentDuration
	}

	trainerID := currentUserID(c)
	appointment := models.Appointment{
		TrainerID:    trainerID,
		MemberID:     input.MemberID,
		MembershipID: input.MembershipID,
		ScheduledAt:  input.ScheduledAt,
		Duration:     input.Duration,
		Status:       models.StatusScheduled,
	}
	if input.Notes != nil {
		appointment.Notes = emptyToNil(*input.Notes)
	}

	memberMissing := false
	err := conn(c).Transaction(func(tx *gorm.DB) error {
		if _, err := models.FindMemberForTrainer(tx, input.MemberID, trainerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				memberMissing = true
			}
			return err
		}

		if input.MembershipID != nil {
			var count int64
			if err := tx.Model(&models.Membership{}).
				Where("id = ? AND member_id = ?", *input.MembershipID, input.MemberID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: membership does not belong to this member", models.ErrInvalidAppointment)
			}
		}

		taken, err := models.HasOverlap(tx, trainerID, appointment.ScheduledAt, appointment.Duration, 0)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrSlotTaken
		}

		if err := tx.Create(&appointment).Error; err != nil {
			return err
		}
		return tx.Preload("Member").First(&appointment, appointment.ID).Error
	})

	if memberMissing {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Member not found")
	}
	if err != nil {
		if mapped := appointmentError(c, err); mapped != nil {
			return mapped
		}
		return utils.InternalError(c, "failed to create appointment", err)
	}

	logger.InfoContext(c.UserContext(), "appointment created", "appointment_id", appointment.ID, "member_id", appointment.MemberID)
	return c.Status(fiber.StatusCreated).JSON(appointment)
}

type updateAppointmentInput struct {
	ScheduledAt  *time.Time                `json:"scheduledAt"`
	Duration     *int                      `json:"duration"`
	Status       *models.AppointmentStatus `json:"status"`
	Notes        *string                   `json:"notes"`
	MembershipID *uint                     `json:"membershipId"`
}

// UpdateAppointment godoc
// @Summary Partially update an appointment
// @Description Moving to completed consumes one session of the member's membership in the same transaction.
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /appointments/{id} [patch]
func UpdateAppointment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Appointment not found")
	}
	input := new(updateAppointmentInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	trainerID := currentUserID(c)
	var (
		appointment models.Appointment
		result      *models.CompletionResult
	)

	err := conn(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND trainer_id = ?", id, trainerID).First(&appointment).Error; err != nil {
			return err
		}

		if input.ScheduledAt != nil || input.Duration != nil {
			start := appointment.ScheduledAt
			if input.ScheduledAt != nil {
				start = *input.ScheduledAt
			}
			duration := appointment.Duration
			if input.Duration != nil && *input.Duration > 0 {
				duration = *input.Duration
			}
			stillScheduled := input.Status == nil || *input.Status == models.StatusScheduled
			if appointment.Status == models.StatusScheduled && stillScheduled {
				taken, err := models.HasOverlap(tx, trainerID, start, duration, appointment.ID)
				if err != nil {
					return err
				}
				if taken {
					return models.ErrSlotTaken
				}
			}
		}

		var err error
		result, err = appointment.ApplyUpdate(tx, models.AppointmentUpdate{
			ScheduledAt:  input.ScheduledAt,
			Duration:     input.Duration,
			Status:       input.Status,
			Notes:        input.Notes,
			MembershipID: input.MembershipID,
		})
		if err != nil {
			return err
		}

		return tx.Preload("Member").Preload("Membership").First(&appointment, appointment.ID).Error
	})

	if err != nil {
		if mapped := appointmentError(c, err); mapped != nil {
			return mapped
		}
		return utils.InternalError(c, "failed to update appointment", err)
	}

	if result.Completed {
		publishCompletion(c, &appointment, result)
	}
	return c.JSON(appointment)
}

func publishCompletion(c *fiber.Ctx, appointment *models.Appointment, result *models.CompletionResult) {
	ctx := c.UserContext()
	now := clock()

	event := events.AppointmentCompletedEvent{
		AppointmentID:   appointment.ID,
		TrainerID:       appointment.TrainerID,
		MemberID:        appointment.MemberID,
		MembershipID:    appointment.MembershipID,
		SessionConsumed: result.Consumed,
		CompletedAt:     now,
	}
	if result.Membership != nil {
		event.RemainingSessions = result.Membership.RemainingSessions
	}
	events.Emit(ctx, events.AppointmentCompleted, event)

	if result.Consumed && result.Membership.Exhausted() {
		events.Emit(ctx, events.MembershipExhausted, events.MembershipExhaustedEvent{
			MembershipID: result.Membership.ID,
			MemberID:     result.Membership.MemberID,
			ExhaustedAt:  now,
		})
	}

	logger.InfoContext(ctx, "appointment completed",
		"appointment_id", appointment.ID,
		"membership_id", appointment.MembershipID,
		"session_consumed", result.Consumed,
	)
}

func DeleteAppointment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Appointment not found")
	}

	res := conn(c).Where("id = ? AND trainer_id = ?", id, currentUserID(c)).Delete(&models.Appointment{})
	if res.Error != nil {
		return utils.InternalError(c, "failed to delete appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Appointment not found")
	}
	return c.JSON(fiber.Map{"message": "Appointment deleted"})
}

// GetMyAppointments lists the calling member's appointments, newest first.
func GetMyAppointments(c *fiber.Ctx) error {
	var appointments []models.Appointment
	err := conn(c).Where("member_id = ?", currentUserID(c)).
		Order("scheduled_at desc").
		Find(&appointments).Error
	if err != nil {
		return utils.InternalError(c, "failed to fetch appointments", err)
	}
	return c.JSON(appointments)
}
