package controllers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type workoutInput struct {
	MemberID     uint                 `json:"memberId"`
	Date         *string              `json:"date"`
	ExerciseType *models.ExerciseType `json:"exerciseType"`
	ExerciseName *string              `json:"exerciseName"`
	Sets         *int                 `json:"sets"`
	Reps         *int                 `json:"reps"`
	Weight       *float64             `json:"weight"`
	Duration     *int                 `json:"duration"`
	Distance     *float64             `json:"distance"`
	Calories     *int                 `json:"calories"`
	SetDetails   json.RawMessage      `json:"setDetails"`
	Notes        *string              `json:"notes"`
}

func (in *workoutInput) apply(w *models.WorkoutLog) []utils.FieldError {
	var errs []utils.FieldError
	if in.Date != nil {
		loc := config.Current.Location()
		if t, err := utils.ParseDate(*in.Date, loc); err != nil {
			errs = append(errs, utils.FieldError{Field: "date", Message: "must be a date"})
		} else {
			w.Date = t
		}
	}
	if in.ExerciseType != nil {
		if !in.ExerciseType.Valid() {
			errs = append(errs, utils.FieldError{Field: "exerciseType", Message: "must be strength, cardio, flexibility, sports or other"})
		}
		w.ExerciseType = *in.ExerciseType
	}
	if in.ExerciseName != nil {
		w.ExerciseName = strings.TrimSpace(*in.ExerciseName)
		if w.ExerciseName == "" {
			errs = append(errs, utils.FieldError{Field: "exerciseName", Message: "is required"})
		}
	}
	nonNegative := func(field string, v *int) {
		if v != nil && *v < 0 {
			errs = append(errs, utils.FieldError{Field: field, Message: "must not be negative"})
		}
	}
	nonNegative("sets", in.Sets)
	nonNegative("reps", in.Reps)
	nonNegative("duration", in.Duration)
	nonNegative("calories", in.Calories)
	if in.Sets != nil {
		w.Sets = *in.Sets
	}
	if in.Reps != nil {
		w.Reps = *in.Reps
	}
	if in.Weight != nil {
		if *in.Weight < 0 {
			errs = append(errs, utils.FieldError{Field: "weight", Message: "must not be negative"})
		}
		w.Weight = *in.Weight
	}
	if in.Duration != nil {
		w.Duration = in.Duration
	}
	if in.Distance != nil {
		w.Distance = in.Distance
	}
	if in.Calories != nil {
		w.Calories = in.Calories
	}
	if len(in.SetDetails) > 0 {
		if !json.Valid(in.SetDetails) {
			errs = append(errs, utils.FieldError{Field: "setDetails", Message: "must be valid JSON"})
		} else {
			w.SetDetails = datatypes.JSON(in.SetDetails)
		}
	}
	if in.Notes != nil {
		w.Notes = emptyToNil(*in.Notes)
	}
	return errs
}

// loadAccessibleWorkout returns the log when the caller owns it or trains its
// member; otherwise it writes the response and returns nil.
func loadAccessibleWorkout(c *fiber.Ctx, tx *gorm.DB, id uint) (*models.WorkoutLog, error) {
	var workout models.WorkoutLog
	if err := tx.First(&workout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorJSON(c, fiber.StatusNotFound, "Workout log not found")
		}
		return nil, utils.InternalError(c, "failed to load workout log", err)
	}
	if _, ok, resp := memberScope(c, tx, workout.MemberID); !ok {
		return nil, resp
	}
	return &workout, nil
}

func GetWorkouts(c *fiber.Ctx) error {
	requested, ok := queryID(c, "memberId")
	if !ok {
		return utils.ValidationError(c, "Invalid memberId")
	}

	tx := conn(c)
	memberID, ok, resp := memberScope(c, tx, requested)
	if !ok {
		return resp
	}

	query := tx.Model(&models.WorkoutLog{})
	if memberID != 0 {
		query = query.Where("member_id = ?", memberID)
	} else {
		query = query.Preload("Member").Where("member_id IN (?)", trainerMembers(tx, currentUserID(c)))
	}

	loc := config.Current.Location()
	if s := c.Query("startDate"); s != "" {
		start, err := utils.ParseDate(s, loc)
		if err != nil {
			return utils.ValidationError(c, "Invalid startDate")
		}
		query = query.Where("date >= ?", start)
	}
	if s := c.Query("endDate"); s != "" {
		end, err := utils.ParseDate(s, loc)
		if err != nil {
			return utils.ValidationError(c, "Invalid endDate")
		}
		query = query.Where("date < ?", utils.StartOfDay(end, loc).AddDate(0, 0, 1))
	}
	if s := c.Query("exerciseType"); s != "" {
		query = query.Where("exercise_type = ?", s)
	}

	var workouts []models.WorkoutLog
	if err := query.Order("date desc").Order("created_at desc").Find(&workouts).Error; err != nil {
		return utils.InternalError(c, "failed to fetch workout logs", err)
	}
	return c.JSON(workouts)
}

// CreateWorkout logs an exercise. Members log for themselves; trainers pass
// the memberId of one of their members.
func CreateWorkout(c *fiber.Ctx) error {
	input := new(workoutInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.ExerciseType == nil || input.ExerciseName == nil {
		return utils.ValidationError(c, "exerciseType and exerciseName are required")
	}
	if isTrainerRole(currentRole(c)) && input.MemberID == 0 {
		return utils.ValidationError(c, "memberId is required")
	}

	tx := conn(c)
	memberID, ok, resp := memberScope(c, tx, input.MemberID)
	if !ok {
		return resp
	}

	workout := models.WorkoutLog{MemberID: memberID, Date: clock()}
	if errs := input.apply(&workout); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if err := tx.Create(&workout).Error; err != nil {
		return utils.InternalError(c, "failed to create workout log", err)
	}
	return c.Status(fiber.StatusCreated).JSON(workout)
}

func UpdateWorkout(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Workout log not found")
	}
	input := new(workoutInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	tx := conn(c)
	workout, resp := loadAccessibleWorkout(c, tx, id)
	if workout == nil {
		return resp
	}
	if errs := input.apply(workout); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if err := tx.Omit("Member").Save(workout).Error; err != nil {
		return utils.InternalError(c, "failed to update workout log", err)
	}
	return c.JSON(workout)
}

func DeleteWorkout(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Workout log not found")
	}

	tx := conn(c)
	workout, resp := loadAccessibleWorkout(c, tx, id)
	if workout == nil {
		return resp
	}
	if err := tx.Delete(workout).Error; err != nil {
		return utils.InternalError(c, "failed to delete workout log", err)
	}
	return c.JSON(fiber.Map{"message": "Workout log deleted"})
}
