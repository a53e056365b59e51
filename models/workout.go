package models

import (
	"time"

	"gorm.io/datatypes"
)

type ExerciseType string

const (
	ExerciseStrength    ExerciseType = "strength"
	ExerciseCardio      ExerciseType = "cardio"
	ExerciseFlexibility ExerciseType = "flexibility"
	ExerciseSports      ExerciseType = "sports"
	ExerciseOther       ExerciseType = "other"
)

func (e ExerciseType) Valid() bool {
	switch e {
	case ExerciseStrength, ExerciseCardio, ExerciseFlexibility, ExerciseSports, ExerciseOther:
		return true
	}
	return false
}

type WorkoutLog struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	MemberID     uint         `json:"memberId" gorm:"index;not null"`
	Member       *Member      `json:"member,omitempty" gorm:"foreignKey:MemberID"`
	Date         time.Time    `json:"date" gorm:"index;not null"`
	ExerciseType ExerciseType `json:"exerciseType" gorm:"type:varchar(20);not null"`
	ExerciseName string       `json:"exerciseName" gorm:"not null"`
	Sets         int          `json:"sets"`
	Reps         int          `json:"reps"`
	Weight       float64      `json:"weight"`
	Duration     *int         `json:"duration"`
	Distance     *float64     `json:"distance"`
	Calories     *int         `json:"calories"`
	// SetDetails holds the per-set breakdown, e.g. [{"reps":10,"weight":60}].
	SetDetails datatypes.JSON `json:"setDetails,omitempty"`
	Notes      *string        `json:"notes"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}
