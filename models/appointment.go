package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

const DefaultAppointmentDuration = 60

// appointmentTransitions lists the statuses reachable from each status.
// Completed, cancelled and no_show are terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: nil,
	StatusCancelled: nil,
	StatusNoShow:    nil,
}

func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s AppointmentStatus) Terminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// CanTransitionTo reports whether s may move to next. Staying on the same
// status is always allowed and has no side effects.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is hard deleted by its trainer.
type Appointment struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	TrainerID    uint              `json:"trainerId" gorm:"index;not null"`
	Trainer      *Trainer          `json:"trainer,omitempty" gorm:"foreignKey:TrainerID"`
	MemberID     uint              `json:"memberId" gorm:"index;not null"`
	Member       *Member           `json:"member,omitempty" gorm:"foreignKey:MemberID"`
	MembershipID *uint             `json:"membershipId"`
	Membership   *Membership       `json:"membership,omitempty" gorm:"foreignKey:MembershipID"`
	ScheduledAt  time.Time         `json:"scheduledAt" gorm:"index;not null"`
	Duration     int               `json:"duration" gorm:"not null;default:60"`
	Status       AppointmentStatus `json:"status" gorm:"type:varchar(20);index;not null;default:scheduled"`
	Notes        *string           `json:"notes"`
	ReminderSent bool              `json:"reminderSent" gorm:"default:false"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Duration <= 0 {
		a.Duration = DefaultAppointmentDuration
	}
	return nil
}

// EndsAt is the scheduled end of the session.
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.Duration) * time.Minute)
}

// AppointmentUpdate carries the optional fields of a partial update.
// Nil fields are left unchanged.
type AppointmentUpdate struct {
	ScheduledAt  *time.Time
	Duration     *int
	Status       *AppointmentStatus
	Notes        *string
	MembershipID *uint
}

// CompletionResult describes the side effect of completing an appointment.
type CompletionResult struct {
	Completed  bool
	Membership *Membership
	Consumed   bool
}

// ApplyUpdate applies u to the appointment inside tx. Moving to completed
// from any other status first claims the status change with a
// compare-and-swap on the previous status, then consumes one session from
// the selected membership. Callers must run it inside a transaction so the
// status write and the credit change commit or roll back together.
func (a *Appointment) ApplyUpdate(tx *gorm.DB, u AppointmentUpdate) (*CompletionResult, error) {
	result := &CompletionResult{}

	if u.Duration != nil && *u.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be greater than 0", ErrInvalidAppointment)
	}

	if u.MembershipID != nil {
		var count int64
		if err := tx.Model(&Membership{}).Where("id = ? AND member_id = ?", *u.MembershipID, a.MemberID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: membership does not belong to this member", ErrInvalidAppointment)
		}
		a.MembershipID = u.MembershipID
	}

	if u.Status != nil && *u.Status != a.Status {
		next := *u.Status
		if !next.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
		}
		if !a.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, next)
		}

		res := tx.Model(&Appointment{}).
			Where("id = ? AND status = ?", a.ID, a.Status).
			UpdateColumn("status", next)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrStaleAppointment
		}
		a.Status = next

		if next == StatusCompleted {
			result.Completed = true
			membership, err := SelectMembershipForCompletion(tx, a)
			if err != nil {
				return nil, err
			}
			if membership != nil {
				consumed, err := membership.DecrementIfEligible(tx)
				if err != nil {
					return nil, err
				}
				result.Membership = membership
				result.Consumed = consumed
				a.MembershipID = &membership.ID
			}
		}
	}

	updates := map[string]interface{}{}
	if u.ScheduledAt != nil && !u.ScheduledAt.Equal(a.ScheduledAt) {
		a.ScheduledAt = *u.ScheduledAt
		a.ReminderSent = false
		updates["scheduled_at"] = a.ScheduledAt
		updates["reminder_sent"] = false
	}
	if u.Duration != nil {
		a.Duration = *u.Duration
		updates["duration"] = a.Duration
	}
	if u.Notes != nil {
		if *u.Notes == "" {
			a.Notes = nil
		} else {
			a.Notes = u.Notes
		}
		updates["notes"] = a.Notes
	}
	if a.MembershipID != nil {
		updates["membership_id"] = *a.MembershipID
	}

	if len(updates) > 0 {
		if err := tx.Model(&Appointment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return result, nil
}

// HasOverlap reports whether the trainer already has a scheduled appointment
// intersecting [start, start+duration). excludeID skips the appointment being
// rescheduled.
func HasOverlap(tx *gorm.DB, trainerID uint, start time.Time, duration int, excludeID uint) (bool, error) {
	end := start.Add(time.Duration(duration) * time.Minute)

	var candidates []Appointment
	query := tx.Model(&Appointment{}).
		Where("trainer_id = ? AND status = ?", trainerID, StatusScheduled).
		Where("scheduled_at < ? AND scheduled_at > ?", end, start.Add(-24*time.Hour))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Find(&candidates).Error; err != nil {
		return false, err
	}

	for _, c := range candidates {
		if c.ScheduledAt.Before(end) && c.EndsAt().After(start) {
			return true, nil
		}
	}
	return false, nil
}
