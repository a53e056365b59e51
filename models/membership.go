package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MembershipType string

const (
	MembershipSession MembershipType = "session"
	MembershipPeriod  MembershipType = "period"
)

func (t MembershipType) Valid() bool {
	return t == MembershipSession || t == MembershipPeriod
}

// Membership is never deleted; it is deactivated by the trainer, when its
// sessions run out, or when its period ends.
type Membership struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	MemberID          uint            `json:"memberId" gorm:"index;not null"`
	Member            *Member         `json:"member,omitempty" gorm:"foreignKey:MemberID"`
	Type              MembershipType  `json:"type" gorm:"type:varchar(10);not null"`
	TotalSessions     *int            `json:"totalSessions"`
	RemainingSessions *int            `json:"remainingSessions"`
	StartDate         time.Time       `json:"startDate" gorm:"not null"`
	EndDate           *time.Time      `json:"endDate"`
	Price             decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	IsActive          bool            `json:"isActive" gorm:"index;default:true"`
	Notes             *string         `json:"notes"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Validate checks the per-type field rules and the credit invariant
// 0 <= remaining <= total.
func (m *Membership) Validate() error {
	switch m.Type {
	case MembershipSession:
		if m.TotalSessions == nil || *m.TotalSessions <= 0 {
			return fmt.Errorf("%w: totalSessions must be greater than 0", ErrInvalidMembership)
		}
		if m.RemainingSessions == nil {
			return fmt.Errorf("%w: remainingSessions is required", ErrInvalidMembership)
		}
		if *m.RemainingSessions < 0 || *m.RemainingSessions > *m.TotalSessions {
			return fmt.Errorf("%w: remainingSessions must be between 0 and totalSessions", ErrInvalidMembership)
		}
	case MembershipPeriod:
		if m.EndDate == nil {
			return fmt.Errorf("%w: endDate is required", ErrInvalidMembership)
		}
		if !m.EndDate.After(m.StartDate) {
			return fmt.Errorf("%w: endDate must be after startDate", ErrInvalidMembership)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMembership, m.Type)
	}
	if m.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidMembership)
	}
	return nil
}

// BeforeSave enforces Validate on every ORM write of a full record.
func (m *Membership) BeforeSave(tx *gorm.DB) error {
	return m.Validate()
}

// Exhausted reports whether a session membership has no credit left.
func (m *Membership) Exhausted() bool {
	return m.Type == MembershipSession && m.RemainingSessions != nil && *m.RemainingSessions <= 0
}

// SelectMembershipForCompletion picks the membership charged when an
// appointment completes: the one linked on the appointment when it is still
// active and belongs to the member, otherwise the member's earliest-created
// active membership. It returns nil, nil when the member has none.
func SelectMembershipForCompletion(tx *gorm.DB, appointment *Appointment) (*Membership, error) {
	var membership Membership

	if appointment.MembershipID != nil {
		err := tx.Where("id = ? AND member_id = ? AND is_active = ?", *appointment.MembershipID, appointment.MemberID, true).
			First(&membership).Error
		if err == nil {
			return &membership, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := tx.Where("member_id = ? AND is_active = ?", appointment.MemberID, true).
		Order("created_at asc").Order("id asc").
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// DecrementIfEligible consumes one session from a session membership with a
// single conditional UPDATE, so the count can never go below zero and two
// concurrent callers cannot both take the last session. It reports whether a
// session was consumed and reloads m. A membership that reaches zero is
// deactivated in the same transaction.
func (m *Membership) DecrementIfEligible(tx *gorm.DB) (bool, error) {
	if m.Type != MembershipSession || m.RemainingSessions == nil {
		return false, nil
	}

	res := tx.Model(&Membership{}).
		Where("id = ? AND type = ? AND is_active = ? AND remaining_sessions > 0", m.ID, MembershipSession, true).
		UpdateColumn("remaining_sessions", gorm.Expr("remaining_sessions - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("failed to decrement membership %d: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := tx.First(m, m.ID).Error; err != nil {
		return true, err
	}

	if m.Exhausted() {
		if err := tx.Model(&Membership{}).Where("id = ?", m.ID).UpdateColumn("is_active", false).Error; err != nil {
			return true, fmt.Errorf("failed to deactivate membership %d: %w", m.ID, err)
		}
		m.IsActive = false
	}

	return true, nil
}

// DeactivateExpiredMemberships switches off period memberships whose end date
// lies before today in loc and returns how many were changed. The end date
// itself is still a valid day.
func DeactivateExpiredMemberships(tx *gorm.DB, now time.Time, loc *time.Location) (int64, error) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	res := tx.Model(&Membership{}).
		Where("type = ? AND is_active = ? AND end_date IS NOT NULL AND end_date < ?", MembershipPeriod, true, today).
		UpdateColumn("is_active", false)
	return res.RowsAffected, res.Error
}

// FindMembershipForTrainer loads a membership only if its member belongs to trainerID.
func FindMembershipForTrainer(tx *gorm.DB, membershipID, trainerID uint) (*Membership, error) {
	var membership Membership
	err := tx.Joins("JOIN members ON members.id = memberships.member_id").
		Where("memberships.id = ? AND members.trainer_id = ? AND members.deleted_at IS NULL", membershipID, trainerID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}
