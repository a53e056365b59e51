package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleTrainer Role = "trainer"
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleTrainer || r == RoleMember || r == RoleAdmin
}

// CanResetPassword reports whether accounts of this role can use the reset flow.
// Admins are trainer rows and reset through the trainer role.
func (r Role) CanResetPassword() bool {
	return r == RoleTrainer || r == RoleMember
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// Trainer is soft deleted: account deletion sets DeletedAt and clears IsActive.
type Trainer struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Name      string         `json:"name" gorm:"not null"`
	Phone     string         `json:"phone"`
	Role      Role           `json:"role" gorm:"type:varchar(20);default:trainer"`
	IsActive  bool           `json:"isActive" gorm:"default:true"`
	Members   []Member       `json:"members,omitempty" gorm:"foreignKey:TrainerID"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Member is soft deleted like Trainer. A member that signed up on their own
// has no trainer until one adds them.
type Member struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TrainerID   *uint          `json:"trainerId" gorm:"index"`
	Trainer     *Trainer       `json:"trainer,omitempty" gorm:"foreignKey:TrainerID"`
	Name        string         `json:"name" gorm:"not null"`
	Phone       string         `json:"phone" gorm:"index"`
	Email       *string        `json:"email" gorm:"uniqueIndex"`
	Password    *string        `json:"-"`
	BirthDate   *time.Time     `json:"birthDate"`
	Gender      *Gender        `json:"gender" gorm:"type:varchar(10)"`
	Goal        *string        `json:"goal"`
	Notes       *string        `json:"notes"`
	IsActive    bool           `json:"isActive" gorm:"default:true"`
	Memberships []Membership   `json:"memberships,omitempty" gorm:"foreignKey:MemberID"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Deactivate soft deletes the member.
func (m *Member) Deactivate(tx *gorm.DB) error {
	if err := tx.Model(m).Update("is_active", false).Error; err != nil {
		return err
	}
	return tx.Delete(m).Error
}

// Deactivate soft deletes the trainer account.
func (t *Trainer) Deactivate(tx *gorm.DB) error {
	if err := tx.Model(t).Update("is_active", false).Error; err != nil {
		return err
	}
	return tx.Delete(t).Error
}

// FindMemberForTrainer loads a member only if it belongs to trainerID.
func FindMemberForTrainer(tx *gorm.DB, memberID, trainerID uint) (*Member, error) {
	var member Member
	if err := tx.Where("id = ? AND trainer_id = ?", memberID, trainerID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// EmailTaken checks both account tables, since one email may only identify one login.
func EmailTaken(tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := tx.Unscoped().Model(&Trainer{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := tx.Unscoped().Model(&Member{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
