package models

import (
	"time"
)

// Supplement is a product a trainer keeps in their catalogue. Deleting it
// only clears IsActive so existing logs keep their reference.
type Supplement struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TrainerID   uint      `json:"trainerId" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Brand       *string   `json:"brand"`
	Category    string    `json:"category" gorm:"not null"`
	Dosage      *string   `json:"dosage"`
	Timing      *string   `json:"timing"`
	Description *string   `json:"description"`
	ProductURL  *string   `json:"productUrl"`
	ImageURL    *string   `json:"imageUrl"`
	IsActive    bool      `json:"isActive" gorm:"default:true"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	MemberSupplements []MemberSupplement `json:"memberSupplements,omitempty" gorm:"foreignKey:SupplementID"`
}

// MemberSupplement is a trainer's recommendation of a supplement to a member.
type MemberSupplement struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	MemberID     uint        `json:"memberId" gorm:"uniqueIndex:idx_member_supplement;not null"`
	Member       *Member     `json:"member,omitempty" gorm:"foreignKey:MemberID"`
	SupplementID uint        `json:"supplementId" gorm:"uniqueIndex:idx_member_supplement;not null"`
	Supplement   *Supplement `json:"supplement,omitempty" gorm:"foreignKey:SupplementID"`
	Dosage       *string     `json:"dosage"`
	Timing       *string     `json:"timing"`
	Notes        *string     `json:"notes"`
	IsActive     bool        `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// SupplementLog records whether a member took a supplement on a given day.
type SupplementLog struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	MemberID     uint        `json:"memberId" gorm:"uniqueIndex:idx_supplement_log_day;not null"`
	SupplementID uint        `json:"supplementId" gorm:"uniqueIndex:idx_supplement_log_day;not null"`
	Supplement   *Supplement `json:"supplement,omitempty" gorm:"foreignKey:SupplementID"`
	Date         time.Time   `json:"date" gorm:"uniqueIndex:idx_supplement_log_day;not null"`
	Taken        bool        `json:"taken" gorm:"not null"`
	Notes        *string     `json:"notes"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
