package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	// ResetCodeTTL is how long a freshly issued code can be verified.
	ResetCodeTTL = 10 * time.Minute
	// PasswordChangeGrace is how long after ExpiresAt a verified code can
	// still be exchanged for a new password.
	PasswordChangeGrace = 5 * time.Minute
	// ResetCodeLength is the number of digits in a reset code.
	ResetCodeLength = 6
)

// PasswordResetToken is hard deleted once consumed or found expired.
type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"index:idx_reset_email_role;not null"`
	Role      Role      `json:"role" gorm:"type:varchar(20);index:idx_reset_email_role;not null"`
	Code      string    `json:"-" gorm:"size:6;not null"`
	Verified  bool      `json:"verified" gorm:"default:false"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired reports whether the code can no longer be verified.
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ChangeWindowClosed reports whether a verified code is too old to change
// the password with.
func (t *PasswordResetToken) ChangeWindowClosed(now time.Time) bool {
	return now.After(t.ExpiresAt.Add(PasswordChangeGrace))
}

// IssueResetToken replaces any unverified token for email+role with a new one.
func IssueResetToken(tx *gorm.DB, email string, role Role, code string, now time.Time) (*PasswordResetToken, error) {
	if err := tx.Where("email = ? AND role = ? AND verified = ?", email, role, false).
		Delete(&PasswordResetToken{}).Error; err != nil {
		return nil, err
	}

	token := &PasswordResetToken{
		Email:     email,
		Role:      role,
		Code:      code,
		Verified:  false,
		ExpiresAt: now.Add(ResetCodeTTL),
		CreatedAt: now,
	}
	if err := tx.Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// VerifyResetCode marks the newest matching unverified token as verified.
// An expired token is deleted and ErrResetCodeExpired returned; an unknown or
// already verified code yields ErrInvalidResetCode.
func VerifyResetCode(tx *gorm.DB, email string, role Role, code string, now time.Time) (*PasswordResetToken, error) {
	var token PasswordResetToken
	err := tx.Where("email = ? AND role = ? AND code = ? AND verified = ?", email, role, code, false).
		Order("created_at desc").Order("id desc").
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidResetCode
	}
	if err != nil {
		return nil, err
	}

	if token.IsExpired(now) {
		if err := tx.Delete(&PasswordResetToken{}, token.ID).Error; err != nil {
			return nil, err
		}
		return nil, ErrResetCodeExpired
	}

	res := tx.Model(&PasswordResetToken{}).
		Where("id = ? AND verified = ?", token.ID, false).
		UpdateColumn("verified", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidResetCode
	}
	token.Verified = true
	return &token, nil
}

// FindVerifiedResetToken returns the newest verified token for the triple,
// deleting it and returning ErrResetCodeExpired when the change window closed.
func FindVerifiedResetToken(tx *gorm.DB, email string, role Role, code string, now time.Time) (*PasswordResetToken, error) {
	var token PasswordResetToken
	err := tx.Where("email = ? AND role = ? AND code = ? AND verified = ?", email, role, code, true).
		Order("created_at desc").Order("id desc").
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetRequestInvalid
	}
	if err != nil {
		return nil, err
	}

	if token.ChangeWindowClosed(now) {
		if err := tx.Delete(&PasswordResetToken{}, token.ID).Error; err != nil {
			return nil, err
		}
		return nil, ErrResetCodeExpired
	}
	return &token, nil
}

// ConsumeResetToken stores hashedPassword on the account identified by
// email+role and deletes every reset token for that pair. It must run in the
// same transaction as FindVerifiedResetToken.
func ConsumeResetToken(tx *gorm.DB, token *PasswordResetToken, hashedPassword string) error {
	var res *gorm.DB
	switch token.Role {
	case RoleTrainer:
		res = tx.Model(&Trainer{}).Where("email = ? AND is_active = ?", token.Email, true).Update("password", hashedPassword)
	case RoleMember:
		res = tx.Model(&Member{}).Where("email = ? AND is_active = ?", token.Email, true).Update("password", hashedPassword)
	default:
		return ErrResetRequestInvalid
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return tx.Where("email = ? AND role = ?", token.Email, token.Role).Delete(&PasswordResetToken{}).Error
}

// PurgeExpiredResetTokens removes tokens whose change window closed before now.
func PurgeExpiredResetTokens(tx *gorm.DB, now time.Time) (int64, error) {
	res := tx.Where("expires_at < ?", now.Add(-PasswordChangeGrace)).Delete(&PasswordResetToken{})
	return res.RowsAffected, res.Error
}
