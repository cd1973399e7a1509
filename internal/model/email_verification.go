package model

import "time"

type EmailVerificationCode struct {
	UUIDBase
	UserID    uint      `gorm:"index;type:bigint unsigned" json:"user_id"`
	Email     string    `gorm:"size:100" json:"email"`
	Code      string    `gorm:"size:16;index" json:"-"`
	Used      bool      `gorm:"default:false" json:"used"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (EmailVerificationCode) TableName() string {
	return "email_verification_codes"
}

// Usable 未使用、未过期且与输入一致
func (c *EmailVerificationCode) Usable(code string, now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now) && c.Code == code
}
