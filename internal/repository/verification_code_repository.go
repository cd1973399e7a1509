package repository

import (
	"lesson_platform_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type VerificationCodeRepository struct {
	DB *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{DB: db}
}

func (r *VerificationCodeRepository) Create(code *model.EmailVerificationCode) error {
	return r.DB.Create(code).Error
}

// FindUsable 查找该用户未使用且未过期的匹配验证码
func (r *VerificationCodeRepository) FindUsable(userID uint, code string, now time.Time) (*model.EmailVerificationCode, error) {
	var c model.EmailVerificationCode
	err := r.DB.Where("user_id = ? AND code = ? AND used = ? AND expires_at > ?", userID, code, false, now).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed 条件更新，返回 false 表示已被其他请求使用
func (r *VerificationCodeRepository) MarkUsed(id string) (bool, error) {
	res := r.DB.Model(&model.EmailVerificationCode{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	return res.RowsAffected == 1, res.Error
}

// DeleteStale 删除已使用或已过期的验证码
func (r *VerificationCodeRepository) DeleteStale(now time.Time) (int64, error) {
	res := r.DB.Unscoped().
		Where("used = ? OR expires_at <= ?", true, now).
		Delete(&model.EmailVerificationCode{})
	return res.RowsAffected, res.Error
}
