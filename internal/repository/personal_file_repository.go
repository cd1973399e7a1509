package repository

import (
	"lesson_platform_backend/internal/model"

	"gorm.io/gorm"
)

type PersonalFileRepository struct {
	DB *gorm.DB
}

func NewPersonalFileRepository(db *gorm.DB) *PersonalFileRepository {
	return &PersonalFileRepository{DB: db}
}

func (r *PersonalFileRepository) Create(f *model.PersonalFile) error {
	return r.DB.Create(f).Error
}

func (r *PersonalFileRepository) FindForUser(id string, userID uint) (*model.PersonalFile, error) {
	var f model.PersonalFile
	if err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByUser 列表不返回正文
func (r *PersonalFileRepository) ListByUser(userID uint, search string, page, limit int) ([]model.PersonalFile, int64, error) {
	var files []model.PersonalFile
	var total int64

	query := r.DB.Model(&model.PersonalFile{}).Where("user_id = ?", userID)
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Omit("content").
		Order("updated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&files).Error
	return files, total, err
}

func (r *PersonalFileRepository) Update(f *model.PersonalFile) error {
	return r.DB.Save(f).Error
}

func (r *PersonalFileRepository) Delete(id string, userID uint) error {
	return r.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&model.PersonalFile{}).Error
}
