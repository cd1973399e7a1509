package repository

import (
	"lesson_platform_backend/internal/model"

	"gorm.io/gorm"
)

type ArtifactRepository struct {
	DB *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{DB: db}
}

func (r *ArtifactRepository) List(category, search string, includeUnpublished bool) ([]model.LessonArtifact, error) {
	var items []model.LessonArtifact
	query := r.DB.Model(&model.LessonArtifact{})
	if !includeUnpublished {
		query = query.Where("published = ?", true)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR summary LIKE ?", like, like)
	}
	err := query.Order("sort_order ASC").Order("id ASC").Find(&items).Error
	return items, err
}

func (r *ArtifactRepository) FindBySlug(slug string) (*model.LessonArtifact, error) {
	var a model.LessonArtifact
	if err := r.DB.Where("slug = ?", slug).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArtifactRepository) Save(a *model.LessonArtifact) error {
	return r.DB.Save(a).Error
}

func (r *ArtifactRepository) DeleteBySlug(slug string) (int64, error) {
	res := r.DB.Where("slug = ?", slug).Delete(&model.LessonArtifact{})
	return res.RowsAffected, res.Error
}

func (r *ArtifactRepository) Categories() ([]string, error) {
	var cats []string
	err := r.DB.Model(&model.LessonArtifact{}).
		Where("published = ?", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &cats).Error
	return cats, err
}
