package repository

import (
	"lesson_platform_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) FindByID(id string) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) FindByTitle(title string) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.Where("title = ?", title).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) ExistsByTitle(title, excludeID string) (bool, error) {
	var count int64
	query := r.DB.Model(&model.Quiz{}).Where("title = ?", title)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// List 测验列表，按标题排序
func (r *QuizRepository) List(page, limit int, search, difficulty string) ([]model.Quiz, int64, error) {
	var quizzes []model.Quiz
	var total int64

	query := r.DB.Model(&model.Quiz{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("title ASC").Offset(offset).Limit(limit).Find(&quizzes).Error
	return quizzes, total, err
}

// ListQuestions 按 order_index 排序
func (r *QuizRepository) ListQuestions(quizID string) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	err := r.DB.Where("quiz_id = ?", quizID).
		Order("order_index ASC").
		Order("created_at ASC").
		Find(&qs).Error
	return qs, err
}

// CreateWithQuestions 在同一事务中创建测验和题目
func (r *QuizRepository) CreateWithQuestions(q *model.Quiz, questions []model.QuizQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		q.TotalQuestions = len(questions)
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuizID = q.ID
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceQuestions 更新测验信息并同步题目：带 ID 的更新，不带 ID 的新增，其余删除
func (r *QuizRepository) ReplaceQuestions(q *model.Quiz, questions []model.QuizQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing []model.QuizQuestion
		if err := tx.Where("quiz_id = ?", q.ID).Find(&existing).Error; err != nil {
			return err
		}
		existingMap := make(map[string]*model.QuizQuestion, len(existing))
		for i := range existing {
			existingMap[existing[i].ID] = &existing[i]
		}

		keep := make(map[string]bool)
		for i := range questions {
			in := &questions[i]
			if e, ok := existingMap[in.ID]; ok && in.ID != "" {
				e.QuestionType = in.QuestionType
				e.QuestionText = in.QuestionText
				e.CodeSnippet = in.CodeSnippet
				e.Options = in.Options
				e.CorrectAnswer = in.CorrectAnswer
				e.Explanation = in.Explanation
				e.Points = in.Points
				e.Chapter = in.Chapter
				e.OrderIndex = in.OrderIndex
				if err := tx.Save(e).Error; err != nil {
					return err
				}
				*in = *e
				keep[e.ID] = true
				continue
			}
			in.ID = ""
			in.QuizID = q.ID
			if err := tx.Create(in).Error; err != nil {
				return err
			}
			keep[in.ID] = true
		}

		for id := range existingMap {
			if !keep[id] {
				if err := tx.Where("id = ?", id).Delete(&model.QuizQuestion{}).Error; err != nil {
					return err
				}
			}
		}

		q.TotalQuestions = len(questions)
		return tx.Save(q).Error
	})
}

func (r *QuizRepository) Update(q *model.Quiz) error {
	return r.DB.Save(q).Error
}

// Delete 物理删除测验与题目，标题随即可以复用；作答记录保留
func (r *QuizRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("quiz_id = ?", id).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id = ?", id).Delete(&model.Quiz{}).Error
	})
}
