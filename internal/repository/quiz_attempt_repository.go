package repository

import (
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// QuizStats 单个测验的统计
type QuizStats struct {
	Attempts     int64   `json:"attempts"`
	Completed    int64   `json:"completed"`
	Passed       int64   `json:"passed"`
	PassRate     float64 `json:"pass_rate"`
	AverageScore float64 `json:"average_score"`
}

func (r *QuizAttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *QuizAttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindForUser 只返回属于该用户的 attempt
func (r *QuizAttemptRepository) FindForUser(id string, userID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuizAttemptRepository) ListResponses(attemptID string) ([]model.QuizResponse, error) {
	var rs []model.QuizResponse
	err := r.DB.Where("attempt_id = ?", attemptID).Order("created_at ASC").Find(&rs).Error
	return rs, err
}

func (r *QuizAttemptRepository) FindResponse(attemptID, questionID string) (*model.QuizResponse, error) {
	var resp model.QuizResponse
	err := r.DB.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordResponse 写入作答并在同一事务中累加 attempt 的计数。
// 正确数不超过 total_questions，用时只增不减。
func (r *QuizAttemptRepository) RecordResponse(resp *model.QuizResponse, timeSpent int) error {
	inc := 0
	if resp.IsCorrect {
		inc = 1
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(resp).Error; err != nil {
			return err
		}

		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND is_completed = ?", resp.AttemptID, false).
			Updates(map[string]interface{}{
				"correct_answers": gorm.Expr(
					"CASE WHEN correct_answers + ? > total_questions THEN total_questions ELSE correct_answers + ? END", inc, inc),
				"time_spent_seconds": gorm.Expr(
					"CASE WHEN time_spent_seconds < ? THEN ? ELSE time_spent_seconds END", timeSpent, timeSpent),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrAttemptCompleted
		}
		return nil
	})
}

// Complete 写入最终结果，已完成的 attempt 不会被再次修改
func (r *QuizAttemptRepository) Complete(attemptID string, completedAt time.Time, score, correct, timeSpent int, passed bool) error {
	res := r.DB.Model(&model.QuizAttempt{}).
		Where("id = ? AND is_completed = ?", attemptID, false).
		Updates(map[string]interface{}{
			"completed_at":       completedAt,
			"score":              score,
			"correct_answers":    correct,
			"time_spent_seconds": timeSpent,
			"passed":             passed,
			"is_completed":       true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptCompleted
	}
	return nil
}

// ListByUserAndQuiz 最新的在前
func (r *QuizAttemptRepository) ListByUserAndQuiz(userID uint, quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// AttemptRow 管理端列表行，附带用户信息
type AttemptRow struct {
	model.QuizAttempt
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func (r *QuizAttemptRepository) ListByQuiz(quizID string, page, limit int, completed *bool) ([]AttemptRow, int64, error) {
	var rows []AttemptRow
	var total int64

	query := r.DB.Table("quiz_attempts").
		Joins("LEFT JOIN users ON users.id = quiz_attempts.user_id").
		Where("quiz_attempts.quiz_id = ? AND quiz_attempts.deleted_at IS NULL", quizID)
	if completed != nil {
		query = query.Where("quiz_attempts.is_completed = ?", *completed)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := query.Select("quiz_attempts.*, users.name AS user_name, users.email AS user_email").
		Order("quiz_attempts.started_at DESC")
	if limit > 0 {
		q = q.Offset((page - 1) * limit).Limit(limit)
	}
	err := q.Scan(&rows).Error
	return rows, total, err
}

func (r *QuizAttemptRepository) Stats(quizID string) (*QuizStats, error) {
	stats := &QuizStats{}
	base := func() *gorm.DB {
		return r.DB.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizID)
	}

	if err := base().Count(&stats.Attempts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_completed = ?", true).Count(&stats.Completed).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_completed = ? AND passed = ?", true, true).Count(&stats.Passed).Error; err != nil {
		return nil, err
	}

	if stats.Completed > 0 {
		var avg struct{ Avg float64 }
		if err := base().Where("is_completed = ?", true).Select("AVG(score) AS avg").Scan(&avg).Error; err != nil {
			return nil, err
		}
		stats.AverageScore = avg.Avg
		stats.PassRate = float64(stats.Passed) / float64(stats.Completed)
	}
	return stats, nil
}
