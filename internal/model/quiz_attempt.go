package model

import "time"

// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	UserID           uint       `gorm:"index;type:bigint unsigned" json:"user_id"`
	QuizID           string     `gorm:"index;type:varchar(36)" json:"quiz_id"`
	TotalQuestions   int        `json:"total_questions"`
	CorrectAnswers   int        `gorm:"default:0" json:"correct_answers"`
	TimeSpentSeconds int        `gorm:"default:0" json:"time_spent_seconds"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	Score            *int       `json:"score"`
	Passed           *bool      `json:"passed"`
	IsCompleted      bool       `gorm:"default:false;index" json:"is_completed"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizResponse 只追加，不更新不删除
// swagger:model QuizResponse
type QuizResponse struct {
	UUIDBase
	AttemptID        string `gorm:"uniqueIndex:idx_response_attempt_question;type:varchar(36)" json:"attempt_id"`
	QuestionID       string `gorm:"uniqueIndex:idx_response_attempt_question;type:varchar(36)" json:"question_id"`
	UserAnswer       string `gorm:"size:100" json:"user_answer"`
	IsCorrect        bool   `json:"is_correct"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

func (QuizResponse) TableName() string {
	return "quiz_responses"
}
