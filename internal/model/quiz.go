package model

// QuizOption 单个选项，CorrectAnswer 保存的是选项 ID
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title            string   `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Description      string   `gorm:"type:text" json:"description"`
	Difficulty       string   `gorm:"size:20" json:"difficulty"`
	Chapters         []string `gorm:"serializer:json;type:json" json:"chapters"`
	TotalQuestions   int      `gorm:"default:0" json:"total_questions"`
	PassingScore     int      `gorm:"not null" json:"passing_score"` // 0-100
	TimeLimitMinutes int      `gorm:"default:0" json:"time_limit_minutes"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	UUIDBase
	QuizID        string       `gorm:"index;type:varchar(36)" json:"quiz_id"`
	QuestionType  string       `gorm:"size:50;default:'single_choice'" json:"question_type"`
	QuestionText  string       `gorm:"type:text;not null" json:"question_text"`
	CodeSnippet   *string      `gorm:"type:text" json:"code_snippet"`
	Options       []QuizOption `gorm:"serializer:json;type:json" json:"options"`
	CorrectAnswer string       `gorm:"size:100" json:"correct_answer"`
	Explanation   string       `gorm:"type:text" json:"explanation"`
	Points        int          `json:"points"`
	Chapter       string       `gorm:"size:100" json:"chapter"`
	OrderIndex    int          `gorm:"default:0;index" json:"order_index"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// HasOption 判断选项 ID 是否存在
func (q *QuizQuestion) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
