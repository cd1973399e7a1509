package service

import (
	"fmt"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/util"
	"strings"
)

type QuizAdminService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.QuizAttemptRepository
}

func NewQuizAdminService(quizRepo *repository.QuizRepository, attemptRepo *repository.QuizAttemptRepository) *QuizAdminService {
	return &QuizAdminService{QuizRepo: quizRepo, AttemptRepo: attemptRepo}
}

type QuizQuestionReq struct {
	ID            string             `json:"id"`
	QuestionType  string             `json:"question_type"`
	QuestionText  string             `json:"question_text" binding:"required"`
	CodeSnippet   *string            `json:"code_snippet"`
	Options       []model.QuizOption `json:"options"`
	CorrectAnswer string             `json:"correct_answer" binding:"required"`
	Explanation   string             `json:"explanation"`
	Points        int                `json:"points"`
	Chapter       string             `json:"chapter"`
	OrderIndex    *int               `json:"order_index"`
}

type QuizReq struct {
	Title            *string            `json:"title"`
	Description      *string            `json:"description"`
	Difficulty       *string            `json:"difficulty"`
	Chapters         *[]string          `json:"chapters"`
	PassingScore     *int               `json:"passing_score"`
	TimeLimitMinutes *int               `json:"time_limit_minutes"`
	Questions        *[]QuizQuestionReq `json:"questions"`
}

type QuizDetail struct {
	Quiz      model.Quiz           `json:"quiz"`
	Questions []model.QuizQuestion `json:"questions"`
}

func (s *QuizAdminService) CreateQuiz(req QuizReq) (*QuizDetail, error) {
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrInvalidQuestion)
	}
	if req.PassingScore == nil {
		return nil, fmt.Errorf("%w: passing_score is required", util.ErrInvalidQuestion)
	}

	q := &model.Quiz{}
	applyQuizReq(q, req)
	if err := validateQuiz(q); err != nil {
		return nil, err
	}

	taken, err := s.QuizRepo.ExistsByTitle(q.Title, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrQuizTitleTaken
	}

	var questions []model.QuizQuestion
	if req.Questions != nil {
		questions, err = buildQuestions(*req.Questions)
		if err != nil {
			return nil, err
		}
	}

	if err := s.QuizRepo.CreateWithQuestions(q, questions); err != nil {
		return nil, s.titleConflict(q, err)
	}
	return &QuizDetail{Quiz: *q, Questions: questions}, nil
}

// UpdateQuiz 只修改请求中出现的字段；Questions 不为空时按 ID 同步题目
func (s *QuizAdminService) UpdateQuiz(id string, req QuizReq) (*QuizDetail, error) {
	q, err := s.QuizRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}

	applyQuizReq(q, req)
	if err := validateQuiz(q); err != nil {
		return nil, err
	}

	taken, err := s.QuizRepo.ExistsByTitle(q.Title, q.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrQuizTitleTaken
	}

	if req.Questions == nil {
		if err := s.QuizRepo.Update(q); err != nil {
			return nil, s.titleConflict(q, err)
		}
		return s.GetQuiz(q.ID)
	}

	questions, err := buildQuestions(*req.Questions)
	if err != nil {
		return nil, err
	}
	if err := s.QuizRepo.ReplaceQuestions(q, questions); err != nil {
		return nil, s.titleConflict(q, err)
	}
	return s.GetQuiz(q.ID)
}

// titleConflict 并发写入同名测验时唯一索引报错，转换为 ErrQuizTitleTaken
func (s *QuizAdminService) titleConflict(q *model.Quiz, err error) error {
	if taken, checkErr := s.QuizRepo.ExistsByTitle(q.Title, q.ID); checkErr == nil && taken {
		return util.ErrQuizTitleTaken
	}
	return err
}

func (s *QuizAdminService) DeleteQuiz(id string) error {
	if _, err := s.QuizRepo.FindByID(id); err != nil {
		return notFound(err, util.ErrQuizNotFound)
	}
	return s.QuizRepo.Delete(id)
}

// GetQuiz 管理端查看，包含答案与解析
func (s *QuizAdminService) GetQuiz(id string) (*QuizDetail, error) {
	q, err := s.QuizRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	questions, err := s.QuizRepo.ListQuestions(q.ID)
	if err != nil {
		return nil, err
	}
	return &QuizDetail{Quiz: *q, Questions: questions}, nil
}

func (s *QuizAdminService) ListAttempts(quizID string, page, limit int, completed *bool) ([]repository.AttemptRow, int64, error) {
	if _, err := s.QuizRepo.FindByID(quizID); err != nil {
		return nil, 0, notFound(err, util.ErrQuizNotFound)
	}
	return s.AttemptRepo.ListByQuiz(quizID, page, limit, completed)
}

func (s *QuizAdminService) Stats(quizID string) (*repository.QuizStats, error) {
	if _, err := s.QuizRepo.FindByID(quizID); err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	return s.AttemptRepo.Stats(quizID)
}

func applyQuizReq(q *model.Quiz, req QuizReq) {
	if req.Title != nil {
		q.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	if req.Difficulty != nil {
		q.Difficulty = *req.Difficulty
	}
	if req.Chapters != nil {
		q.Chapters = *req.Chapters
	}
	if req.PassingScore != nil {
		q.PassingScore = *req.PassingScore
	}
	if req.TimeLimitMinutes != nil {
		q.TimeLimitMinutes = *req.TimeLimitMinutes
	}
}

func validateQuiz(q *model.Quiz) error {
	if q.Title == "" {
		return fmt.Errorf("%w: title is required", util.ErrInvalidQuestion)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: passing_score must be between 0 and 100", util.ErrInvalidQuestion)
	}
	if q.TimeLimitMinutes < 0 {
		return fmt.Errorf("%w: time_limit_minutes must not be negative", util.ErrInvalidQuestion)
	}
	return nil
}

func buildQuestions(reqs []QuizQuestionReq) ([]model.QuizQuestion, error) {
	questions := make([]model.QuizQuestion, 0, len(reqs))
	for i, r := range reqs {
		q := model.QuizQuestion{
			QuestionType:  r.QuestionType,
			QuestionText:  strings.TrimSpace(r.QuestionText),
			CodeSnippet:   r.CodeSnippet,
			Options:       r.Options,
			CorrectAnswer: strings.TrimSpace(r.CorrectAnswer),
			Explanation:   r.Explanation,
			Points:        r.Points,
			Chapter:       r.Chapter,
			OrderIndex:    i,
		}
		q.ID = r.ID
		if r.OrderIndex != nil {
			q.OrderIndex = *r.OrderIndex
		}
		if q.QuestionType == "" {
			q.QuestionType = "single_choice"
		}
		if q.Points <= 0 {
			q.Points = 1
		}
		if err := validateQuestion(&q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func validateQuestion(q *model.QuizQuestion) error {
	if q.QuestionText == "" {
		return fmt.Errorf("%w: question_text is required", util.ErrInvalidQuestion)
	}
	if q.CorrectAnswer == "" {
		return fmt.Errorf("%w: correct_answer is required", util.ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options are required", util.ErrInvalidQuestion)
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if o.ID == "" {
			return fmt.Errorf("%w: option id is required", util.ErrInvalidQuestion)
		}
		if seen[o.ID] {
			return fmt.Errorf("%w: duplicate option id %q", util.ErrInvalidQuestion, o.ID)
		}
		seen[o.ID] = true
	}
	if !q.HasOption(q.CorrectAnswer) {
		return fmt.Errorf("%w: correct_answer %q is not an option", util.ErrInvalidQuestion, q.CorrectAnswer)
	}
	return nil
}
