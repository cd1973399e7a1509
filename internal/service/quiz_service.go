package service

import (
	"context"
	"errors"
	"fmt"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/quiz"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/util"
	"lesson_platform_backend/pkg/logger"
	"lesson_platform_backend/pkg/monitoring"
	"lesson_platform_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionView 答题时下发的题目，不包含答案与解析
type QuestionView struct {
	ID           string             `json:"id"`
	QuestionType string             `json:"question_type"`
	QuestionText string             `json:"question_text"`
	CodeSnippet  *string            `json:"code_snippet"`
	Options      []model.QuizOption `json:"options"`
	Points       int                `json:"points"`
	Chapter      string             `json:"chapter"`
	OrderIndex   int                `json:"order_index"`
}

type QuizView struct {
	Quiz      model.Quiz     `json:"quiz"`
	Questions []QuestionView `json:"questions"`
}

type SubmitResponseInput struct {
	QuestionID       string `json:"question_id" binding:"required"`
	UserAnswer       string `json:"user_answer" binding:"required"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// ResponseResult 提交后的反馈；Duplicate 表示该题已作答，返回的是已保存的结果
type ResponseResult struct {
	ResponseID       string `json:"response_id"`
	QuestionID       string `json:"question_id"`
	UserAnswer       string `json:"user_answer"`
	IsCorrect        bool   `json:"is_correct"`
	CorrectAnswer    string `json:"correct_answer"`
	Explanation      string `json:"explanation"`
	CorrectAnswers   int    `json:"correct_answers"`
	TotalQuestions   int    `json:"total_questions"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	Duplicate        bool   `json:"duplicate"`
}

type AttemptDetail struct {
	Attempt   model.QuizAttempt    `json:"attempt"`
	Responses []model.QuizResponse `json:"responses"`
}

type QuizService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.QuizAttemptRepository
	Now         func() time.Time
}

func NewQuizService(quizRepo *repository.QuizRepository, attemptRepo *repository.QuizAttemptRepository) *QuizService {
	return &QuizService{
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		Now:         time.Now,
	}
}

func NewQuestionView(q model.QuizQuestion) QuestionView {
	return QuestionView{
		ID:           q.ID,
		QuestionType: q.QuestionType,
		QuestionText: q.QuestionText,
		CodeSnippet:  q.CodeSnippet,
		Options:      q.Options,
		Points:       q.Points,
		Chapter:      q.Chapter,
		OrderIndex:   q.OrderIndex,
	}
}

func (s *QuizService) GetQuizByTitle(ctx context.Context, title string) (*QuizView, error) {
	q, err := s.QuizRepo.FindByTitle(title)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	return s.view(q)
}

func (s *QuizService) GetQuiz(ctx context.Context, id string) (*QuizView, error) {
	q, err := s.QuizRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	return s.view(q)
}

func (s *QuizService) ListQuizzes(page, limit int, search, difficulty string) ([]model.Quiz, int64, error) {
	return s.QuizRepo.List(page, limit, search, difficulty)
}

// StartAttempt 开始一次新的作答，重做也会生成新的 attempt
func (s *QuizService) StartAttempt(ctx context.Context, userID uint, quizID string) (*model.QuizAttempt, error) {
	_, span := tracing.Tracer.Start(ctx, "QuizService.StartAttempt")
	defer span.End()
	span.SetAttributes(attribute.String("quiz.id", quizID))

	q, questions, err := s.load(quizID)
	if err != nil {
		return nil, err
	}

	session := quiz.NewSession(*q, questions)
	draft, err := session.Start(s.Now())
	if err != nil {
		if errors.Is(err, quiz.ErrNoQuestions) {
			return nil, util.ErrQuizHasNoQuestions
		}
		return nil, err
	}

	attempt := &model.QuizAttempt{
		UserID:         userID,
		QuizID:         draft.QuizID,
		TotalQuestions: draft.TotalQuestions,
		StartedAt:      draft.StartedAt,
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		logger.Log.Error("Failed to create quiz attempt",
			zap.Uint("user_id", userID),
			zap.String("quiz_id", quizID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	monitoring.AttemptsStarted.Inc()
	return attempt, nil
}

// SubmitResponse 判分并保存作答，同一题重复提交不会改变计数
func (s *QuizService) SubmitResponse(ctx context.Context, userID uint, attemptID string, in SubmitResponseInput) (*ResponseResult, error) {
	_, span := tracing.Tracer.Start(ctx, "QuizService.SubmitResponse")
	defer span.End()
	span.SetAttributes(attribute.String("attempt.id", attemptID), attribute.String("question.id", in.QuestionID))

	session, attempt, err := s.resume(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, util.ErrAttemptCompleted
	}

	question, ok := findQuestion(session.Questions(), in.QuestionID)
	if !ok {
		return nil, util.ErrInvalidQuestion
	}
	if len(question.Options) > 0 && !question.HasOption(in.UserAnswer) {
		if _, answered := session.AnswerFor(question.ID); !answered {
			return nil, util.ErrInvalidAnswer
		}
	}

	out, err := session.SubmitFor(s.Now(), in.QuestionID, in.UserAnswer, in.TimeSpentSeconds)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrUnknownQuestion):
			return nil, util.ErrInvalidQuestion
		case errors.Is(err, quiz.ErrAlreadyCompleted):
			return nil, util.ErrAttemptCompleted
		}
		return nil, err
	}

	if !out.Submitted {
		return s.storedResult(attempt, question, out)
	}

	resp := &model.QuizResponse{
		AttemptID:        attempt.ID,
		QuestionID:       out.Answer.QuestionID,
		UserAnswer:       out.Answer.UserAnswer,
		IsCorrect:        out.Answer.IsCorrect,
		TimeSpentSeconds: out.Answer.TimeSpentSeconds,
	}
	err = s.AttemptRepo.RecordResponse(resp, out.Progress.TimeSpentSeconds)
	if err != nil {
		if errors.Is(err, util.ErrAttemptCompleted) {
			return nil, err
		}
		// 并发重复提交时唯一索引冲突，返回已保存的记录
		if existing, findErr := s.AttemptRepo.FindResponse(attempt.ID, in.QuestionID); findErr == nil {
			return s.fromResponse(attemptID, userID, question, existing)
		}
		logger.Log.Error("Failed to record quiz response",
			zap.String("attempt_id", attempt.ID),
			zap.String("question_id", in.QuestionID),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record response: %w", err)
	}

	monitoring.ObserveResponse(out.Answer.IsCorrect)
	return &ResponseResult{
		ResponseID:       resp.ID,
		QuestionID:       question.ID,
		UserAnswer:       resp.UserAnswer,
		IsCorrect:        resp.IsCorrect,
		CorrectAnswer:    question.CorrectAnswer,
		Explanation:      question.Explanation,
		CorrectAnswers:   out.Progress.CorrectAnswers,
		TotalQuestions:   attempt.TotalQuestions,
		TimeSpentSeconds: out.Progress.TimeSpentSeconds,
	}, nil
}

// CompleteAttempt 计算最终得分；已完成的 attempt 直接返回原结果
func (s *QuizService) CompleteAttempt(ctx context.Context, userID uint, attemptID string) (*model.QuizAttempt, error) {
	_, span := tracing.Tracer.Start(ctx, "QuizService.CompleteAttempt")
	defer span.End()
	span.SetAttributes(attribute.String("attempt.id", attemptID))

	session, attempt, err := s.resume(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return attempt, nil
	}

	res, err := session.Finish(s.Now())
	if err != nil {
		return nil, err
	}

	err = s.AttemptRepo.Complete(attempt.ID, res.CompletedAt, res.Score, res.CorrectAnswers, res.TimeSpentSeconds, res.Passed)
	if err != nil && !errors.Is(err, util.ErrAttemptCompleted) {
		logger.Log.Error("Failed to complete quiz attempt",
			zap.String("attempt_id", attempt.ID),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if err == nil {
		monitoring.ObserveAttemptCompleted(res.Passed)
	}

	return s.AttemptRepo.FindForUser(attempt.ID, userID)
}

func (s *QuizService) GetAttempt(ctx context.Context, userID uint, attemptID string) (*AttemptDetail, error) {
	attempt, err := s.AttemptRepo.FindForUser(attemptID, userID)
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	responses, err := s.AttemptRepo.ListResponses(attempt.ID)
	if err != nil {
		return nil, err
	}
	return &AttemptDetail{Attempt: *attempt, Responses: responses}, nil
}

func (s *QuizService) ListMyAttempts(ctx context.Context, userID uint, quizID string) ([]model.QuizAttempt, error) {
	return s.AttemptRepo.ListByUserAndQuiz(userID, quizID)
}

func (s *QuizService) load(quizID string) (*model.Quiz, []model.QuizQuestion, error) {
	q, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, nil, notFound(err, util.ErrQuizNotFound)
	}
	questions, err := s.QuizRepo.ListQuestions(q.ID)
	if err != nil {
		return nil, nil, err
	}
	return q, questions, nil
}

// resume 根据数据库中的记录重建会话
func (s *QuizService) resume(userID uint, attemptID string) (*quiz.Session, *model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindForUser(attemptID, userID)
	if err != nil {
		return nil, nil, notFound(err, util.ErrAttemptNotFound)
	}
	q, questions, err := s.load(attempt.QuizID)
	if err != nil {
		return nil, nil, err
	}
	responses, err := s.AttemptRepo.ListResponses(attempt.ID)
	if err != nil {
		return nil, nil, err
	}
	return quiz.Resume(*q, questions, *attempt, responses), attempt, nil
}

func (s *QuizService) view(q *model.Quiz) (*QuizView, error) {
	questions, err := s.QuizRepo.ListQuestions(q.ID)
	if err != nil {
		return nil, err
	}
	views := make([]QuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, NewQuestionView(question))
	}
	return &QuizView{Quiz: *q, Questions: views}, nil
}

func (s *QuizService) storedResult(attempt *model.QuizAttempt, question model.QuizQuestion, out quiz.Outcome) (*ResponseResult, error) {
	return &ResponseResult{
		QuestionID:       question.ID,
		UserAnswer:       out.Answer.UserAnswer,
		IsCorrect:        out.Answer.IsCorrect,
		CorrectAnswer:    question.CorrectAnswer,
		Explanation:      question.Explanation,
		CorrectAnswers:   attempt.CorrectAnswers,
		TotalQuestions:   attempt.TotalQuestions,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		Duplicate:        true,
	}, nil
}

func (s *QuizService) fromResponse(attemptID string, userID uint, question model.QuizQuestion, resp *model.QuizResponse) (*ResponseResult, error) {
	attempt, err := s.AttemptRepo.FindForUser(attemptID, userID)
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	return &ResponseResult{
		ResponseID:       resp.ID,
		QuestionID:       question.ID,
		UserAnswer:       resp.UserAnswer,
		IsCorrect:        resp.IsCorrect,
		CorrectAnswer:    question.CorrectAnswer,
		Explanation:      question.Explanation,
		CorrectAnswers:   attempt.CorrectAnswers,
		TotalQuestions:   attempt.TotalQuestions,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		Duplicate:        true,
	}, nil
}

func findQuestion(questions []model.QuizQuestion, id string) (model.QuizQuestion, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.QuizQuestion{}, false
}

// notFound 把 gorm 的未找到错误转换为业务错误
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
