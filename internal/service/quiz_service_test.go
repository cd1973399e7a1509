package service

import (
	"context"
	"testing"
	"time"

	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/testutil"
	"lesson_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeClock 每次调用前进一秒
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newQuizService(t *testing.T) (*QuizService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewQuizService(repository.NewQuizRepository(db), repository.NewQuizAttemptRepository(db))
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc.Now = clock.Now
	return svc, db
}

func submit(t *testing.T, svc *QuizService, userID uint, attemptID, questionID, answer string) *ResponseResult {
	t.Helper()
	res, err := svc.SubmitResponse(context.Background(), userID, attemptID, SubmitResponseInput{
		QuestionID: questionID, UserAnswer: answer, TimeSpentSeconds: 3,
	})
	require.NoError(t, err)
	return res
}

func TestQuizEndToEnd(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 60, "a", "b", "c")

	view, err := svc.GetQuizByTitle(ctx, "Loops")
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, qs[0].ID, view.Questions[0].ID)

	attempt, err := svc.StartAttempt(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, attempt.TotalQuestions)
	assert.False(t, attempt.IsCompleted)

	r1 := submit(t, svc, user.ID, attempt.ID, qs[0].ID, "a")
	assert.True(t, r1.IsCorrect)
	assert.Equal(t, 1, r1.CorrectAnswers)
	assert.Equal(t, "a", r1.CorrectAnswer)
	assert.Equal(t, "answer is a", r1.Explanation)

	r2 := submit(t, svc, user.ID, attempt.ID, qs[1].ID, "c")
	assert.False(t, r2.IsCorrect)
	assert.Equal(t, "b", r2.CorrectAnswer)
	assert.Equal(t, 1, r2.CorrectAnswers)

	r3 := submit(t, svc, user.ID, attempt.ID, qs[2].ID, "c")
	assert.True(t, r3.IsCorrect)
	assert.Equal(t, 2, r3.CorrectAnswers)

	done, err := svc.CompleteAttempt(ctx, user.ID, attempt.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	require.NotNil(t, done.Score)
	assert.Equal(t, 67, *done.Score)
	require.NotNil(t, done.Passed)
	assert.True(t, *done.Passed)
	assert.Equal(t, 2, done.CorrectAnswers)
	assert.NotNil(t, done.CompletedAt)
	assert.Greater(t, done.TimeSpentSeconds, 0)

	detail, err := svc.GetAttempt(ctx, user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Responses, 3)
}

func TestDuplicateSubmitReturnsStoredResponse(t *testing.T) {
	svc, db := newQuizService(t)
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 60, "a", "b")

	attempt, err := svc.StartAttempt(context.Background(), user.ID, quiz.ID)
	require.NoError(t, err)

	first := submit(t, svc, user.ID, attempt.ID, qs[0].ID, "a")
	require.False(t, first.Duplicate)

	second := submit(t, svc, user.ID, attempt.ID, qs[0].ID, "b")
	assert.True(t, second.Duplicate)
	assert.Equal(t, "a", second.UserAnswer)
	assert.True(t, second.IsCorrect)
	assert.Equal(t, 1, second.CorrectAnswers)

	detail, err := svc.GetAttempt(context.Background(), user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Responses, 1)
	assert.Equal(t, 1, detail.Attempt.CorrectAnswers)
}

func TestAttemptBelongsToOwner(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com", model.Student, 0)
	other := testutil.CreateUser(t, db, "other@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 60, "a")

	attempt, err := svc.StartAttempt(ctx, owner.ID, quiz.ID)
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, other.ID, attempt.ID, SubmitResponseInput{QuestionID: qs[0].ID, UserAnswer: "a"})
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
	_, err = svc.CompleteAttempt(ctx, other.ID, attempt.ID)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
	_, err = svc.GetAttempt(ctx, other.ID, attempt.ID)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestStartAttemptErrors(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	empty, _ := testutil.CreateQuiz(t, db, "Empty", 60)

	_, err := svc.StartAttempt(ctx, user.ID, empty.ID)
	assert.ErrorIs(t, err, util.ErrQuizHasNoQuestions)

	_, err = svc.StartAttempt(ctx, user.ID, "missing")
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	_, err = svc.GetQuizByTitle(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitValidation(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 60, "a", "b")
	other, otherQs := testutil.CreateQuiz(t, db, "Other", 60, "a")
	require.NotEqual(t, quiz.ID, other.ID)

	attempt, err := svc.StartAttempt(ctx, user.ID, quiz.ID)
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, user.ID, attempt.ID, SubmitResponseInput{QuestionID: otherQs[0].ID, UserAnswer: "a"})
	assert.ErrorIs(t, err, util.ErrInvalidQuestion)

	_, err = svc.SubmitResponse(ctx, user.ID, attempt.ID, SubmitResponseInput{QuestionID: qs[0].ID, UserAnswer: "z"})
	assert.ErrorIs(t, err, util.ErrInvalidAnswer)

	detail, err := svc.GetAttempt(ctx, user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Responses)
}

func TestCompletedAttemptIsFrozen(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 70, "a", "b", "c", "a")

	attempt, err := svc.StartAttempt(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	submit(t, svc, user.ID, attempt.ID, qs[0].ID, "a")

	// 提前结束，未作答的题目按错误计算
	first, err := svc.CompleteAttempt(ctx, user.ID, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, first.Score)
	assert.Equal(t, 25, *first.Score)
	assert.False(t, *first.Passed)

	_, err = svc.SubmitResponse(ctx, user.ID, attempt.ID, SubmitResponseInput{QuestionID: qs[1].ID, UserAnswer: "b"})
	assert.ErrorIs(t, err, util.ErrAttemptCompleted)

	second, err := svc.CompleteAttempt(ctx, user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.Score, *second.Score)
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())
}

func TestRetakeCreatesNewAttempt(t *testing.T) {
	svc, db := newQuizService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 50, "a")

	first, err := svc.StartAttempt(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	submit(t, svc, user.ID, first.ID, qs[0].ID, "b")
	_, err = svc.CompleteAttempt(ctx, user.ID, first.ID)
	require.NoError(t, err)

	second, err := svc.StartAttempt(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	r := submit(t, svc, user.ID, second.ID, qs[0].ID, "a")
	assert.False(t, r.Duplicate)
	assert.Equal(t, 1, r.CorrectAnswers)

	history, err := svc.ListMyAttempts(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.True(t, history[1].IsCompleted)
}

func TestCompleteScoresAgainstStartedQuestionSet(t *testing.T) {
	tests := []struct {
		name string
		edit func(existing []QuizQuestionReq) []QuizQuestionReq
	}{
		{"questions appended", func(existing []QuizQuestionReq) []QuizQuestionReq {
			return append(existing, abQuestion("new 1", "a"), abQuestion("new 2", "b"))
		}},
		{"answered questions removed", func(existing []QuizQuestionReq) []QuizQuestionReq {
			return existing[:1]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newQuizService(t)
			ctx := context.Background()
			admin := NewQuizAdminService(repository.NewQuizRepository(db), repository.NewQuizAttemptRepository(db))
			user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
			quiz, qs := testutil.CreateQuiz(t, db, "Loops", 60, "a", "b", "c")

			attempt, err := svc.StartAttempt(ctx, user.ID, quiz.ID)
			require.NoError(t, err)
			submit(t, svc, user.ID, attempt.ID, qs[0].ID, "a")
			submit(t, svc, user.ID, attempt.ID, qs[1].ID, "a")
			submit(t, svc, user.ID, attempt.ID, qs[2].ID, "c")

			detail, err := admin.GetQuiz(quiz.ID)
			require.NoError(t, err)
			existing := make([]QuizQuestionReq, 0, len(detail.Questions))
			for _, q := range detail.Questions {
				existing = append(existing, QuizQuestionReq{
					ID: q.ID, QuestionText: q.QuestionText, Options: q.Options, CorrectAnswer: q.CorrectAnswer,
				})
			}
			questions := tt.edit(existing)
			_, err = admin.UpdateQuiz(quiz.ID, QuizReq{Questions: &questions})
			require.NoError(t, err)

			done, err := svc.CompleteAttempt(ctx, user.ID, attempt.ID)
			require.NoError(t, err)
			assert.Equal(t, 3, done.TotalQuestions)
			assert.Equal(t, 2, done.CorrectAnswers)
			require.NotNil(t, done.Score)
			assert.Equal(t, 67, *done.Score)
			require.NotNil(t, done.Passed)
			assert.True(t, *done.Passed)
		})
	}
}
