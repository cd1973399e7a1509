package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/testutil"
	"lesson_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newAdminServices(t *testing.T) (*QuizAdminService, *SpreadsheetService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewQuizAttemptRepository(db)
	admin := NewQuizAdminService(quizRepo, attemptRepo)
	return admin, NewSpreadsheetService(quizRepo, attemptRepo, admin), db
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func abQuestion(text, correct string) QuizQuestionReq {
	return QuizQuestionReq{
		QuestionText:  text,
		Options:       []model.QuizOption{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
		CorrectAnswer: correct,
	}
}

func TestCreateQuizValidation(t *testing.T) {
	admin, _, _ := newAdminServices(t)

	tests := []struct {
		name string
		req  QuizReq
	}{
		{"missing title", QuizReq{PassingScore: intPtr(60)}},
		{"missing passing score", QuizReq{Title: strPtr("Loops")}},
		{"passing score out of range", QuizReq{Title: strPtr("Loops"), PassingScore: intPtr(101)}},
		{"one option", QuizReq{Title: strPtr("Loops"), PassingScore: intPtr(60), Questions: &[]QuizQuestionReq{{
			QuestionText: "q", Options: []model.QuizOption{{ID: "a", Text: "A"}}, CorrectAnswer: "a",
		}}}},
		{"duplicate option id", QuizReq{Title: strPtr("Loops"), PassingScore: intPtr(60), Questions: &[]QuizQuestionReq{{
			QuestionText: "q", Options: []model.QuizOption{{ID: "a", Text: "A"}, {ID: "a", Text: "B"}}, CorrectAnswer: "a",
		}}}},
		{"answer not an option", QuizReq{Title: strPtr("Loops"), PassingScore: intPtr(60), Questions: &[]QuizQuestionReq{abQuestion("q", "c")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := admin.CreateQuiz(tt.req)
			assert.ErrorIs(t, err, util.ErrInvalidQuestion)
		})
	}
}

func TestCreateAndUpdateQuiz(t *testing.T) {
	admin, _, _ := newAdminServices(t)

	detail, err := admin.CreateQuiz(QuizReq{
		Title:        strPtr(" Loops "),
		PassingScore: intPtr(60),
		Chapters:     &[]string{"loops"},
		Questions:    &[]QuizQuestionReq{abQuestion("first", "a"), abQuestion("second", "b")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Loops", detail.Quiz.Title)
	assert.Equal(t, 2, detail.Quiz.TotalQuestions)
	require.Len(t, detail.Questions, 2)
	assert.Equal(t, "single_choice", detail.Questions[0].QuestionType)
	assert.Equal(t, 1, detail.Questions[0].Points)

	_, err = admin.CreateQuiz(QuizReq{Title: strPtr("Loops"), PassingScore: intPtr(50)})
	assert.ErrorIs(t, err, util.ErrQuizTitleTaken)

	// 只修改及格线，题目保持不变
	updated, err := admin.UpdateQuiz(detail.Quiz.ID, QuizReq{PassingScore: intPtr(80)})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.Quiz.PassingScore)
	assert.Len(t, updated.Questions, 2)

	keep := abQuestion("second edited", "a")
	keep.ID = detail.Questions[1].ID
	updated, err = admin.UpdateQuiz(detail.Quiz.ID, QuizReq{Questions: &[]QuizQuestionReq{keep}})
	require.NoError(t, err)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, keep.ID, updated.Questions[0].ID)
	assert.Equal(t, "second edited", updated.Questions[0].QuestionText)
	assert.Equal(t, 1, updated.Quiz.TotalQuestions)

	_, err = admin.UpdateQuiz("missing", QuizReq{})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	require.NoError(t, admin.DeleteQuiz(detail.Quiz.ID))
	_, err = admin.GetQuiz(detail.Quiz.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestDeletedQuizTitleCanBeReused(t *testing.T) {
	admin, _, _ := newAdminServices(t)
	req := QuizReq{Title: strPtr("Loops"), PassingScore: intPtr(60), Questions: &[]QuizQuestionReq{abQuestion("q", "a")}}

	first, err := admin.CreateQuiz(req)
	require.NoError(t, err)
	require.NoError(t, admin.DeleteQuiz(first.Quiz.ID))

	second, err := admin.CreateQuiz(req)
	require.NoError(t, err)
	assert.NotEqual(t, first.Quiz.ID, second.Quiz.ID)
	assert.Equal(t, 1, second.Quiz.TotalQuestions)

	_, err = admin.CreateQuiz(req)
	assert.ErrorIs(t, err, util.ErrQuizTitleTaken)
}

func TestAdminStatsAndExport(t *testing.T) {
	admin, sheets, db := newAdminServices(t)
	quizSvc := NewQuizService(admin.QuizRepo, admin.AttemptRepo)
	quizSvc.Now = (&fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}).Now
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com", model.Student, 0)
	bob := testutil.CreateUser(t, db, "bob@example.com", model.Student, 0)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 50, "a", "b")

	for _, u := range []*model.User{alice, bob} {
		attempt, err := quizSvc.StartAttempt(ctx, u.ID, quiz.ID)
		require.NoError(t, err)
		answer := "a"
		if u == bob {
			answer = "b"
		}
		submit(t, quizSvc, u.ID, attempt.ID, qs[0].ID, answer)
		_, err = quizSvc.CompleteAttempt(ctx, u.ID, attempt.ID)
		require.NoError(t, err)
	}

	stats, err := admin.Stats(quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Passed)
	assert.InDelta(t, 25.0, stats.AverageScore, 0.001)

	rows, total, err := admin.ListAttempts(quiz.ID, 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)

	buf, name, err := sheets.ExportAttempts(quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loops-attempts.xlsx", name)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows("Attempts")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Attempt ID", got[0][0])
	emails := []string{got[1][2], got[2][2]}
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, emails)
}

func TestImportQuestionsAppends(t *testing.T) {
	_, sheets, db := newAdminServices(t)
	quiz, qs := testutil.CreateQuiz(t, db, "Loops", 60, "a")

	tpl, err := sheets.QuestionTemplate()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(tpl.Bytes()))
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Questions", "A2", &[]interface{}{"What prints 3?", "print(3)", "print(4)", "", "", "A", "literal", "basics", 2}))
	require.NoError(t, f.SetSheetRow("Questions", "A3", &[]interface{}{"Loop keyword?", "for", "if", "else", "", "a", "", "basics", ""}))
	upload, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	detail, err := sheets.ImportQuestions(quiz.ID, upload)
	require.NoError(t, err)
	require.Len(t, detail.Questions, 3)
	assert.Equal(t, qs[0].ID, detail.Questions[0].ID)
	assert.Equal(t, "What prints 3?", detail.Questions[1].QuestionText)
	assert.Equal(t, "a", detail.Questions[1].CorrectAnswer)
	assert.Len(t, detail.Questions[1].Options, 2)
	assert.Equal(t, 2, detail.Questions[1].Points)
	assert.Equal(t, 1, detail.Questions[2].Points)
	assert.Equal(t, 3, detail.Quiz.TotalQuestions)
}

func TestImportRejectsBadFile(t *testing.T) {
	_, sheets, db := newAdminServices(t)
	quiz, _ := testutil.CreateQuiz(t, db, "Loops", 60, "a")

	_, err := sheets.ImportQuestions(quiz.ID, bytes.NewBufferString("not a spreadsheet"))
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	tpl, err := sheets.QuestionTemplate()
	require.NoError(t, err)
	_, err = sheets.ImportQuestions(quiz.ID, tpl)
	assert.ErrorIs(t, err, util.ErrInvalidQuestion)
}

func TestImportRejectsMalformedPoints(t *testing.T) {
	_, sheets, db := newAdminServices(t)
	quiz, _ := testutil.CreateQuiz(t, db, "Loops", 60, "a")

	tpl, err := sheets.QuestionTemplate()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(tpl.Bytes()))
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Questions", "A2", &[]interface{}{"Loop keyword?", "for", "if", "", "", "a", "", "basics", "two"}))
	upload, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = sheets.ImportQuestions(quiz.ID, upload)
	require.ErrorIs(t, err, util.ErrInvalidQuestion)
	assert.Contains(t, err.Error(), "row 2")

	detail, err := sheets.AdminSvc.GetQuiz(quiz.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Questions, 1)
}
