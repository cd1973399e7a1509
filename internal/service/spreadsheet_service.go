package service

import (
	"bytes"
	"fmt"
	"io"
	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/util"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	attemptSheet  = "Attempts"
	questionSheet = "Questions"
)

var attemptHeader = []interface{}{
	"Attempt ID", "User", "Email", "Started At", "Completed At",
	"Correct", "Total", "Score", "Passed", "Time Spent (s)",
}

// 导入模板列：题干、选项 A-D、正确选项、解析、章节、分值
var questionHeader = []interface{}{
	"Question", "Option A", "Option B", "Option C", "Option D",
	"Correct", "Explanation", "Chapter", "Points",
}

// SpreadsheetService 测验数据的 xlsx 导入导出
type SpreadsheetService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.QuizAttemptRepository
	AdminSvc    *QuizAdminService
}

func NewSpreadsheetService(quizRepo *repository.QuizRepository, attemptRepo *repository.QuizAttemptRepository, adminSvc *QuizAdminService) *SpreadsheetService {
	return &SpreadsheetService{QuizRepo: quizRepo, AttemptRepo: attemptRepo, AdminSvc: adminSvc}
}

// ExportAttempts 导出某个测验的全部作答记录
func (s *SpreadsheetService) ExportAttempts(quizID string) (*bytes.Buffer, string, error) {
	q, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, "", notFound(err, util.ErrQuizNotFound)
	}

	rows, _, err := s.AttemptRepo.ListByQuiz(quizID, 1, 0, nil)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), attemptSheet); err != nil {
		return nil, "", err
	}
	if err := writeHeader(f, attemptSheet, attemptHeader); err != nil {
		return nil, "", err
	}

	for i, r := range rows {
		completedAt := ""
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.Format(util.TimeFormat)
		}
		score := ""
		if r.Score != nil {
			score = strconv.Itoa(*r.Score)
		}
		passed := ""
		if r.Passed != nil {
			passed = strconv.FormatBool(*r.Passed)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		values := []interface{}{
			r.ID, r.UserName, r.UserEmail,
			r.StartedAt.Format(util.TimeFormat), completedAt,
			r.CorrectAnswers, r.TotalQuestions, score, passed, r.TimeSpentSeconds,
		}
		if err := f.SetSheetRow(attemptSheet, cell, &values); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("%s-attempts.xlsx", util.SafeFileName(q.Title)), nil
}

// QuestionTemplate 生成空白导入模板
func (s *SpreadsheetService) QuestionTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), questionSheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, questionSheet, questionHeader); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

// ImportQuestions 读取 xlsx 中的题目追加到测验末尾
func (s *SpreadsheetService) ImportQuestions(quizID string, r io.Reader) (*QuizDetail, error) {
	detail, err := s.AdminSvc.GetQuiz(quizID)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseQuestionSheet(r)
	if err != nil {
		return nil, err
	}

	reqs := make([]QuizQuestionReq, 0, len(detail.Questions)+len(parsed))
	next := 0
	for _, q := range detail.Questions {
		idx := q.OrderIndex
		reqs = append(reqs, QuizQuestionReq{
			ID:            q.ID,
			QuestionType:  q.QuestionType,
			QuestionText:  q.QuestionText,
			CodeSnippet:   q.CodeSnippet,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Points:        q.Points,
			Chapter:       q.Chapter,
			OrderIndex:    &idx,
		})
		if idx >= next {
			next = idx + 1
		}
	}
	for i := range parsed {
		idx := next + i
		parsed[i].OrderIndex = &idx
		reqs = append(reqs, parsed[i])
	}

	return s.AdminSvc.UpdateQuiz(quizID, QuizReq{Questions: &reqs})
}

// ParseQuestionSheet 解析导入模板，首行为表头
func ParseQuestionSheet(r io.Reader) ([]QuizQuestionReq, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidFileType, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	optionIDs := []string{"a", "b", "c", "d"}
	var reqs []QuizQuestionReq
	for i, row := range rows {
		if i == 0 {
			continue
		}
		get := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		if get(0) == "" {
			continue
		}

		var options []model.QuizOption
		for j, id := range optionIDs {
			if text := get(1 + j); text != "" {
				options = append(options, model.QuizOption{ID: id, Text: text})
			}
		}
		points := 0
		if raw := get(8); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: points %q is not a number", util.ErrInvalidQuestion, i+1, raw)
			}
			points = n
		}

		reqs = append(reqs, QuizQuestionReq{
			QuestionType:  "single_choice",
			QuestionText:  get(0),
			Options:       options,
			CorrectAnswer: strings.ToLower(get(5)),
			Explanation:   get(6),
			Chapter:       get(7),
			Points:        points,
		})
	}

	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no questions", util.ErrInvalidQuestion, sheet)
	}
	return reqs, nil
}

func writeHeader(f *excelize.File, sheet string, header []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}
