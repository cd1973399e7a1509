package quiz

import (
	"sort"
	"strings"
	"time"

	"lesson_platform_backend/internal/model"
)

// Answer 一条已提交的作答
type Answer struct {
	QuestionID       string
	UserAnswer       string
	IsCorrect        bool
	TimeSpentSeconds int
}

// Progress 每次作答后需要写回 attempt 的计数
type Progress struct {
	CorrectAnswers   int
	TimeSpentSeconds int
}

// Outcome Submit 的结果；Submitted 为 false 表示本次提交被忽略
type Outcome struct {
	Submitted bool
	Answer    Answer
	Question  model.QuizQuestion
	Progress  Progress
}

// AttemptDraft 开始答题时需要创建的 attempt 记录
type AttemptDraft struct {
	QuizID         string
	TotalQuestions int
	StartedAt      time.Time
}

// Result 完成时写回 attempt 的最终结果
type Result struct {
	Score            int
	Passed           bool
	CorrectAnswers   int
	TotalQuestions   int
	TimeSpentSeconds int
	CompletedAt      time.Time
}

type Session struct {
	quiz      model.Quiz
	questions []model.QuizQuestion
	// 开始答题时的题目数，作为得分分母
	total int

	state     State
	selected  string
	answers   map[string]Answer
	correct   int
	startedAt time.Time
	result    *Result
}

// NewSession 题目按 order_index 排序
func NewSession(q model.Quiz, questions []model.QuizQuestion) *Session {
	qs := make([]model.QuizQuestion, len(questions))
	copy(qs, questions)
	sort.SliceStable(qs, func(i, j int) bool {
		return qs[i].OrderIndex < qs[j].OrderIndex
	})

	return &Session{
		quiz:      q,
		questions: qs,
		total:     len(qs),
		state:     NotStarted{},
		answers:   make(map[string]Answer),
	}
}

// Resume 根据已持久化的 attempt 与作答记录重建会话。
// 分母取 attempt 的 total_questions 快照，正确数以全部作答记录为准
// （包括之后被删除的题目），定位到第一道未作答的题目。
func Resume(q model.Quiz, questions []model.QuizQuestion, attempt model.QuizAttempt, responses []model.QuizResponse) *Session {
	s := NewSession(q, questions)
	s.startedAt = attempt.StartedAt
	if attempt.TotalQuestions > 0 {
		s.total = attempt.TotalQuestions
	}

	for _, r := range responses {
		if _, dup := s.answers[r.QuestionID]; dup {
			continue
		}
		s.answers[r.QuestionID] = Answer{
			QuestionID:       r.QuestionID,
			UserAnswer:       r.UserAnswer,
			IsCorrect:        r.IsCorrect,
			TimeSpentSeconds: r.TimeSpentSeconds,
		}
		if r.IsCorrect && s.correct < s.total {
			s.correct++
		}
	}

	if attempt.IsCompleted {
		res := Result{
			CorrectAnswers:   attempt.CorrectAnswers,
			TotalQuestions:   attempt.TotalQuestions,
			TimeSpentSeconds: attempt.TimeSpentSeconds,
		}
		if attempt.Score != nil {
			res.Score = *attempt.Score
		}
		if attempt.Passed != nil {
			res.Passed = *attempt.Passed
		}
		if attempt.CompletedAt != nil {
			res.CompletedAt = *attempt.CompletedAt
		}
		s.result = &res
		s.state = Completed{Score: res.Score, Passed: res.Passed}
		return s
	}

	idx := len(s.questions) - 1
	answered := true
	for i, question := range s.questions {
		if _, ok := s.answers[question.ID]; !ok {
			idx = i
			answered = false
			break
		}
	}
	if idx < 0 {
		idx = 0
	}
	s.state = InProgress{QuestionIndex: idx, Answered: answered}
	return s
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Quiz() model.Quiz {
	return s.quiz
}

func (s *Session) Questions() []model.QuizQuestion {
	return s.questions
}

func (s *Session) CorrectAnswers() int {
	return s.correct
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Selected 当前题目待提交的选项
func (s *Session) Selected() string {
	return s.selected
}

// AnswerFor 返回某道题已提交的作答
func (s *Session) AnswerFor(questionID string) (Answer, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// Current 当前题目，非 InProgress 时返回 false
func (s *Session) Current() (model.QuizQuestion, bool) {
	st, ok := s.state.(InProgress)
	if !ok || st.QuestionIndex >= len(s.questions) {
		return model.QuizQuestion{}, false
	}
	return s.questions[st.QuestionIndex], true
}

// Elapsed 自开始以来的秒数，仅用于展示，不做超时限制
func (s *Session) Elapsed(now time.Time) int {
	if s.startedAt.IsZero() {
		return 0
	}
	d := now.Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func (s *Session) Start(now time.Time) (AttemptDraft, error) {
	switch s.state.(type) {
	case InProgress:
		return AttemptDraft{}, ErrAlreadyStarted
	case Completed:
		return AttemptDraft{}, ErrAlreadyCompleted
	}
	if len(s.questions) == 0 {
		return AttemptDraft{}, ErrNoQuestions
	}

	s.reset()
	s.total = len(s.questions)
	s.startedAt = now
	s.state = InProgress{QuestionIndex: 0}

	return AttemptDraft{
		QuizID:         s.quiz.ID,
		TotalQuestions: len(s.questions),
		StartedAt:      now,
	}, nil
}

func (s *Session) Select(optionID string) error {
	st, err := s.inProgress()
	if err != nil {
		return err
	}
	if st.Answered {
		return ErrAlreadyAnswered
	}
	s.selected = strings.TrimSpace(optionID)
	return nil
}

// Submit 提交当前题目。未选择选项或已提交时为空操作（防重复点击）。
func (s *Session) Submit(now time.Time, timeSpent int) (Outcome, error) {
	st, err := s.inProgress()
	if err != nil {
		return Outcome{}, err
	}
	if st.QuestionIndex >= len(s.questions) {
		return Outcome{}, ErrNoQuestions
	}

	question := s.questions[st.QuestionIndex]
	if st.Answered || s.selected == "" {
		out := Outcome{Question: question, Progress: s.progress(now)}
		if a, ok := s.answers[question.ID]; ok {
			out.Answer = a
		}
		return out, nil
	}

	if timeSpent < 0 {
		timeSpent = 0
	}
	answer := Answer{
		QuestionID:       question.ID,
		UserAnswer:       s.selected,
		IsCorrect:        isCorrect(question, s.selected),
		TimeSpentSeconds: timeSpent,
	}
	s.answers[question.ID] = answer
	if answer.IsCorrect && s.correct < s.total {
		s.correct++
	}
	s.state = InProgress{QuestionIndex: st.QuestionIndex, Answered: true}

	return Outcome{
		Submitted: true,
		Answer:    answer,
		Question:  question,
		Progress:  s.progress(now),
	}, nil
}

// SubmitFor 定位到指定题目后选择并提交，不限制跳题
func (s *Session) SubmitFor(now time.Time, questionID, optionID string, timeSpent int) (Outcome, error) {
	if _, err := s.inProgress(); err != nil {
		return Outcome{}, err
	}
	idx := s.indexOf(questionID)
	if idx < 0 {
		return Outcome{}, ErrUnknownQuestion
	}

	_, answered := s.answers[questionID]
	s.state = InProgress{QuestionIndex: idx, Answered: answered}
	s.selected = ""
	if !answered {
		if err := s.Select(optionID); err != nil {
			return Outcome{}, err
		}
	}
	return s.Submit(now, timeSpent)
}

// Next 进入下一题；最后一题之后完成测验并返回结果
func (s *Session) Next(now time.Time) (*Result, error) {
	st, err := s.inProgress()
	if err != nil {
		return nil, err
	}
	if !st.Answered {
		return nil, ErrNotAnswered
	}

	if st.QuestionIndex+1 < len(s.questions) {
		next := st.QuestionIndex + 1
		_, answered := s.answers[s.questions[next].ID]
		s.selected = ""
		s.state = InProgress{QuestionIndex: next, Answered: answered}
		return nil, nil
	}

	res, err := s.Finish(now)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Finish 结束测验，得分只计算一次；未作答的题目按错误处理
func (s *Session) Finish(now time.Time) (Result, error) {
	switch s.state.(type) {
	case NotStarted:
		return Result{}, ErrNotStarted
	case Completed:
		return Result{}, ErrAlreadyCompleted
	}

	score := Score(s.correct, s.total)
	res := Result{
		Score:            score,
		Passed:           Passed(score, s.quiz.PassingScore),
		CorrectAnswers:   s.correct,
		TotalQuestions:   s.total,
		TimeSpentSeconds: s.Elapsed(now),
		CompletedAt:      now,
	}
	s.result = &res
	s.selected = ""
	s.state = Completed{Score: res.Score, Passed: res.Passed}
	return res, nil
}

// Result 已完成会话的结果
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Retake 清空本地状态，下一次 Start 会产生新的 attempt
func (s *Session) Retake() error {
	if _, ok := s.state.(Completed); !ok {
		return ErrNotCompleted
	}
	s.reset()
	s.state = NotStarted{}
	return nil
}

func (s *Session) reset() {
	s.selected = ""
	s.answers = make(map[string]Answer)
	s.correct = 0
	s.startedAt = time.Time{}
	s.result = nil
}

func (s *Session) inProgress() (InProgress, error) {
	switch st := s.state.(type) {
	case InProgress:
		return st, nil
	case Completed:
		return InProgress{}, ErrAlreadyCompleted
	default:
		return InProgress{}, ErrNotStarted
	}
}

func (s *Session) progress(now time.Time) Progress {
	return Progress{
		CorrectAnswers:   s.correct,
		TimeSpentSeconds: s.Elapsed(now),
	}
}

func (s *Session) indexOf(questionID string) int {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

func isCorrect(q model.QuizQuestion, answer string) bool {
	return strings.TrimSpace(answer) == q.CorrectAnswer
}
