// Package quiz 实现测验答题会话的状态机：
// NotStarted -> InProgress{题目序号, 是否已提交} -> Completed{得分, 是否通过}。
// 包内不做任何 I/O，持久化由调用方根据返回值完成。
package quiz

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoQuestions      = errors.New("quiz has no questions")
	ErrNotStarted       = errors.New("quiz session not started")
	ErrAlreadyStarted   = errors.New("quiz session already started")
	ErrAlreadyCompleted = errors.New("quiz session already completed")
	ErrNotCompleted     = errors.New("quiz session not completed")
	ErrNotAnswered      = errors.New("current question not answered")
	ErrAlreadyAnswered  = errors.New("current question already answered")
	ErrUnknownQuestion  = errors.New("question does not belong to quiz")
)

// State 会话状态，只有下面三种实现
type State interface {
	isState()
	String() string
}

type NotStarted struct{}

type InProgress struct {
	QuestionIndex int
	Answered      bool
}

type Completed struct {
	Score  int
	Passed bool
}

func (NotStarted) isState() {}
func (InProgress) isState() {}
func (Completed) isState()  {}

func (NotStarted) String() string { return "not_started" }

func (s InProgress) String() string {
	if s.Answered {
		return fmt.Sprintf("in_progress(q=%d, submitted)", s.QuestionIndex)
	}
	return fmt.Sprintf("in_progress(q=%d, pending)", s.QuestionIndex)
}

func (s Completed) String() string {
	return fmt.Sprintf("completed(score=%d, passed=%t)", s.Score, s.Passed)
}

// Score 百分制得分 round(correct/total*100)，total 为 0 时记 0 分
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func Passed(score, passingScore int) bool {
	return score >= passingScore
}
