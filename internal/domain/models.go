package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuestionType tags the question variant.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "true_false"
	QuestionOpenEnded QuestionType = "open_ended"
)

// Option is one selectable answer of an MCQ question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a tagged variant over mcq, true_false and open_ended.
//
// CorrectAnswer holds the stringified option index for mcq questions and
// "True"/"False" for true_false questions. Open-ended questions have no
// options and no correctness concept.
type Question struct {
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
}

// Quiz is the authored document consumed by the session engine.
type Quiz struct {
	ID               string     `json:"id,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	TimeLimitMinutes int        `json:"timeLimitMinutes,omitempty"`
	Questions        []Question `json:"questions"`
}

// Timed reports whether the quiz carries a countdown.
func (q Quiz) Timed() bool {
	return q.TimeLimitMinutes > 0
}

// Validate enforces the authoring-time invariants. Sessions do not re-check
// these beyond the non-empty question list.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidQuiz)
	}
	if q.TimeLimitMinutes < 0 {
		return fmt.Errorf("%w: time limit must be positive", ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: at least one question required", ErrInvalidQuiz)
	}
	for i, question := range q.Questions {
		if err := question.validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

func (q Question) validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question text must not be empty", ErrInvalidQuiz)
	}
	switch q.Type {
	case QuestionMCQ:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: mcq question needs at least one option", ErrInvalidQuiz)
		}
		idx, err := strconv.Atoi(q.CorrectAnswer)
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("%w: correctAnswer %q is not a valid option index", ErrInvalidQuiz, q.CorrectAnswer)
		}
	case QuestionTrueFalse:
		if q.CorrectAnswer != TrueAnswer && q.CorrectAnswer != FalseAnswer {
			return fmt.Errorf("%w: true_false correctAnswer must be %q or %q", ErrInvalidQuiz, TrueAnswer, FalseAnswer)
		}
	case QuestionOpenEnded:
		if len(q.Options) != 0 {
			return fmt.Errorf("%w: open_ended question must not carry options", ErrInvalidQuiz)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidQuiz, q.Type)
	}
	return nil
}

// Fixed answer values for true_false questions. Comparison is case-sensitive.
const (
	TrueAnswer  = "True"
	FalseAnswer = "False"
)

// QuestionResult is the per-question evaluation record inside an attempt.
// CorrectAnswer carries the resolved option text for mcq questions, not the
// raw index.
type QuestionResult struct {
	QuestionIndex int          `json:"questionIndex"`
	QuestionText  string       `json:"questionText"`
	Type          QuestionType `json:"type"`
	UserAnswer    string       `json:"userAnswer"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	IsCorrect     Correctness  `json:"isCorrect"`
}

// Attempt is the persisted record of one completed quiz session.
// It is created exactly once at submission and immutable thereafter.
type Attempt struct {
	ID               string           `json:"id,omitempty"`
	QuizID           string           `json:"quizId"`
	UserID           string           `json:"userId"`
	Score            int              `json:"score"`
	TotalQuestions   int              `json:"totalQuestions"`
	SubmissionTime   time.Time        `json:"submissionTime"`
	TimeTakenSeconds *int             `json:"timeTakenSeconds"`
	TimedOut         bool             `json:"timedOut"`
	Answers          map[int]string   `json:"answers"`
	DetailedResults  []QuestionResult `json:"detailedResults"`
}
