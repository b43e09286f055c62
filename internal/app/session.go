package app

import (
	"sync"
	"time"

	"quizdeck-service/internal/domain"
)

// Status is the session lifecycle state. Submitted is terminal; abandoning a
// session is not a state, it simply leaves no attempt behind.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// Session drives one quiz attempt from start to submission: current question
// pointer, per-question answer buffer, optional countdown and the terminal
// submitted flag.
//
// The countdown ticker and user input both mutate the session, so every
// transition holds the mutex. The submit transition is idempotent: the timer
// expiring in the same instant as a manual submit still produces exactly one
// attempt.
type Session struct {
	id     string
	userID string
	quiz   domain.Quiz
	clock  func() time.Time

	mu               sync.Mutex
	currentIndex     int
	answers          map[int]string
	remainingSeconds *int
	status           Status
	attempt          *domain.Attempt
}

// NewSession starts a session at question zero with an empty answer buffer
// per question. Fails with ErrInvalidQuiz when the quiz has no questions.
func NewSession(id, userID string, quiz domain.Quiz) (*Session, error) {
	return NewSessionWithClock(id, userID, quiz, time.Now)
}

// NewSessionWithClock is a test hook for deterministic timestamps.
func NewSessionWithClock(id, userID string, quiz domain.Quiz, now func() time.Time) (*Session, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrInvalidQuiz
	}

	answers := make(map[int]string, len(quiz.Questions))
	for i := range quiz.Questions {
		answers[i] = ""
	}

	s := &Session{
		id:      id,
		userID:  userID,
		quiz:    quiz,
		clock:   now,
		answers: answers,
		status:  StatusInProgress,
	}
	if quiz.Timed() {
		remaining := quiz.TimeLimitMinutes * 60
		s.remainingSeconds = &remaining
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// SetAnswer overwrites the answer buffer for a question. Values are never
// validated against the option set; garbage simply scores as incorrect.
func (s *Session) SetAnswer(index int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitted {
		return domain.ErrSessionSubmitted
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return domain.ErrInvalidQuiz
	}
	s.answers[index] = value
	return nil
}

// Advance moves the question pointer by delta, clamped to the valid range.
func (s *Session) Advance(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitted {
		return domain.ErrSessionSubmitted
	}
	next := s.currentIndex + delta
	if next < 0 {
		next = 0
	}
	if max := len(s.quiz.Questions) - 1; next > max {
		next = max
	}
	s.currentIndex = next
	return nil
}

// Tick decrements the countdown by one second. It reports true exactly once,
// when the countdown reaches zero, signalling the owner to auto-submit with
// timedOut set. Untimed, submitted and already-expired sessions no-op.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitted || s.remainingSeconds == nil || *s.remainingSeconds <= 0 {
		return false
	}
	*s.remainingSeconds--
	return *s.remainingSeconds == 0
}

// beginSubmit performs the in_progress -> submitted transition and builds
// the attempt via the scoring engine. The second return is false when the
// session was already submitted, which makes the transition idempotent: the
// racing caller gets the recorded attempt (if persisted) and no new one is
// created.
func (s *Session) beginSubmit(timedOut bool) (domain.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitted {
		if s.attempt != nil {
			return *s.attempt, false
		}
		return domain.Attempt{}, false
	}
	s.status = StatusSubmitted

	answers := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	score, results := domain.Evaluate(s.quiz, answers)

	var timeTaken *int
	if s.quiz.Timed() {
		taken := s.quiz.TimeLimitMinutes*60 - *s.remainingSeconds
		timeTaken = &taken
	}

	return domain.Attempt{
		QuizID:           s.quiz.ID,
		UserID:           s.userID,
		Score:            score,
		TotalQuestions:   len(s.quiz.Questions),
		SubmissionTime:   s.clock().UTC(),
		TimeTakenSeconds: timeTaken,
		TimedOut:         timedOut,
		Answers:          answers,
		DetailedResults:  results,
	}, true
}

// recordAttempt pins the persisted attempt so later submit calls can return it.
func (s *Session) recordAttempt(attempt domain.Attempt) {
	s.mu.Lock()
	s.attempt = &attempt
	s.mu.Unlock()
}

// rollbackSubmit re-opens the session after a failed store write so the user
// can retry manually. The countdown is not restarted.
func (s *Session) rollbackSubmit() {
	s.mu.Lock()
	if s.attempt == nil {
		s.status = StatusInProgress
	}
	s.mu.Unlock()
}

// Attempt returns the persisted attempt, if any.
func (s *Session) Attempt() (domain.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return domain.Attempt{}, false
	}
	return *s.attempt, true
}

// SessionView is a taker-facing snapshot. The current question is exposed
// without its correct answer.
type SessionView struct {
	ID               string         `json:"id"`
	QuizID           string         `json:"quizId"`
	QuizTitle        string         `json:"quizTitle"`
	Status           Status         `json:"status"`
	CurrentIndex     int            `json:"currentIndex"`
	TotalQuestions   int            `json:"totalQuestions"`
	Question         QuestionView   `json:"question"`
	Answers          map[int]string `json:"answers"`
	RemainingSeconds *int           `json:"remainingSeconds,omitempty"`
}

// QuestionView is a question as shown to the taker, correct answer withheld.
type QuestionView struct {
	Type    domain.QuestionType `json:"type"`
	Text    string              `json:"text"`
	Options []domain.Option     `json:"options,omitempty"`
}

// View snapshots the session for transport.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	question := s.quiz.Questions[s.currentIndex]
	answers := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	view := SessionView{
		ID:             s.id,
		QuizID:         s.quiz.ID,
		QuizTitle:      s.quiz.Title,
		Status:         s.status,
		CurrentIndex:   s.currentIndex,
		TotalQuestions: len(s.quiz.Questions),
		Question: QuestionView{
			Type:    question.Type,
			Text:    question.Text,
			Options: question.Options,
		},
		Answers: answers,
	}
	if s.remainingSeconds != nil {
		remaining := *s.remainingSeconds
		view.RemainingSeconds = &remaining
	}
	return view
}
