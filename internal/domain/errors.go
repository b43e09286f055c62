package domain

import "errors"

var (
	// ErrInvalidQuiz is returned when a quiz fails authoring validation or a
	// session is started on a quiz with no questions.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrQuizNotFound indicates the quiz document is absent from the store.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates no attempt exists for the requested quiz.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSessionNotFound is returned when a quiz session has not been started
	// or was already torn down.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionSubmitted is returned on mutation of an already-submitted session.
	ErrSessionSubmitted = errors.New("quiz session already submitted")
	// ErrSubmissionFailed wraps store failures while persisting an attempt.
	// The session stays open so the caller can retry.
	ErrSubmissionFailed = errors.New("attempt submission failed")
)
