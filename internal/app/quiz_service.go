package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"quizdeck-service/internal/docstore"
	"quizdeck-service/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuizSource loads quiz content, typically through a TTL cache in front of
// the document store.
type QuizSource interface {
	GetQuiz(ctx context.Context, userID, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, userID, quizID string)
}

// SessionLiveness marks live sessions in an external store (Redis). Optional.
type SessionLiveness interface {
	Mark(ctx context.Context, sessionID string)
	Clear(ctx context.Context, sessionID string)
}

// QuizService contains the quiz authoring, delivery and results use cases.
// Live sessions are held in process memory; persistence happens exactly once
// per session, at submission.
type QuizService struct {
	store    docstore.Store
	quizzes  QuizSource
	liveness SessionLiveness
	logger   zerolog.Logger
	clock    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	timers   map[string]*countdown
}

type countdown struct {
	stop chan struct{}
	once sync.Once
}

func (c *countdown) halt() {
	c.once.Do(func() { close(c.stop) })
}

func NewQuizService(store docstore.Store, quizzes QuizSource, liveness SessionLiveness, logger zerolog.Logger) *QuizService {
	return &QuizService{
		store:    store,
		quizzes:  quizzes,
		liveness: liveness,
		logger:   logger,
		clock:    time.Now,
		sessions: make(map[string]*Session),
		timers:   make(map[string]*countdown),
	}
}

// ─── Authoring ───────────────────────────────────────────────────────────

// CreateQuiz validates and persists a new quiz, returning it with its
// store-assigned ID.
func (s *QuizService) CreateQuiz(ctx context.Context, userID string, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = ""
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	id, err := s.store.Add(ctx, docstore.UserQuizzes(userID), quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	quiz.ID = id
	return quiz, nil
}

// GetQuiz loads a quiz through the cache.
func (s *QuizService) GetQuiz(ctx context.Context, userID, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, userID, quizID)
}

// ListQuizzes returns the user's quizzes. Malformed documents are skipped,
// not fatal.
func (s *QuizService) ListQuizzes(ctx context.Context, userID string) ([]domain.Quiz, error) {
	docs, err := docstore.List(ctx, s.store, docstore.UserQuizzes(userID))
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return s.decodeQuizzes(docs), nil
}

// UpdateQuiz replaces an existing quiz document and drops the cached copy.
func (s *QuizService) UpdateQuiz(ctx context.Context, userID, quizID string, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = ""
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if _, err := s.store.Get(ctx, docstore.UserQuizzes(userID), quizID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if err := s.store.Put(ctx, docstore.UserQuizzes(userID), quizID, quiz, false); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	s.quizzes.Invalidate(ctx, userID, quizID)
	quiz.ID = quizID
	return quiz, nil
}

// DeleteQuiz removes a quiz document and drops the cached copy. Deleting an
// absent quiz is not an error.
func (s *QuizService) DeleteQuiz(ctx context.Context, userID, quizID string) error {
	if err := s.store.Delete(ctx, docstore.UserQuizzes(userID), quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.quizzes.Invalidate(ctx, userID, quizID)
	return nil
}

// SubscribeQuizzes streams snapshots of the user's quiz list. The caller
// must invoke the returned cancel function on teardown.
func (s *QuizService) SubscribeQuizzes(ctx context.Context, userID string) (<-chan []domain.Quiz, func(), error) {
	docs, cancel, err := s.store.Subscribe(ctx, docstore.UserQuizzes(userID))
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe quizzes: %w", err)
	}

	out := make(chan []domain.Quiz, 8)
	go func() {
		defer close(out)
		for snapshot := range docs {
			quizzes := s.decodeQuizzes(snapshot)
			select {
			case out <- quizzes:
			default:
				// Drop the stale snapshot so slow consumers never block.
				select {
				case <-out:
				default:
				}
				out <- quizzes
			}
		}
	}()
	return out, cancel, nil
}

func (s *QuizService) decodeQuizzes(docs []docstore.Document) []domain.Quiz {
	quizzes := make([]domain.Quiz, 0, len(docs))
	for _, doc := range docs {
		var quiz domain.Quiz
		if err := json.Unmarshal(doc.Data, &quiz); err != nil {
			s.logger.Warn().Str("doc_id", doc.ID).Err(err).Msg("skipping malformed quiz document")
			continue
		}
		quiz.ID = doc.ID
		quizzes = append(quizzes, quiz)
	}
	return quizzes
}

// ─── Sessions ────────────────────────────────────────────────────────────

// StartSession begins a quiz attempt and, for timed quizzes, starts the
// one-second countdown ticker that owns automatic submission.
func (s *QuizService) StartSession(ctx context.Context, userID, quizID string) (SessionView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, userID, quizID)
	if err != nil {
		return SessionView{}, err
	}

	session, err := NewSessionWithClock(uuid.NewString(), userID, quiz, s.clock)
	if err != nil {
		return SessionView{}, err
	}

	s.mu.Lock()
	s.sessions[session.ID()] = session
	if quiz.Timed() {
		timer := &countdown{stop: make(chan struct{})}
		s.timers[session.ID()] = timer
		go s.runCountdown(session, timer.stop)
	}
	s.mu.Unlock()

	if s.liveness != nil {
		s.liveness.Mark(ctx, session.ID())
	}
	s.logger.Info().
		Str("session_id", session.ID()).
		Str("quiz_id", quizID).
		Bool("timed", quiz.Timed()).
		Msg("session started")
	return session.View(), nil
}

// runCountdown ticks a timed session once per second until it expires, is
// submitted, or is torn down. On expiry it triggers the one-and-only
// automatic submission with timedOut set.
func (s *QuizService) runCountdown(session *Session, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !session.Tick() {
				continue
			}
			if _, err := s.Submit(context.Background(), session.UserID(), session.ID(), true); err != nil {
				s.logger.Error().
					Str("session_id", session.ID()).
					Err(err).
					Msg("auto-submit failed; session left open for manual retry")
			}
			return
		}
	}
}

// GetSession returns the taker-facing view of a live session.
func (s *QuizService) GetSession(userID, sessionID string) (SessionView, error) {
	session, err := s.session(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return session.View(), nil
}

// SetAnswer buffers an answer for a question index.
func (s *QuizService) SetAnswer(userID, sessionID string, index int, value string) (SessionView, error) {
	session, err := s.session(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.SetAnswer(index, value); err != nil {
		return SessionView{}, err
	}
	return session.View(), nil
}

// Advance moves the current question pointer by delta, clamped in range.
func (s *QuizService) Advance(userID, sessionID string, delta int) (SessionView, error) {
	session, err := s.session(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.Advance(delta); err != nil {
		return SessionView{}, err
	}
	return session.View(), nil
}

// Submit finishes the session and persists the attempt exactly once. The
// manual path and the countdown both converge here; whichever arrives second
// is a no-op that returns the recorded attempt. A failed store write rolls
// the submitted flag back so the user can retry.
func (s *QuizService) Submit(ctx context.Context, userID, sessionID string, timedOut bool) (domain.Attempt, error) {
	session, err := s.session(userID, sessionID)
	if err != nil {
		return domain.Attempt{}, err
	}

	attempt, fresh := session.beginSubmit(timedOut)
	if !fresh {
		if stored, ok := session.Attempt(); ok {
			return stored, nil
		}
		return domain.Attempt{}, domain.ErrSessionSubmitted
	}

	id, err := s.store.Add(ctx, docstore.UserAttempts(userID), attempt)
	if err != nil {
		session.rollbackSubmit()
		return domain.Attempt{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	attempt.ID = id
	session.recordAttempt(attempt)

	s.stopCountdown(sessionID)
	if s.liveness != nil {
		s.liveness.Clear(ctx, sessionID)
	}
	s.logger.Info().
		Str("session_id", sessionID).
		Str("attempt_id", id).
		Int("score", attempt.Score).
		Bool("timed_out", timedOut).
		Msg("attempt submitted")
	return attempt, nil
}

// AbandonSession tears a session down without producing an attempt and stops
// its countdown so no dangling ticker mutates a discarded session.
func (s *QuizService) AbandonSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.session(userID, sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	s.stopCountdown(sessionID)

	if s.liveness != nil {
		s.liveness.Clear(ctx, sessionID)
	}
	s.logger.Info().Str("session_id", sessionID).Msg("session abandoned")
	return nil
}

func (s *QuizService) session(userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || session.UserID() != userID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) stopCountdown(sessionID string) {
	s.mu.Lock()
	timer, ok := s.timers[sessionID]
	if ok {
		delete(s.timers, sessionID)
	}
	s.mu.Unlock()
	if ok {
		timer.halt()
	}
}

// ─── Results ─────────────────────────────────────────────────────────────

// ListAttempts returns all attempts for a quiz, unordered.
func (s *QuizService) ListAttempts(ctx context.Context, userID, quizID string) ([]domain.Attempt, error) {
	docs, err := docstore.List(ctx, s.store, docstore.UserAttempts(userID))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]domain.Attempt, 0, len(docs))
	for _, doc := range docs {
		var attempt domain.Attempt
		if err := json.Unmarshal(doc.Data, &attempt); err != nil {
			s.logger.Warn().Str("doc_id", doc.ID).Err(err).Msg("skipping malformed attempt document")
			continue
		}
		if attempt.QuizID != quizID {
			continue
		}
		attempt.ID = doc.ID
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// LatestAttempt picks the most recent attempt by submission time with a
// linear scan; no ordering guarantee is assumed from the store.
func (s *QuizService) LatestAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	attempts, err := s.ListAttempts(ctx, userID, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if len(attempts) == 0 {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}

	latest := attempts[0]
	for _, attempt := range attempts[1:] {
		if attempt.SubmissionTime.After(latest.SubmissionTime) {
			latest = attempt
		}
	}
	return latest, nil
}
