package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quizdeck-service/internal/app"
	"quizdeck-service/internal/docstore"
	"quizdeck-service/internal/domain"
	"quizdeck-service/internal/infra/memory"
	"github.com/rs/zerolog"
)

func newTestService(store docstore.Store) *app.QuizService {
	loader := memory.NewStoreLoader(store)
	cache := memory.NewQuizCache(loader, 5*time.Minute)
	return app.NewQuizService(store, cache, nil, zerolog.Nop())
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title:       "Capitals",
		Description: "Geography basics",
		Questions: []domain.Question{
			{
				Type: domain.QuestionMCQ,
				Text: "Capital of France?",
				Options: []domain.Option{
					{ID: "o1", Text: "Lyon"},
					{ID: "o2", Text: "Paris"},
				},
				CorrectAnswer: "1",
			},
			{
				Type:          domain.QuestionTrueFalse,
				Text:          "Berlin is in Germany",
				CorrectAnswer: domain.TrueAnswer,
			},
			{
				Type: domain.QuestionOpenEnded,
				Text: "Describe your favourite city",
			},
		},
	}
}

func TestQuizCRUD(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewDocStore())

	created, err := service.CreateQuiz(ctx, "u1", sampleQuiz())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected store-assigned quiz ID")
	}

	got, err := service.GetQuiz(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Title != "Capitals" {
		t.Fatalf("expected title Capitals, got %q", got.Title)
	}

	updated := sampleQuiz()
	updated.Title = "World Capitals"
	if _, err := service.UpdateQuiz(ctx, "u1", created.ID, updated); err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	// Update must punch through the quiz cache.
	got, err = service.GetQuiz(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get updated quiz: %v", err)
	}
	if got.Title != "World Capitals" {
		t.Fatalf("expected cache invalidation, still got %q", got.Title)
	}

	quizzes, err := service.ListQuizzes(ctx, "u1")
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(quizzes) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(quizzes))
	}

	if err := service.DeleteQuiz(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	quizzes, _ = service.ListQuizzes(ctx, "u1")
	if len(quizzes) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(quizzes))
	}
}

func TestCreateQuizRejectsInvalid(t *testing.T) {
	service := newTestService(memory.NewDocStore())

	invalid := sampleQuiz()
	invalid.Questions = nil
	if _, err := service.CreateQuiz(context.Background(), "u1", invalid); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}
}

func TestQuizzesAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewDocStore())

	created, err := service.CreateQuiz(ctx, "u1", sampleQuiz())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	if _, err := service.GetQuiz(ctx, "u2", created.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected other user's read to miss, got %v", err)
	}
}

func TestSessionFlowProducesOneAttempt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	service := newTestService(store)

	quiz, err := service.CreateQuiz(ctx, "u1", sampleQuiz())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	view, err := service.StartSession(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if view.Status != app.StatusInProgress || view.CurrentIndex != 0 {
		t.Fatalf("unexpected initial view: %+v", view)
	}

	if _, err := service.SetAnswer("u1", view.ID, 0, "1"); err != nil {
		t.Fatalf("set answer: %v", err)
	}
	if _, err := service.Advance("u1", view.ID, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := service.SetAnswer("u1", view.ID, 1, domain.TrueAnswer); err != nil {
		t.Fatalf("set answer: %v", err)
	}

	attempt, err := service.Submit(ctx, "u1", view.ID, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.Score != 2 || attempt.TotalQuestions != 3 {
		t.Fatalf("expected 2/3, got %d/%d", attempt.Score, attempt.TotalQuestions)
	}
	if attempt.ID == "" {
		t.Fatalf("expected persisted attempt ID")
	}

	// A racing second submit returns the same attempt and writes nothing new.
	again, err := service.Submit(ctx, "u1", view.ID, true)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if again.ID != attempt.ID {
		t.Fatalf("expected same attempt, got %s and %s", attempt.ID, again.ID)
	}

	docs, err := docstore.List(ctx, store, docstore.UserAttempts("u1"))
	if err != nil {
		t.Fatalf("list attempt docs: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected exactly one attempt document, got %d", len(docs))
	}
}

func TestStartSessionUnknownQuiz(t *testing.T) {
	service := newTestService(memory.NewDocStore())
	if _, err := service.StartSession(context.Background(), "u1", "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestAbandonSessionLeavesNoAttempt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	service := newTestService(store)

	quiz, _ := service.CreateQuiz(ctx, "u1", sampleQuiz())
	view, err := service.StartSession(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if err := service.AbandonSession(ctx, "u1", view.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := service.GetSession("u1", view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}

	docs, _ := docstore.List(ctx, store, docstore.UserAttempts("u1"))
	if len(docs) != 0 {
		t.Fatalf("abandoned session must leave no attempt, found %d", len(docs))
	}
}

func TestSessionsAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewDocStore())

	quiz, _ := service.CreateQuiz(ctx, "u1", sampleQuiz())
	view, _ := service.StartSession(ctx, "u1", quiz.ID)

	if _, err := service.GetSession("u2", view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected foreign session lookup to miss, got %v", err)
	}
}

func TestSubmitRollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: memory.NewDocStore()}
	service := newTestService(flaky)

	quiz, _ := service.CreateQuiz(ctx, "u1", sampleQuiz())
	view, err := service.StartSession(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := service.SetAnswer("u1", view.ID, 0, "1"); err != nil {
		t.Fatalf("set answer: %v", err)
	}

	flaky.failAttemptWrites = true
	if _, err := service.Submit(ctx, "u1", view.ID, false); !errors.Is(err, domain.ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}

	// The session must be reopened so a manual retry can succeed.
	flaky.failAttemptWrites = false
	attempt, err := service.Submit(ctx, "u1", view.ID, false)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if attempt.Score != 1 {
		t.Fatalf("expected score 1 on retry, got %d", attempt.Score)
	}
}

func TestLatestAttemptPicksMostRecent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	service := newTestService(store)

	quiz, _ := service.CreateQuiz(ctx, "u1", sampleQuiz())

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, score := range []int{1, 3, 2} {
		attempt := domain.Attempt{
			QuizID:         quiz.ID,
			UserID:         "u1",
			Score:          score,
			TotalQuestions: 3,
			SubmissionTime: base.Add(time.Duration(i) * time.Minute),
			Answers:        map[int]string{},
		}
		if _, err := store.Add(ctx, docstore.UserAttempts("u1"), attempt); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	latest, err := service.LatestAttempt(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("latest attempt: %v", err)
	}
	if latest.Score != 2 {
		t.Fatalf("expected most recent attempt (score 2), got %d", latest.Score)
	}

	if _, err := service.LatestAttempt(ctx, "u1", "other-quiz"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func TestSubscribeQuizzesStreamsSnapshots(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewDocStore())

	updates, cancel, err := service.SubscribeQuizzes(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-updates
	if len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(initial))
	}

	if _, err := service.CreateQuiz(ctx, "u1", sampleQuiz()); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	select {
	case snapshot := <-updates:
		if len(snapshot) != 1 || snapshot[0].Title != "Capitals" {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
}

// flakyStore fails attempt writes on demand to exercise submission recovery.
type flakyStore struct {
	docstore.Store
	failAttemptWrites bool
}

func (s *flakyStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	if s.failAttemptWrites && strings.Contains(collection, "quiz-attempts") {
		return "", errors.New("store unavailable")
	}
	return s.Store.Add(ctx, collection, doc)
}
