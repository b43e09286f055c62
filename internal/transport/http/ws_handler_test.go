package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizdeck-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWSQuizListStreamsSnapshots(t *testing.T) {
	router, _, _ := newTestRouter(t)
	token := signIn(t, router)

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws/quizzes?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var initial struct {
		Type    string        `json:"type"`
		Payload []domain.Quiz `json:"payload"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if initial.Type != "quizzes" || len(initial.Payload) != 0 {
		t.Fatalf("expected empty quizzes snapshot, got %+v", initial)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/quizzes", token, quizPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create quiz: status %d", rec.Code)
	}

	var update struct {
		Type    string        `json:"type"`
		Payload []domain.Quiz `json:"payload"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Payload) != 1 || update.Payload[0].Title != "Capitals" {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestWSQuizListRejectsBadToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws/quizzes?token=garbage"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}
