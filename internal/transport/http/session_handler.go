package http

import (
	"net/http"
	"strconv"

	"quizdeck-service/internal/app"
	"github.com/gin-gonic/gin"
)

// SessionHandler covers the quiz-taking endpoints.
type SessionHandler struct {
	service *app.QuizService
}

func NewSessionHandler(service *app.QuizService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Start handles POST /api/v1/quizzes/:quiz_id/sessions.
func (h *SessionHandler) Start(c *gin.Context) {
	view, err := h.service.StartSession(c.Request.Context(), UserID(c), c.Param("quiz_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": view})
}

// Get handles GET /api/v1/sessions/:session_id.
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.service.GetSession(UserID(c), c.Param("session_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": view})
}

type answerRequest struct {
	Value string `json:"value"`
}

// SetAnswer handles PUT /api/v1/sessions/:session_id/answers/:index. Empty
// values are allowed and mean "unanswered".
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer index must be an integer"})
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.SetAnswer(UserID(c), c.Param("session_id"), index, req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": view})
}

type advanceRequest struct {
	Delta int `json:"delta"`
}

// Advance handles POST /api/v1/sessions/:session_id/advance.
func (h *SessionHandler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.Advance(UserID(c), c.Param("session_id"), req.Delta)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": view})
}

// Submit handles POST /api/v1/sessions/:session_id/submit. Submitting twice
// returns the already-recorded attempt instead of creating another.
func (h *SessionHandler) Submit(c *gin.Context) {
	attempt, err := h.service.Submit(c.Request.Context(), UserID(c), c.Param("session_id"), false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

// Abandon handles DELETE /api/v1/sessions/:session_id. The session is torn
// down, its countdown stopped, and no attempt is recorded.
func (h *SessionHandler) Abandon(c *gin.Context) {
	if err := h.service.AbandonSession(c.Request.Context(), UserID(c), c.Param("session_id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
