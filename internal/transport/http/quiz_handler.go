package http

import (
	"net/http"

	"quizdeck-service/internal/app"
	"quizdeck-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// QuizHandler covers the authoring CRUD and results endpoints.
type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

type quizRequest struct {
	Title            string            `json:"title" binding:"required"`
	Description      string            `json:"description"`
	TimeLimitMinutes int               `json:"timeLimitMinutes"`
	Questions        []domain.Question `json:"questions" binding:"required"`
}

func (r quizRequest) toQuiz() domain.Quiz {
	return domain.Quiz{
		Title:            r.Title,
		Description:      r.Description,
		TimeLimitMinutes: r.TimeLimitMinutes,
		Questions:        r.Questions,
	}
}

// List handles GET /api/v1/quizzes.
func (h *QuizHandler) List(c *gin.Context) {
	quizzes, err := h.service.ListQuizzes(c.Request.Context(), UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

// Create handles POST /api/v1/quizzes.
func (h *QuizHandler) Create(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quiz, err := h.service.CreateQuiz(c.Request.Context(), UserID(c), req.toQuiz())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quiz": quiz})
}

// Get handles GET /api/v1/quizzes/:quiz_id.
func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.service.GetQuiz(c.Request.Context(), UserID(c), c.Param("quiz_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

// Update handles PUT /api/v1/quizzes/:quiz_id.
func (h *QuizHandler) Update(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quiz, err := h.service.UpdateQuiz(c.Request.Context(), UserID(c), c.Param("quiz_id"), req.toQuiz())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

// Delete handles DELETE /api/v1/quizzes/:quiz_id.
func (h *QuizHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteQuiz(c.Request.Context(), UserID(c), c.Param("quiz_id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAttempts handles GET /api/v1/quizzes/:quiz_id/attempts.
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.service.ListAttempts(c.Request.Context(), UserID(c), c.Param("quiz_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// LatestAttempt handles GET /api/v1/quizzes/:quiz_id/attempts/latest.
func (h *QuizHandler) LatestAttempt(c *gin.Context) {
	attempt, err := h.service.LatestAttempt(c.Request.Context(), UserID(c), c.Param("quiz_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}
