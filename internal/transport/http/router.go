package http

import (
	"errors"
	"net/http"

	"quizdeck-service/internal/app"
	"quizdeck-service/internal/domain"
	"quizdeck-service/internal/identity"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter wires the REST and WebSocket surfaces.
func NewRouter(service *app.QuizService, provider *identity.Provider, logger zerolog.Logger, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	authHandler := NewAuthHandler(provider)
	quizHandler := NewQuizHandler(service)
	sessionHandler := NewSessionHandler(service)
	wsHandler := NewWSHandler(service, provider, logger, allowedOrigins)

	router.POST("/api/v1/auth/session", authHandler.SignIn)
	router.GET("/ws/quizzes", wsHandler.ServeQuizList)

	api := router.Group("/api/v1", RequireUser(provider))
	{
		api.GET("/quizzes", quizHandler.List)
		api.POST("/quizzes", quizHandler.Create)
		api.GET("/quizzes/:quiz_id", quizHandler.Get)
		api.PUT("/quizzes/:quiz_id", quizHandler.Update)
		api.DELETE("/quizzes/:quiz_id", quizHandler.Delete)

		api.GET("/quizzes/:quiz_id/attempts", quizHandler.ListAttempts)
		api.GET("/quizzes/:quiz_id/attempts/latest", quizHandler.LatestAttempt)

		api.POST("/quizzes/:quiz_id/sessions", sessionHandler.Start)
		api.GET("/sessions/:session_id", sessionHandler.Get)
		api.PUT("/sessions/:session_id/answers/:index", sessionHandler.SetAnswer)
		api.POST("/sessions/:session_id/advance", sessionHandler.Advance)
		api.POST("/sessions/:session_id/submit", sessionHandler.Submit)
		api.DELETE("/sessions/:session_id", sessionHandler.Abandon)
	}

	return router
}

// fail maps domain errors onto HTTP statuses with a flat error body.
func fail(c *gin.Context, err error) {
	c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuiz):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionSubmitted):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
