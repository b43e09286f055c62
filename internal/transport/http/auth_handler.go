package http

import (
	"net/http"

	"quizdeck-service/internal/identity"
	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges optional tokens for stable user identities.
type AuthHandler struct {
	provider *identity.Provider
}

func NewAuthHandler(provider *identity.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

type signInRequest struct {
	Token string `json:"token"`
}

type signInResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// SignIn handles POST /api/v1/auth/session. An empty body (or empty token)
// yields a fresh anonymous identity; a valid token keeps its identity.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	// Body is optional for anonymous sign-in.
	_ = c.ShouldBindJSON(&req)

	userID, token, err := h.provider.SignIn(req.Token)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signInResponse{UserID: userID, Token: token})
}
