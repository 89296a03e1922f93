package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/middleware"
	"github.com/workpulse/workpulse/internal/models"
)

type authService interface {
	Login(login, password string) (string, *models.User, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// AuthHandler serves login and logout.
type AuthHandler struct {
	svc        authService
	cookieName string
	cookieTTL  int // seconds
}

func NewAuthHandler(svc authService, cookieName string, cookieTTLSeconds int) *AuthHandler {
	if cookieName == "" {
		cookieName = "wp_token"
	}
	return &AuthHandler{svc: svc, cookieName: cookieName, cookieTTL: cookieTTLSeconds}
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := h.svc.Login(req.Login, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie(h.cookieName, token, h.cookieTTL, "/", "", false, true)
	respondOK(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":        user.ID,
			"login":     user.Login,
			"full_name": user.FullName,
			"role":      user.Role,
		},
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.CurrentClaims(c); ok {
		if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
			respondError(c, err)
			return
		}
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
