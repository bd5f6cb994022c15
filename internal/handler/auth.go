package handler

import (
	"net/http"

	"marketplace-be/internal/auth"
	"marketplace-be/internal/user"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username      string    `json:"username" binding:"required,max=50"`
	Email         string    `json:"email" binding:"required,email"`
	Password      string    `json:"password" binding:"required,min=6"`
	ContactNumber string    `json:"contactNumber" binding:"required,len=10,digits"`
	Address       string    `json:"address" binding:"max=200"`
	Role          auth.Role `json:"role" binding:"omitempty,oneof=buyer seller"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.svc.Users.Register(c.Request.Context(), user.RegisterInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Role:          req.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, session)
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.svc.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, session)
}

func (h *Handler) Logout(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c.Request.Context())
	if err := h.svc.Users.Logout(c.Request.Context(), claims); err != nil {
		fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) setSessionCookie(c *gin.Context, s *user.Session) {
	maxAge := 0
	if h.tokens != nil {
		maxAge = int(h.tokens.TTL().Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, s.Token, maxAge, "/", "", h.secureCookie, true)
}
